package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/loractl/internal/config"
	"github.com/danmuck/loractl/internal/gps"
	"github.com/danmuck/loractl/internal/logging"
	"github.com/danmuck/loractl/internal/protocol/session"
	"github.com/danmuck/loractl/internal/transport"
	"github.com/rs/zerolog/log"
)

// Sentence and read budgets per fix attempt. A receiver emits a sentence
// burst every second, so one attempt spans a few seconds of output.
const (
	maxSentencesPerFix = 30
	maxReadsPerLine    = 20
)

func main() {
	logging.ConfigureRuntime("loragps")

	configPath := flag.String("config", "", "node config toml (empty: defaults + device discovery)")
	gpsDevice := flag.String("gps-device", "/dev/ttyAMA0", "GPS receiver serial device")
	gpsBaud := flag.Int("gps-baud", 9600, "GPS receiver baud rate")
	dest := flag.Uint("dest", 1, "destination address")
	freq := flag.Int("freq", 868, "destination frequency (whole MHz)")
	interval := flag.Duration("interval", 2*time.Second, "delay between position reports")
	count := flag.Int("count", 0, "number of reports to send (0: until interrupted)")
	flag.Parse()

	if *dest > 0xFFFF {
		log.Fatal().Uint("dest", *dest).Msg("destination address outside 0-65535")
	}

	cfg := config.DefaultNodeConfig()
	if *configPath != "" {
		loaded, err := config.LoadNodeConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load node config")
		}
		cfg = loaded
	}

	device := cfg.Device
	if device == "" {
		found, err := transport.Discover()
		if err != nil {
			log.Fatal().Err(err).Msg("no radio device")
		}
		device = found
	}
	if device == *gpsDevice {
		log.Fatal().Str("device", device).Msg("GPS and radio cannot share a serial device")
	}

	gpsPort, err := transport.Open(transport.Config{Device: *gpsDevice, Baud: *gpsBaud})
	if err != nil {
		log.Fatal().Err(err).Msg("GPS serial open failed")
	}

	port, err := transport.Open(transport.Config{Device: device, Baud: cfg.Baud})
	if err != nil {
		log.Fatal().Err(err).Msg("radio serial open failed")
	}

	sess, err := session.New(cfg.Identity(), port, session.Config{SettleDelay: cfg.SettleDelay})
	if err != nil {
		log.Fatal().Err(err).Msg("session construction failed")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	log.Info().
		Str("gps", gpsPort.Device()).
		Str("radio", port.Device()).
		Uint("dest", *dest).
		Int("freq", *freq).
		Msg("position reporting started")

	src := gps.NewSource(gpsPort)
	n := 0
	for {
		fix, err := src.NextFix(maxSentencesPerFix, maxReadsPerLine)
		if err != nil {
			if errors.Is(err, gps.ErrNoFix) {
				log.Warn().Msg("no valid GPS fix")
				continue
			}
			log.Error().Err(err).Msg("GPS read failed")
			_ = gpsPort.Close()
			_ = sess.Close()
			os.Exit(1)
		}

		payload := fix.Payload()
		if err := sess.SendMessage(uint16(*dest), *freq, []byte(payload)); err != nil {
			log.Error().Err(err).Str("payload", payload).Msg("position send failed")
		} else {
			n++
			log.Info().Int("seq", n).Str("payload", payload).Msg("position sent")
		}
		if *count > 0 && n >= *count {
			break
		}

		select {
		case <-sig:
			log.Info().Int("sent", n).Msg("interrupted")
			_ = gpsPort.Close()
			_ = sess.Close()
			return
		case <-time.After(*interval):
		}
	}

	_ = gpsPort.Close()
	if err := sess.Close(); err != nil {
		log.Error().Err(err).Msg("session close failed")
		os.Exit(1)
	}
}
