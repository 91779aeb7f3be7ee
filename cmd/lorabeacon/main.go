package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/loractl/internal/config"
	"github.com/danmuck/loractl/internal/logging"
	"github.com/danmuck/loractl/internal/protocol/session"
	"github.com/danmuck/loractl/internal/transport"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime("lorabeacon")

	configPath := flag.String("config", "", "node config toml (empty: defaults + device discovery)")
	dest := flag.Uint("dest", 1, "destination address")
	freq := flag.Int("freq", 868, "destination frequency (whole MHz)")
	interval := flag.Duration("interval", time.Second, "delay between beacons")
	count := flag.Int("count", 0, "number of beacons to send (0: until interrupted)")
	text := flag.String("text", "Hello LoRa", "beacon text")
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

	port, err := transport.Open(transport.Config{Device: device, Baud: cfg.Baud})
	if err != nil {
		log.Fatal().Err(err).Msg("serial open failed")
	}

	sess, err := session.New(cfg.Identity(), port, session.Config{SettleDelay: cfg.SettleDelay})
	if err != nil {
		log.Fatal().Err(err).Msg("session construction failed")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	log.Info().Uint("dest", *dest).Int("freq", *freq).Dur("interval", *interval).Msg("beacon started")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	n := 0
	for {
		n++
		payload := fmt.Sprintf("[%d] %s - %s", n, time.Now().Format("2006-01-02 15:04:05"), *text)
		if err := sess.SendMessage(uint16(*dest), *freq, []byte(payload)); err != nil {
			log.Error().Err(err).Int("seq", n).Msg("beacon send failed")
		} else {
			log.Info().Int("seq", n).Str("payload", payload).Msg("beacon sent")
		}
		if *count > 0 && n >= *count {
			break
		}

		select {
		case <-sig:
			log.Info().Int("sent", n).Msg("interrupted")
			_ = sess.Close()
			return
		case <-ticker.C:
		}
	}

	if err := sess.Close(); err != nil {
		log.Error().Err(err).Msg("session close failed")
		os.Exit(1)
	}
}
