package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/loractl/internal/config"
	"github.com/danmuck/loractl/internal/history"
	"github.com/danmuck/loractl/internal/logging"
	"github.com/danmuck/loractl/internal/protocol/frame"
	"github.com/danmuck/loractl/internal/protocol/session"
	"github.com/danmuck/loractl/internal/transport"
	"github.com/rs/zerolog/log"
)

type sendRequest struct {
	Dest    uint16
	Channel int
	Message string
}

// parseSendLine splits one input line of the form dest_addr,freq,message.
// The message part may itself contain commas.
func parseSendLine(line string) (sendRequest, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return sendRequest{}, fmt.Errorf("want dest_addr,freq,message, got %d field(s)", len(parts))
	}
	dest, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 16)
	if err != nil {
		return sendRequest{}, fmt.Errorf("dest_addr %q is not a 16-bit address", strings.TrimSpace(parts[0]))
	}
	channel, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return sendRequest{}, fmt.Errorf("freq %q is not an integer", strings.TrimSpace(parts[1]))
	}
	return sendRequest{Dest: uint16(dest), Channel: channel, Message: parts[2]}, nil
}

// runSendLoop reads input lines until EOF and sends each well-formed one.
// Malformed lines and per-send failures are reported and the loop
// continues; lines of any length are accepted.
func runSendLoop(in io.Reader, out io.Writer, sess *session.Session) error {
	fmt.Fprintln(out, "loractl sender interface")
	fmt.Fprintln(out, "type messages as: dest_addr,freq,message")

	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "\nsend> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			handleSendLine(out, sess, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func handleSendLine(out io.Writer, sess *session.Session, line string) {
	req, err := parseSendLine(line)
	if err != nil {
		fmt.Fprintf(out, "invalid input: %v\n", err)
		return
	}

	if err := sess.SendMessage(req.Dest, req.Channel, []byte(req.Message)); err != nil {
		switch {
		case errors.Is(err, frame.ErrChannelOutOfRange):
			fmt.Fprintf(out, "rejected: frequency %d is outside the representable bands\n", req.Channel)
		case errors.Is(err, session.ErrTransportWrite), errors.Is(err, session.ErrShortWrite):
			fmt.Fprintf(out, "link error: %v\n", err)
			log.Error().Err(err).Msg("transport write failed")
		default:
			fmt.Fprintf(out, "send failed: %v\n", err)
		}
		return
	}

	fmt.Fprintln(out, "message sent")
}

func main() {
	logging.ConfigureRuntime("loractl")

	configPath := flag.String("config", "", "node config toml (empty: defaults + device discovery)")
	flag.Parse()

	cfg := config.DefaultNodeConfig()
	if *configPath != "" {
		loaded, err := config.LoadNodeConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load node config")
		}
		cfg = loaded
		log.Info().Str("path", *configPath).Msg("loaded node config")
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

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			log.Warn().Err(err).Msg("message history unavailable")
			store = nil
		}
	}

	sess, err := session.New(cfg.Identity(), port, session.Config{
		SettleDelay: cfg.SettleDelay,
		OnFrame:     func(msg frame.Message) { recordSent(store, msg) },
	})
	if err != nil {
		log.Fatal().Err(err).Msg("session construction failed")
	}

	shutdown := func(code int) {
		_ = sess.Close()
		if store != nil {
			_ = store.Close()
		}
		os.Exit(code)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nexiting")
		shutdown(0)
	}()

	if err := runSendLoop(os.Stdin, os.Stdout, sess); err != nil {
		log.Error().Err(err).Msg("stdin read failed")
		shutdown(1)
	}
	shutdown(0)
}

// recordSent logs one sent frame, taken from the session's decoded copy of
// the wire bytes so the history cannot drift from what was transmitted.
func recordSent(store *history.Store, msg frame.Message) {
	if store == nil {
		return
	}
	rec := history.Record{
		Direction:    history.DirectionSent,
		DestAddr:     msg.DestAddr,
		DestOffset:   msg.DestChannelOffset,
		SenderAddr:   msg.SenderAddr,
		SenderOffset: msg.SenderChannelOffset,
		Payload:      string(msg.Payload),
		CreatedAt:    time.Now(),
	}
	if err := store.Append(rec); err != nil {
		log.Warn().Err(err).Msg("history append failed")
	}
}
