package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/loractl/internal/config"
	"github.com/danmuck/loractl/internal/history"
	"github.com/danmuck/loractl/internal/logging"
	"github.com/danmuck/loractl/internal/protocol/frame"
	"github.com/danmuck/loractl/internal/transport"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime("lorarecv")

	configPath := flag.String("config", "", "node config toml (empty: defaults + device discovery)")
	flag.Parse()

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

	var store *history.Store
	if cfg.HistoryPath != "" {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			log.Warn().Err(err).Msg("message history unavailable")
			store = nil
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nexiting")
		_ = port.Close()
		if store != nil {
			_ = store.Close()
		}
		os.Exit(0)
	}()

	log.Info().Str("device", port.Device()).Msg("listening for frames")

	// The wire has no length prefix or delimiter: a frame is one
	// transmission burst. Bytes are accumulated until the read timeout
	// reports a quiet gap, then the buffer is decoded as one frame.
	buf := make([]byte, 512)
	var pending []byte
	for {
		n, err := port.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			log.Error().Err(err).Msg("serial read failed")
			os.Exit(1)
		}
		if len(pending) == 0 {
			continue
		}

		msg, err := frame.Decode(pending)
		pending = pending[:0]
		if err != nil {
			// Truncated burst: discard and keep listening.
			log.Warn().Err(err).Msg("malformed frame discarded")
			continue
		}

		fmt.Printf("from %d (offset %d): %s\n", msg.SenderAddr, msg.SenderChannelOffset, string(msg.Payload))
		recordReceived(store, msg)
	}
}

func recordReceived(store *history.Store, msg frame.Message) {
	if store == nil {
		return
	}
	rec := history.Record{
		Direction:    history.DirectionReceived,
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
