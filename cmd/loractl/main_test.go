package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/loractl/internal/history"
	"github.com/danmuck/loractl/internal/protocol/frame"
	"github.com/danmuck/loractl/internal/protocol/session"
	"github.com/danmuck/loractl/internal/testutil/testlog"
)

type fakeTransport struct {
	frames [][]byte
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.frames = append(f.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeTransport) Close() error { return nil }

func newTestSession(t *testing.T, ft *fakeTransport, cfg session.Config) *session.Session {
	t.Helper()
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = time.Millisecond
	}
	sess, err := session.New(frame.Identity{Addr: 0, ChannelOffset: 18}, ft, cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return sess
}

func TestParseSendLine(t *testing.T) {
	req, err := parseSendLine("10,868,hello world")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Dest != 10 || req.Channel != 868 || req.Message != "hello world" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestParseSendLineMessageKeepsCommas(t *testing.T) {
	req, err := parseSendLine("300,433,lat,lon,alt")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Message != "lat,lon,alt" {
		t.Fatalf("message split too far: %q", req.Message)
	}
}

func TestParseSendLineTooFewParts(t *testing.T) {
	if _, err := parseSendLine("1,2"); err == nil {
		t.Fatalf("expected part count error")
	}
}

func TestParseSendLineNonIntegerFields(t *testing.T) {
	if _, err := parseSendLine("ten,868,msg"); err == nil || !strings.Contains(err.Error(), "dest_addr") {
		t.Fatalf("expected dest_addr error, got %v", err)
	}
	if _, err := parseSendLine("10,uhf,msg"); err == nil || !strings.Contains(err.Error(), "freq") {
		t.Fatalf("expected freq error, got %v", err)
	}
}

func TestParseSendLineAddressRange(t *testing.T) {
	if _, err := parseSendLine("70000,868,msg"); err == nil {
		t.Fatalf("expected 16-bit address rejection")
	}
	if _, err := parseSendLine("-1,868,msg"); err == nil {
		t.Fatalf("expected negative address rejection")
	}
}

func TestParseSendLineEmptyMessageAllowed(t *testing.T) {
	req, err := parseSendLine("5,433,")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if req.Message != "" {
		t.Fatalf("expected empty message, got %q", req.Message)
	}
}

func TestRunSendLoopAcceptsOverlongLines(t *testing.T) {
	testlog.Start(t)
	ft := &fakeTransport{}
	sess := newTestSession(t, ft, session.Config{})

	// The protocol places no upper bound on payload length; a very long
	// input line must be sent like any other, and the loop must keep going.
	long := "1,868," + strings.Repeat("a", 96*1024)
	in := strings.NewReader(long + "\n2,868,ok\n")
	var out bytes.Buffer
	if err := runSendLoop(in, &out, sess); err != nil {
		t.Fatalf("send loop: %v", err)
	}
	if len(ft.frames) != 2 {
		t.Fatalf("expected 2 frames written, got %d", len(ft.frames))
	}
	if got := len(ft.frames[0]); got != frame.HeaderLen+96*1024 {
		t.Fatalf("long frame length: %d", got)
	}
	if strings.Count(out.String(), "message sent") != 2 {
		t.Fatalf("both sends should be reported: %q", out.String())
	}
}

func TestRunSendLoopReportsAndContinues(t *testing.T) {
	testlog.Start(t)
	ft := &fakeTransport{}
	sess := newTestSession(t, ft, session.Config{})

	in := strings.NewReader("1,2\n10,1200,too far\n5,433,hi\n")
	var out bytes.Buffer
	if err := runSendLoop(in, &out, sess); err != nil {
		t.Fatalf("send loop: %v", err)
	}
	if len(ft.frames) != 1 {
		t.Fatalf("only the valid line should reach the wire, frames=%d", len(ft.frames))
	}
	if !strings.Contains(out.String(), "invalid input") {
		t.Fatalf("malformed line not reported: %q", out.String())
	}
	if !strings.Contains(out.String(), "outside the representable bands") {
		t.Fatalf("codec rejection not reported: %q", out.String())
	}
}

func TestRunSendLoopRecordsSentHistory(t *testing.T) {
	testlog.Start(t)
	store, err := history.Open(filepath.Join(t.TempDir(), "messages.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ft := &fakeTransport{}
	sess := newTestSession(t, ft, session.Config{
		OnFrame: func(msg frame.Message) { recordSent(store, msg) },
	})

	in := strings.NewReader("10,868,hi\n")
	var out bytes.Buffer
	if err := runSendLoop(in, &out, sess); err != nil {
		t.Fatalf("send loop: %v", err)
	}

	recent, err := store.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recent))
	}
	rec := recent[0]
	if rec.Direction != history.DirectionSent || rec.DestAddr != 10 || rec.Payload != "hi" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	// The recorded offset comes from decoding the wire bytes, not from a
	// second derivation; it must match the transmitted header byte.
	if rec.DestOffset != ft.frames[0][2] {
		t.Fatalf("recorded offset %d differs from wire byte %d", rec.DestOffset, ft.frames[0][2])
	}
}
