package canbus

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/brutella/can"

	"github.com/danmuck/can2mqtt/internal/protocol/frame"
	"github.com/danmuck/can2mqtt/internal/testutil/testlog"
)

func mustFrame(t *testing.T, id frame.ID, b ...byte) frame.Frame {
	t.Helper()
	f, err := frame.New(id, b)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return f
}

func TestToCANSetsExtendedFlag(t *testing.T) {
	testlog.Start(t)
	std := toCAN(mustFrame(t, 0x7FF, 1, 2))
	if std.ID != 0x7FF || std.Length != 2 || std.Data[1] != 2 {
		t.Fatalf("standard frame wrong: %+v", std)
	}
	ext := toCAN(mustFrame(t, 0x800))
	if ext.ID != 0x800|frame.FlagEFF || ext.Length != 0 {
		t.Fatalf("extended frame wrong: %+v", ext)
	}
}

func TestFromCANMasksFlags(t *testing.T) {
	testlog.Start(t)
	cf := can.Frame{ID: 0x1ABCDEF | frame.FlagEFF, Length: 3, Data: [8]uint8{9, 8, 7}}
	f, flags, err := fromCAN(cf)
	if err != nil {
		t.Fatalf("from can: %v", err)
	}
	if f.ID() != 0x1ABCDEF || flags != frame.FlagEFF || !dataFrame(flags) {
		t.Fatalf("got id=%v flags=%x", f.ID(), flags)
	}
	if !f.Equal(mustFrame(t, 0x1ABCDEF, 9, 8, 7)) {
		t.Fatalf("payload wrong: %v", f)
	}
	if _, _, err := fromCAN(can.Frame{Length: 9}); !errors.Is(err, frame.ErrInvalidDLC) {
		t.Fatalf("expected ErrInvalidDLC, got %v", err)
	}
	if dataFrame(frame.FlagRTR) || dataFrame(frame.FlagERR|frame.FlagEFF) {
		t.Fatalf("rtr and error frames must not count as data")
	}
}

func TestStreamRoundTripSkipsRemoteFrames(t *testing.T) {
	logger := testlog.Start(t)
	local, remote := net.Pipe()
	s := NewStream(local, 4, logger)
	defer s.Close()

	rtr := frame.EncodeWire(mustFrame(t, 0x10))
	binary.LittleEndian.PutUint32(rtr[0:4], binary.LittleEndian.Uint32(rtr[0:4])|frame.FlagRTR)
	data := mustFrame(t, 0x123, 0xAA)
	go func() {
		remote.Write(rtr)
		frame.WriteFrame(remote, data)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got, err := s.Recv(ctx)
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !got.Equal(data) {
		t.Fatalf("got %v", got)
	}

	sent := make(chan frame.Frame, 1)
	go func() {
		f, _, err := frame.ReadFrame(remote)
		if err == nil {
			sent <- f
		}
	}()
	want := mustFrame(t, 0x1FFFFFFF, 1, 2, 3, 4, 5, 6, 7, 8)
	if err := s.Send(ctx, want); err != nil {
		t.Fatalf("send: %v", err)
	}
	select {
	case f := <-sent:
		if !f.Equal(want) {
			t.Fatalf("remote read %v", f)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("remote never received frame")
	}
}

func TestStreamRecvFailsAfterRemoteClose(t *testing.T) {
	logger := testlog.Start(t)
	local, remote := net.Pipe()
	s := NewStream(local, 1, logger)
	defer s.Close()
	remote.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := s.Recv(ctx); err == nil || errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected stream error, got %v", err)
	}
}

func TestRecvHonorsContext(t *testing.T) {
	testlog.Start(t)
	p := newPump(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.recv(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	p.stop(nil)
	if _, err := p.recv(context.Background()); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
