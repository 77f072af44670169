package bridge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/can2mqtt/internal/convert"
	"github.com/danmuck/can2mqtt/internal/protocol"
	"github.com/danmuck/can2mqtt/internal/protocol/frame"
	"github.com/danmuck/can2mqtt/internal/routing"
)

type brokerCall struct {
	op      string
	topic   string
	payload string
}

type pollResult struct {
	ev  Event
	err error
}

type fakeBroker struct {
	mu        sync.Mutex
	calls     []brokerCall
	fail      map[string]error
	events    chan pollResult
	published chan brokerCall
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		fail:      map[string]error{},
		events:    make(chan pollResult, 16),
		published: make(chan brokerCall, 16),
	}
}

func (f *fakeBroker) record(op, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := brokerCall{op: op, topic: topic, payload: string(payload)}
	f.calls = append(f.calls, c)
	if op == "publish" {
		select {
		case f.published <- c:
		default:
		}
	}
	return f.fail[op]
}

func (f *fakeBroker) Subscribe(ctx context.Context, topic string, qos protocol.QoS) error {
	return f.record("subscribe", topic, nil)
}

func (f *fakeBroker) Unsubscribe(ctx context.Context, topic string) error {
	return f.record("unsubscribe", topic, nil)
}

func (f *fakeBroker) Publish(ctx context.Context, topic string, payload []byte, qos protocol.QoS) error {
	return f.record("publish", topic, payload)
}

func (f *fakeBroker) Poll(ctx context.Context) (Event, error) {
	select {
	case r := <-f.events:
		return r.ev, r.err
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (f *fakeBroker) snapshot() []brokerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]brokerCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBroker) ops() []string {
	var out []string
	for _, c := range f.snapshot() {
		out = append(out, c.op+" "+c.topic)
	}
	return out
}

type fakeBus struct {
	rx      chan frame.Frame
	recvErr chan error
	sent    chan frame.Frame
	sendErr error
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		rx:      make(chan frame.Frame, 16),
		recvErr: make(chan error, 1),
		sent:    make(chan frame.Frame, 16),
	}
}

func (b *fakeBus) Recv(ctx context.Context) (frame.Frame, error) {
	select {
	case f := <-b.rx:
		return f, nil
	case err := <-b.recvErr:
		return frame.Frame{}, err
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	}
}

func (b *fakeBus) Send(ctx context.Context, f frame.Frame) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent <- f
	return nil
}

func mustGen(t *testing.T, src string) routing.Generation {
	t.Helper()
	gen, err := routing.Parse(strings.NewReader(src), convert.DefaultRegistry())
	if err != nil {
		t.Fatalf("parse routes: %v", err)
	}
	return gen
}

func mustFrame(t *testing.T, id frame.ID, b ...byte) frame.Frame {
	t.Helper()
	f, err := frame.New(id, b)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return f
}

func mustMessage(t *testing.T, topic, payload string) protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(topic, []byte(payload), protocol.AtLeastOnce)
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	return msg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
