package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/chr1sbest/switchboard/internal/config"
	"github.com/chr1sbest/switchboard/internal/gateway"
	"github.com/chr1sbest/switchboard/internal/logger"
)

type fakeSender struct {
	sent []gateway.SendRequest
	err  error
}

func (f *fakeSender) Send(ctx context.Context, req gateway.SendRequest) error {
	f.sent = append(f.sent, req)
	return f.err
}

func newTestNotifier(cfg config.NotifyConfig, sender *fakeSender) *Notifier {
	settings := staticSettings(cfg)
	r := NewResolver(settings, func() string { return "" }, nil, logger.NewNoopLogger())
	return NewNotifier(r, sender, settings, logger.NewNoopLogger())
}

func TestNotifierSendsSingleChunk(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(config.NotifyConfig{Channel: "sms", To: "+1555"}, sender)

	n.Send(context.Background(), "all done")

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	got := sender.sent[0]
	if got.Message != "all done" {
		t.Errorf("Message = %q, single chunk must not carry a marker", got.Message)
	}
	if got.To != "+1555" || got.Channel != "sms" {
		t.Errorf("target = %+v", got)
	}
	if got.IdempotencyKey == "" {
		t.Error("missing idempotency key")
	}
}

func TestNotifierChunksLongText(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(config.NotifyConfig{To: "+1555", MaxChars: 50}, sender)

	n.Send(context.Background(), strings.Repeat("status word ", 20))

	if len(sender.sent) < 2 {
		t.Fatalf("sent %d messages, want chunking", len(sender.sent))
	}
	for i, req := range sender.sent {
		if !strings.HasPrefix(req.Message, "(") {
			t.Errorf("chunk %d missing (i/n) marker: %q", i, req.Message)
		}
		if n := len([]rune(req.Message)); n > 50 {
			t.Errorf("chunk %d has %d runes", i, n)
		}
	}
	keys := map[string]bool{}
	for _, req := range sender.sent {
		if keys[req.IdempotencyKey] {
			t.Error("idempotency keys must be unique per chunk")
		}
		keys[req.IdempotencyKey] = true
	}
}

func TestNotifierNoTargetNoSend(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(config.NotifyConfig{Enabled: boolPtr(false), To: "+1555"}, sender)

	n.Send(context.Background(), "hello")
	if len(sender.sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestNotifierEmptyTextNoSend(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(config.NotifyConfig{To: "+1555"}, sender)

	n.Send(context.Background(), "   \n ")
	if len(sender.sent) != 0 {
		t.Fatalf("sent %d messages, want 0", len(sender.sent))
	}
}

func TestNotifierSwallowsSendErrors(t *testing.T) {
	sender := &fakeSender{err: errors.New("delivery down")}
	n := newTestNotifier(config.NotifyConfig{To: "+1555"}, sender)

	// Must not panic or propagate.
	n.Send(context.Background(), "hello")
	if len(sender.sent) != 1 {
		t.Fatalf("send should still be attempted once, got %d", len(sender.sent))
	}
}
