package notify

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/chr1sbest/switchboard/internal/gateway"
	"github.com/chr1sbest/switchboard/internal/logger"
)

// Sender is the slice of the gateway the notifier needs.
type Sender interface {
	Send(ctx context.Context, req gateway.SendRequest) error
}

// Notifier formats, chunks, and delivers status text. Send never returns
// an error: no target, empty text, and delivery failures all end here.
type Notifier struct {
	resolver *Resolver
	sender   Sender
	settings SettingsFunc
	log      logger.Logger
}

// NewNotifier creates a notifier over the given resolver and sender.
func NewNotifier(resolver *Resolver, sender Sender, settings SettingsFunc, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Notifier{
		resolver: resolver,
		sender:   sender,
		settings: settings,
		log:      log,
	}
}

// Send delivers text to the resolved target, chunking as needed. Each
// chunk carries a fresh idempotency key.
func (n *Notifier) Send(ctx context.Context, text string) {
	target := n.resolver.Resolve(ctx)
	if target == nil {
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	max := n.settings().GetMaxChars()
	chunks := ChunkText(text, max)
	for i, chunk := range chunks {
		req := gateway.SendRequest{
			Channel:        target.Channel,
			To:             target.To,
			AccountID:      target.AccountID,
			Message:        numberChunk(chunk, i+1, len(chunks), max),
			IdempotencyKey: uuid.NewString(),
		}
		if err := n.sender.Send(ctx, req); err != nil {
			n.log.Warn("notification send failed",
				logger.F("to", target.To),
				logger.F("chunk", i+1),
				logger.F("error", err))
		}
	}
}
