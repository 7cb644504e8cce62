// Package notify resolves where status messages go and delivers them.
// Everything in here is best effort: a failed resolution or send is logged
// and swallowed, never surfaced to the dispatch path.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/chr1sbest/switchboard/internal/config"
	"github.com/chr1sbest/switchboard/internal/extract"
	"github.com/chr1sbest/switchboard/internal/logger"
)

// Target is a resolved delivery destination.
type Target struct {
	Channel   string
	To        string
	AccountID string
}

// SessionLister is the slice of the gateway the resolver needs.
type SessionLister interface {
	ListSessions(ctx context.Context) ([]map[string]any, error)
}

// SettingsFunc returns the current notification settings. Indirection lets
// config hot-reloads apply on the next resolve.
type SettingsFunc func() config.NotifyConfig

// Resolver computes the notification target with a short-lived cache.
// Negative results are cached too, so a session list with no usable
// address doesn't get hammered.
type Resolver struct {
	settings   SettingsFunc
	sessionKey func() string
	sessions   SessionLister
	log        logger.Logger

	mu        sync.Mutex
	cached    *Target
	cachedAt  time.Time
	cachedSet bool

	now func() time.Time
}

// NewResolver creates a resolver. sessionKey may return "" when target
// resolution should rely on the static override only.
func NewResolver(settings SettingsFunc, sessionKey func() string, sessions SessionLister, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &Resolver{
		settings:   settings,
		sessionKey: sessionKey,
		sessions:   sessions,
		log:        log,
		now:        time.Now,
	}
}

// Candidate field paths for the delivery address and account on a session
// entry. The session store's schema is not ours; probe in priority order.
var (
	sessionKeyPaths = [][]string{
		{"key"}, {"sessionKey"}, {"session_key"}, {"id"},
	}
	sessionToPaths = [][]string{
		{"lastTo"}, {"last_to"}, {"delivery", "to"}, {"last", "to"}, {"to"},
	}
	sessionAccountPaths = [][]string{
		{"lastAccountId"}, {"last_account_id"}, {"delivery", "accountId"}, {"accountId"},
	}
	sessionChannelPaths = [][]string{
		{"lastChannel"}, {"last_channel"}, {"delivery", "channel"}, {"channel"},
	}
)

// Resolve returns the current target, or nil when notifications are
// disabled or no destination can be determined.
func (r *Resolver) Resolve(ctx context.Context) *Target {
	st := r.settings()
	if !st.IsEnabled() {
		return nil
	}

	ttl := st.GetCacheTTL()

	r.mu.Lock()
	if r.cachedSet && r.now().Sub(r.cachedAt) < ttl {
		t := r.cached
		r.mu.Unlock()
		return t
	}
	r.mu.Unlock()

	target := r.lookup(ctx, st)

	r.mu.Lock()
	r.cached = target
	r.cachedAt = r.now()
	r.cachedSet = true
	r.mu.Unlock()

	return target
}

func (r *Resolver) lookup(ctx context.Context, st config.NotifyConfig) *Target {
	if st.To != "" {
		return &Target{Channel: st.Channel, To: st.To, AccountID: st.AccountID}
	}

	key := r.sessionKey()
	if key == "" || r.sessions == nil {
		return nil
	}

	entries, err := r.sessions.ListSessions(ctx)
	if err != nil {
		r.log.Warn("session lookup for notification target failed", logger.F("error", err))
		return nil
	}

	for _, entry := range entries {
		if extract.FirstString(entry, sessionKeyPaths...) != key {
			continue
		}
		to := extract.FirstString(entry, sessionToPaths...)
		if to == "" {
			continue
		}
		channel := extract.FirstString(entry, sessionChannelPaths...)
		if channel == "" {
			channel = st.Channel
		}
		return &Target{
			Channel:   channel,
			To:        to,
			AccountID: extract.FirstString(entry, sessionAccountPaths...),
		}
	}

	r.log.Debug("no notification target found in session list", logger.F("session", key))
	return nil
}
