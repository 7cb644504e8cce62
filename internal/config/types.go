package config

import "time"

// Config is the bridge configuration loaded from a JSON or YAML file.
type Config struct {
	ListenAddr  string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	SharedToken string `json:"shared_token" yaml:"shared_token"`

	// AgentFilter, when set, drops webhook events whose agent id doesn't match.
	AgentFilter string `json:"agent_filter,omitempty" yaml:"agent_filter,omitempty"`

	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFile  string `json:"log_file,omitempty" yaml:"log_file,omitempty"`

	// StatePath is the JSON run-state document. Defaults to runs.json next
	// to the config file.
	StatePath string `json:"state_path,omitempty" yaml:"state_path,omitempty"`

	Gateway  GatewayConfig  `json:"gateway" yaml:"gateway"`
	Notify   NotifyConfig   `json:"notify,omitempty" yaml:"notify,omitempty"`
	Dispatch DispatchConfig `json:"dispatch,omitempty" yaml:"dispatch,omitempty"`
}

// GatewayConfig points at the agent gateway the bridge dispatches through.
type GatewayConfig struct {
	URL   string `json:"url" yaml:"url"`
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// SessionKey identifies the conversation the bridge dispatches into and
	// resolves notification targets from.
	SessionKey string `json:"session_key,omitempty" yaml:"session_key,omitempty"`

	// RequestTimeout bounds plain (non-long-poll) gateway calls, e.g. "10s".
	RequestTimeout string `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// NotifyConfig controls status notifications.
type NotifyConfig struct {
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`

	// Channel and To force a static delivery target. When To is empty the
	// target is resolved from the gateway's session list instead.
	Channel   string `json:"channel,omitempty" yaml:"channel,omitempty"`
	To        string `json:"to,omitempty" yaml:"to,omitempty"`
	AccountID string `json:"account_id,omitempty" yaml:"account_id,omitempty"`

	// MaxChars caps a single outbound message before chunking kicks in.
	MaxChars int `json:"max_chars,omitempty" yaml:"max_chars,omitempty"`

	// CacheTTL is how long a resolved target is reused (e.g. "60s").
	CacheTTL string `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
}

// DispatchConfig tunes the primary wait.
type DispatchConfig struct {
	// DefaultTimeoutMs applies when a request carries no timeoutMs. The
	// effective wait is always clamped to the 1s..25s window.
	DefaultTimeoutMs int `json:"default_timeout_ms,omitempty" yaml:"default_timeout_ms,omitempty"`
}

// IsEnabled returns whether notifications are on (defaults to true).
func (n NotifyConfig) IsEnabled() bool {
	if n.Enabled == nil {
		return true
	}
	return *n.Enabled
}

// GetMaxChars returns the chunking budget with its default.
func (n NotifyConfig) GetMaxChars() int {
	if n.MaxChars <= 0 {
		return 1600
	}
	return n.MaxChars
}

// GetCacheTTL parses and returns the target cache TTL.
func (n NotifyConfig) GetCacheTTL() time.Duration {
	if n.CacheTTL == "" {
		return 60 * time.Second
	}
	d, err := time.ParseDuration(n.CacheTTL)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetRequestTimeout parses and returns the plain-call timeout.
func (g GatewayConfig) GetRequestTimeout() time.Duration {
	if g.RequestTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(g.RequestTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetDefaultTimeoutMs returns the default primary-wait budget.
func (d DispatchConfig) GetDefaultTimeoutMs() int {
	if d.DefaultTimeoutMs <= 0 {
		return 12000
	}
	return d.DefaultTimeoutMs
}

// GetListenAddr returns the listen address with its default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == "" {
		return ":8787"
	}
	return c.ListenAddr
}
