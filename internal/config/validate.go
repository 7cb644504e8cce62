package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError holds details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, "  - "+e.Error())
	}
	return fmt.Sprintf("validation failed with %d error(s):\n%s", len(errs), strings.Join(msgs, "\n"))
}

// HasErrors returns true if there are any validation errors.
func (errs ValidationErrors) HasErrors() bool {
	return len(errs) > 0
}

// Validate checks a config for errors and returns detailed validation errors.
func Validate(cfg *Config) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(cfg.SharedToken) == "" {
		errs = append(errs, ValidationError{
			Field:   "shared_token",
			Message: "shared token is required; every inbound request is checked against it",
		})
	}

	if strings.TrimSpace(cfg.Gateway.URL) == "" {
		errs = append(errs, ValidationError{
			Field:   "gateway.url",
			Message: "gateway url is required",
		})
	} else if u, err := url.Parse(cfg.Gateway.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "gateway.url",
			Message: fmt.Sprintf("not an absolute url: %q", cfg.Gateway.URL),
		})
	}

	if cfg.Notify.MaxChars < 0 {
		errs = append(errs, ValidationError{
			Field:   "notify.max_chars",
			Message: "must not be negative",
		})
	}

	for field, raw := range map[string]string{
		"notify.cache_ttl":        cfg.Notify.CacheTTL,
		"gateway.request_timeout": cfg.Gateway.RequestTimeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid duration %q", raw),
			})
		}
	}

	if cfg.Dispatch.DefaultTimeoutMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "dispatch.default_timeout_ms",
			Message: "must not be negative",
		})
	}

	return errs
}

// ValidateConfig is a convenience function returning an error when invalid.
func ValidateConfig(cfg *Config) error {
	errs := Validate(cfg)
	if errs.HasErrors() {
		return errs
	}
	return nil
}
