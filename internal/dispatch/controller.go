// Package dispatch runs the instruction lifecycle: start an agent run,
// race its completion against a bounded wait, stage human-readable status
// notifications, and hand timed-out runs to a background follow-up loop.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/chr1sbest/switchboard/internal/extract"
	"github.com/chr1sbest/switchboard/internal/gateway"
	"github.com/chr1sbest/switchboard/internal/logger"
	"github.com/chr1sbest/switchboard/internal/tracker"
)

const (
	// MinWaitMs and MaxWaitMs bound the primary wait regardless of what
	// the caller asks for.
	MinWaitMs = 1000
	MaxWaitMs = 25000

	// waitPad gives the gateway's own wait a head start over the local
	// timer, so a healthy gateway timeout arrives as a real result.
	waitPad = 250 * time.Millisecond

	// workingDelay is how long a dispatch may run before the "working"
	// notice fires (immediately when a call is ongoing). A run that
	// finishes under the same cutoff skips the notice entirely.
	workingDelay    = 1200 * time.Millisecond
	doneQuickCutoff = 1200 * time.Millisecond

	followPoll    = 60 * time.Second
	followCeiling = 30 * time.Minute
	statusPoll    = time.Second

	// historySlackMs widens the history window behind the run start to
	// tolerate clock skew between us and the gateway.
	historySlackMs = 2000
	historyLimit   = 20
)

// ClampTimeoutMs bounds a requested wait into [MinWaitMs, MaxWaitMs].
func ClampTimeoutMs(requested int) int {
	if requested < MinWaitMs {
		return MinWaitMs
	}
	if requested > MaxWaitMs {
		return MaxWaitMs
	}
	return requested
}

// Backend is the slice of the gateway the controller needs.
type Backend interface {
	Dispatch(ctx context.Context, req gateway.DispatchRequest) (gateway.DispatchResult, error)
	Wait(ctx context.Context, runID string, poll time.Duration) (gateway.WaitResult, error)
	History(ctx context.Context, sessionKey string, limit int) ([]map[string]any, error)
}

// Notifier delivers status text. Send never errors upward.
type Notifier interface {
	Send(ctx context.Context, text string)
}

// Request is one inbound instruction. A nil TimeoutMs means "use the
// configured default"; an explicit value (even 0) is clamped.
type Request struct {
	Message   string
	Deliver   bool
	Thinking  string
	TimeoutMs *int
}

// Response is the synchronous answer to an instruction. Downstream
// failures surface here as a descriptive Status, never as an error.
type Response struct {
	OK      bool
	RunID   string
	Status  string
	Text    string
	Message string
}

// ControllerOptions wires a controller's collaborators.
type ControllerOptions struct {
	Backend          Backend
	Tracker          *tracker.Tracker
	Notifier         Notifier
	Calls            *CallState
	Registry         *Registry
	SessionKey       func() string
	DefaultTimeoutMs func() int
	Log              logger.Logger
}

// Controller owns the dispatch-and-wait state machine.
type Controller struct {
	backend    Backend
	tracker    *tracker.Tracker
	notifier   Notifier
	calls      *CallState
	registry   *Registry
	sessionKey func() string
	defaultMs  func() int
	log        logger.Logger

	// Timing knobs, defaulted from the package constants. Tests shrink
	// them to keep scenarios fast.
	waitPad         time.Duration
	workingDelay    time.Duration
	doneQuickCutoff time.Duration
	followPoll      time.Duration
	followCeiling   time.Duration
	statusPoll      time.Duration

	now func() time.Time
}

// NewController creates a controller with production timing.
func NewController(opts ControllerOptions) *Controller {
	log := opts.Log
	if log == nil {
		log = logger.NewNoopLogger()
	}
	sessionKey := opts.SessionKey
	if sessionKey == nil {
		sessionKey = func() string { return "" }
	}
	defaultMs := opts.DefaultTimeoutMs
	if defaultMs == nil {
		defaultMs = func() int { return 12000 }
	}
	return &Controller{
		backend:    opts.Backend,
		tracker:    opts.Tracker,
		notifier:   opts.Notifier,
		calls:      opts.Calls,
		registry:   opts.Registry,
		sessionKey: sessionKey,
		defaultMs:  defaultMs,
		log:        log,

		waitPad:         waitPad,
		workingDelay:    workingDelay,
		doneQuickCutoff: doneQuickCutoff,
		followPoll:      followPoll,
		followCeiling:   followCeiling,
		statusPoll:      statusPoll,

		now: time.Now,
	}
}

// Handle routes one instruction: status queries answer from tracked state
// with a single short poll; everything else dispatches a new run.
func (c *Controller) Handle(ctx context.Context, req Request) Response {
	message := strings.TrimSpace(req.Message)
	if tracker.IsStatusQuery(message) {
		return c.statusQuery(ctx, message)
	}
	return c.run(ctx, req, message)
}

func (c *Controller) run(ctx context.Context, req Request, message string) Response {
	startedAt := c.now()
	startedMs := startedAt.UnixMilli()
	summary := tracker.Summarize(message)

	thinking := req.Thinking
	if thinking == "" {
		thinking = "low"
	}

	res, dispatchErr := c.backend.Dispatch(ctx, gateway.DispatchRequest{
		Message:    message,
		SessionKey: c.sessionKey(),
		Deliver:    req.Deliver,
		Thinking:   thinking,
	})
	runID := res.RunID
	if runID == "" {
		runID = tracker.NewRunID()
	}
	short := tracker.ShortID(runID)

	c.tracker.RecordStart(runID, summary, message, startedMs)

	// Notifications and record updates must survive the request context;
	// the caller hanging up doesn't un-happen the run.
	bg := context.WithoutCancel(ctx)

	if dispatchErr != nil {
		c.log.Error("agent dispatch failed",
			logger.F("runId", runID),
			logger.F("error", dispatchErr))
		nowMs := c.now().UnixMilli()
		c.tracker.RecordUpdate(runID, tracker.Patch{Status: "error", CompletedAtMs: nowMs}, nowMs)
		msg := fmt.Sprintf("Couldn't start %s (#%s): %v", summary, short, dispatchErr)
		c.notifier.Send(bg, msg)
		return Response{RunID: runID, Status: "error", Message: msg}
	}

	requested := c.defaultMs()
	if req.TimeoutMs != nil {
		requested = *req.TimeoutMs
	}
	effective := time.Duration(ClampTimeoutMs(requested)) * time.Millisecond

	var workingSent atomic.Bool
	working := func() {
		if workingSent.CompareAndSwap(false, true) {
			c.notifier.Send(bg, fmt.Sprintf("Working on it: %s (#%s)", summary, short))
		}
	}
	var delayed *time.Timer
	if c.calls != nil && c.calls.Ongoing() {
		working()
	} else {
		delayed = time.AfterFunc(c.workingDelay, working)
	}

	waitCh := make(chan gateway.WaitResult, 1)
	go func() {
		result, err := c.backend.Wait(ctx, runID, effective)
		if err != nil {
			result = gateway.WaitResult{Status: "error", Error: err.Error()}
		}
		waitCh <- result
	}()

	var result gateway.WaitResult
	select {
	case result = <-waitCh:
	case <-time.After(effective + c.waitPad):
		result = gateway.WaitResult{Status: "timeout"}
	}
	if delayed != nil {
		delayed.Stop()
	}

	switch result.Status {
	case "ok":
		elapsed := c.now().Sub(startedAt)
		text := c.latestText(ctx, startedMs)
		done := doneMessage(summary, runID, text)
		// Backstop the "working" notice unless the run was quick enough
		// that it never should have fired.
		if workingSent.Load() || elapsed >= c.doneQuickCutoff {
			working()
		}
		c.notifier.Send(bg, done)
		nowMs := c.now().UnixMilli()
		c.tracker.RecordUpdate(runID, tracker.Patch{Status: tracker.StatusDone, CompletedAtMs: nowMs}, nowMs)
		return Response{OK: true, RunID: runID, Status: "ok", Text: text, Message: done}

	case "timeout":
		working()
		notice := fmt.Sprintf("Still working on %s (#%s). I'll follow up when it finishes.", summary, short)
		c.notifier.Send(bg, notice)
		if !c.registry.Start(runID, func(ctx context.Context) {
			c.followUp(ctx, runID, summary, startedMs)
		}) {
			c.log.Debug("follow-up already registered", logger.F("runId", runID))
		}
		return Response{OK: true, RunID: runID, Status: "timeout", Message: notice}

	default:
		status := result.Status
		if status == "" {
			status = "error"
		}
		msg := fmt.Sprintf("%s (#%s) finished with status (%s).", summary, short, status)
		if result.Error != "" {
			msg += " " + result.Error
		}
		c.notifier.Send(bg, msg)
		nowMs := c.now().UnixMilli()
		c.tracker.RecordUpdate(runID, tracker.Patch{Status: status, CompletedAtMs: nowMs}, nowMs)
		return Response{RunID: runID, Status: status, Message: msg}
	}
}

// followUp long-polls a timed-out run until it resolves or the ceiling
// elapses. Runs under the registry's context; cancellation exits silently.
func (c *Controller) followUp(ctx context.Context, runID, summary string, startedMs int64) {
	short := tracker.ShortID(runID)
	deadline := c.now().Add(c.followCeiling)

	for {
		if ctx.Err() != nil {
			return
		}
		if !c.now().Before(deadline) {
			c.notifier.Send(ctx, fmt.Sprintf(
				"%s (#%s) is still running after %d minutes. Giving up on watching it.",
				summary, short, int(c.followCeiling.Minutes())))
			return
		}

		result, err := c.backend.Wait(ctx, runID, c.followPoll)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("follow-up poll failed",
				logger.F("runId", runID),
				logger.F("error", err))
			c.notifier.Send(ctx, fmt.Sprintf("Lost track of %s (#%s): %v", summary, short, err))
			return
		}

		switch result.Status {
		case "ok":
			text := c.latestText(ctx, startedMs)
			nowMs := c.now().UnixMilli()
			c.tracker.RecordUpdate(runID, tracker.Patch{Status: tracker.StatusDone, CompletedAtMs: nowMs}, nowMs)
			c.notifier.Send(ctx, doneMessage(summary, runID, text))
			return
		case "timeout", "":
			continue
		default:
			nowMs := c.now().UnixMilli()
			c.tracker.RecordUpdate(runID, tracker.Patch{Status: result.Status, CompletedAtMs: nowMs}, nowMs)
			c.notifier.Send(ctx, fmt.Sprintf("%s (#%s) finished with status (%s).", summary, short, result.Status))
			return
		}
	}
}

// statusQuery answers a "check status" message from tracked state, giving
// a running record one short poll in case it finished since.
func (c *Controller) statusQuery(ctx context.Context, message string) Response {
	rec := c.tracker.FindForStatusQuery(message)
	if rec == nil {
		return Response{OK: true, Status: "no_jobs", Message: "No active jobs right now."}
	}
	short := tracker.ShortID(rec.RunID)

	if rec.Status != tracker.StatusRunning {
		var msg string
		if rec.Status == tracker.StatusDone {
			msg = fmt.Sprintf("%s (#%s) is done.", rec.Summary, short)
		} else {
			msg = fmt.Sprintf("%s (#%s) finished with status (%s).", rec.Summary, short, rec.Status)
		}
		return Response{OK: true, RunID: rec.RunID, Status: rec.Status, Message: msg}
	}

	result, err := c.backend.Wait(ctx, rec.RunID, c.statusPoll)
	if err == nil && result.Status == "ok" {
		text := c.latestText(ctx, rec.StartedAtMs)
		nowMs := c.now().UnixMilli()
		c.tracker.RecordUpdate(rec.RunID, tracker.Patch{Status: tracker.StatusDone, CompletedAtMs: nowMs}, nowMs)
		return Response{OK: true, RunID: rec.RunID, Status: "ok", Text: text,
			Message: doneMessage(rec.Summary, rec.RunID, text)}
	}

	return Response{OK: true, RunID: rec.RunID, Status: tracker.StatusRunning,
		Message: fmt.Sprintf("%s (#%s) is still running.", rec.Summary, short)}
}

// Candidate field paths on history entries; the store's schema is loose.
var (
	historyRolePaths      = [][]string{{"role"}, {"sender"}, {"author"}}
	historyTimestampPaths = [][]string{{"ts"}, {"timestamp"}, {"createdAt"}, {"created_at"}, {"time"}}
	historyTextPaths      = [][]string{{"text"}, {"content"}, {"message"}, {"body"}}
)

// latestText fetches the newest assistant text produced at or after the
// run's start, with slack for clock skew. Failures log and yield "".
func (c *Controller) latestText(ctx context.Context, startedMs int64) string {
	entries, err := c.backend.History(ctx, c.sessionKey(), historyLimit)
	if err != nil {
		c.log.Warn("history fetch failed", logger.F("error", err))
		return ""
	}
	cutoff := startedMs - historySlackMs

	// Entries arrive newest last; keep the last acceptable one.
	best := ""
	for _, entry := range entries {
		role := strings.ToLower(extract.FirstString(entry, historyRolePaths...))
		if role == "user" {
			continue
		}
		if ts, ok := extract.FirstNumber(entry, historyTimestampPaths...); ok && int64(ts) < cutoff {
			continue
		}
		if s := extract.FirstText(entry, historyTextPaths...); s != "" {
			best = s
		}
	}
	return best
}

func doneMessage(summary, runID, text string) string {
	head := fmt.Sprintf("Done: %s (#%s)", summary, tracker.ShortID(runID))
	if text == "" {
		return head
	}
	return head + "\n" + text
}
