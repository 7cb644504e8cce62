package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/chr1sbest/switchboard/internal/dispatch"
	"github.com/chr1sbest/switchboard/internal/extract"
	"github.com/chr1sbest/switchboard/internal/logger"
)

const maxBodyBytes = 1 << 20

// Candidate field paths on webhook payloads; the platform's event shape
// has shifted across versions, so probe in priority order.
var (
	eventTypePaths = [][]string{
		{"event"}, {"event_type"}, {"type"},
		{"data", "event"}, {"data", "event_type"},
	}
	callIDPaths = [][]string{
		{"call_id"}, {"call", "call_id"}, {"call", "id"},
		{"data", "call_id"}, {"data", "call", "call_id"},
	}
	agentIDPaths = [][]string{
		{"agent_id"}, {"call", "agent_id"},
		{"data", "agent_id"}, {"data", "call", "agent_id"},
	}
)

// handleWebhook acks call-lifecycle events. The 200 goes out before any
// processing; the platform only cares that we heard it.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeBody(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	s.processWebhook(payload)
}

func (s *Server) processWebhook(payload map[string]any) {
	event := strings.ToLower(extract.FirstString(payload, eventTypePaths...))
	callID := extract.FirstString(payload, callIDPaths...)
	agentID := extract.FirstString(payload, agentIDPaths...)

	if filter := s.settings().AgentFilter; filter != "" && agentID != filter {
		s.log.Debug("webhook for other agent ignored",
			logger.F("agentId", agentID),
			logger.F("event", event))
		return
	}

	switch {
	case strings.Contains(event, "start"):
		s.calls.Begin(callID, s.now().UnixMilli())
		s.log.Info("call started", logger.F("callId", callID))
	case strings.Contains(event, "end"):
		s.calls.End(callID)
		s.log.Info("call ended", logger.F("callId", callID))
	default:
		s.log.Debug("webhook event ignored", logger.F("event", event))
	}
}

// handleSync runs one instruction. Every handled outcome is a 200 with a
// descriptive status; downstream failures never become HTTP errors.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeBody(w, r)
	if !ok {
		return
	}

	// Tool-call payloads nest the fields under args.
	if args, isMap := payload["args"].(map[string]any); isMap {
		payload = args
	}

	message := extract.FirstString(payload, []string{"message"}, []string{"instruction"}, []string{"text"})
	if message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "missing_message"})
		return
	}

	req := dispatch.Request{Message: message}
	if deliver, isBool := payload["deliver"].(bool); isBool {
		req.Deliver = deliver
	}
	if thinking, isString := payload["thinking"].(string); isString {
		req.Thinking = thinking
	}
	if n, found := extract.FirstNumber(payload, []string{"timeoutMs"}, []string{"timeout_ms"}); found {
		ms := int(n)
		req.TimeoutMs = &ms
	}

	resp := s.controller.Handle(r.Context(), req)

	body := map[string]any{
		"ok":     resp.OK,
		"status": resp.Status,
	}
	if resp.RunID != "" {
		body["runId"] = resp.RunID
	}
	if resp.Text != "" {
		body["text"] = resp.Text
	}
	if resp.Message != "" {
		body["message"] = resp.Message
	}
	writeJSON(w, http.StatusOK, body)
}

// decodeBody reads and parses a JSON object body, answering 400 itself on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad_json"})
		return nil, false
	}
	var payload map[string]any
	if err := json.Unmarshal(b, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad_json"})
		return nil, false
	}
	return payload, true
}
