package main

import (
	"strings"
	"testing"

	"github.com/chr1sbest/switchboard/internal/store"
)

func TestRenderRunsEmpty(t *testing.T) {
	var b strings.Builder
	renderRuns(&b, nil, 10)
	if !strings.Contains(b.String(), "No runs recorded.") {
		t.Errorf("output = %q", b.String())
	}
}

func TestRenderRunsLimitsAndShortens(t *testing.T) {
	runs := []store.RunRecord{
		{RunID: "aaaabbbbccccdddd", Status: "running", StartedAtMs: 1700000000000, Summary: "first job"},
		{RunID: "eeeeffff00001111", Status: "done", StartedAtMs: 1700000000000, Summary: "second job"},
		{RunID: "2222333344445555", Status: "done", StartedAtMs: 1700000000000, Summary: "third job"},
	}

	var b strings.Builder
	renderRuns(&b, runs, 2)
	out := b.String()

	if !strings.Contains(out, "aaaabbbb") || strings.Contains(out, "aaaabbbbcccc") {
		t.Errorf("run ids should render in short form: %q", out)
	}
	if !strings.Contains(out, "first job") || !strings.Contains(out, "second job") {
		t.Errorf("missing rows: %q", out)
	}
	if strings.Contains(out, "third job") {
		t.Errorf("limit not applied: %q", out)
	}
}
