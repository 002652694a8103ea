// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rpcshell

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meshintel/paper-mcp/internal/errs"
)

func TestCancelTableRegisterAndCancel(t *testing.T) {
	tbl := newCancelTable()
	_, cancel := context.WithCancel(context.Background())
	tbl.register("req-1", cancel)

	if ids := tbl.ids(); len(ids) != 1 || ids[0] != "req-1" {
		t.Fatalf("ids = %v", ids)
	}
	if !tbl.cancel("req-1") {
		t.Fatal("expected cancel of tracked request to succeed")
	}
	if !tbl.cancel("req-1") {
		t.Fatal("cancel does not remove the entry; a second cancel should still report found")
	}
}

func TestCancelTableClearRemovesEntry(t *testing.T) {
	tbl := newCancelTable()
	_, cancel := context.WithCancel(context.Background())
	tbl.register("req-2", cancel)
	tbl.clear("req-2")

	if tbl.cancel("req-2") {
		t.Fatal("expected cancel of cleared request to report not found")
	}
}

func TestCancelTableCancelMissingReportsFalse(t *testing.T) {
	tbl := newCancelTable()
	if tbl.cancel("nonexistent") {
		t.Fatal("expected false for an id that was never registered")
	}
}

func TestToErrInfoProjectsError(t *testing.T) {
	e := errs.New(errs.KindTimeout, nil).WithProvider("arxiv")
	info := toErrInfo(e)
	if info.Kind != string(errs.KindTimeout) || info.Provider != "arxiv" || !info.Retriable {
		t.Fatalf("got %+v", info)
	}
}

func TestToErrInfoNilIsNil(t *testing.T) {
	if toErrInfo(nil) != nil {
		t.Fatal("expected nil ErrInfo for nil error")
	}
}

func TestEnvelopeResultSerializesSuccess(t *testing.T) {
	result, err := envelopeResult(Envelope{Success: true, RequestID: "req-3", DurationMs: 12, Result: map[string]any{"ok": true}})
	if err != nil {
		t.Fatalf("envelopeResult: %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected one content block, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected mcp.TextContent, got %T", result.Content[0])
	}
	if !strings.Contains(text.Text, "req-3") {
		t.Fatalf("expected request id in text, got %q", text.Text)
	}
}

func TestEnvelopeResultSerializesError(t *testing.T) {
	e := errs.New(errs.KindValidation, nil)
	result, err := envelopeResult(Envelope{RequestID: "req-4", Error: toErrInfo(e)})
	if err != nil {
		t.Fatalf("envelopeResult: %v", err)
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected mcp.TextContent, got %T", result.Content[0])
	}
	if !strings.Contains(text.Text, string(errs.KindValidation)) {
		t.Fatalf("expected error kind in text, got %q", text.Text)
	}
}

func TestEnvelopeRoundTripsJSON(t *testing.T) {
	env := Envelope{Success: true, DurationMs: 5, RequestID: "req-5", Warnings: []string{"w1"}}
	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.RequestID != "req-5" || len(decoded.Warnings) != 1 {
		t.Fatalf("got %+v", decoded)
	}
}
