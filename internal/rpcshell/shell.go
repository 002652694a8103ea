// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rpcshell is the C10 request shell: it adapts an internal/tool
// Registry onto mark3labs/mcp-go's stdio JSON-RPC transport and enforces a
// per-request deadline on every tools/call. initialize and tools/list are
// handled by the underlying mcp-go server directly; Shell adapts
// tools/call, wrapping every dispatched command in the spec's result
// envelope (success flag, duration, request id, warnings, error).
//
// notifications/cancelled propagates the way an HTTP handler observes a
// client disconnect: mcp-go's stdio session cancels the context it hands
// to the registered ToolHandlerFunc, and that same context is threaded
// through to every suspension point inside internal/tool's commands
// (rate-limiter acquire, retry sleep, HTTP round trip, file I/O), so
// cancellation is cooperative without the shell needing its own wire-level
// handling of the notification. The cancellation table below additionally
// lets this process cancel a tracked request from the inside, e.g. during
// a graceful shutdown sweep.
package rpcshell

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/meshintel/paper-mcp/internal/errs"
	"github.com/meshintel/paper-mcp/internal/tool"
	"github.com/meshintel/paper-mcp/pkg/types"
)

// Envelope is the spec §4.9 result envelope: every tools/call response is
// wrapped in one of these, serialized as the tool result's text content.
type Envelope struct {
	Success    bool     `json:"success"`
	DurationMs int64    `json:"duration_ms"`
	RequestID  string   `json:"request_id"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      *ErrInfo `json:"error,omitempty"`
	Result     any      `json:"result,omitempty"`
}

// ErrInfo is the JSON-serializable projection of an *errs.Error.
type ErrInfo struct {
	Kind      string `json:"kind"`
	Provider  string `json:"provider,omitempty"`
	Retriable bool   `json:"retriable"`
	Message   string `json:"message"`
}

// cancelTable is the process-wide task table keyed by request id, cleared
// as each request completes and entirely rebuilt on process restart.
type cancelTable struct {
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func newCancelTable() *cancelTable {
	return &cancelTable{cancels: make(map[string]context.CancelFunc)}
}

func (t *cancelTable) register(id string, cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancels[id] = cancel
}

func (t *cancelTable) clear(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cancels, id)
}

// cancel aborts the request tracked under id, if still in flight, and
// reports whether one was found.
func (t *cancelTable) cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cancel, ok := t.cancels[id]
	if ok {
		cancel()
	}
	return ok
}

func (t *cancelTable) ids() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.cancels))
	for id := range t.cancels {
		out = append(out, id)
	}
	return out
}

// Shell owns the mcp-go server instance, the tool registry it dispatches
// to, and the cancellation table keyed by request id.
type Shell struct {
	server *server.MCPServer
	tools  *tool.Registry
	cfg    types.Config
	logger *zap.Logger

	cancels *cancelTable
}

// New builds a Shell exposing every command in tools as an MCP tool named
// after Command.Name.
func New(name, version string, tools *tool.Registry, cfg types.Config, logger *zap.Logger) *Shell {
	s := &Shell{tools: tools, cfg: cfg, logger: logger, cancels: newCancelTable()}

	srv := server.NewMCPServer(name, version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.server = srv

	for _, cmd := range tools.All() {
		s.register(cmd)
	}
	return s
}

// Serve runs the shell over stdio until the client disconnects; the
// caller is responsible for tying process signals to a graceful shutdown
// sweep over ActiveRequests/Cancel before exiting.
func (s *Shell) Serve() error {
	return server.ServeStdio(s.server)
}

// ActiveRequests returns the request ids currently tracked as in flight.
func (s *Shell) ActiveRequests() []string {
	return s.cancels.ids()
}

// Cancel aborts the in-flight request tracked under requestID, reporting
// whether one was found. Used during graceful shutdown to unwind
// outstanding tool calls before the process exits.
func (s *Shell) Cancel(requestID string) bool {
	return s.cancels.cancel(requestID)
}

func (s *Shell) register(cmd tool.Command) {
	schema, err := json.Marshal(cmd.InputSchema())
	if err != nil {
		s.logger.Error("marshaling tool schema", zap.String("tool", cmd.Name()), zap.Error(err))
		return
	}
	t := mcp.NewToolWithRawSchema(cmd.Name(), cmd.Description(), schema)
	s.server.AddTool(t, s.handler(cmd))
}

func (s *Shell) handler(cmd tool.Command) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		requestID := uuid.NewString()

		deadline := s.cfg.OverallTimeout()
		if deadline <= 0 {
			deadline = 2 * time.Minute
		}
		ctx, cancel := context.WithTimeout(ctx, deadline)
		s.cancels.register(requestID, cancel)
		defer s.cancels.clear(requestID)
		defer cancel()

		logger := s.logger.With(zap.String("request_id", requestID), zap.String("tool", cmd.Name()))
		logger.Info("tool call started")

		args := req.GetArguments()
		raw, err := json.Marshal(args)
		if err != nil {
			return envelopeResult(Envelope{
				RequestID:  requestID,
				DurationMs: time.Since(start).Milliseconds(),
				Error:      toErrInfo(errs.New(errs.KindValidation, err)),
			})
		}

		result, err := cmd.Execute(ctx, raw)
		envelope := Envelope{
			RequestID:  requestID,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			envelope.Error = toErrInfo(errs.Classify(cmd.Name(), err))
			logger.Warn("tool call failed", zap.Error(err), zap.Int64("duration_ms", envelope.DurationMs))
			return envelopeResult(envelope)
		}
		envelope.Success = true
		envelope.Result = result
		logger.Info("tool call completed", zap.Int64("duration_ms", envelope.DurationMs))
		return envelopeResult(envelope)
	}
}

func toErrInfo(e *errs.Error) *ErrInfo {
	if e == nil {
		return nil
	}
	return &ErrInfo{
		Kind:      string(e.Kind),
		Provider:  e.Provider,
		Retriable: e.Retriable,
		Message:   e.Error(),
	}
}

func envelopeResult(e Envelope) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}
