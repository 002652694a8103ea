// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the process-wide zap.Logger. Every sink writes to
// stderr only: stdout is reserved for the JSON-RPC stream a paper-mcp
// server speaks to its client, the same stdout/stderr separation a CLI
// keeps by sending its own diagnostic output to os.Stderr rather than
// stdout.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Mode selects the encoding and level defaults for New.
type Mode string

const (
	// ModeProduction emits one JSON object per line, level info and above.
	ModeProduction Mode = "production"
	// ModeDevelopment emits human-readable console lines, level debug and
	// above, with stack traces on warn.
	ModeDevelopment Mode = "development"
)

// New builds a *zap.Logger for mode, writing exclusively to stderr.
func New(mode Mode) (*zap.Logger, error) {
	var cfg zap.Config
	switch mode {
	case ModeDevelopment:
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// ModeFromString maps a config/flag string ("production", "development",
// "" → production) to a Mode, defaulting to ModeProduction for anything
// unrecognized rather than failing startup over a logging preference.
func ModeFromString(s string) Mode {
	if s == string(ModeDevelopment) {
		return ModeDevelopment
	}
	return ModeProduction
}

// WithRequest returns a child logger tagged with the request id and tool
// name, the two fields every request-scoped log line in spec §4.9's
// envelope needs attached.
func WithRequest(logger *zap.Logger, requestID, tool string) *zap.Logger {
	return logger.With(zap.String("request_id", requestID), zap.String("tool", tool))
}
