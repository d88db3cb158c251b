// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
// Licensed under GNU AGPLv3 - see LICENSE file for details
// Source: https://github.com/blubskye/gohyphanet

package fcp

import "go.uber.org/zap"

// Level is a log severity, ordered least to most severe. FCP sessions use a
// finer grain than zap's defaults because the wire trace (DETAIL) is useful
// during protocol debugging but far too noisy for INFO.
type Level int

const (
	DEBUG Level = iota
	DETAIL
	INFO
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case DETAIL:
		return "DETAIL"
	case INFO:
		return "INFO"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string (e.g. "INFO") to a Level, defaulting to
// INFO for an unrecognized value.
func ParseLevel(s string) Level {
	switch s {
	case "DEBUG":
		return DEBUG
	case "DETAIL":
		return DETAIL
	case "INFO":
		return INFO
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Logger is the sink NodeSession writes its wire trace and lifecycle events
// to. Callers may supply their own implementation; NewZapSink and NoopSink
// cover the common cases.
type Logger interface {
	Log(level Level, msg string)
}

// NoopSink discards everything. It is the default when no Logger is
// configured, so unit tests and library embedders are not forced to
// configure logging.
type NoopSink struct{}

func (NoopSink) Log(Level, string) {}

// zapSink adapts a *zap.Logger to the Logger interface, filtering out
// anything below its configured floor before paying for the zap call.
type zapSink struct {
	floor Level
	zl    *zap.Logger
}

// NewZapSink builds a production JSON zap.Logger and wraps it as a Logger
// that only emits events at or above floor.
func NewZapSink(floor Level) (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapSink{floor: floor, zl: zl}, nil
}

func (s *zapSink) Log(level Level, msg string) {
	if level < s.floor {
		return
	}
	switch level {
	case DEBUG, DETAIL:
		s.zl.Debug(msg, zap.String("fcpLevel", level.String()))
	case INFO:
		s.zl.Info(msg)
	case ERROR:
		s.zl.Error(msg)
	case FATAL:
		s.zl.Error(msg, zap.Bool("fatal", true))
	}
}
