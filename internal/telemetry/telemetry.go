// Package telemetry wraps the container's logging dependency behind a
// narrow interface, so the engine, checker and disposal paths never import
// zap directly and a caller who wants silence never has to configure one.
package telemetry

import "go.uber.org/zap"

// Sink is the logging capability the container needs: leveled messages
// with structured key-value pairs, in the zap.SugaredLogger calling
// convention (alternating key, value, key, value...).
type Sink interface {
	Debug(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// NoOp returns a Sink that discards everything, the container's default.
func NoOp() Sink { return noopSink{} }

type noopSink struct{}

func (noopSink) Debug(string, ...any) {}
func (noopSink) Warn(string, ...any)  {}
func (noopSink) Error(string, ...any) {}

// zapSink adapts a *zap.SugaredLogger to Sink.
type zapSink struct {
	l *zap.SugaredLogger
}

// FromZap wraps an existing zap.Logger as a Sink.
func FromZap(l *zap.Logger) Sink {
	return zapSink{l: l.Sugar()}
}

// NewProduction builds a zap-backed Sink using zap's production preset
// (JSON encoding, info level and above).
func NewProduction() (Sink, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return zapSink{l: l.Sugar()}, nil
}

// NewDevelopment builds a zap-backed Sink using zap's development preset
// (console encoding, debug level and above, stack traces on warn+).
func NewDevelopment() (Sink, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}

	return zapSink{l: l.Sugar()}, nil
}

func (z zapSink) Debug(msg string, kv ...any) { z.l.Debugw(msg, kv...) }
func (z zapSink) Warn(msg string, kv ...any)  { z.l.Warnw(msg, kv...) }
func (z zapSink) Error(msg string, kv ...any) { z.l.Errorw(msg, kv...) }
