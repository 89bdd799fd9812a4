package log

import (
	"context"
	"time"

	"github.com/apc-foundation/exam-pipeline/pkg/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StructuredLogger emits operation-scoped log lines through the global zap logger.
// Steps and successes are written at the logger's level, errors always at error level.
type StructuredLogger struct {
	name  string
	level zapcore.Level
	base  []zap.Field
}

func NewDebugLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name, level: zapcore.DebugLevel}
}

func NewInfoLogger(name string) *StructuredLogger {
	return &StructuredLogger{name: name, level: zapcore.InfoLevel}
}

// WithContext attaches the request id found in ctx, if any.
func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	clone := *l
	clone.base = append([]zap.Field{}, l.base...)
	if id := requestid.FromContext(ctx); id != "" {
		clone.base = append(clone.base, zap.String("request_id", id))
	}
	return &clone
}

func (l *StructuredLogger) Operation(name string) *OperationBuilder {
	return &OperationBuilder{logger: l, operation: name}
}

type OperationBuilder struct {
	logger    *StructuredLogger
	operation string
	fields    []zap.Field
}

func (b *OperationBuilder) WithString(key, value string) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value))
	return b
}

func (b *OperationBuilder) WithStringPtr(key string, value *string) *OperationBuilder {
	if value != nil {
		b.fields = append(b.fields, zap.String(key, *value))
	}
	return b
}

func (b *OperationBuilder) WithInt(key string, value int) *OperationBuilder {
	b.fields = append(b.fields, zap.Int(key, value))
	return b
}

func (b *OperationBuilder) WithBool(key string, value bool) *OperationBuilder {
	b.fields = append(b.fields, zap.Bool(key, value))
	return b
}

func (b *OperationBuilder) WithUUID(key string, value uuid.UUID) *OperationBuilder {
	b.fields = append(b.fields, zap.String(key, value.String()))
	return b
}

func (b *OperationBuilder) WithUUIDPtr(key string, value *uuid.UUID) *OperationBuilder {
	if value != nil {
		b.fields = append(b.fields, zap.String(key, value.String()))
	}
	return b
}

func (b *OperationBuilder) WithParam(key string, value any) *OperationBuilder {
	b.fields = append(b.fields, zap.Any(key, value))
	return b
}

func (b *OperationBuilder) Build() *OperationTracer {
	fields := make([]zap.Field, 0, len(b.logger.base)+len(b.fields)+1)
	fields = append(fields, b.logger.base...)
	fields = append(fields, zap.String("operation", b.operation))
	fields = append(fields, b.fields...)

	return &OperationTracer{
		logger:    b.logger,
		operation: b.operation,
		fields:    fields,
		start:     time.Now(),
	}
}

// OperationTracer follows one operation from Build to Success or Error.
type OperationTracer struct {
	logger    *StructuredLogger
	operation string
	fields    []zap.Field
	start     time.Time
}

func (t *OperationTracer) Step(name string) *LogEvent {
	return t.event(t.logger.level, "step", zap.String("step", name))
}

func (t *OperationTracer) Success() *LogEvent {
	return t.event(t.logger.level, "success", zap.Duration("duration", time.Since(t.start)))
}

func (t *OperationTracer) Error(err error) *LogEvent {
	return t.event(zapcore.ErrorLevel, "error", zap.Error(err), zap.Duration("duration", time.Since(t.start)))
}

func (t *OperationTracer) event(level zapcore.Level, phase string, extra ...zap.Field) *LogEvent {
	fields := make([]zap.Field, 0, len(t.fields)+len(extra)+1)
	fields = append(fields, t.fields...)
	fields = append(fields, zap.String("phase", phase))
	fields = append(fields, extra...)
	return &LogEvent{
		logger:  t.logger,
		level:   level,
		message: t.operation + " " + phase,
		fields:  fields,
	}
}

type LogEvent struct {
	logger  *StructuredLogger
	level   zapcore.Level
	message string
	fields  []zap.Field
}

func (e *LogEvent) WithString(key, value string) *LogEvent {
	e.fields = append(e.fields, zap.String(key, value))
	return e
}

func (e *LogEvent) WithInt(key string, value int) *LogEvent {
	e.fields = append(e.fields, zap.Int(key, value))
	return e
}

func (e *LogEvent) WithBool(key string, value bool) *LogEvent {
	e.fields = append(e.fields, zap.Bool(key, value))
	return e
}

func (e *LogEvent) WithUUID(key string, value uuid.UUID) *LogEvent {
	e.fields = append(e.fields, zap.String(key, value.String()))
	return e
}

func (e *LogEvent) WithParam(key string, value any) *LogEvent {
	e.fields = append(e.fields, zap.Any(key, value))
	return e
}

func (e *LogEvent) Log() {
	logger := zap.L().Named(e.logger.name)
	if ce := logger.Check(e.level, e.message); ce != nil {
		ce.Write(e.fields...)
	}
}
