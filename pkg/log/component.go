package log

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ComponentLogger is the logging entry for components, it also carries a
// context.Context. By default it delegates to the global logger.
type ComponentLogger interface {
	Logger() *Logger
	SetLogger(logger *Logger)
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	DPanic(msg string, fields ...zap.Field)
	Panic(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	Ctx(ctx context.Context) *LoggerWithCtx
}

type component struct {
	name          string
	l             *Logger
	useGlobal     bool
	builtInFields []zap.Field
}

// Component returns a named logger based on the global logger. Repeated calls
// with the same name return the same instance.
func Component(name string, fields ...zap.Field) ComponentLogger {
	componentMu.Lock()
	defer componentMu.Unlock()
	if cp, ok := components[name]; ok {
		return cp
	}
	cp := &component{
		name:          name,
		useGlobal:     true,
		builtInFields: append(fields, zap.String("component", name)),
		l:             global,
	}
	components[name] = cp
	return cp
}

// Logger returns the component's logger.
func (c *component) Logger() *Logger {
	return c.l
}

// SetLogger replaces the logger, the component no longer follows the global one.
func (c *component) SetLogger(logger *Logger) {
	c.setLogger(logger, false)
}

func (c *component) setLogger(logger *Logger, useGlobal bool) {
	c.l = logger
	c.useGlobal = useGlobal
}

func (c *component) with(fields []zap.Field) []zap.Field {
	return append(fields, c.builtInFields...)
}

func (c *component) Debug(msg string, fields ...zap.Field) {
	c.l.Debug(msg, c.with(fields)...)
}

func (c *component) Info(msg string, fields ...zap.Field) {
	c.l.Info(msg, c.with(fields)...)
}

func (c *component) Warn(msg string, fields ...zap.Field) {
	c.l.Warn(msg, c.with(fields)...)
}

func (c *component) Error(msg string, fields ...zap.Field) {
	c.l.Error(msg, c.with(fields)...)
}

func (c *component) DPanic(msg string, fields ...zap.Field) {
	c.l.DPanic(msg, c.with(fields)...)
}

func (c *component) Panic(msg string, fields ...zap.Field) {
	c.l.Panic(msg, c.with(fields)...)
}

func (c *component) Fatal(msg string, fields ...zap.Field) {
	c.l.Fatal(msg, c.with(fields)...)
}

// Ctx binds ctx so that the context logger can contribute fields per call.
func (c *component) Ctx(ctx context.Context) *LoggerWithCtx {
	return &LoggerWithCtx{
		ctx:    ctx,
		l:      c.l,
		fields: c.builtInFields,
	}
}

// LoggerWithCtx pairs a Logger with the context of the call site.
type LoggerWithCtx struct {
	ctx    context.Context
	l      *Logger
	fields []zapcore.Field
}

func (lc *LoggerWithCtx) Debug(msg string, fields ...zap.Field) {
	lc.l.Debug(msg, lc.logFields(zap.DebugLevel, msg, fields)...)
}

func (lc *LoggerWithCtx) Info(msg string, fields ...zap.Field) {
	lc.l.Info(msg, lc.logFields(zap.InfoLevel, msg, fields)...)
}

func (lc *LoggerWithCtx) Warn(msg string, fields ...zap.Field) {
	lc.l.Warn(msg, lc.logFields(zap.WarnLevel, msg, fields)...)
}

func (lc *LoggerWithCtx) Error(msg string, fields ...zap.Field) {
	lc.l.Error(msg, lc.logFields(zap.ErrorLevel, msg, fields)...)
}

func (lc *LoggerWithCtx) DPanic(msg string, fields ...zap.Field) {
	lc.l.DPanic(msg, lc.logFields(zap.DPanicLevel, msg, fields)...)
}

func (lc *LoggerWithCtx) Panic(msg string, fields ...zap.Field) {
	lc.l.Panic(msg, lc.logFields(zap.PanicLevel, msg, fields)...)
}

func (lc *LoggerWithCtx) Fatal(msg string, fields ...zap.Field) {
	lc.l.Fatal(msg, lc.logFields(zap.FatalLevel, msg, fields)...)
}

func (lc *LoggerWithCtx) Log(lvl zapcore.Level, msg string, fields []zap.Field) {
	lc.l.Operator().Log(lvl, msg, lc.logFields(lvl, msg, fields)...)
}

// logFields merges the component fields and whatever the context logger
// derives from the bound context into fields.
func (lc *LoggerWithCtx) logFields(lvl zapcore.Level, msg string, fields []zap.Field) []zap.Field {
	if len(lc.fields) != 0 {
		fields = append(fields, lc.fields...)
	}
	if fs := lc.l.contextLogger.LogFields(lc.l, lc.ctx, lvl, msg, fields); len(fs) != 0 {
		fields = append(fields, fs...)
	}
	return fields
}
