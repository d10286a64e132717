// Package log integrates the Uber zap library with the configuration layer.
//
// Components take a named ComponentLogger from Component and log through it,
// replacing the global logger rebinds every component that has not set its
// own logger.
package log

import (
	"context"
	"fmt"
	"sync"

	"github.com/tsingsun/tcloud/pkg/conf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CallerSkip compensates for the wrapper frame so that zap reports the
// caller of this package, not the package itself.
const CallerSkip = 1

var (
	global          *Logger
	globalComponent ComponentLogger
	componentMu     sync.RWMutex
	components      = map[string]*component{}
)

func init() {
	globalComponent = &component{
		name:      "global",
		useGlobal: true,
	}
	InitGlobalLogger()
}

// ContextLogger picks extra fields from the context on each ComponentLogger
// logging call.
type ContextLogger interface {
	// LogFields returns the fields that should join the log entry.
	LogFields(logger *Logger, ctx context.Context, lvl zapcore.Level, msg string, fields []zap.Field) []zap.Field
}

// DefaultContextLogger resolves fields from the FieldCarrier in the context.
type DefaultContextLogger struct{}

func (d *DefaultContextLogger) LogFields(_ *Logger, ctx context.Context, _ zapcore.Level, _ string, _ []zap.Field) []zap.Field {
	if c, ok := CarrierFromIncomingContext(ctx); ok {
		return c.Fields
	}
	return nil
}

// Logger wraps a zap.Logger. The embedded logger is directly usable, and
// Operator hands it out for callers that want the plain zap API.
type Logger struct {
	*zap.Logger
	contextLogger ContextLogger
	// one atomic level per configured core
	logLevels []zap.AtomicLevel
}

// New wraps an existing zap logger.
func New(zl *zap.Logger) *Logger {
	return &Logger{
		Logger:        zl,
		contextLogger: &DefaultContextLogger{},
	}
}

// InitGlobalLogger resets the global logger to the zap production default.
func InitGlobalLogger() *Logger {
	global = New(zap.Must(zap.NewProduction(zap.AddCallerSkip(CallerSkip))))
	global.AsGlobal()
	return global
}

// NewFromConf creates a logger from a configuration node and sets it as global.
func NewFromConf(cnf *conf.Configuration) *Logger {
	l := New(nil)
	l.Apply(cnf)
	l.AsGlobal()
	return l
}

// Global returns the component view of the global logger.
func Global() ComponentLogger {
	return globalComponent
}

// AsGlobal sets the Logger as the global logger.
func (l *Logger) AsGlobal() *Logger {
	global = l
	globalComponent.SetLogger(l)
	componentMu.RLock()
	defer componentMu.RUnlock()
	// rebind components, keep user defined ones
	for _, cp := range components {
		if cp.useGlobal {
			cp.setLogger(l, true)
		}
	}
	zap.ReplaceGlobals(global.Logger)
	return global
}

// Apply rebuilds the logger from a configuration node whose layout is
// described by Config. It panics when the node cannot produce a logger.
func (l *Logger) Apply(cnf *conf.Configuration) {
	config, err := NewConfig(cnf)
	if err != nil {
		panic(fmt.Errorf("apply log configuration err:%w", err))
	}
	zl, err := config.BuildZap(zap.AddCallerSkip(config.CallerSkip))
	if err != nil {
		panic(fmt.Errorf("apply log configuration err:%w", err))
	}
	l.logLevels = make([]zap.AtomicLevel, len(config.ZapConfigs))
	for i, zc := range config.ZapConfigs {
		l.logLevels[i] = zc.Level
	}
	l.Logger = zl
}

// SetLevel changes the level of every core at runtime.
func (l *Logger) SetLevel(lvl string) error {
	level, err := zapcore.ParseLevel(lvl)
	if err != nil {
		return err
	}
	for _, al := range l.logLevels {
		al.SetLevel(level)
	}
	return nil
}

// With returns a child carrying the extra fields. The parent is unchanged.
func (l *Logger) With(fields ...zap.Field) *Logger {
	c := *l
	c.Logger = l.Logger.With(fields...)
	return &c
}

// WithOptions returns a copy with the zap options applied.
func (l *Logger) WithOptions(opts ...zap.Option) *Logger {
	c := *l
	c.Logger = l.Logger.WithOptions(opts...)
	return &c
}

// Operator hands out the wrapped zap logger.
func (l *Logger) Operator() *zap.Logger {
	return l.Logger
}

// ContextLogger returns the contextLogger field.
func (l *Logger) ContextLogger() ContextLogger {
	return l.contextLogger
}

// SetContextLogger overrides how context fields are resolved.
func (l *Logger) SetContextLogger(f ContextLogger) {
	l.contextLogger = f
}

// Ctx pairs the logger with ctx for context aware logging.
func (l *Logger) Ctx(ctx context.Context) *LoggerWithCtx {
	return &LoggerWithCtx{ctx: ctx, l: l}
}

// Sync flushes buffered entries of the global logger. Call it before the
// process exits.
func Sync() error {
	return global.Logger.Sync()
}

func sugared() *zap.SugaredLogger {
	return global.Logger.Sugar()
}

// Debug logs the sprinted args at debug level on the global logger.
func Debug(args ...any) {
	sugared().Debug(args...)
}

// Info logs the sprinted args at info level on the global logger.
func Info(args ...any) {
	sugared().Info(args...)
}

// Warn logs the sprinted args at warn level on the global logger.
func Warn(args ...any) {
	sugared().Warn(args...)
}

// Error logs the sprinted args at error level on the global logger.
func Error(args ...any) {
	sugared().Error(args...)
}

// Debugf logs a templated message at debug level on the global logger.
func Debugf(template string, args ...any) {
	sugared().Debugf(template, args...)
}

// Infof logs a templated message at info level on the global logger.
func Infof(template string, args ...any) {
	sugared().Infof(template, args...)
}

// Warnf logs a templated message at warn level on the global logger.
func Warnf(template string, args ...any) {
	sugared().Warnf(template, args...)
}

// Errorf logs a templated message at error level on the global logger.
func Errorf(template string, args ...any) {
	sugared().Errorf(template, args...)
}
