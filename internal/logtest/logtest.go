// Package logtest provides an in-memory sink to assert log output in tests.
package logtest

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Buffer is a concurrency safe zapcore.WriteSyncer backed by a bytes.Buffer.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Sync implements zapcore.WriteSyncer.
func (b *Buffer) Sync() error {
	return nil
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the written log lines.
func (b *Buffer) Lines() []string {
	s := strings.TrimRight(b.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// LastLine returns the most recent log line, or empty.
func (b *Buffer) LastLine() string {
	lines := b.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// Reset clears the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewBuffLogger builds a json encoded zap logger writing to the buffer.
func NewBuffLogger(ws zapcore.WriteSyncer, opts ...zap.Option) *zap.Logger {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(ec), ws, zapcore.DebugLevel)
	return zap.New(core, opts...)
}
