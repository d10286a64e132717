// Package wctest carries the shared helpers used by tests across packages.
package wctest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/tsingsun/tcloud/internal/logtest"
	"github.com/tsingsun/tcloud/pkg/conf"
	"github.com/tsingsun/tcloud/pkg/log"
	"github.com/tsingsun/tcloud/test/testdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// Configuration loads a fresh copy of the testdata configuration file.
func Configuration() *conf.Configuration {
	return conf.New(
		conf.WithBaseDir(testdata.BaseDir()),
		conf.WithLocalPath(testdata.Path(testdata.DefaultConfigFile)),
	).Load()
}

// ApplyGlobal resets the global logger to a debug console suitable for tests.
func ApplyGlobal(disableStacktrace bool) {
	gl := log.InitGlobalLogger()
	gl.Apply(conf.NewFromBytes([]byte(fmt.Sprintf(`
cores:
- level: debug
  disableCaller: true
  disableStacktrace: %s`, strconv.FormatBool(disableStacktrace)))))
	gl.AsGlobal()
}

// InitBuffWriteSyncer redirects the global logger into a buffer and returns it.
func InitBuffWriteSyncer(opts ...zap.Option) *logtest.Buffer {
	opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	buf := &logtest.Buffer{}
	bl := logtest.NewBuffLogger(buf, opts...)
	gl := log.Global().Logger()
	opts = append(opts, zap.WrapCore(func(zapcore.Core) zapcore.Core {
		return bl.Core()
	}))
	gl.WithOptions(opts...).AsGlobal()
	return buf
}

// RunWait starts every function in its own goroutine and blocks for the
// full timeout. A non-nil error from any function fails the test and
// cancels the wait early.
func RunWait(t *testing.T, timeout time.Duration, fns ...func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)
	var wg sync.WaitGroup
	for _, fn := range fns {
		fn := fn
		eg.Go(func() error {
			<-ctx.Done()
			if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
		wg.Add(1)
		go func() {
			// wg tracks goroutine startup only, fn keeps running past Done.
			wg.Done()
			if err := fn(); err != nil {
				t.Error(err)
				cancel()
			}
		}()
	}
	wg.Wait()
	return eg.Wait()
}
