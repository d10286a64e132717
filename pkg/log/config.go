package log

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/tsingsun/tcloud/pkg/conf"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	zapConfigPath = "cores"
	// rotate:[//[userinfo@]host][/]path[?query][#fragment]
	rotateSchema = "Rotate"
)

var once sync.Once

// Config describes the logger section of the configuration. Each entry under
// "cores" becomes one zap core, multiple cores are joined with
// zapcore.NewTee.
type Config struct {
	// ZapConfigs is for initial zap multi core
	ZapConfigs []zap.Config `json:"cores" yaml:"cores"`
	// Rotate is for log rotate
	Rotate *rotate `json:"rotate" yaml:"rotate"`
	// CallerSkip is the caller skip for the wrapped logging methods.
	CallerSkip int `json:"callerSkip" yaml:"callerSkip"`

	useRotate bool
	basedir   string
}

type rotate struct {
	lumberjack.Logger `json:",squash" yaml:",squash"`
}

// Sync implements the zap.Sink interface.
//
// need nothing to do, see https://github.com/natefinch/lumberjack/pull/47
func (r *rotate) Sync() error {
	return nil
}

// NewConfig resolves the logger section from the configuration node.
func NewConfig(cnf *conf.Configuration) (*Config, error) {
	nodes, err := cnf.SubOperator(zapConfigPath)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("none logger config,plz set up section: cores")
	}
	cfg := &Config{
		ZapConfigs: make([]zap.Config, len(nodes)),
		CallerSkip: CallerSkip,
		basedir:    cnf.Root().GetBaseDir(),
	}
	for i := range cfg.ZapConfigs {
		cfg.ZapConfigs[i] = defaultZapConfig(cnf)
	}

	if err = cnf.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if cfg.Rotate != nil {
		cfg.useRotate = true
	}
	return cfg, nil
}

// DefaultTimeEncoder serializes time.Time to a human-readable formatted string.
func DefaultTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006/01/02 15:04:05.000 -07:00"))
}

func defaultZapConfig(cnf *conf.Configuration) zap.Config {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = DefaultTimeEncoder
	zc.Development = cnf.Root().Development
	return zc
}

// fixZapConfig rewrites relative output paths against the config base dir
// and switches them to the rotate scheme when rotation is on.
func (c Config) fixZapConfig(zc *zap.Config) error {
	paths := make([]string, 0, len(zc.OutputPaths))
	for _, path := range zc.OutputPaths {
		u, err := convertPath(path, c.basedir, c.useRotate)
		if err != nil {
			return err
		}
		paths = append(paths, u)
	}
	zc.OutputPaths = paths
	return nil
}

// BuildZap assembles the zap logger from the configured cores. The rotate
// sink registers once per process, the first Config to get here wires its
// rotation settings into the sink.
func (c *Config) BuildZap(opts ...zap.Option) (*zap.Logger, error) {
	var sinkErr error
	once.Do(func() {
		sinkErr = zap.RegisterSink(rotateSchema, c.rotateSink)
	})
	if sinkErr != nil {
		return nil, sinkErr
	}

	cores := make([]zapcore.Core, 0, len(c.ZapConfigs))
	for _, zc := range c.ZapConfigs {
		if err := c.fixZapConfig(&zc); err != nil {
			return nil, err
		}
		zl, err := zc.Build(opts...)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zl.Core())
	}
	if len(cores) == 1 {
		return zap.New(cores[0]), nil
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// rotateSink validates the file URL the same way the zap file sink does and
// opens a lumberjack writer for it.
func (c *Config) rotateSink(u *url.URL) (zap.Sink, error) {
	if u.User != nil {
		return nil, fmt.Errorf("user and password not allowed with file URLs: got %v", u)
	}
	if u.Fragment != "" {
		return nil, fmt.Errorf("fragments not allowed with file URLs: got %v", u)
	}
	if u.RawQuery != "" {
		return nil, fmt.Errorf("query parameters not allowed with file URLs: got %v", u)
	}
	// Error messages are better if we check hostname and port separately.
	if u.Port() != "" {
		return nil, fmt.Errorf("ports not allowed with file URLs: got %v", u)
	}
	if hn := u.Hostname(); hn != "" && hn != "localhost" {
		return nil, fmt.Errorf("file URLs must leave host empty or use localhost: got %v", u)
	}
	w := c.newRotateWriter()
	if runtime.GOOS == "windows" {
		w.Filename = strings.TrimPrefix(u.Path, "/")
	} else {
		w.Filename = u.Path
	}
	return w, nil
}

func (c Config) newRotateWriter() *rotate {
	return &rotate{
		Logger: lumberjack.Logger{
			MaxSize:    c.Rotate.MaxSize,
			MaxAge:     c.Rotate.MaxAge,
			MaxBackups: c.Rotate.MaxBackups,
			LocalTime:  c.Rotate.LocalTime,
			Compress:   c.Rotate.Compress,
		},
	}
}

func convertPath(path string, base string, useRotate bool) (string, error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("can't parse %q as a URL: %v", path, err)
	}
	if path == "stdout" || path == "stderr" || (u.Scheme != "" && u.Scheme != "file") {
		return path, nil
	}
	if !filepath.IsAbs(u.Path) {
		absPath := filepath.Join(base, path)
		if runtime.GOOS == "windows" {
			absPath = "/" + absPath
		}
		u.Path = absPath
	}
	if useRotate {
		u.Scheme = rotateSchema
	}
	return u.String(), nil
}
