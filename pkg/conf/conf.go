// Package conf loads yaml configuration into strong typed components.
//
// A Configuration is a node of the config tree. Sub returns child nodes and
// Unmarshal decodes a node into a struct, so components only see the part of
// the tree they own.
package conf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Configurable is the interface for components that initialize themselves
// from a configuration node.
type Configurable interface {
	// Apply initializes the component by the given configuration node.
	Apply(cnf *Configuration)
}

// Configuration is the node of the configuration tree.
type Configuration struct {
	opts   options
	parser *Parser
	root   *Configuration
	// Development reports whether the configuration carries `development: true`.
	Development bool
}

var global *Configuration

func init() {
	global = NewFromParse(NewParser())
}

type options struct {
	localPath    string
	baseDir      string
	includeFiles []string
	envFiles     []string
	global       bool
}

// Option is the option to create a Configuration.
type Option func(*options)

// WithLocalPath sets the main configuration file path.
func WithLocalPath(path string) Option {
	return func(o *options) {
		o.localPath = path
	}
}

// WithBaseDir sets the directory relative paths resolve against.
func WithBaseDir(dir string) Option {
	return func(o *options) {
		o.baseDir = dir
	}
}

// WithIncludeFiles appends files merged into the main configuration,
// overriding it. Missing files panic at Load.
func WithIncludeFiles(paths ...string) Option {
	return func(o *options) {
		o.includeFiles = append(o.includeFiles, paths...)
	}
}

// WithEnvFiles appends dotenv files loaded into the process environment
// before the configuration files are parsed.
func WithEnvFiles(paths ...string) Option {
	return func(o *options) {
		o.envFiles = append(o.envFiles, paths...)
	}
}

// WithGlobal indicates whether the configuration is set as the global one at Load.
func WithGlobal(isGlobal bool) Option {
	return func(o *options) {
		o.global = isGlobal
	}
}

// New creates a Configuration with the given options. Call Load to read the
// configured sources.
func New(opts ...Option) *Configuration {
	cnf := &Configuration{
		opts: options{
			localPath: "etc/app.yaml",
			global:    true,
		},
		parser: NewParser(),
	}
	for _, o := range opts {
		o(&cnf.opts)
	}
	if cnf.opts.baseDir == "" {
		cnf.opts.baseDir = filepath.Dir(os.Args[0])
	}
	return cnf
}

// NewFromParse creates a Configuration from a Parser.
func NewFromParse(parser *Parser) *Configuration {
	cnf := &Configuration{parser: parser}
	cnf.pickup()
	return cnf
}

// NewFromBytes creates a Configuration from yaml bytes. It panics if the
// bytes are not valid yaml.
func NewFromBytes(b []byte, opts ...Option) *Configuration {
	p, err := NewParserFromBuffer(bytes.NewReader(b))
	if err != nil {
		panic(err)
	}
	cnf := New(opts...)
	cnf.parser = p
	cnf.pickup()
	return cnf
}

// NewFromStringMap creates a Configuration from a map[string]any.
func NewFromStringMap(data map[string]any) *Configuration {
	return NewFromParse(NewParserFromStringMap(data))
}

// Load reads the configured sources. It panics when a source cannot be read,
// a configuration is unusable and the callers are not supposed to continue.
func (c *Configuration) Load() *Configuration {
	if err := c.loadInternal(); err != nil {
		panic(fmt.Errorf("configuration load error: %w", err))
	}
	c.pickup()
	if c.opts.global {
		c.AsGlobal()
	}
	return c
}

func (c *Configuration) loadInternal() error {
	for _, ef := range c.opts.envFiles {
		if err := LoadEnvFile(c.Abs(ef)); err != nil {
			return err
		}
	}
	path := c.Abs(c.opts.localPath)
	if err := c.parser.LoadFile(path); err != nil {
		return err
	}
	// attached files override the main file
	for _, attach := range c.opts.includeFiles {
		if err := c.parser.LoadFile(c.Abs(attach)); err != nil {
			return err
		}
	}
	if v := c.parser.Get("includeFiles"); v != nil {
		for _, attach := range c.parser.Operator().Strings("includeFiles") {
			ap := c.Abs(attach)
			if _, err := os.Stat(ap); err != nil {
				return fmt.Errorf("include file %s error: %w", ap, err)
			}
			c.opts.includeFiles = append(c.opts.includeFiles, ap)
			if err := c.parser.LoadFile(ap); err != nil {
				return err
			}
		}
	}
	return nil
}

// pickup refreshes the fields derived from the parsed tree.
func (c *Configuration) pickup() {
	c.Development = c.parser.k.Bool("development")
}

// AsGlobal sets the configuration as the global one.
func (c *Configuration) AsGlobal() *Configuration {
	global = c
	return c
}

// Global returns the global configuration.
func Global() *Configuration {
	return global
}

// Parser returns the parser of the configuration.
func (c *Configuration) Parser() *Parser {
	return c.parser
}

// Root returns the top node of the configuration tree. A configuration cut
// from another keeps the originating root.
func (c *Configuration) Root() *Configuration {
	if c.root == nil {
		return c
	}
	return c.root
}

// GetBaseDir returns the base directory of the root configuration.
func (c *Configuration) GetBaseDir() string {
	return c.Root().opts.baseDir
}

// Abs returns the absolute path of the given path relative to the base directory.
func (c *Configuration) Abs(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.GetBaseDir(), path)
}

// CutFromParser returns a new Configuration built from the parser, keeping
// the current configuration as root.
func (c *Configuration) CutFromParser(p *Parser) *Configuration {
	nf := *c
	nf.parser = p
	nf.root = c.Root()
	nf.pickup()
	return &nf
}

// Sub cuts the configuration tree at the given path. A missing path yields an
// empty node, callers keep their defaults when unmarshalling it.
func (c *Configuration) Sub(path string) *Configuration {
	p, err := c.parser.Sub(path)
	if err != nil {
		p = NewParser()
	}
	return c.CutFromParser(p)
}

// SubOperator returns a Parser per element when the value at path is a list,
// such as the multi core logger setting.
func (c *Configuration) SubOperator(path string) ([]*Parser, error) {
	if path != "" && !c.parser.IsSet(path) {
		return nil, fmt.Errorf("key not exists:%s", path)
	}
	return c.parser.Slices(path), nil
}

// Copy returns a deep copy of the configuration, changes to the copy do not
// affect the origin.
func (c *Configuration) Copy() *Configuration {
	nf := *c
	nf.parser = NewParserFromStringMap(c.parser.Operator().Raw())
	return &nf
}

// Unmarshal decodes the whole node into dst, the struct fields use json tags.
func (c *Configuration) Unmarshal(dst any) error {
	return c.parser.Unmarshal("", dst)
}

// Get can retrieve any value given the key to use.
func (c *Configuration) Get(key string) any {
	return c.parser.Get(key)
}

// IsSet checks to see if the key has been set in any of the data locations.
func (c *Configuration) IsSet(key string) bool {
	return c.parser.IsSet(key)
}

// Bool returns the bool value of a given key path.
func (c *Configuration) Bool(path string) bool {
	return c.parser.k.Bool(path)
}

// Int returns the int value of a given key path.
func (c *Configuration) Int(path string) int {
	return c.parser.k.Int(path)
}

// String returns the string value of a given key path.
func (c *Configuration) String(path string) string {
	return c.parser.k.String(path)
}

// Strings returns the []string value of a given key path.
func (c *Configuration) Strings(path string) []string {
	return c.parser.k.Strings(path)
}

// Duration returns the time.Duration value of a given key path.
func (c *Configuration) Duration(path string) time.Duration {
	return c.parser.k.Duration(path)
}

// AllSettings merges all settings and returns them as a map[string]any.
func (c *Configuration) AllSettings() map[string]any {
	return c.parser.k.Raw()
}
