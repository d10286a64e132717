package tcloud

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/tsingsun/tcloud/pkg/cache/lfu"
	"github.com/tsingsun/tcloud/pkg/conf"
	"github.com/tsingsun/tcloud/pkg/log"
	"github.com/tsingsun/tcloud/pkg/tc3"
	"go.uber.org/zap"
)

// Config configures a Client.
//
//	client:
//	  credentials:
//	    secretId: ${TENCENTCLOUD_SECRET_ID}
//	    secretKey: ${TENCENTCLOUD_SECRET_KEY}
//	  api:
//	    service: cvm
//	    host: cvm.tencentcloudapi.com
//	    action: DescribeInstances
//	    version: 2017-03-12
//	    region: ap-guangzhou
//	  timeout: 10s
//	  keyCache:
//	    size: 128
type Config struct {
	TransportConfig
	// Credentials falls back to the process environment when unset.
	Credentials tc3.Credentials `json:"credentials" yaml:"credentials"`
	// API describes the service family the client talks to.
	API tc3.Descriptor `json:"api" yaml:"api"`
	// Endpoint overrides the target URL, for gateways reached through a
	// private endpoint. The signed Host header keeps following api.host.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// Client performs authenticated calls against one API family. Safe for
// concurrent use.
type Client struct {
	signer   *tc3.Signer
	hc       *http.Client
	clock    func() time.Time
	endpoint string
	logger   log.ComponentLogger

	signerOpts []tc3.Option
}

type Option func(*Client)

// WithHTTPClient replaces the transport built from configuration.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// WithClock replaces the signing clock, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithEndpoint redirects requests to another URL without changing the signed
// host.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithSignerOptions forwards options to the signer construction.
func WithSignerOptions(opts ...tc3.Option) Option {
	return func(c *Client) {
		c.signerOpts = append(c.signerOpts, opts...)
	}
}

// NewClient builds a client from a configuration node shaped like Config.
func NewClient(cnf *conf.Configuration, opts ...Option) (*Client, error) {
	c := &Client{
		clock:  time.Now,
		logger: log.Component("client"),
	}
	for _, opt := range opts {
		opt(c)
	}

	var cfg Config
	if err := cnf.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Credentials.SecretID == "" && cfg.Credentials.SecretKey == "" {
		cred, err := tc3.CredentialsFromEnv()
		if err != nil {
			return nil, err
		}
		cfg.Credentials = cred
	}
	if c.endpoint == "" {
		c.endpoint = cfg.Endpoint
	}

	sopts := c.signerOpts
	if cnf.IsSet("keyCache") {
		local, err := lfu.NewTinyLFU(cnf.Sub("keyCache"))
		if err != nil {
			return nil, err
		}
		sopts = append(sopts, tc3.WithKeyCache(local))
	}
	signer, err := tc3.New(cfg.Credentials, cfg.API, sopts...)
	if err != nil {
		return nil, err
	}
	c.signer = signer

	if c.hc == nil {
		hc, err := NewHTTPClient(cfg.TransportConfig)
		if err != nil {
			return nil, err
		}
		c.hc = hc
	}
	return c, nil
}

// NewClientWithSigner wraps an already built signer.
func NewClientWithSigner(signer *tc3.Signer, opts ...Option) *Client {
	c := &Client{
		signer: signer,
		hc:     &http.Client{},
		clock:  time.Now,
		logger: log.Component("client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Signer returns the signer the client sends through.
func (c *Client) Signer() *tc3.Signer {
	return c.signer
}

// Do signs the payload and performs the call, blocking until the envelope is
// parsed. The clock is read immediately before signing and a retry is simply
// another call, a stale signature is never reused.
func (c *Client) Do(ctx context.Context, payload any) (*Result, error) {
	return c.do(ctx, c.signer, payload)
}

// DoAction targets another operation of the configured family.
func (c *Client) DoAction(ctx context.Context, action string, payload any) (*Result, error) {
	return c.do(ctx, c.signer.WithAction(action), payload)
}

func (c *Client) do(ctx context.Context, s *tc3.Signer, payload any) (*Result, error) {
	sr, err := s.Sign(ctx, payload, tc3.NewSigningTime(c.clock()))
	if err != nil {
		return nil, err
	}
	if c.endpoint != "" {
		sr.URL = c.endpoint
	}
	req, err := sr.Request(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	action := s.Descriptor().Action
	result, err := parseResponse(res.StatusCode, body)
	if err != nil {
		c.logger.Ctx(ctx).Warn("api call failed", zap.String("action", action), zap.Error(err))
		return nil, err
	}
	c.logger.Ctx(ctx).Debug("api call", zap.String("action", action), zap.String("requestId", result.RequestID))
	return result, nil
}
