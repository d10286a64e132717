package conf

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// TLS is the TLS configuration for TLS connections.
// Cert and Key are file paths, relative paths resolve against the
// configuration base directory.
type TLS struct {
	CA                 string `json:"ca" yaml:"ca"`
	Cert               string `json:"cert" yaml:"cert"`
	Key                string `json:"key" yaml:"key"`
	InsecureSkipVerify bool   `json:"insecureSkipVerify" yaml:"insecureSkipVerify"`
}

// NewTLS creates a new TLS configuration from the configuration node.
func NewTLS(cnf *Configuration) *TLS {
	t := &TLS{}
	t.Apply(cnf)
	return t
}

// Apply implements the Configurable interface.
func (t *TLS) Apply(cnf *Configuration) {
	if err := cnf.Unmarshal(t); err != nil {
		panic(err)
	}
	t.CA = cnf.Abs(t.CA)
	t.Cert = cnf.Abs(t.Cert)
	t.Key = cnf.Abs(t.Key)
}

// BuildTlsConfig builds a tls.Config from the configuration.
func (t *TLS) BuildTlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: t.InsecureSkipVerify,
	}
	if t.CA != "" {
		pem, err := os.ReadFile(t.CA)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to append CA certificate: %s", t.CA)
		}
		cfg.RootCAs = pool
	}
	if t.Cert != "" && t.Key != "" {
		pair, err := tls.LoadX509KeyPair(t.Cert, t.Key)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{pair}
	}
	return cfg, nil
}
