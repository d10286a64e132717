package tc3

import (
	"errors"
	"os"

	"github.com/tsingsun/tcloud/pkg/conf"
	"go.uber.org/multierr"
)

// Environment variables recognized by CredentialsFromEnv. They match the
// names used by the official SDKs so credentials can be shared.
const (
	EnvSecretID  = "TENCENTCLOUD_SECRET_ID"
	EnvSecretKey = "TENCENTCLOUD_SECRET_KEY" //nolint:gosec
	EnvToken     = "TENCENTCLOUD_TOKEN"      //nolint:gosec
)

var ErrNoCredentials = errors.New("tc3: no credentials found")

// Credentials is the immutable secret pair identifying the caller. The secret
// key never leaves the key derivation chain, only SecretID appears in output
// as the Credential element of the Authorization header.
type Credentials struct {
	SecretID  string `json:"secretId" yaml:"secretId"`
	SecretKey string `json:"secretKey" yaml:"secretKey"`
	// Token carries the session token of a temporary credential. Optional,
	// attached as X-TC-Token and excluded from the signature.
	Token string `json:"token" yaml:"token"`
}

// NewCredentials builds a static credential pair.
func NewCredentials(secretID, secretKey string) Credentials {
	return Credentials{SecretID: secretID, SecretKey: secretKey}
}

// NewCredentialsFromConf loads credentials from a configuration node holding
// secretId and secretKey keys.
func NewCredentialsFromConf(cnf *conf.Configuration) (cred Credentials, err error) {
	if err = cnf.Unmarshal(&cred); err != nil {
		return
	}
	err = cred.Validate()
	return
}

// CredentialsFromEnv loads credentials from the process environment.
func CredentialsFromEnv() (Credentials, error) {
	cred := Credentials{
		SecretID:  os.Getenv(EnvSecretID),
		SecretKey: os.Getenv(EnvSecretKey),
		Token:     os.Getenv(EnvToken),
	}
	if cred.SecretID == "" && cred.SecretKey == "" {
		return cred, ErrNoCredentials
	}
	return cred, cred.Validate()
}

// Validate reports all missing fields at once.
func (c Credentials) Validate() error {
	var errs error
	if c.SecretID == "" {
		errs = multierr.Append(errs, errors.New("tc3: secret id must not be empty"))
	}
	if c.SecretKey == "" {
		errs = multierr.Append(errs, errors.New("tc3: secret key must not be empty"))
	}
	return errs
}
