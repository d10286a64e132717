// Package tc3 implements the TC3-HMAC-SHA256 request signing protocol used by
// the Tencent Cloud API 3.0 gateway.
//
// Signing is a pure computation: a canonical request string is hashed, scoped
// to one UTC day and one service through an HMAC key chain, and the final
// signature is assembled into an Authorization header together with the
// X-TC-* metadata headers. The Signer holds immutable credentials and a
// service descriptor and is safe for concurrent use.
package tc3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

const (
	// Algorithm identifies the signing scheme in the string to sign and the
	// Authorization header.
	Algorithm = "TC3-HMAC-SHA256"
	// RequestType is the terminal link of the credential scope.
	RequestType = "tc3_request"
	// CanonicalURI is fixed for API 3.0.
	CanonicalURI = "/"
	// SignedHeaders is the semicolon joined, ascending list of the headers
	// covered by the signature.
	SignedHeaders = "content-type;host"

	// secretPrefix salts the secret key at the first link of the key chain.
	secretPrefix = "TC3"
	// emptyStringSHA256 is a SHA256 of an empty string
	emptyStringSHA256 = `e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855` //nolint:gosec
)

// Header names emitted by the signer. The gateway matches them case
// insensitively, Go's canonical form is what goes on the wire.
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderHost          = "Host"
	HeaderAction        = "X-TC-Action"
	HeaderTimestamp     = "X-TC-Timestamp"
	HeaderVersion       = "X-TC-Version"
	HeaderRegion        = "X-TC-Region"
	HeaderLanguage      = "X-TC-Language"
	HeaderToken         = "X-TC-Token"
)

// DefaultLanguage is the language tag attached to every signed request.
const DefaultLanguage = "zh-CN"

var (
	ErrInvalidSignature = errors.New("tc3: invalid signature")
	ErrUnknownContent   = errors.New("tc3: unknown content type")
)

func hmacSHA256(key []byte, msg string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(msg))
	return h.Sum(nil)
}

func hashSHA256(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
