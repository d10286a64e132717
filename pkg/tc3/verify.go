package tc3

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	ErrSignatureExpired = errors.New("tc3: signature expired")
	ErrUnknownSecretID  = errors.New("tc3: unknown secret id")
)

// CredentialsLookup resolves the credential pair for a secret id presented by
// an incoming request.
type CredentialsLookup func(secretID string) (Credentials, error)

// Verifier recomputes request signatures on the receiving side and compares
// them in constant time. Primarily a test double for the real gateway, usable
// for any service that accepts TC3 signed calls.
type Verifier struct {
	lookup CredentialsLookup
	// maxSkew rejects timestamps too far from the verification instant,
	// zero disables the check.
	maxSkew time.Duration
}

func NewVerifier(lookup CredentialsLookup, maxSkew time.Duration) *Verifier {
	return &Verifier{lookup: lookup, maxSkew: maxSkew}
}

// Verify checks the request signature against the request bytes at the given
// instant. The request body is restored after hashing so a handler can still
// consume it.
func (v *Verifier) Verify(r *http.Request, now time.Time) error {
	auth, err := ParseAuthorization(r.Header.Get(HeaderAuthorization))
	if err != nil {
		return err
	}
	scope := strings.Split(auth.CredentialScope, "/")
	if len(scope) != 3 || scope[2] != RequestType {
		return fmt.Errorf("tc3: malformed credential scope %q", auth.CredentialScope)
	}

	ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
	if err != nil {
		return fmt.Errorf("tc3: malformed timestamp: %w", err)
	}
	at := NewSigningTimeUnix(ts)
	if at.Date() != scope[0] {
		return fmt.Errorf("tc3: scope date %s does not match timestamp date %s", scope[0], at.Date())
	}
	if v.maxSkew > 0 {
		if d := now.Sub(at.Time); d > v.maxSkew || d < -v.maxSkew {
			return ErrSignatureExpired
		}
	}

	names := strings.Split(auth.SignedHeaders, ";")
	var hasContentType, hasHost bool
	for _, n := range names {
		hasContentType = hasContentType || n == "content-type"
		hasHost = hasHost || n == "host"
	}
	if !hasContentType || !hasHost {
		return fmt.Errorf("tc3: signed headers %q must cover content-type and host", auth.SignedHeaders)
	}

	body, err := peekBody(r)
	if err != nil {
		return err
	}
	block, signedHeaders := BuildCanonicalHeaders(signedHeaderValues(r, names))
	if signedHeaders != auth.SignedHeaders {
		return ErrInvalidSignature
	}
	var query string
	if r.Method == http.MethodGet {
		query = CanonicalQueryString(r.URL.Query())
	}
	canonical := BuildCanonicalRequest(r.Method, CanonicalURI, query, block, signedHeaders, HashPayload(body))
	stringToSign := BuildStringToSign(at.Timestamp(), auth.CredentialScope, hashSHA256([]byte(canonical)))

	cred, err := v.lookup(auth.SecretID)
	if err != nil {
		return err
	}
	want := SignString(DeriveKey(cred.SecretKey, scope[0], scope[1]), stringToSign)
	if subtle.ConstantTimeCompare([]byte(want), []byte(auth.Signature)) == 0 {
		return ErrInvalidSignature
	}
	return nil
}

func signedHeaderValues(r *http.Request, names []string) map[string]string {
	vals := make(map[string]string, len(names))
	for _, name := range names {
		if strings.EqualFold(name, "host") {
			if r.Host != "" {
				vals[name] = r.Host
			} else {
				vals[name] = r.URL.Host
			}
			continue
		}
		vs := r.Header.Values(name)
		if len(vs) == 0 {
			continue
		}
		trimmed := make([]string, len(vs))
		for i, v := range vs {
			trimmed[i] = strings.TrimSpace(v)
		}
		vals[name] = strings.Join(trimmed, ",")
	}
	return vals
}

func peekBody(r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(b))
	return b, nil
}
