package tc3

import (
	"bytes"
	"context"
	"net/http"

	"github.com/tsingsun/tcloud/pkg/cache"
	"go.uber.org/multierr"
)

// Signer produces the authenticated header set for API calls of one service
// family. It holds only the immutable credential pair and descriptor, every
// Sign call is an independent deterministic computation over the supplied
// payload and signing time.
type Signer struct {
	cred    Credentials
	desc    Descriptor
	deriver KeyDeriver
}

type Option func(*Signer)

// WithKeyDeriver replaces the key derivation strategy.
func WithKeyDeriver(d KeyDeriver) Option {
	return func(s *Signer) {
		s.deriver = d
	}
}

// WithKeyCache memoizes derived signing keys in c until the scope date rolls
// over. Without it every call runs the full key chain.
func WithKeyCache(c cache.Cache) Option {
	return func(s *Signer) {
		s.deriver = NewCachedKeyDeriver(c)
	}
}

// New validates the credential pair and descriptor and builds a signer.
// Validation reports every defect at once, a signer that constructs cannot
// fail on well formed payloads.
func New(cred Credentials, desc Descriptor, opts ...Option) (*Signer, error) {
	if desc.ContentType.name == "" {
		desc.ContentType = *ContentTypeJSON
	}
	if err := multierr.Combine(cred.Validate(), desc.Validate()); err != nil {
		return nil, err
	}
	s := &Signer{
		cred:    cred,
		desc:    desc,
		deriver: directDeriver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// WithAction returns a signer targeting another operation of the same
// family. The copy shares the key deriver, derived keys are scoped per
// service and unaffected by the action.
func (s *Signer) WithAction(action string) *Signer {
	ns := *s
	ns.desc = s.desc.WithAction(action)
	return &ns
}

// Descriptor returns the descriptor the signer was built with.
func (s *Signer) Descriptor() Descriptor {
	return s.desc
}

// SignedRequest is the transport ready artifact of one signing computation.
// Header and Body belong to the caller, the signer keeps no reference.
type SignedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Request materializes the artifact into an http.Request. The artifact is
// not consumed, each call yields an independent request.
func (sr *SignedRequest) Request(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, sr.Method, sr.URL, bytes.NewReader(sr.Body))
	if err != nil {
		return nil, err
	}
	req.Header = sr.Header.Clone()
	req.Host = sr.Header.Get(HeaderHost)
	return req, nil
}

// Sign canonicalizes the payload at the given instant and produces the full
// header set together with the exact bytes to transmit. The same instant
// feeds the signature and the X-TC-Timestamp header, a retry must sign again
// with a fresh one.
func (s *Signer) Sign(ctx context.Context, payload any, at SigningTime) (*SignedRequest, error) {
	body, err := EncodePayload(payload, s.desc.ContentType)
	if err != nil {
		return nil, err
	}

	headersBlock, signedHeaders := BuildCanonicalHeaders(map[string]string{
		"content-type": s.desc.ContentType.Mime(),
		"host":         s.desc.Host,
	})
	canonical := BuildCanonicalRequest(http.MethodPost, CanonicalURI, "", headersBlock, signedHeaders, HashPayload(body))

	scope := BuildCredentialScope(at.Date(), s.desc.Service)
	stringToSign := BuildStringToSign(at.Timestamp(), scope, hashSHA256([]byte(canonical)))

	key, err := s.deriver.SigningKey(ctx, s.cred, at.Date(), s.desc.Service)
	if err != nil {
		return nil, err
	}
	signature := SignString(key, stringToSign)

	h := make(http.Header, 9)
	h.Set(HeaderAuthorization, BuildAuthorization(s.cred.SecretID, scope, signedHeaders, signature))
	h.Set(HeaderContentType, s.desc.ContentType.Mime())
	h.Set(HeaderHost, s.desc.Host)
	h.Set(HeaderAction, s.desc.Action)
	h.Set(HeaderTimestamp, at.Timestamp())
	h.Set(HeaderVersion, s.desc.Version)
	h.Set(HeaderRegion, s.desc.Region)
	h.Set(HeaderLanguage, s.desc.language())
	if s.cred.Token != "" {
		h.Set(HeaderToken, s.cred.Token)
	}

	return &SignedRequest{
		Method: http.MethodPost,
		URL:    s.desc.Endpoint(),
		Header: h,
		Body:   body,
	}, nil
}

// NewRequest signs the payload and builds the http.Request in one step.
func (s *Signer) NewRequest(ctx context.Context, payload any, at SigningTime) (*http.Request, error) {
	sr, err := s.Sign(ctx, payload, at)
	if err != nil {
		return nil, err
	}
	return sr.Request(ctx)
}
