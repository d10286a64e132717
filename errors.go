package tcloud

import (
	"errors"
	"fmt"
	"strings"
)

// Server returned error codes the client gives special treatment to. The
// full code list is owned by the gateway, codes pass through verbatim.
const (
	// CodeSignatureExpire marks a request whose timestamp drifted too far
	// from server time. The only way to detect clock skew, it is never
	// computed locally.
	CodeSignatureExpire = "AuthFailure.SignatureExpire"
	// CodeSignatureFailure marks a rejected signature.
	CodeSignatureFailure = "AuthFailure.SignatureFailure"

	authFailurePrefix = "AuthFailure."
)

// Error is the error object of a response envelope, carried verbatim from
// the server.
type Error struct {
	Code      string
	Message   string
	RequestID string
	// StatusCode is the HTTP status the envelope arrived with.
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("[TencentCloudSDKError] Code=%s, Message=%s, RequestId=%s", e.Code, e.Message, e.RequestID)
}

// IsAuthFailure reports whether err is a server rejection of the request
// authentication.
func IsAuthFailure(err error) bool {
	var e *Error
	return errors.As(err, &e) && strings.HasPrefix(e.Code, authFailurePrefix)
}

// IsClockSkew reports whether err is a signature rejected for timestamp
// drift. A caller seeing this should check the local clock, re-signing with
// the same skewed clock fails the same way.
func IsClockSkew(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeSignatureExpire
}
