package tc3

import (
	"fmt"
	"strings"
)

const (
	credentialElem    = "Credential="
	signedHeadersElem = "SignedHeaders="
	signatureElem     = "Signature="
	authDelimiter     = ", "
)

// Authorization is the parsed form of an Authorization header value.
type Authorization struct {
	SecretID        string
	CredentialScope string
	SignedHeaders   string
	Signature       string
}

// BuildAuthorization assembles the Authorization header value:
//
//	TC3-HMAC-SHA256 Credential=<id>/<scope>, SignedHeaders=<list>, Signature=<hex>
func BuildAuthorization(secretID, credentialScope, signedHeaders, signature string) string {
	var sb strings.Builder
	sb.WriteString(Algorithm)
	sb.WriteString(" ")
	sb.WriteString(credentialElem)
	sb.WriteString(secretID)
	sb.WriteString("/")
	sb.WriteString(credentialScope)
	sb.WriteString(authDelimiter)
	sb.WriteString(signedHeadersElem)
	sb.WriteString(signedHeaders)
	sb.WriteString(authDelimiter)
	sb.WriteString(signatureElem)
	sb.WriteString(signature)
	return sb.String()
}

// ParseAuthorization splits an Authorization header value back into its
// elements, the inverse of BuildAuthorization.
func ParseAuthorization(header string) (auth Authorization, err error) {
	value, ok := strings.CutPrefix(header, Algorithm+" ")
	if !ok {
		return auth, fmt.Errorf("tc3: authorization scheme is not %s", Algorithm)
	}
	vals := valuesFromCanonical(value, authDelimiter, "=")
	credential, ok := vals[credentialElem[:len(credentialElem)-1]]
	if !ok {
		return auth, fmt.Errorf("tc3: authorization missing credential")
	}
	auth.SecretID, auth.CredentialScope, ok = strings.Cut(credential, "/")
	if !ok {
		return auth, fmt.Errorf("tc3: malformed credential %q", credential)
	}
	if auth.SignedHeaders, ok = vals[signedHeadersElem[:len(signedHeadersElem)-1]]; !ok {
		return auth, fmt.Errorf("tc3: authorization missing signed headers")
	}
	if auth.Signature, ok = vals[signatureElem[:len(signatureElem)-1]]; !ok || auth.Signature == "" {
		return auth, fmt.Errorf("tc3: authorization missing signature")
	}
	return auth, nil
}

// valuesFromCanonical extracts the key value pairs of a canonical string
// separated by deli1 and deli2.
func valuesFromCanonical(src, deli1, deli2 string) map[string]string {
	vs := make(map[string]string)
	for _, p := range strings.Split(src, deli1) {
		kv := strings.SplitN(p, deli2, 2)
		if len(kv) != 2 {
			continue
		}
		vs[kv[0]] = kv[1]
	}
	return vs
}
