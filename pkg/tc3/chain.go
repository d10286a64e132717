package tc3

import (
	"encoding/hex"
	"strings"
)

// BuildCredentialScope scopes a derived key to one UTC day and one service.
func BuildCredentialScope(date, service string) string {
	return date + "/" + service + "/" + RequestType
}

// BuildStringToSign assembles the final signing input from the algorithm
// identifier, the decimal timestamp, the credential scope and the hex SHA256
// of the canonical request.
func BuildStringToSign(timestamp, credentialScope, hashedCanonicalRequest string) string {
	return strings.Join([]string{Algorithm, timestamp, credentialScope, hashedCanonicalRequest}, "\n")
}

// DeriveKey runs the HMAC-SHA256 chain narrowing the secret key to one day
// and one service:
//
//	kDate    = HMAC("TC3" + secretKey, date)
//	kService = HMAC(kDate, service)
//	kSigning = HMAC(kService, "tc3_request")
//
// Each link is keyed by the raw digest of the previous one. The chain depth
// and order are fixed, any deviation yields a signature the gateway rejects
// outright.
func DeriveKey(secretKey, date, service string) []byte {
	kDate := hmacSHA256([]byte(secretPrefix+secretKey), date)
	kService := hmacSHA256(kDate, service)
	return hmacSHA256(kService, RequestType)
}

// SignString signs the string to sign with a derived key and returns the
// lowercase hex signature.
func SignString(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, stringToSign))
}
