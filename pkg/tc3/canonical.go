package tc3

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// EncodePayload serializes the payload into the bytes that are hashed into
// the canonical request. The same bytes must go on the wire, the gateway
// rejects the signature otherwise.
//
// The json path accepts any value encoding/json can handle, []byte and
// json.RawMessage pass through untouched and nil becomes an empty document.
// The form path accepts url.Values, map[string]string and map[string]any.
func EncodePayload(payload any, ct ContentType) ([]byte, error) {
	if ct.name == ContentTypeForm.name {
		return encodeForm(payload)
	}
	return encodeJSON(payload)
}

func encodeJSON(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return []byte("{}"), nil
	case []byte:
		return p, nil
	case json.RawMessage:
		return p, nil
	}
	return json.Marshal(payload)
}

func encodeForm(payload any) ([]byte, error) {
	var vals url.Values
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case url.Values:
		vals = p
	case map[string]string:
		vals = make(url.Values, len(p))
		for k, v := range p {
			vals.Set(k, v)
		}
	case map[string]any:
		vals = make(url.Values, len(p))
		for k, v := range p {
			vals.Set(k, fmt.Sprint(v))
		}
	default:
		return nil, fmt.Errorf("tc3: form payload type %T not supported", payload)
	}
	return []byte(vals.Encode()), nil
}

// HashPayload is the lowercase hex SHA256 of the transmitted payload bytes.
func HashPayload(payload []byte) string {
	if len(payload) == 0 {
		return emptyStringSHA256
	}
	return hashSHA256(payload)
}

// BuildCanonicalHeaders renders the signed header block and the matching
// SignedHeaders list. Keys are lower cased and sorted ascending, values are
// trimmed, each header is rendered as key:value terminated by a newline.
func BuildCanonicalHeaders(headers map[string]string) (block, signedHeaders string) {
	lowered := make(map[string]string, len(headers))
	keys := make([]string, 0, len(headers))
	for k, v := range headers {
		lk := strings.ToLower(k)
		if _, ok := lowered[lk]; !ok {
			keys = append(keys, lk)
		}
		lowered[lk] = strings.TrimSpace(v)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(":")
		sb.WriteString(lowered[k])
		sb.WriteString("\n")
	}
	return sb.String(), strings.Join(keys, ";")
}

// CanonicalQueryString renders query parameters RFC3986 percent encoded with
// uppercase hex escapes, sorted by key. Empty for POST requests, the GET path
// carries the payload here.
func CanonicalQueryString(query url.Values) string {
	if len(query) == 0 {
		return ""
	}
	return strings.ReplaceAll(query.Encode(), "+", "%20")
}

// BuildCanonicalRequest joins the request elements in signing order. The
// headers block carries its own trailing newline which yields the blank line
// before the SignedHeaders element.
func BuildCanonicalRequest(method, uri, query, headersBlock, signedHeaders, payloadHash string) string {
	return strings.Join([]string{method, uri, query, headersBlock, signedHeaders, payloadHash}, "\n")
}
