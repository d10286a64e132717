package tc3

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePayload(t *testing.T) {
	t.Run("json map sorts keys", func(t *testing.T) {
		b, err := EncodePayload(map[string]any{"Offset": 0, "Limit": 10}, *ContentTypeJSON)
		require.NoError(t, err)
		assert.Equal(t, `{"Limit":10,"Offset":0}`, string(b))
	})
	t.Run("json raw passthrough", func(t *testing.T) {
		raw := json.RawMessage(`{"Offset":0,"Limit":10}`)
		b, err := EncodePayload(raw, *ContentTypeJSON)
		require.NoError(t, err)
		assert.Equal(t, []byte(raw), b)

		b, err = EncodePayload([]byte(`{"a":1}`), *ContentTypeJSON)
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, string(b))
	})
	t.Run("json nil", func(t *testing.T) {
		b, err := EncodePayload(nil, *ContentTypeJSON)
		require.NoError(t, err)
		assert.Equal(t, `{}`, string(b))
	})
	t.Run("json struct", func(t *testing.T) {
		b, err := EncodePayload(struct {
			Limit  int
			Offset int
		}{Limit: 10}, *ContentTypeJSON)
		require.NoError(t, err)
		assert.Equal(t, `{"Limit":10,"Offset":0}`, string(b))
	})
	t.Run("form values", func(t *testing.T) {
		b, err := EncodePayload(url.Values{"Name": {"web server"}, "InstanceId": {"ins-123"}}, *ContentTypeForm)
		require.NoError(t, err)
		assert.Equal(t, "InstanceId=ins-123&Name=web+server", string(b))
	})
	t.Run("form maps", func(t *testing.T) {
		b, err := EncodePayload(map[string]string{"b": "2", "a": "1"}, *ContentTypeForm)
		require.NoError(t, err)
		assert.Equal(t, "a=1&b=2", string(b))

		b, err = EncodePayload(map[string]any{"n": 3, "s": "x"}, *ContentTypeForm)
		require.NoError(t, err)
		assert.Equal(t, "n=3&s=x", string(b))
	})
	t.Run("form unsupported", func(t *testing.T) {
		_, err := EncodePayload(struct{ A int }{}, *ContentTypeForm)
		require.ErrorContains(t, err, "not supported")
	})
}

func TestHashPayload(t *testing.T) {
	assert.Equal(t, emptyStringSHA256, HashPayload(nil))
	assert.Equal(t, emptyStringSHA256, HashPayload([]byte{}))
	assert.Equal(t,
		"00e8a08440fd6f3ae2780213b5a3bdb6f783aef5f6d71db9429d112b32f2ef12",
		HashPayload([]byte(`{"Limit":10,"Offset":0}`)))
}

func TestBuildCanonicalHeaders(t *testing.T) {
	t.Run("sorted and joined", func(t *testing.T) {
		block, signed := BuildCanonicalHeaders(map[string]string{
			"content-type": "application/json",
			"host":         "cvm.tencentcloudapi.com",
		})
		assert.Equal(t, "content-type:application/json\nhost:cvm.tencentcloudapi.com\n", block)
		assert.Equal(t, SignedHeaders, signed)
	})
	t.Run("lowercase and trim", func(t *testing.T) {
		block, signed := BuildCanonicalHeaders(map[string]string{
			"Host":           " cvm.tencentcloudapi.com ",
			"Content-Type":   "application/json",
			"X-Custom-Nonce": "abc",
		})
		assert.Equal(t, "content-type:application/json\nhost:cvm.tencentcloudapi.com\nx-custom-nonce:abc\n", block)
		assert.Equal(t, "content-type;host;x-custom-nonce", signed)
	})
	t.Run("signed list matches block keys", func(t *testing.T) {
		block, signed := BuildCanonicalHeaders(map[string]string{"b": "2", "a": "1", "c": "3"})
		for i, name := range strings.Split(signed, ";") {
			if i > 0 {
				assert.Less(t, strings.Split(signed, ";")[i-1], name)
			}
			assert.Contains(t, block, name+":")
		}
	})
}

func TestCanonicalQueryString(t *testing.T) {
	assert.Empty(t, CanonicalQueryString(nil))
	assert.Empty(t, CanonicalQueryString(url.Values{}))

	got := CanonicalQueryString(url.Values{
		"Limit":  {"10"},
		"Offset": {"0"},
		"Filter": {"a b&c"},
	})
	assert.Equal(t, "Filter=a%20b%26c&Limit=10&Offset=0", got)
	assert.NotContains(t, got, "+")
}

func TestBuildCanonicalRequest(t *testing.T) {
	block, signed := BuildCanonicalHeaders(map[string]string{
		"content-type": "application/json",
		"host":         "cvm.tencentcloudapi.com",
	})
	got := BuildCanonicalRequest("POST", CanonicalURI, "", block, signed, HashPayload([]byte(`{"Limit":10,"Offset":0}`)))
	want := "POST\n" +
		"/\n" +
		"\n" +
		"content-type:application/json\n" +
		"host:cvm.tencentcloudapi.com\n" +
		"\n" +
		"content-type;host\n" +
		"00e8a08440fd6f3ae2780213b5a3bdb6f783aef5f6d71db9429d112b32f2ef12"
	assert.Equal(t, want, got)
	assert.Equal(t,
		"f97742425dbbb7da6193c8f8277d0ec2065b65486d50cbbae9d04d8b7d62c6eb",
		hashSHA256([]byte(got)))
}
