package cache

import (
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	compressionThreshold = 64

	noCompression = 0x0
	s2Compression = 0x1
)

type (
	MarshalFunc   func(any) ([]byte, error)
	UnmarshalFunc func([]byte, any) error
)

// DefaultMarshalFunc serializes a value with msgpack, payloads over the
// threshold are s2 compressed. Byte and string values pass through untouched.
func DefaultMarshalFunc(value any) ([]byte, error) {
	switch value := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return value, nil
	case string:
		return []byte(value), nil
	}

	b, err := msgpack.Marshal(value)
	if err != nil {
		return nil, err
	}
	return compress(b), nil
}

func compress(data []byte) []byte {
	if len(data) < compressionThreshold {
		out := make([]byte, len(data)+1)
		copy(out, data)
		out[len(data)] = noCompression
		return out
	}

	out := make([]byte, s2.MaxEncodedLen(len(data))+1)
	out = s2.Encode(out, data)
	return append(out, s2Compression)
}

// DefaultUnmarshalFunc reverses DefaultMarshalFunc.
func DefaultUnmarshalFunc(b []byte, value any) error {
	if len(b) == 0 {
		return nil
	}

	switch value := value.(type) {
	case nil:
		return nil
	case *[]byte:
		cp := make([]byte, len(b))
		copy(cp, b)
		*value = cp
		return nil
	case *string:
		*value = string(b)
		return nil
	}

	switch tag := b[len(b)-1]; tag {
	case noCompression:
		b = b[:len(b)-1]
	case s2Compression:
		var err error
		if b, err = s2.Decode(nil, b[:len(b)-1]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown compression method: %x", tag)
	}

	return msgpack.Unmarshal(b, value)
}
