package conf

import (
	"fmt"
	"io"
	"reflect"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
)

// KeyDelimiter separates the segments of a nested key, as in "client.region".
const KeyDelimiter = "."

// Parser wraps a koanf instance and exposes the small surface the rest of
// the package needs: loading, key lookup and struct decoding.
type Parser struct {
	k *koanf.Koanf
}

// NewParser returns an empty Parser.
func NewParser() *Parser {
	return &Parser{
		k: koanf.NewWithConf(koanf.Conf{Delim: KeyDelimiter, StrictMerge: false}),
	}
}

// NewParserFromFile loads the yaml file at fileName. Environment references
// in the file are expanded, see ParseEnv.
func NewParserFromFile(fileName string) (*Parser, error) {
	p := NewParser()
	if err := p.LoadFile(fileName); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", fileName, err)
	}
	return p, nil
}

// NewParserFromBuffer loads yaml from buf.
func NewParserFromBuffer(buf io.Reader) (*Parser, error) {
	raw, err := io.ReadAll(buf)
	if err != nil {
		return nil, err
	}
	return NewParserFromProvider(rawbytes.Provider(ParseEnv(raw)))
}

// NewParserFromStringMap builds a Parser over the given map.
func NewParserFromStringMap(data map[string]any) *Parser {
	p := NewParser()
	// Loading a confmap into an empty instance cannot fail.
	_ = p.k.Load(confmap.Provider(data, KeyDelimiter), nil)
	return p
}

// NewParserFromProvider loads yaml from any koanf provider.
func NewParserFromProvider(provider koanf.Provider) (*Parser, error) {
	p := NewParser()
	err := p.k.Load(provider, yaml.Parser())
	return p, err
}

// NewParserFromOperator wraps an existing koanf instance.
func NewParserFromOperator(k *koanf.Koanf) *Parser {
	return &Parser{k: k}
}

// Operator exposes the underlying koanf instance for callers that need the
// full koanf API.
func (p *Parser) Operator() *koanf.Koanf {
	return p.k
}

// AllKeys lists every key holding a value, nested keys joined with
// KeyDelimiter.
func (p *Parser) AllKeys() []string {
	return p.k.Keys()
}

// LoadFile merges the yaml file at path into the current tree, expanding
// environment references first, see ParseEnv.
func (p *Parser) LoadFile(path string) error {
	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return err
	}
	return p.k.Load(rawbytes.Provider(ParseEnv(raw)), yaml.Parser())
}

// Unmarshal decodes the subtree at key into dst, honoring json field tags.
// An empty key decodes the whole tree.
func (p *Parser) Unmarshal(key string, dst any) error {
	return p.decode(key, decoderConfig(dst))
}

// UnmarshalExact is Unmarshal but fails when the source holds a field the
// target struct does not declare.
func (p *Parser) UnmarshalExact(key string, dst any) error {
	dc := decoderConfig(dst)
	dc.ErrorUnused = true
	return p.decode(key, dc)
}

func (p *Parser) decode(key string, dc *mapstructure.DecoderConfig) error {
	input := any(p.ToStringMap())
	if key != "" {
		input = p.Get(key)
	}
	dec, err := mapstructure.NewDecoder(dc)
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

// Get returns the raw value at key, nil when unset.
func (p *Parser) Get(key string) any {
	return p.k.Get(key)
}

// Set stores value at key, merging over any existing subtree.
func (p *Parser) Set(key string, value any) {
	// koanf has no setter, so route the pair through a one-key overlay.
	overlay := koanf.New(KeyDelimiter)
	if err := overlay.Load(confmap.Provider(map[string]any{key: value}, KeyDelimiter), nil); err != nil {
		panic(err)
	}
	if err := p.k.Merge(overlay); err != nil {
		panic(err)
	}
}

// IsSet reports whether key holds a value or is the prefix of one.
// Matching is case-insensitive.
func (p *Parser) IsSet(key string) bool {
	return p.k.Exists(key)
}

// MergeStringMap merges cfg over the current tree. cfg may be modified in
// the process.
func (p *Parser) MergeStringMap(cfg map[string]any) error {
	inc := koanf.New(KeyDelimiter)
	if err := inc.Load(confmap.Provider(cfg, KeyDelimiter), nil); err != nil {
		return err
	}
	return p.k.Merge(inc)
}

// Sub returns a Parser over the subtree at key.
// It returns an error is the sub-config is not a map (use Get()) or if none exists.
func (p *Parser) Sub(key string) (*Parser, error) {
	if !p.IsSet(key) {
		return nil, fmt.Errorf("key not exists:%s", key)
	}
	sub := NewParserFromOperator(p.k.Cut(key))
	if len(sub.ToStringMap()) == 0 && p.Get(key) != nil {
		return nil, fmt.Errorf("key is not a map")
	}
	return sub, nil
}

// Slices returns one Parser per element when key holds a slice of maps.
func (p *Parser) Slices(key string) []*Parser {
	ops := p.k.Slices(key)
	out := make([]*Parser, len(ops))
	for i, op := range ops {
		out[i] = NewParserFromOperator(op)
	}
	return out
}

// ToStringMap copies the whole tree out as a nested map.
func (p *Parser) ToStringMap() map[string]any {
	return p.k.Raw()
}

// ToBytes marshals the tree with the given koanf marshaller, for example
// back to yaml.
func (p *Parser) ToBytes(mp koanf.Parser) ([]byte, error) {
	return p.k.Marshal(mp)
}

// decoderConfig is the mapstructure setup shared by Unmarshal and
// UnmarshalExact: json tags, weak typing so yaml scalars coerce into the
// target field type, plus hooks for text unmarshallers, durations and
// comma separated slices.
func decoderConfig(result any) *mapstructure.DecoderConfig {
	return &mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			expandNilStructPointers(),
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
}

// expandNilStructPointers replaces nil struct pointers inside decoded maps
// with pointers to zero values, so that an empty yaml node such as
//
//	thing:
//
// decodes to &SomeStruct{} rather than to nil.
func expandNilStructPointers() mapstructure.DecodeHookFunc {
	return func(from reflect.Value, to reflect.Value) (any, error) {
		if from.Kind() != reflect.Map || to.Kind() != reflect.Map {
			return from.Interface(), nil
		}
		elem := to.Type().Elem()
		if elem.Kind() != reflect.Ptr || elem.Elem().Kind() != reflect.Struct {
			return from.Interface(), nil
		}
		iter := from.MapRange()
		for iter.Next() {
			if iter.Value().IsNil() {
				from.SetMapIndex(iter.Key(), reflect.New(elem.Elem()))
			}
		}
		return from.Interface(), nil
	}
}
