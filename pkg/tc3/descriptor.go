package tc3

import (
	"errors"
	"strings"

	"go.uber.org/multierr"
)

var (
	// ContentTypeJSON transmits the payload as a canonical JSON document.
	ContentTypeJSON = &ContentType{"json", "application/json"}
	// ContentTypeForm transmits the payload form urlencoded. The hashed bytes
	// are the transmitted bytes, same as the json path.
	ContentTypeForm = &ContentType{"form", "application/x-www-form-urlencoded"}
)

// ContentType selects how a payload is serialized and announced.
type ContentType struct {
	name string
	mime string
}

func contentTypeFromString(name string) (*ContentType, error) {
	switch strings.ToLower(name) {
	case "", ContentTypeJSON.name, ContentTypeJSON.mime:
		return ContentTypeJSON, nil
	case ContentTypeForm.name, ContentTypeForm.mime:
		return ContentTypeForm, nil
	}
	return nil, ErrUnknownContent
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ContentType) UnmarshalText(text []byte) error {
	ct, err := contentTypeFromString(string(text))
	if err != nil {
		return err
	}
	*c = *ct
	return nil
}

func (c ContentType) Name() string { return c.name }

// Mime is the Content-Type header value.
func (c ContentType) Mime() string { return c.mime }

// Descriptor identifies one API family: which service endpoint receives the
// call and how the call announces itself. Fixed per family and supplied by
// the caller, a value copy with a different Action covers every operation of
// the family.
type Descriptor struct {
	// Service is the short service name, such as cvm or cdb. Second link of
	// the credential scope.
	Service string `json:"service" yaml:"service"`
	// Host is the API endpoint host, such as cvm.tencentcloudapi.com.
	Host string `json:"host" yaml:"host"`
	// Action is the operation name, such as DescribeInstances.
	Action string `json:"action" yaml:"action"`
	// Version is the API version date, such as 2017-03-12.
	Version string `json:"version" yaml:"version"`
	// Region is the target region, such as ap-guangzhou.
	Region string `json:"region" yaml:"region"`
	// Language selects the language of server side messages, defaults to
	// zh-CN.
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
	// ContentType defaults to json.
	ContentType ContentType `json:"contentType" yaml:"contentType"`
}

// Validate reports every empty field so a misconfigured descriptor fails
// before any hashing occurs.
func (d Descriptor) Validate() error {
	var errs error
	for _, f := range []struct {
		name  string
		value string
	}{
		{"service", d.Service},
		{"host", d.Host},
		{"action", d.Action},
		{"version", d.Version},
		{"region", d.Region},
	} {
		if f.value == "" {
			errs = multierr.Append(errs, errors.New("tc3: descriptor "+f.name+" must not be empty"))
		}
	}
	return errs
}

// WithAction returns a copy of the descriptor targeting another operation of
// the same family.
func (d Descriptor) WithAction(action string) Descriptor {
	d.Action = action
	return d
}

func (d Descriptor) language() string {
	if d.Language == "" {
		return DefaultLanguage
	}
	return d.Language
}

// Endpoint is the full URL the signed request is sent to.
func (d Descriptor) Endpoint() string {
	return "https://" + d.Host
}
