package tc3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsingsun/tcloud/pkg/conf"
	"go.uber.org/multierr"
)

func TestContentType_UnmarshalText(t *testing.T) {
	tests := []struct {
		text    string
		want    *ContentType
		wantErr bool
	}{
		{text: "json", want: ContentTypeJSON},
		{text: "application/json", want: ContentTypeJSON},
		{text: "form", want: ContentTypeForm},
		{text: "application/x-www-form-urlencoded", want: ContentTypeForm},
		{text: "", want: ContentTypeJSON},
		{text: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var ct ContentType
			err := ct.UnmarshalText([]byte(tt.text))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownContent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, *tt.want, ct)
			assert.Equal(t, tt.want.Mime(), ct.Mime())
		})
	}
}

func TestDescriptor_Validate(t *testing.T) {
	d := Descriptor{
		Service: "cvm",
		Host:    "cvm.tencentcloudapi.com",
		Action:  "DescribeInstances",
		Version: "2017-03-12",
		Region:  "ap-guangzhou",
	}
	assert.NoError(t, d.Validate())

	err := Descriptor{}.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 5)

	d.Host = ""
	require.ErrorContains(t, d.Validate(), "host")
}

func TestDescriptor_WithAction(t *testing.T) {
	d := Descriptor{Service: "cvm", Action: "DescribeInstances"}
	d2 := d.WithAction("RunInstances")
	assert.Equal(t, "RunInstances", d2.Action)
	assert.Equal(t, "DescribeInstances", d.Action)
	assert.Equal(t, d.Service, d2.Service)
}

func TestDescriptor_Endpoint(t *testing.T) {
	d := Descriptor{Host: "cvm.tencentcloudapi.com"}
	assert.Equal(t, "https://cvm.tencentcloudapi.com", d.Endpoint())
}

func TestDescriptor_FromConf(t *testing.T) {
	var d Descriptor
	cnf := conf.NewFromStringMap(map[string]any{
		"service":     "cvm",
		"host":        "cvm.tencentcloudapi.com",
		"action":      "DescribeInstances",
		"version":     "2017-03-12",
		"region":      "ap-guangzhou",
		"contentType": "form",
	})
	require.NoError(t, cnf.Unmarshal(&d))
	assert.Equal(t, "cvm", d.Service)
	assert.Equal(t, *ContentTypeForm, d.ContentType)
	assert.NoError(t, d.Validate())
}
