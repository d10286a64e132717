package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("TCLOUD_TEST_REGION", "ap-guangzhou")
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "set", src: "region: ${TCLOUD_TEST_REGION}", want: "region: ap-guangzhou"},
		{name: "unset", src: "region: ${TCLOUD_TEST_MISSING}", want: "region: "},
		{name: "default", src: "region: ${TCLOUD_TEST_MISSING:ap-beijing}", want: "region: ap-beijing"},
		{name: "no ref", src: "region: literal", want: "region: literal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(ParseEnv([]byte(tt.src))))
		})
	}
}

func TestParseEnv_InConfiguration(t *testing.T) {
	t.Setenv("TENCENTCLOUD_SECRET_ID", "AKIDFROMENV")
	cnf := NewFromBytes([]byte(`
credentials:
  secretId: ${TENCENTCLOUD_SECRET_ID}
`), WithGlobal(false))
	assert.Equal(t, "AKIDFROMENV", cnf.String("credentials.secretId"))
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TCLOUD_ENVFILE_KEY=fromfile\nTCLOUD_ENVFILE_KEEP=fromfile\n"), 0600))

	t.Setenv("TCLOUD_ENVFILE_KEEP", "fromenv")
	// not set beforehand, make sure the test leaves no residue
	t.Setenv("TCLOUD_ENVFILE_KEY", "")
	os.Unsetenv("TCLOUD_ENVFILE_KEY")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "fromfile", os.Getenv("TCLOUD_ENVFILE_KEY"))
	assert.Equal(t, "fromenv", os.Getenv("TCLOUD_ENVFILE_KEEP"), "existing env not overridden")

	assert.Error(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
}
