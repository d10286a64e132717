package conf

import (
	"os"
	"regexp"

	"github.com/hashicorp/go-envparse"
)

var envRegex = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?}`)

// ParseEnv expands `${VAR}` and `${VAR:default}` references in the source
// bytes from the process environment. An unset variable without a default
// expands to the empty string.
func ParseEnv(src []byte) []byte {
	return envRegex.ReplaceAllFunc(src, func(match []byte) []byte {
		sub := envRegex.FindSubmatch(match)
		if v, ok := os.LookupEnv(string(sub[1])); ok {
			return []byte(v)
		}
		return sub[2]
	})
}

// LoadEnvFile loads a dotenv formatted file into the process environment.
// Variables already present in the environment are not overridden.
func LoadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	kvs, err := envparse.Parse(f)
	if err != nil {
		return err
	}
	for k, v := range kvs {
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}
