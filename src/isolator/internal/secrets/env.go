package secrets

import (
	"context"
	"os"
	"strings"
)

var _ Store = EnvStore{}

// EnvStore reads secrets from environment variables named <prefix><NAME>.
type EnvStore struct {
	prefix string
}

func NewEnvStore(prefix string) EnvStore {
	return EnvStore{prefix: prefix}
}

func (e EnvStore) Get(_ context.Context, name string) ([]byte, bool, error) {
	value, ok := os.LookupEnv(e.VarName(name))
	if !ok || value == "" {
		return nil, false, nil
	}

	return []byte(value), true, nil
}

func (e EnvStore) VarName(name string) string {
	upper := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)

	return e.prefix + upper
}
