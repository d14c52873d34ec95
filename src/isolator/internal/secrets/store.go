package secrets

import (
	"context"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

//counterfeiter:generate . Store
type Store interface {
	// Get reports found=false for a secret that simply isn't configured.
	// An error means the store itself could not be consulted.
	Get(ctx context.Context, name string) (value []byte, found bool, err error)
}
