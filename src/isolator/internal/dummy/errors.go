package dummy

import "github.com/cockroachdb/errors"

var (
	NetworkFailure = errors.New("Network failure")
	NotFound       = errors.New("Not found")
	ExitFailure    = errors.New("exit status 1")
)
