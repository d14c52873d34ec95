package mark

import "github.com/cockroachdb/errors"

func Wrap(handledErr error, newMarkingError error, msg string) error {
	newErr := errors.Mark(handledErr, newMarkingError)
	return errors.WrapWithDepth(1, newErr, msg)
}

func Message(newMarkingError error, msg string) error {
	err := errors.NewWithDepth(1, msg)
	return errors.Mark(err, newMarkingError)
}

// Stamp marks without adding another message layer.
func Stamp(err error, newMarkingError error) error {
	if err == nil {
		return nil
	}

	return errors.Mark(err, newMarkingError)
}
