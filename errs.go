package singlemodel

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnsupported       = errors.New("operation not supported by single model")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrConstraint        = errors.New("constraint violation")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrNoDefaultRegistry = errors.New("no default registry")
)

// classified attaches kind to a driver error. Both stay reachable through errors.Is and errors.As.
func classified(kind error, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, kind) {
		return err
	}

	return fmt.Errorf("%w. %w", kind, err)
}

func unsupported(method string) error {
	return errors.Wrapf(ErrUnsupported, "%s not available, single model is intended for edit mode only", method)
}
