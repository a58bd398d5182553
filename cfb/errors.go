package cfb

import (
	"errors"

	"github.com/joshuapare/cfbkit/internal/format"
	"github.com/joshuapare/cfbkit/pkg/types"
)

func corruptf(format string, args ...any) error {
	return types.Errorf(types.ErrKindCorrupt, format, args...)
}

func sanityf(format string, args ...any) error {
	return types.Errorf(types.ErrKindSizeSanity, format, args...)
}

func notFoundf(format string, args ...any) error {
	return types.Errorf(types.ErrKindNotFound, format, args...)
}

func statef(format string, args ...any) error {
	return types.Errorf(types.ErrKindState, format, args...)
}

// classifyHeaderErr lifts low-level header errors into the public taxonomy.
func classifyHeaderErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, format.ErrOOXML), errors.Is(err, format.ErrRawBIFF):
		return &types.Error{Kind: types.ErrKindWrongFormat, Err: err}
	case errors.Is(err, format.ErrSectorShift),
		errors.Is(err, format.ErrSignatureMismatch),
		errors.Is(err, format.ErrTruncated):
		return &types.Error{Kind: types.ErrKindFormat, Err: err}
	default:
		return err
	}
}
