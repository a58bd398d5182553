// Package types defines the shared, dependency-light types of cfbkit: the
// typed error taxonomy every layer reports through, and the plain metadata
// structs the container exposes to callers and tools.
//
// Errors carry a stable Kind so callers can branch on intent rather than
// text:
//
//	f, err := cfb.Open(path)
//	switch {
//	case errors.Is(err, types.ErrWrongFormat):
//	    // an xlsx handed to the binary reader
//	case errors.Is(err, types.ErrCorrupt):
//	    // damaged chains or directory
//	}
package types
