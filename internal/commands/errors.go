package commands

import (
	"errors"
	"fmt"
	"io"

	"gtasks/internal/config"
	"gtasks/internal/exitcode"
	"gtasks/internal/handlers"
	"gtasks/internal/service"
)

// report prints err in the CLI's error format and returns its exit code.
// Lookup and validation failures are user errors; missing or rejected
// credentials are auth errors; anything else is a backend error.
func report(errOut io.Writer, err error) int {
	switch {
	case errors.Is(err, handlers.ErrInvalidRequest),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrAmbiguous):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, service.ErrAuth), errors.Is(err, config.ErrMissingFiles):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}
