// Package main provides the shelf CLI, a thin command surface over the
// table, sorted-index, and session layers.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// Exit codes: 0 success, 1 user error (bad input, nothing found),
// 2 system error (store unreachable, contention exhausted).
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "shelf:", err)
		os.Exit(exitCode(err))
	}
}

// errUsage marks a malformed invocation, bad flags or flag values.
var errUsage = errors.New("usage error")

// exitCode classifies an error as a user mistake or a system failure.
func exitCode(err error) int {
	for _, user := range []error{
		errUsage,
		types.ErrNotFound,
		types.ErrNoSchema,
		types.ErrSchemaExists,
		types.ErrInvalidSchema,
		types.ErrFieldMismatch,
		types.ErrBackendEmpty,
		types.ErrBackendUnknown,
		types.ErrAddrEmpty,
		types.ErrRetriesInvalid,
	} {
		if errors.Is(err, user) {
			return exitUserError
		}
	}
	return exitSysError
}
