package retro

import (
	"errors"
	"fmt"

	"github.com/scrumkit/scrumkit/internal/store"
)

// Error kinds. Callers classify with errors.Is.
var (
	ErrNotFound         = store.ErrNotFound
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrBudgetExceeded   = errors.New("vote budget exceeded")
	ErrGenerationFailed = errors.New("report generation failed")
	ErrNotConfigured    = errors.New("not configured")
)

// Error carries a message meant for the client alongside its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return &Error{Kind: ErrNotFound, Msg: what + " not found"}
}

// classify replaces a store not-found with a client message and leaves
// every other error untouched.
func classify(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(what)
	}
	return err
}
