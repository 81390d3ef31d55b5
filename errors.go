package metacache

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInitialization wraps every construction failure.
	ErrInitialization = errors.New("metacache: initialization failed")
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("metacache: configuration error")
	// ErrReservedKey is returned for logical keys that would alias the
	// registry or another key's metadata record.
	ErrReservedKey = errors.New("metacache: reserved key (_metadata or _metadata:*)")

	errRejected = errors.New("metacache: write rejected by provider")
)

// ConfigurationError reports an operation that needs a disabled option.
type ConfigurationError struct {
	Op     string
	Option string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("metacache: to use %s, you must enable the %s option", e.Op, e.Option)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// PatternError collects backend failures from RemovePattern. Keys that did
// not fail were still removed.
type PatternError struct {
	Pattern string
	Errs    []error
}

func (e *PatternError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("remove pattern %q: %d failure(s): %s", e.Pattern, len(e.Errs), strings.Join(msgs, "; "))
}

func (e *PatternError) Unwrap() []error { return e.Errs }
