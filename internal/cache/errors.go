package cache

import "fmt"

// ValidationError reports programmer misuse of the cache's write surface,
// such as a set_memory request outside the allowed byte range. Per spec.md
// §7, this is propagated as a hard failure to the caller, never logged and
// swallowed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}
