package extract

import "fmt"

// DecodeError reports provider text that could not be turned into the
// requested record. Callers treat it like a provider failure and fall back.
type DecodeError struct {
	Target string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("extract: decode %s: %v", e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
