package advisory

import "fmt"

// Kind classifies an advisory failure.
type Kind string

const (
	KindRateLimited    Kind = "rate_limited"
	KindPromptTooLarge Kind = "prompt_too_large"
	KindTemperature    Kind = "temperature"
	KindTransport      Kind = "transport"
	KindMalformed      Kind = "malformed"
	KindSchema         Kind = "schema"
)

// Error is the single failure type of the advisory layer. It never carries
// a partial advisory; the deterministic result is unaffected.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("advisory %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
