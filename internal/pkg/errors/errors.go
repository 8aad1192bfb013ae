package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when a requester touches a session or profile they do not own.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrInvalidTransition = errors.New("invalid session transition")
	ErrAlreadyAnalyzed   = errors.New("session already analyzed")
	ErrAnalysisParse     = errors.New("analysis output malformed")
	ErrUpstreamModel     = errors.New("upstream model error")
	// ErrRetrievalDegraded marks a vector index outage. Callers fall back to lexical search
	// and never return it.
	ErrRetrievalDegraded = errors.New("retrieval degraded")
)

// TransitionError is an ErrInvalidTransition with a machine-readable reason
// such as "session_closed" or "not_completed".
type TransitionError struct {
	Reason string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	if e == nil {
		return ErrInvalidTransition.Error()
	}
	msg := ErrInvalidTransition.Error() + ": " + e.Reason
	if e.From != "" {
		msg += " (status=" + e.From + ")"
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func InvalidTransition(reason, from, to string) error {
	return &TransitionError{Reason: reason, From: from, To: to}
}
