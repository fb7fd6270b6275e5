package pairing

import "errors"

type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindRateLimited     Kind = "RateLimited"
	KindConfiguration   Kind = "ConfigurationError"
	KindNavigation      Kind = "NavigationTimeout"
	KindFieldNotFound   Kind = "FieldNotFound"
	KindControlNotFound Kind = "ControlNotFound"
	KindNotConfirmed    Kind = "ConfirmationNotDetected"
	KindUnexpected      Kind = "UnexpectedFault"
	KindBusy            Kind = "Busy"
	KindUnavailable     Kind = "Unavailable"
	// KindCanceled means the caller went away before the run finished.
	KindCanceled Kind = "Canceled"
)

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrRateLimited     = &Error{Kind: KindRateLimited}
	ErrConfiguration   = &Error{Kind: KindConfiguration}
	ErrNavigation      = &Error{Kind: KindNavigation}
	ErrFieldNotFound   = &Error{Kind: KindFieldNotFound}
	ErrControlNotFound = &Error{Kind: KindControlNotFound}
	ErrNotConfirmed    = &Error{Kind: KindNotConfirmed}
	ErrUnexpected      = &Error{Kind: KindUnexpected}
	ErrBusy            = &Error{Kind: KindBusy}
	ErrUnavailable     = &Error{Kind: KindUnavailable}
	ErrCanceled        = &Error{Kind: KindCanceled}
)

type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func NewError(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: cause}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnexpected.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnexpected
}
