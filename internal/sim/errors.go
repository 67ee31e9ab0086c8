package sim

import stderrors "errors"

// ErrKind categorizes protocol usage errors. These are integration mistakes,
// never verification outcomes.
type ErrKind uint8

const (
	KindMissingToken ErrKind = iota + 1
	KindMissingNonce
	KindNonceOutsideChallenge
	KindInvalidWindow
	KindInvalidNonceBits
	KindUnknownMode
)

// UsageError reports a misuse of the protocol components.
type UsageError struct {
	Kind ErrKind
	Msg  string
}

func (e *UsageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Msg
}

// Is matches any UsageError of the same kind, so wrapped sentinels compare equal.
func (e *UsageError) Is(target error) bool {
	t, ok := target.(*UsageError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newUsageError(kind ErrKind, msg string) *UsageError {
	return &UsageError{Kind: kind, Msg: msg}
}

var (
	ErrMissingToken          = newUsageError(KindMissingToken, "token is required to compute a MAC")
	ErrMissingNonce          = newUsageError(KindMissingNonce, "challenge mode requires a nonce for each frame")
	ErrNonceOutsideChallenge = newUsageError(KindNonceOutsideChallenge, "nonce issuance is only supported in challenge mode")
	ErrInvalidWindow         = newUsageError(KindInvalidWindow, "window_size must be >= 1 for window mode")
	ErrInvalidNonceBits      = newUsageError(KindInvalidNonceBits, "nonce bits must be between 1 and 64")
	ErrUnknownMode           = newUsageError(KindUnknownMode, "unsupported defense mode")
)

// IsKind reports whether err carries a UsageError of the given kind.
func IsKind(err error, kind ErrKind) bool {
	var ue *UsageError
	if stderrors.As(err, &ue) {
		return ue.Kind == kind
	}
	return false
}
