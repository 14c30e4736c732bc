package chessgame

import "fmt"

// ErrorKind groups game errors so callers can match them with errors.Is.
type ErrorKind string

const (
	KindInvalidState    ErrorKind = "invalid_state"
	KindPermission      ErrorKind = "permission"
	KindIllegalMove     ErrorKind = "illegal_move"
	KindInvalidArgument ErrorKind = "invalid_argument"
)

// Error is a user-facing failure of a game operation. Msg is shown to the
// player as is.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is matches any *Error of the same kind, so
// errors.Is(err, ErrIllegalMove) works for every illegal move message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidState    = &Error{Kind: KindInvalidState, Msg: "invalid state"}
	ErrPermission      = &Error{Kind: KindPermission, Msg: "permission denied"}
	ErrIllegalMove     = &Error{Kind: KindIllegalMove, Msg: "illegal move"}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Msg: "invalid argument"}
)

func stateErr(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func permErr(format string, args ...any) error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

func illegalErr(format string, args ...any) error {
	return &Error{Kind: KindIllegalMove, Msg: fmt.Sprintf(format, args...)}
}

func argErr(format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}
