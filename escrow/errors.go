package escrow

import "errors"

// Kind groups error codes by the guard that produced them.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindState
	KindAuthorization
	KindTiming
	KindArithmetic
	KindSubstrate
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindState:
		return "state"
	case KindAuthorization:
		return "authorization"
	case KindTiming:
		return "timing"
	case KindArithmetic:
		return "arithmetic"
	case KindSubstrate:
		return "substrate"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a non-retryable escrow failure. The record is untouched whenever
// one is returned.
type Error struct {
	Code string
	Kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Code: code, Kind: kind, msg: msg}
}

var (
	ErrGameCodeTooLong = newError(KindValidation, "GAME_CODE_TOO_LONG", "game code is too long")
	ErrInvalidGameCode = newError(KindValidation, "INVALID_GAME_CODE", "game code is required")
	ErrInvalidStake    = newError(KindValidation, "INVALID_STAKE", "invalid stake")
	ErrInvalidDeadline = newError(KindValidation, "INVALID_DEADLINE", "invalid deadline")
	ErrInvalidReferee  = newError(KindValidation, "INVALID_REFEREE", "referee must be set and not the host")
	ErrInvalidAmount   = newError(KindValidation, "INVALID_AMOUNT", "amount must be positive")

	ErrInvalidState  = newError(KindState, "INVALID_STATE", "invalid state")
	ErrAlreadyFunded = newError(KindState, "ALREADY_FUNDED", "account is already funded")
	ErrHostNotFunded = newError(KindState, "HOST_NOT_FUNDED", "host has not funded yet")

	ErrUnauthorized  = newError(KindAuthorization, "UNAUTHORIZED", "unauthorized")
	ErrInvalidGuest  = newError(KindAuthorization, "INVALID_GUEST", "invalid guest")
	ErrInvalidWinner = newError(KindAuthorization, "INVALID_WINNER", "invalid winner")

	ErrDeadlineNotReached = newError(KindTiming, "DEADLINE_NOT_REACHED", "deadline not reached")

	ErrMathOverflow = newError(KindArithmetic, "MATH_OVERFLOW", "math overflow")

	ErrInsufficientBalance = newError(KindSubstrate, "INSUFFICIENT_BALANCE", "insufficient balance")
	ErrBalanceOverflow     = newError(KindSubstrate, "BALANCE_OVERFLOW", "balance overflow")
	ErrMatchExists         = newError(KindSubstrate, "MATCH_EXISTS", "match already exists")
	ErrAccountExists       = newError(KindSubstrate, "ACCOUNT_EXISTS", "account already exists")

	ErrMatchNotFound   = newError(KindNotFound, "MATCH_NOT_FOUND", "match not found")
	ErrAccountNotFound = newError(KindNotFound, "ACCOUNT_NOT_FOUND", "account not found")
)

// KindOf returns the kind of the escrow error wrapped in err, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the stable code of the escrow error wrapped in err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
