package protocol

const (
	// Protocol/transport validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Grid and board.
	ErrOutOfRange          = "E_OUT_OF_RANGE"
	ErrDuplicateCoordinate = "E_DUPLICATE_COORDINATE"
	ErrConflict            = "E_CONFLICT"

	// Saves.
	ErrMalformedDocument = "E_MALFORMED_DOCUMENT"
	ErrNotFound          = "E_NOT_FOUND"

	// Slot machine and economy.
	ErrInvalidPool       = "E_INVALID_POOL"
	ErrInsufficientFunds = "E_INSUFFICIENT_FUNDS"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:          {},
	ErrOutOfRange:          {},
	ErrDuplicateCoordinate: {},
	ErrConflict:            {},
	ErrMalformedDocument:   {},
	ErrNotFound:            {},
	ErrInvalidPool:         {},
	ErrInsufficientFunds:   {},
	ErrInternal:            {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// RequestError marks a request the server could not interpret.
type RequestError struct{ Msg string }

func (e *RequestError) Error() string { return e.Msg }
