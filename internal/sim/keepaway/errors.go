package keepaway

import (
	"errors"
	"fmt"
)

// Configuration errors. All of them are reported by New before any round runs.
var (
	ErrTooFewActors     = errors.New("keepaway: at least two actors are required")
	ErrTargetOutOfRange = errors.New("keepaway: throw target out of range")
	ErrInvalidTest      = errors.New("keepaway: divisibility test must be positive")
	ErrInvalidRule      = errors.New("keepaway: invalid inspection rule")
	ErrItemsMismatch    = errors.New("keepaway: item lists do not match actors")
	ErrNegativeItem     = errors.New("keepaway: worry level must be non-negative")
	ErrUnknownMode      = errors.New("keepaway: unknown bounding mode")
)

// Input-shape errors, always wrapped in a *ParseError.
var (
	ErrMalformedBlock  = errors.New("malformed block")
	ErrBadInteger      = errors.New("bad integer")
	ErrUnknownOperator = errors.New("unknown operator")
)

// ParseError locates an input-shape error. Block is zero-based; Line is
// one-based within the block and zero when the block as a whole is wrong.
type ParseError struct {
	Block int
	Line  int
	Text  string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("keepaway: block %d: %v", e.Block, e.Err)
	}
	return fmt.Sprintf("keepaway: block %d line %d %q: %v", e.Block, e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
