package optimizer

import "errors"

var (
	// ErrDivisionByZero is returned when constant folding encounters an
	// integer division by a zero literal.
	ErrDivisionByZero = errors.New("division by zero in constant expression")

	// ErrUnresolvedColumn is returned when a predicate references a column
	// that provably exists on neither side of a join.
	ErrUnresolvedColumn = errors.New("column not found on either join side")
)
