package transaction

import "errors"

// Sentinel errors for the transaction package (spec.md §7).
var (
	// ErrTimeout is delivered to a client transaction's completion handle
	// when Timer B/F fires with no final response.
	ErrTimeout = errors.New("transaction: timed out")

	// ErrTerminated is delivered when a transaction is torn down by a
	// transport error before completing normally.
	ErrTerminated = errors.New("transaction: terminated")

	// ErrUnknownTransaction is returned when a response or ACK/CANCEL
	// cannot be matched to any live transaction.
	ErrUnknownTransaction = errors.New("transaction: no matching transaction")
)
