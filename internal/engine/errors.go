package engine

import "fmt"

// InvalidStateError indicates an operation was attempted against a gig
// whose status does not allow it.
type InvalidStateError struct {
	Op     string
	Status string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed while gig is %s", e.Op, e.Status)
}

// InvalidAmountError indicates a zero or otherwise unusable amount.
type InvalidAmountError struct {
	Amount uint64
}

func (e InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %d", e.Amount)
}

// BudgetExceededError indicates milestone amounts would exceed the gig payment.
type BudgetExceededError struct {
	Payment   uint64
	Allocated uint64
	Requested uint64
}

func (e BudgetExceededError) Error() string {
	return fmt.Sprintf("milestone amount %d exceeds remaining budget %d of %d", e.Requested, e.Payment-e.Allocated, e.Payment)
}

// InvalidRatingError indicates a score outside the configured range.
type InvalidRatingError struct {
	Score uint64
	Min   uint64
	Max   uint64
}

func (e InvalidRatingError) Error() string {
	return fmt.Sprintf("rating %d outside range %d..%d", e.Score, e.Min, e.Max)
}

// InsufficientFundsError indicates an account balance cannot cover a debit.
type InsufficientFundsError struct {
	Principal string
	Need      uint64
	Have      uint64
}

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("account %s holds %d, needs %d", e.Principal, e.Have, e.Need)
}
