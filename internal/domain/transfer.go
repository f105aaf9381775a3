package domain

import (
	"context"
	"errors"
	"time"
)

// TransferStatus is the state of a transfer.
type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferCommitted  TransferStatus = "committed"
	TransferRolledBack TransferStatus = "rolled_back"
	TransferRejected   TransferStatus = "rejected"
)

// IsTerminal reports whether no further transition is possible.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferCommitted || s == TransferRolledBack || s == TransferRejected
}

// Transfer represents a money movement between two card accounts.
type Transfer struct {
	CreatedAt time.Time
	ID        string
	From      string
	To        string
	Amount    int64
	Status    TransferStatus
}

// Validate validates transfer request.
func (t *Transfer) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}

	if t.From == t.To {
		return ErrSameAccount
	}

	return nil
}

// LockOrder returns both card numbers in the order their locks must be taken.
// Every store acquires locks in this order so that two transfers over the same
// pair, in either direction, can never wait on each other in a cycle.
func (t *Transfer) LockOrder() [2]string {
	if t.To < t.From {
		return [2]string{t.To, t.From}
	}
	return [2]string{t.From, t.To}
}

// StatusFromError maps the outcome of a store transfer to a terminal status.
func StatusFromError(err error) TransferStatus {
	switch {
	case err == nil:
		return TransferCommitted
	case errors.Is(err, ErrTransferAborted):
		return TransferRolledBack
	default:
		return TransferRejected
	}
}

// TransferHooks are invoked by stores at fixed points of the transfer protocol.
// A nil hook is skipped.
type TransferHooks struct {
	// AfterLock runs once both account locks are held.
	AfterLock func(ctx context.Context, t *Transfer) error
	// AfterDebit runs between the debit and the credit. Returning an error
	// aborts the transfer and rolls back the debit.
	AfterDebit func(ctx context.Context, t *Transfer) error
}

// RunAfterLock calls AfterLock if set.
func (h TransferHooks) RunAfterLock(ctx context.Context, t *Transfer) error {
	if h.AfterLock == nil {
		return nil
	}
	return h.AfterLock(ctx, t)
}

// RunAfterDebit calls AfterDebit if set.
func (h TransferHooks) RunAfterDebit(ctx context.Context, t *Transfer) error {
	if h.AfterDebit == nil {
		return nil
	}
	return h.AfterDebit(ctx, t)
}
