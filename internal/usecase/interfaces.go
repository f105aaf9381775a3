package usecase

import (
	"context"
	"time"

	"github.com/iho/cardbank/internal/domain"
)

// LedgerStore is the storage capability behind the account service.
// Implementations own all concurrency control for balance mutation.
type LedgerStore interface {
	// Create inserts a new account. It fails with domain.ErrDuplicateIdentifier
	// if the card number is already issued.
	Create(ctx context.Context, account *domain.Account) error
	// GetByNumber returns a point-in-time snapshot of the account.
	GetByNumber(ctx context.Context, number string) (*domain.Account, error)
	// Deposit atomically increments the balance.
	Deposit(ctx context.Context, number string, amount int64) error
	// Transfer moves t.Amount from t.From to t.To as one atomic unit.
	// A nil error means the transfer committed.
	Transfer(ctx context.Context, t *domain.Transfer) error
	// Delete removes the account owned by ownerID.
	Delete(ctx context.Context, ownerID string) error
}

// CardIssuer issues card numbers and PINs.
type CardIssuer interface {
	Issue() (number, pin string, err error)
	Valid(number string) bool
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Metrics records service outcomes.
type Metrics interface {
	AccountCreated()
	AccountClosed()
	DepositApplied(amount int64)
	TransferFinished(t *domain.Transfer, err error, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) AccountCreated()                                          {}
func (nopMetrics) AccountClosed()                                           {}
func (nopMetrics) DepositApplied(int64)                                     {}
func (nopMetrics) TransferFinished(*domain.Transfer, error, time.Duration) {}
