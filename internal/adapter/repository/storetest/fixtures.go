package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iho/cardbank/internal/domain"
	"github.com/iho/cardbank/internal/usecase"
)

// Luhn-valid card numbers used across store tests.
const (
	CardA = "4000001111111118"
	CardB = "4000002222222224"
	CardC = "4000003333333330"
	CardD = "4000004444444446"
)

// open creates an account and funds it through Deposit.
func open(t *testing.T, store usecase.LedgerStore, ownerID, number string, funds int64) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.Account{OwnerID: ownerID, Number: number, PIN: "1234"}))

	if funds > 0 {
		require.NoError(t, store.Deposit(ctx, number, funds))
	}
}

func balance(t *testing.T, store usecase.LedgerStore, number string) int64 {
	t.Helper()

	acc, err := store.GetByNumber(context.Background(), number)
	require.NoError(t, err)

	return acc.Balance
}

func transfer(from, to string, amount int64) *domain.Transfer {
	return &domain.Transfer{From: from, To: to, Amount: amount, Status: domain.TransferPending}
}
