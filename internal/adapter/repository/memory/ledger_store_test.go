package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/iho/cardbank/internal/adapter/repository/storetest"
	"github.com/iho/cardbank/internal/domain"
	"github.com/iho/cardbank/internal/usecase"
)

func TestLedgerStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T, hooks domain.TransferHooks) usecase.LedgerStore {
		return NewLedgerStore(WithHooks(hooks))
	}, storetest.Options{Workers: 100})
}

func TestLedgerStore_ReadsNeverSeeHalfTransfer(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()

	_ = store.Create(ctx, &domain.Account{OwnerID: "a", Number: storetest.CardA})
	_ = store.Create(ctx, &domain.Account{OwnerID: "b", Number: storetest.CardB})
	if err := store.Deposit(ctx, storetest.CardA, 500); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			// a single snapshot of the store must always sum to the total
			store.mu.RLock()
			total := store.byCard[storetest.CardA].account.Balance + store.byCard[storetest.CardB].account.Balance
			store.mu.RUnlock()
			if total != 500 {
				t.Errorf("observed partial transfer, total %d", total)
				return
			}
		}
	}()

	for i := range 200 {
		from, to := storetest.CardA, storetest.CardB
		if i%2 == 1 {
			from, to = to, from
		}
		if err := store.Transfer(ctx, &domain.Transfer{From: from, To: to, Amount: 5}); err != nil {
			t.Fatalf("transfer %d failed: %v", i, err)
		}
	}

	close(stop)
	wg.Wait()
}

func TestLedgerStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewLedgerStore()
	_ = store.Create(ctx, &domain.Account{OwnerID: "a", Number: storetest.CardA})

	acc, err := store.GetByNumber(ctx, storetest.CardA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acc.Balance = 1_000_000

	again, _ := store.GetByNumber(ctx, storetest.CardA)
	if again.Balance != 0 {
		t.Fatalf("balance must only change through store operations, got %d", again.Balance)
	}
}
