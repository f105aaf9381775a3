package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTransfer_Validate(t *testing.T) {
	tests := []struct {
		name        string
		from        string
		to          string
		amount      int64
		expectError error
	}{
		{
			name:   "valid transfer",
			from:   "4000001234567899",
			to:     "4000009876543213",
			amount: 100,
		},
		{
			name:        "same account",
			from:        "4000001234567899",
			to:          "4000001234567899",
			amount:      100,
			expectError: ErrSameAccount,
		},
		{
			name:        "zero amount",
			from:        "4000001234567899",
			to:          "4000009876543213",
			amount:      0,
			expectError: ErrInvalidAmount,
		},
		{
			name:        "negative amount",
			from:        "4000001234567899",
			to:          "4000009876543213",
			amount:      -5,
			expectError: ErrInvalidAmount,
		},
		{
			name:        "amount checked before same account",
			from:        "4000001234567899",
			to:          "4000001234567899",
			amount:      0,
			expectError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Transfer{From: tt.from, To: tt.to, Amount: tt.amount}

			err := tr.Validate()
			if !errors.Is(err, tt.expectError) {
				t.Errorf("expected %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestTransfer_LockOrderIsDirectionIndependent(t *testing.T) {
	ab := &Transfer{From: "a", To: "b"}
	ba := &Transfer{From: "b", To: "a"}

	if ab.LockOrder() != ba.LockOrder() {
		t.Fatalf("expected same lock order, got %v and %v", ab.LockOrder(), ba.LockOrder())
	}

	if ab.LockOrder() != [2]string{"a", "b"} {
		t.Fatalf("expected lexicographic order, got %v", ab.LockOrder())
	}
}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		err  error
		want TransferStatus
	}{
		{nil, TransferCommitted},
		{ErrInsufficientFunds, TransferRejected},
		{ErrAccountNotFound, TransferRejected},
		{fmt.Errorf("%w: boom", ErrTransferAborted), TransferRolledBack},
	}

	for _, tt := range tests {
		if got := StatusFromError(tt.err); got != tt.want {
			t.Errorf("StatusFromError(%v) = %s, want %s", tt.err, got, tt.want)
		}
		if !tt.want.IsTerminal() {
			t.Errorf("expected %s to be terminal", tt.want)
		}
	}

	if TransferPending.IsTerminal() {
		t.Error("pending must not be terminal")
	}
}

func TestTransferHooks_NilIsNoop(t *testing.T) {
	var hooks TransferHooks
	tr := &Transfer{}

	if err := hooks.RunAfterLock(context.Background(), tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := hooks.RunAfterDebit(context.Background(), tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("boom")
	hooks.AfterDebit = func(context.Context, *Transfer) error { return boom }
	if err := hooks.RunAfterDebit(context.Background(), tr); !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
}
