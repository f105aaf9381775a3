package domain

import (
	"errors"
	"math"
	"testing"
)

func TestAccount_ValidateDebit(t *testing.T) {
	tests := []struct {
		name        string
		balance     int64
		debitAmount int64
		expectError error
	}{
		{
			name:        "debit more than balance",
			balance:     100,
			debitAmount: 150,
			expectError: ErrInsufficientFunds,
		},
		{
			name:        "debit exact balance",
			balance:     100,
			debitAmount: 100,
		},
		{
			name:        "debit less than balance",
			balance:     100,
			debitAmount: 50,
		},
		{
			name:        "zero debit",
			balance:     100,
			debitAmount: 0,
			expectError: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{Balance: tt.balance}

			err := acc.ValidateDebit(tt.debitAmount)
			if !errors.Is(err, tt.expectError) {
				t.Errorf("expected %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestAccount_ValidateCredit(t *testing.T) {
	tests := []struct {
		name        string
		balance     int64
		amount      int64
		expectError error
	}{
		{name: "fits", balance: 100, amount: 50},
		{name: "reaches max exactly", balance: math.MaxInt64 - 5, amount: 5},
		{name: "one past max", balance: math.MaxInt64, amount: 1, expectError: ErrBalanceOverflow},
		{name: "max onto positive balance", balance: 1, amount: math.MaxInt64, expectError: ErrBalanceOverflow},
		{name: "zero credit", balance: 100, amount: 0, expectError: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{Balance: tt.balance}

			err := acc.ValidateCredit(tt.amount)
			if !errors.Is(err, tt.expectError) {
				t.Errorf("expected %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestAccount_ApplyDebitCredit(t *testing.T) {
	acc := &Account{Balance: 100}

	if got := acc.ApplyDebit(30); got != 70 {
		t.Errorf("expected 70 after debit, got %d", got)
	}

	if got := acc.ApplyCredit(30); got != 130 {
		t.Errorf("expected 130 after credit, got %d", got)
	}

	if acc.Balance != 100 {
		t.Errorf("apply must not mutate balance, got %d", acc.Balance)
	}
}

func TestAccount_MatchesPIN(t *testing.T) {
	acc := &Account{PIN: "0420"}

	if !acc.MatchesPIN("0420") {
		t.Error("expected exact PIN to match")
	}

	for _, pin := range []string{"420", "0421", "", "0420 "} {
		if acc.MatchesPIN(pin) {
			t.Errorf("expected %q not to match", pin)
		}
	}
}
