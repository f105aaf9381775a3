package domain

import "math"

// Account is a card account holding a balance in minor units.
type Account struct {
	OwnerID string
	Number  string
	PIN     string
	Balance int64
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if a.Balance < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// ValidateCredit checks if amount can be added without overflowing the balance.
func (a *Account) ValidateCredit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > math.MaxInt64-a.Balance {
		return ErrBalanceOverflow
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount int64) int64 {
	return a.Balance - amount
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount int64) int64 {
	return a.Balance + amount
}

// MatchesPIN reports whether pin equals the issued PIN exactly.
func (a *Account) MatchesPIN(pin string) bool {
	return a.PIN == pin
}
