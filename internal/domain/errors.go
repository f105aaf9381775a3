package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrDuplicateIdentifier = errors.New("card number already issued")
	ErrAccountNotEmpty     = errors.New("account balance is not zero")
	ErrInvalidCardNumber   = errors.New("invalid card number")
	ErrWrongCredentials    = errors.New("wrong card number or PIN")

	// Transfer errors
	ErrSameAccount       = errors.New("cannot transfer to same account")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("not enough money")
	ErrTransferAborted   = errors.New("transfer aborted")
	ErrBalanceOverflow   = errors.New("balance would exceed the maximum")
)
