package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/iho/cardbank/internal/domain"
)

const (
	msgIncomeAdded   = "Income was added!"
	msgTransferDone  = "Success!"
	msgAccountClosed = "The account has been closed!"
	msgLoggedIn      = "You have successfully logged in!"
	msgLoggedOut     = "You have successfully logged out!"
	msgBye           = "Bye!"
	msgBadOption     = "Incorrect option! Try again."

	msgMemoryBackend = "Note: the memory backend keeps accounts only until this command exits. " +
		"Use --backend postgres or --backend redis, or the shell command, to keep them between operations."
)

func printCreated(w io.Writer, account *domain.Account) {
	fmt.Fprintln(w, "Your card has been created")
	fmt.Fprintln(w, "Your card number:")
	fmt.Fprintln(w, account.Number)
	fmt.Fprintln(w, "Your card PIN:")
	fmt.Fprintln(w, account.PIN)
}

// describe turns an operation error into the line shown to the card holder.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrWrongCredentials):
		return "Wrong card number or PIN!"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "Not enough money!"
	case errors.Is(err, domain.ErrSameAccount):
		return "You can't transfer money to the same account!"
	case errors.Is(err, domain.ErrInvalidCardNumber):
		return "Probably you made a mistake in the card number. Please try again!"
	case errors.Is(err, domain.ErrAccountNotFound):
		return "Such a card does not exist."
	case errors.Is(err, domain.ErrInvalidAmount):
		return "Wrong number!"
	case errors.Is(err, domain.ErrBalanceOverflow):
		return "The receiving balance cannot hold that much money!"
	case errors.Is(err, domain.ErrAccountNotEmpty):
		return "The account still holds money and cannot be closed."
	case errors.Is(err, domain.ErrTransferAborted):
		return "Transfer failed, no money was moved. Please try again!"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
