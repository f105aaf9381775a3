package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iho/cardbank/internal/domain"
	"github.com/iho/cardbank/internal/usecase"
)

// errQuit ends the session from any menu.
var errQuit = errors.New("quit")

// shell is the interactive card holder menu.
type shell struct {
	svc *usecase.AccountService
	in  *bufio.Scanner
	out io.Writer
}

func newShell(svc *usecase.AccountService, in io.Reader, out io.Writer) *shell {
	return &shell{
		svc: svc,
		in:  bufio.NewScanner(in),
		out: out,
	}
}

func (s *shell) run(ctx context.Context) error {
	for {
		s.println("1. Create account")
		s.println("2. Log into account")
		s.println("0. Exit")

		choice, ok := s.read()
		if !ok {
			return nil
		}

		var err error
		switch choice {
		case "1":
			err = s.create(ctx)
		case "2":
			err = s.login(ctx)
		case "0":
			err = errQuit
		default:
			s.println("")
			s.println(msgBadOption)
		}

		if errors.Is(err, errQuit) {
			s.println("")
			s.println(msgBye)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *shell) create(ctx context.Context) error {
	account, err := s.svc.OpenAccount(ctx)
	if err != nil {
		return err
	}

	s.println("")
	printCreated(s.out, account)
	s.println("")

	return nil
}

func (s *shell) login(ctx context.Context) error {
	s.println("Enter your card number:")
	number, ok := s.read()
	if !ok {
		return errQuit
	}
	s.println("Enter your PIN:")
	pin, ok := s.read()
	if !ok {
		return errQuit
	}

	account, err := s.svc.Login(ctx, number, pin)
	if errors.Is(err, domain.ErrWrongCredentials) {
		s.println("")
		s.println(describe(err))
		s.println("")
		return nil
	}
	if err != nil {
		return err
	}

	s.println("")
	s.println(msgLoggedIn)

	return s.session(ctx, account)
}

// session runs the account menu until the holder logs out, closes the
// account or quits.
func (s *shell) session(ctx context.Context, account *domain.Account) error {
	for {
		s.println("")
		s.println("1. Balance")
		s.println("2. Add income")
		s.println("3. Do transfer")
		s.println("4. Close account")
		s.println("5. Log out")
		s.println("0. Exit")

		choice, ok := s.read()
		if !ok {
			return errQuit
		}

		var err error
		switch choice {
		case "1":
			var balance int64
			if balance, err = s.svc.GetBalance(ctx, account.Number); err == nil {
				s.println("")
				s.printf("Balance: %d\n", balance)
			}
		case "2":
			err = s.deposit(ctx, account)
		case "3":
			err = s.transfer(ctx, account)
		case "4":
			if err = s.svc.CloseAccount(ctx, account.OwnerID); err == nil {
				s.println("")
				s.println(msgAccountClosed)
				return nil
			}
		case "5":
			s.println("")
			s.println(msgLoggedOut)
			return nil
		case "0":
			return errQuit
		default:
			s.println(msgBadOption)
		}

		if errors.Is(err, errQuit) {
			return err
		}
		if err != nil {
			s.println(describe(err))
		}
	}
}

func (s *shell) deposit(ctx context.Context, account *domain.Account) error {
	s.println("")
	s.println("Enter income:")

	amount, err := s.readAmount()
	if err != nil {
		return err
	}

	if err := s.svc.Deposit(ctx, account, amount); err != nil {
		return err
	}

	s.println(msgIncomeAdded)

	return nil
}

func (s *shell) transfer(ctx context.Context, account *domain.Account) error {
	s.println("")
	s.println("Transfer")
	s.println("Enter card number:")

	to, ok := s.read()
	if !ok {
		return errQuit
	}

	if to == account.Number {
		return domain.ErrSameAccount
	}
	if err := s.svc.CheckCard(ctx, to); err != nil {
		return err
	}

	s.println("Enter how much money you want to transfer:")

	amount, err := s.readAmount()
	if err != nil {
		return err
	}

	if _, err := s.svc.Transfer(ctx, account.Number, to, amount); err != nil {
		return err
	}

	s.println(msgTransferDone)

	return nil
}

func (s *shell) readAmount() (int64, error) {
	line, ok := s.read()
	if !ok {
		return 0, errQuit
	}

	amount, err := strconv.ParseInt(line, 10, 64)
	if err != nil || amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	return amount, nil
}

// read returns the next non-empty input line.
func (s *shell) read() (string, bool) {
	for s.in.Scan() {
		if line := strings.TrimSpace(s.in.Text()); line != "" {
			return line, true
		}
	}
	return "", false
}

func (s *shell) println(line string) {
	fmt.Fprintln(s.out, line)
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
