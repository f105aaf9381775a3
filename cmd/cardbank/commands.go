package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iho/cardbank/internal/domain"
	"github.com/iho/cardbank/internal/infrastructure/postgres"
)

func migrateCmd(a *app) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if down {
				if err := postgres.RunMigrationsDown(a.cfg.DatabaseURL); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Last migration rolled back")
				return nil
			}

			if err := postgres.RunMigrations(a.cfg.DatabaseURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "Roll back the last migration")

	return cmd
}

func createCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Open a new account and print its card number and PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.accounts(cmd.Context())
			if err != nil {
				return err
			}

			account, err := svc.OpenAccount(cmd.Context())
			if err != nil {
				return err
			}

			printCreated(cmd.OutOrStdout(), account)
			return nil
		},
	}
}

// credentials holds the --card and --pin flags of authenticated commands.
type credentials struct {
	card string
	pin  string
}

func (c *credentials) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.card, "card", "", "Card number")
	cmd.Flags().StringVar(&c.pin, "pin", "", "Card PIN")
	_ = cmd.MarkFlagRequired("card")
	_ = cmd.MarkFlagRequired("pin")
}

func (c *credentials) login(cmd *cobra.Command, a *app) (*domain.Account, error) {
	svc, err := a.accounts(cmd.Context())
	if err != nil {
		return nil, err
	}

	return svc.Login(cmd.Context(), c.card, c.pin)
}

func balanceCmd(a *app) *cobra.Command {
	var creds credentials

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Print the balance of a card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := creds.login(cmd, a)
			if err != nil {
				return err
			}

			balance, err := a.service.GetBalance(cmd.Context(), account.Number)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Balance: %d\n", balance)
			return nil
		},
	}
	creds.register(cmd)

	return cmd
}

func depositCmd(a *app) *cobra.Command {
	var (
		creds  credentials
		amount int64
	)

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add income to a card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := creds.login(cmd, a)
			if err != nil {
				return err
			}

			if err := a.service.Deposit(cmd.Context(), account, amount); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), msgIncomeAdded)
			return nil
		},
	}
	creds.register(cmd)
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount to deposit")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func transferCmd(a *app) *cobra.Command {
	var (
		creds  credentials
		to     string
		amount int64
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money to another card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := creds.login(cmd, a)
			if err != nil {
				return err
			}

			if to == account.Number {
				return domain.ErrSameAccount
			}
			if err := a.service.CheckCard(cmd.Context(), to); err != nil {
				return err
			}

			transfer, err := a.service.Transfer(cmd.Context(), account.Number, to, amount)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Transfer %s\n", msgTransferDone, transfer.ID)
			return nil
		},
	}
	creds.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Receiver card number")
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount to transfer")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func closeCmd(a *app) *cobra.Command {
	var creds credentials

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close an account with a zero balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := creds.login(cmd, a)
			if err != nil {
				return err
			}

			if err := a.service.CloseAccount(cmd.Context(), account.OwnerID); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), msgAccountClosed)
			return nil
		},
	}
	creds.register(cmd)

	return cmd
}

func shellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive menu over the configured backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.interactive = true

			svc, err := a.accounts(cmd.Context())
			if err != nil {
				return err
			}

			return newShell(svc, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
		},
	}
}
