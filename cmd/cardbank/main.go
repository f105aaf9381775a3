package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(out, describe(err))
		return 1
	}

	return 0
}

func newRootCmd() *cobra.Command {
	var (
		a        = &app{}
		backend  string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:           "cardbank",
		Short:         "Card bank ledger",
		Long:          `A minimal card bank: accounts identified by card number and PIN, deposits and transfers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr(), backend, logLevel)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.finish()
		},
	}

	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Storage backend: memory, postgres or redis (overrides STORAGE_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error or disabled (overrides LOG_LEVEL)")

	rootCmd.AddCommand(
		migrateCmd(a),
		createCmd(a),
		balanceCmd(a),
		depositCmd(a),
		transferCmd(a),
		closeCmd(a),
		shellCmd(a),
	)

	return rootCmd
}
