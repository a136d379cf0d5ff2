// Package app wires configuration, the Solana connection, the ledger, and
// the domain services into the solterm CLI surface.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/solterm/solterm/internal/config"
	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdin, os.Stdout, os.Stderr)
}

func NewRunnerWithIO(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		stdin:  stdin,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	settings config.Settings
	session  *session
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	if state.session != nil {
		state.session.Close()
	}
	if err == nil {
		return 0
	}
	if errors.Is(err, errCommandFailed) {
		// The failed result has already been rendered to stdout.
		return 1
	}
	fmt.Fprintf(r.stderr, "Error: %s\n", err.Error())
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "Command terminal for streams, swaps, and staking on Solana",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")
	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output results as JSON envelopes")
	cmd.PersistentFlags().StringVar(&s.flags.RPCURL, "rpc-url", "", "Solana RPC endpoint")
	cmd.PersistentFlags().StringVar(&s.flags.Aggregator, "aggregator-url", "", "Swap aggregator endpoint")
	cmd.PersistentFlags().StringVar(&s.flags.KeypairPath, "keypair", "", "Path to wallet keypair file")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "Network request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", -1, "Retries per network request")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&s.flags.LogFile, "log-file", "", "Log file path (stderr when empty)")

	cmd.AddCommand(s.newTerminalCommand())
	cmd.AddCommand(s.newExecCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}
