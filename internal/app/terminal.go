package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/out"
	"github.com/solterm/solterm/internal/version"
)

const prompt = "solterm> "

// errCommandFailed marks an exec run whose failed result was already
// rendered; Run exits nonzero without printing a second error line.
var errCommandFailed = errors.New("command failed")

// clearScreen is the ANSI erase-display plus cursor-home sequence.
const clearScreen = "\x1b[2J\x1b[H"

func (s *runtimeState) newTerminalCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "terminal",
		Short: "Start the interactive command terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.openSession()
			if err != nil {
				return err
			}
			return s.runREPL(cmd.Context(), sess.parser.Parse)
		},
	}
}

func (s *runtimeState) newExecCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command line>",
		Short: "Run a single terminal command and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := s.openSession()
			if err != nil {
				return err
			}
			result := sess.parser.Parse(cmd.Context(), strings.Join(args, " "))
			if err := out.Render(s.runner.stdout, result, s.outputMode()); err != nil {
				return clierr.Wrap(clierr.CodeInternal, "render result", err)
			}
			if !result.Success {
				return errCommandFailed
			}
			return nil
		},
	}
}

// runREPL drives the interactive loop. The exit, quit, clear and help
// builtins are handled here; every other line goes to parse.
func (s *runtimeState) runREPL(ctx context.Context, parse func(context.Context, string) model.CommandResult) error {
	w := s.runner.stdout
	fmt.Fprintf(w, "%s %s\nType 'help' to list commands, 'exit' to quit.\n", version.CLIName, version.CLIVersion)

	scanner := bufio.NewScanner(s.runner.stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for {
		fmt.Fprint(w, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(w)
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "exit", "quit":
			return scanner.Err()
		case "clear":
			fmt.Fprint(w, clearScreen)
			continue
		case "help":
			fmt.Fprint(w, helpText)
			continue
		}
		result := parse(ctx, line)
		if err := out.Render(w, result, s.outputMode()); err != nil {
			return clierr.Wrap(clierr.CodeInternal, "render result", err)
		}
	}
	return scanner.Err()
}

func (s *runtimeState) outputMode() string {
	if s.flags.JSON {
		return "json"
	}
	return s.settings.OutputMode
}

const helpText = `Commands:
  stream create <recipient> <amount> <duration-seconds> [name...]
  vesting create <recipient> <amount> <cliff-days> <vesting-days> [name...]
  stream cancel <stream-id>
  stream list [incoming|outgoing|all]
  stream info <stream-id>
  stream withdraw <stream-id> [amount]
  stream transfer <stream-id> <new-recipient>
  stream topup <stream-id> <amount>
  swap <from-symbol> <to-symbol> <amount> [--slippage=<percent>]
  price <symbol>
  price-impact <from-symbol> <to-symbol> <amount>
  simulate-swap <from-symbol> <to-symbol> <amount>
  stake <amount> [--lock-period=<pool>]
  unstake <stake-id> [--force]
  rewards claim [stake-id]
  staking-info
  balance
  history [limit]
  clear | help | exit
`
