package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	solsdk "github.com/gagliardetto/solana-go"

	"github.com/solterm/solterm/internal/id"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/terminal/args"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
)

func (p *Parser) balanceCommand(ctx context.Context) model.CommandResult {
	owner := p.wallet.PublicKey()
	lamports, err := p.conn.GetBalance(ctx, owner)
	if err != nil {
		return fail(err)
	}
	sol, _ := registry.AssetBySymbol("SOL")
	project, _ := registry.AssetBySymbol(registry.ProjectSymbol)
	mint, mintErr := solsdk.PublicKeyFromBase58(project.Mint)
	var projectBalance uint64
	if mintErr == nil {
		if b, err := p.conn.GetTokenBalance(ctx, owner, mint); err == nil {
			projectBalance = b
		}
	}

	out := fmt.Sprintf("Wallet %s\n  SOL: %s\n  %s: %s",
		owner,
		id.FormatAmountTrim(lamports, sol.Decimals),
		project.Symbol,
		id.FormatAmountTrim(projectBalance, project.Decimals),
	)
	data := map[string]any{
		"address": owner.String(),
		"sol":     id.FormatAmountTrim(lamports, sol.Decimals),
	}
	data[project.Symbol] = id.FormatAmountTrim(projectBalance, project.Decimals)
	return model.Ok(out, data)
}

func (p *Parser) historyCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) > 1 {
		return model.Fail(registry.UsageHistory)
	}
	limit := defaultHistoryLimit
	if len(a.Positionals) == 1 {
		parsed, err := strconv.Atoi(a.Positionals[0])
		if err != nil || parsed <= 0 {
			return model.Fail(registry.UsageHistory)
		}
		limit = parsed
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	entries, err := p.conn.GetSignaturesForAddress(ctx, p.wallet.PublicKey(), limit)
	if err != nil {
		return fail(err)
	}
	if len(entries) == 0 {
		return model.Ok("No transactions found.", entries)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d transaction(s):", len(entries))
	now := p.now()
	for _, entry := range entries {
		status := "ok"
		if entry.Failed {
			status = "failed"
		}
		age := "-"
		if !entry.Time.IsZero() {
			age = formatAge(now.Sub(entry.Time))
		}
		fmt.Fprintf(&b, "\n  %s  slot %d  %6s  %s", entry.Signature, entry.Slot, age, status)
	}
	return model.Ok(b.String(), entries)
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
