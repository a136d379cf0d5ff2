package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/solterm/solterm/internal/id"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/terminal/args"
)

func (p *Parser) swapCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) != 3 {
		return model.Fail(registry.UsageSwap)
	}
	if !id.IsPositiveDecimal(a.Positionals[2]) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", a.Positionals[2]))
	}
	slippageBps := registry.DefaultSlippageBps
	if raw, ok := a.Flag("slippage"); ok {
		pct, err := strconv.ParseFloat(raw, 64)
		if err != nil || pct <= 0 || pct > 50 {
			return model.Fail(fmt.Sprintf("Invalid slippage: %s", raw))
		}
		slippageBps = int(pct * 100)
	}
	input, errRes := lookupAsset(a.Positionals[0])
	if errRes != nil {
		return *errRes
	}
	output, errRes := lookupAsset(a.Positionals[1])
	if errRes != nil {
		return *errRes
	}
	amount, err := id.ParseAmount(a.Positionals[2], input.Decimals)
	if err != nil {
		return fail(err)
	}

	receipt, err := p.swaps.ExecuteSwap(ctx, input, output, amount, slippageBps)
	if err != nil {
		return fail(err)
	}
	out := fmt.Sprintf("Swapped %s %s for %s %s\n  Route:       %s\n  Impact:      %.2f%%\n  Transaction: %s",
		receipt.InputAmount, receipt.InputSymbol, receipt.OutputAmount, receipt.OutputSymbol,
		strings.Join(receipt.Route, " > "), receipt.PriceImpactPct, receipt.TransactionID)
	return model.Ok(out, receipt)
}

func (p *Parser) priceCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) != 1 {
		return model.Fail(registry.UsagePrice)
	}
	asset, errRes := lookupAsset(a.Positionals[0])
	if errRes != nil {
		return *errRes
	}
	price, err := p.swaps.TokenPrice(ctx, asset)
	if err != nil {
		return fail(err)
	}
	return model.Ok(fmt.Sprintf("1 %s = %.6f %s", asset.Symbol, price, registry.StableSymbol), map[string]any{
		"symbol": asset.Symbol,
		"price":  price,
		"quote":  registry.StableSymbol,
	})
}

func (p *Parser) priceImpactCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) != 3 {
		return model.Fail(registry.UsagePriceImpact)
	}
	if !id.IsPositiveDecimal(a.Positionals[2]) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", a.Positionals[2]))
	}
	input, errRes := lookupAsset(a.Positionals[0])
	if errRes != nil {
		return *errRes
	}
	output, errRes := lookupAsset(a.Positionals[1])
	if errRes != nil {
		return *errRes
	}
	amount, err := id.ParseAmount(a.Positionals[2], input.Decimals)
	if err != nil {
		return fail(err)
	}

	report, err := p.swaps.PriceImpact(ctx, input, output, amount)
	if err != nil {
		return fail(err)
	}
	out := fmt.Sprintf("Price impact for %s %s -> %s: %.2f%%", report.Amount, report.InputSymbol, report.OutputSymbol, report.ImpactPct)
	if report.HighImpact {
		out += fmt.Sprintf("\nWarning: impact above %.0f%%, consider splitting the trade.", registry.HighImpactThresholdPct)
	}
	return model.Ok(out, report)
}

func (p *Parser) simulateSwapCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) != 3 {
		return model.Fail(registry.UsageSimulateSwap)
	}
	if !id.IsPositiveDecimal(a.Positionals[2]) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", a.Positionals[2]))
	}
	input, errRes := lookupAsset(a.Positionals[0])
	if errRes != nil {
		return *errRes
	}
	output, errRes := lookupAsset(a.Positionals[1])
	if errRes != nil {
		return *errRes
	}
	amount, err := id.ParseAmount(a.Positionals[2], input.Decimals)
	if err != nil {
		return fail(err)
	}

	sim, err := p.swaps.Simulate(ctx, input, output, amount)
	if err != nil {
		return fail(err)
	}
	if sim.WouldFail {
		return model.Ok(fmt.Sprintf("Simulation failed: %s", sim.Error), sim)
	}
	return model.Ok(fmt.Sprintf("Simulation passed (%d compute units).", sim.ComputeUnits), sim)
}
