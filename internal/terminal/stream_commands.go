package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/solterm/solterm/internal/id"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/streaming"
	"github.com/solterm/solterm/internal/terminal/args"
)

func (p *Parser) streamCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) == 0 {
		return model.Fail(registry.UsageStream)
	}
	sub, rest := strings.ToLower(a.Positionals[0]), a.Positionals[1:]
	switch sub {
	case "create":
		return p.streamCreate(ctx, rest)
	case "cancel":
		return p.streamCancel(ctx, rest)
	case "list":
		return p.streamList(ctx, rest)
	case "info":
		return p.streamInfo(ctx, rest, registry.UsageStreamInfo)
	case "withdraw":
		return p.streamWithdraw(ctx, rest)
	case "transfer":
		return p.streamTransfer(ctx, rest)
	case "topup":
		return p.streamTopup(ctx, rest)
	default:
		return model.Fail(registry.UsageStream)
	}
}

func (p *Parser) vestingCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) == 0 {
		return model.Fail(registry.UsageVesting)
	}
	sub, rest := strings.ToLower(a.Positionals[0]), a.Positionals[1:]
	switch sub {
	case "create":
		return p.vestingCreate(ctx, rest)
	case "info":
		return p.streamInfo(ctx, rest, registry.UsageVestingInfo)
	default:
		return model.Fail(registry.UsageVesting)
	}
}

func (p *Parser) streamCreate(ctx context.Context, rest []string) model.CommandResult {
	if len(rest) < 3 {
		return model.Fail(registry.UsageStreamCreate)
	}
	recipient, err := id.ParseAddress(rest[0])
	if err != nil {
		return fail(err)
	}
	if !id.IsPositiveDecimal(rest[1]) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", rest[1]))
	}
	durationSeconds, convErr := strconv.ParseInt(rest[2], 10, 64)
	if convErr != nil || durationSeconds <= 0 {
		return model.Fail(fmt.Sprintf("Invalid duration: %s", rest[2]))
	}
	asset, _ := registry.AssetBySymbol(registry.ProjectSymbol)
	amount, err := id.ParseAmount(rest[1], asset.Decimals)
	if err != nil {
		return fail(err)
	}

	receipt, err := p.streams.CreateStream(ctx, streaming.CreateParams{
		Recipient: recipient,
		Amount:    amount,
		Asset:     asset,
		Duration:  time.Duration(durationSeconds) * time.Second,
		Name:      strings.Join(rest[3:], " "),
	})
	if err != nil {
		return fail(err)
	}
	output := fmt.Sprintf(
		"Stream created\n  ID:          %s\n  Recipient:   %s\n  Amount:      %s %s\n  Duration:    %ds (%s %s/s)\n  Transaction: %s",
		receipt.StreamID, receipt.Recipient, receipt.Amount, receipt.Symbol,
		receipt.DurationSeconds, receipt.PerSecondRelease, receipt.Symbol, receipt.TransactionID,
	)
	return model.Ok(output, receipt)
}

func (p *Parser) vestingCreate(ctx context.Context, rest []string) model.CommandResult {
	if len(rest) < 4 {
		return model.Fail(registry.UsageVestingCreate)
	}
	recipient, err := id.ParseAddress(rest[0])
	if err != nil {
		return fail(err)
	}
	if !id.IsPositiveDecimal(rest[1]) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", rest[1]))
	}
	cliffDays, cliffErr := strconv.Atoi(rest[2])
	vestingDays, vestErr := strconv.Atoi(rest[3])
	if cliffErr != nil || vestErr != nil || cliffDays < 0 || vestingDays <= 0 {
		return model.Fail(registry.UsageVestingCreate)
	}
	asset, _ := registry.AssetBySymbol(registry.ProjectSymbol)
	total, err := id.ParseAmount(rest[1], asset.Decimals)
	if err != nil {
		return fail(err)
	}

	receipt, err := p.streams.CreateVesting(ctx, streaming.VestingParams{
		Recipient:   recipient,
		TotalAmount: total,
		Asset:       asset,
		CliffDays:   cliffDays,
		VestingDays: vestingDays,
		Name:        strings.Join(rest[4:], " "),
	})
	if err != nil {
		return fail(err)
	}
	output := fmt.Sprintf(
		"Vesting schedule created\n  ID:          %s\n  Recipient:   %s\n  Total:       %s %s\n  Cliff:       %d days (%.0f%% unlock)\n  Vesting:     %d days\n  Transaction: %s",
		receipt.StreamID, receipt.Recipient, receipt.Amount, receipt.Symbol,
		cliffDays, registry.CliffFraction*100, vestingDays, receipt.TransactionID,
	)
	return model.Ok(output, receipt)
}

func (p *Parser) streamCancel(ctx context.Context, rest []string) model.CommandResult {
	if len(rest) != 1 {
		return model.Fail(registry.UsageStreamCancel)
	}
	txID, err := p.streams.Cancel(ctx, rest[0])
	if err != nil {
		return fail(err)
	}
	return model.Ok(fmt.Sprintf("Stream %s cancelled.\nTransaction: %s", rest[0], txID), map[string]string{
		"stream_id":      rest[0],
		"transaction_id": txID,
	})
}

func (p *Parser) streamList(ctx context.Context, rest []string) model.CommandResult {
	if len(rest) > 1 {
		return model.Fail(registry.UsageStreamList)
	}
	direction := "all"
	if len(rest) == 1 {
		direction = strings.ToLower(rest[0])
	}
	summaries, err := p.streams.List(ctx, direction)
	if err != nil {
		return fail(err)
	}
	if len(summaries) == 0 {
		return model.Ok("No streams found.", summaries)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d stream(s):", len(summaries))
	for _, s := range summaries {
		name := s.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(&b, "\n  %s  %-9s %-9s %s/%s %s  %5.1f%%  %s",
			s.ID, s.Direction, s.Status, s.Withdrawn, s.Deposited, s.Symbol, s.Progress, name)
	}
	return model.Ok(b.String(), summaries)
}

func (p *Parser) streamInfo(ctx context.Context, rest []string, usage string) model.CommandResult {
	if len(rest) != 1 {
		return model.Fail(usage)
	}
	detail, err := p.streams.Info(ctx, rest[0])
	if err != nil {
		return fail(err)
	}
	s := detail.Stream
	var b strings.Builder
	fmt.Fprintf(&b, "Stream %s (%s)\n", s.ID, detail.Status)
	fmt.Fprintf(&b, "  From:      %s\n", s.Sender)
	fmt.Fprintf(&b, "  To:        %s\n", s.Recipient)
	fmt.Fprintf(&b, "  Deposited: %s %s\n", id.FormatAmountTrim(s.DepositedAmount, s.Asset.Decimals), s.Asset.Symbol)
	fmt.Fprintf(&b, "  Withdrawn: %s %s\n", id.FormatAmountTrim(s.WithdrawnAmount, s.Asset.Decimals), s.Asset.Symbol)
	if s.CliffAmount > 0 {
		fmt.Fprintf(&b, "  Cliff:     %s %s at %s\n", id.FormatAmountTrim(s.CliffAmount, s.Asset.Decimals), s.Asset.Symbol, s.CliffTime.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "  Window:    %s -> %s\n", s.StartTime.Format(time.RFC3339), s.EndTime.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Progress:  %.1f%%\n", detail.Progress)
	fmt.Fprintf(&b, "  Available: %s %s", detail.Available, s.Asset.Symbol)
	return model.Ok(b.String(), detail)
}

func (p *Parser) streamWithdraw(ctx context.Context, rest []string) model.CommandResult {
	if len(rest) < 1 || len(rest) > 2 {
		return model.Fail(registry.UsageStreamWithdraw)
	}
	if len(rest) == 2 && !id.IsPositiveDecimal(rest[1]) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", rest[1]))
	}
	// Amounts are denominated in the stream's own asset, which may not be
	// the project token.
	detail, err := p.streams.Info(ctx, rest[0])
	if err != nil {
		return fail(err)
	}
	asset := detail.Stream.Asset
	var amount uint64
	if len(rest) == 2 {
		parsed, err := id.ParseAmount(rest[1], asset.Decimals)
		if err != nil {
			return fail(err)
		}
		amount = parsed
	}
	txID, withdrawn, err := p.streams.Withdraw(ctx, rest[0], amount)
	if err != nil {
		return fail(err)
	}
	return model.Ok(fmt.Sprintf("Withdrew %s %s from stream %s.\nTransaction: %s",
		id.FormatAmountTrim(withdrawn, asset.Decimals), asset.Symbol, rest[0], txID), map[string]string{
		"stream_id":      rest[0],
		"amount":         id.FormatAmountTrim(withdrawn, asset.Decimals),
		"symbol":         asset.Symbol,
		"transaction_id": txID,
	})
}

func (p *Parser) streamTransfer(ctx context.Context, rest []string) model.CommandResult {
	if len(rest) != 2 {
		return model.Fail(registry.UsageStreamTransfer)
	}
	newRecipient, err := id.ParseAddress(rest[1])
	if err != nil {
		return fail(err)
	}
	txID, err := p.streams.Transfer(ctx, rest[0], newRecipient)
	if err != nil {
		return fail(err)
	}
	return model.Ok(fmt.Sprintf("Stream %s transferred to %s.\nTransaction: %s", rest[0], newRecipient, txID), map[string]string{
		"stream_id":      rest[0],
		"recipient":      newRecipient.String(),
		"transaction_id": txID,
	})
}

func (p *Parser) streamTopup(ctx context.Context, rest []string) model.CommandResult {
	if len(rest) != 2 {
		return model.Fail(registry.UsageStreamTopup)
	}
	if !id.IsPositiveDecimal(rest[1]) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", rest[1]))
	}
	detail, err := p.streams.Info(ctx, rest[0])
	if err != nil {
		return fail(err)
	}
	asset := detail.Stream.Asset
	amount, err := id.ParseAmount(rest[1], asset.Decimals)
	if err != nil {
		return fail(err)
	}
	txID, err := p.streams.Topup(ctx, rest[0], amount)
	if err != nil {
		return fail(err)
	}
	return model.Ok(fmt.Sprintf("Topped up stream %s with %s %s.\nTransaction: %s",
		rest[0], id.FormatAmountTrim(amount, asset.Decimals), asset.Symbol, txID), map[string]string{
		"stream_id":      rest[0],
		"amount":         id.FormatAmountTrim(amount, asset.Decimals),
		"symbol":         asset.Symbol,
		"transaction_id": txID,
	})
}
