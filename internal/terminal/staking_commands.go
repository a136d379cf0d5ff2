package terminal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/terminal/args"
)

func (p *Parser) stakeCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) != 1 {
		return model.Fail(registry.UsageStake)
	}
	// ParseFloat also accepts NaN and Inf spellings; neither is a stakeable
	// amount and NaN would slip past every <= comparison downstream.
	amount, err := strconv.ParseFloat(a.Positionals[0], 64)
	if err != nil || amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return model.Fail(fmt.Sprintf("Invalid amount: %s", a.Positionals[0]))
	}
	poolID := "flexible"
	if v, ok := a.Flag("lock-period"); ok {
		poolID = strings.ToLower(v)
	}

	receipt, svcErr := p.staking.Stake(ctx, amount, poolID)
	if svcErr != nil {
		return fail(svcErr)
	}
	out := fmt.Sprintf(
		"Staked %g %s in the %s pool (%.0f%% APY)\n  Stake ID:     %s\n  Unlocks:      %s\n  Daily reward: %.9f %s",
		receipt.Amount, registry.ProjectSymbol, receipt.PoolID, receipt.APY,
		receipt.StakeID, receipt.UnlockTime.Format("2006-01-02 15:04 MST"),
		receipt.EstDailyReward, registry.ProjectSymbol,
	)
	return model.Ok(out, receipt)
}

func (p *Parser) unstakeCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) != 1 {
		return model.Fail(registry.UsageUnstake)
	}
	receipt, err := p.staking.Unstake(ctx, a.Positionals[0], a.Bool("force"))
	if err != nil {
		return fail(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Unstaked %g %s", receipt.Principal, registry.ProjectSymbol)
	if receipt.ForcedEarly {
		fmt.Fprintf(&b, "\n  Early-exit penalty: -%g %s", receipt.Penalty, registry.ProjectSymbol)
	}
	fmt.Fprintf(&b, "\n  Rewards:            +%.9f %s", receipt.Rewards, registry.ProjectSymbol)
	fmt.Fprintf(&b, "\n  Final payout:       %.9f %s", receipt.FinalAmount, registry.ProjectSymbol)
	return model.Ok(b.String(), receipt)
}

func (p *Parser) rewardsCommand(ctx context.Context, a args.Parsed) model.CommandResult {
	if len(a.Positionals) < 1 || len(a.Positionals) > 2 || strings.ToLower(a.Positionals[0]) != "claim" {
		return model.Fail(registry.UsageRewards)
	}
	stakeID := ""
	if len(a.Positionals) == 2 {
		stakeID = a.Positionals[1]
	}
	receipt, err := p.staking.Claim(ctx, stakeID)
	if err != nil {
		return fail(err)
	}
	if receipt.NothingDue {
		return model.Ok("No rewards to claim yet.", receipt)
	}
	return model.Ok(fmt.Sprintf("Claimed %.9f %s across %d stake(s).",
		receipt.TotalAmount, registry.ProjectSymbol, len(receipt.StakeIDs)), receipt)
}

func (p *Parser) stakingInfoCommand(ctx context.Context) model.CommandResult {
	overview, err := p.staking.Overview(ctx)
	if err != nil {
		return fail(err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Staking overview\n")
	fmt.Fprintf(&b, "  Total staked:    %g %s\n", overview.TotalStaked, registry.ProjectSymbol)
	fmt.Fprintf(&b, "  Claimed rewards: %.9f %s\n", overview.TotalClaimed, registry.ProjectSymbol)
	fmt.Fprintf(&b, "  Pending rewards: %.9f %s\n", overview.PendingRewards, registry.ProjectSymbol)
	fmt.Fprintf(&b, "  Active stakes:   %d\n", overview.ActiveStakes)
	fmt.Fprintf(&b, "Pools:")
	for _, pool := range overview.Pools {
		fmt.Fprintf(&b, "\n  %-9s %3dd lock  %5.1f%% APY  min %g  staked %g (%d stakers)",
			pool.ID, pool.LockDays, pool.APY, pool.MinStake, pool.TotalStaked, pool.Participants)
	}
	return model.Ok(b.String(), overview)
}
