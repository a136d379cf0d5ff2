// Package terminal turns one line of free text into exactly one
// CommandResult. It is a stateless dispatcher over the injected services and
// the single boundary where typed service errors become display strings;
// nothing escapes Parse.
package terminal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/solana"
	"github.com/solterm/solterm/internal/staking"
	"github.com/solterm/solterm/internal/streaming"
	"github.com/solterm/solterm/internal/swap"
	"github.com/solterm/solterm/internal/terminal/args"
)

type Parser struct {
	streams *streaming.Service
	swaps   *swap.Service
	staking *staking.Service
	conn    solana.Connection
	wallet  solana.Wallet
	log     *logrus.Entry
	now     func() time.Time
}

func New(streams *streaming.Service, swaps *swap.Service, stakingSvc *staking.Service, conn solana.Connection, wallet solana.Wallet, log *logrus.Entry) *Parser {
	return &Parser{
		streams: streams,
		swaps:   swaps,
		staking: stakingSvc,
		conn:    conn,
		wallet:  wallet,
		log:     log,
		now:     time.Now,
	}
}

// Parse handles one line. It issues at most one service operation and always
// returns a result; panics anywhere below are converted at this boundary.
func (p *Parser) Parse(ctx context.Context, line string) (result model.CommandResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", fmt.Sprintf("%v", r)).Error("command panicked")
			result = model.Fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	fields := args.Split(line)
	if len(fields) == 0 {
		return model.CommandResult{Success: true}
	}
	parsed := args.Parse(fields[1:])

	switch strings.ToLower(fields[0]) {
	case "stream":
		return p.streamCommand(ctx, parsed)
	case "vesting":
		return p.vestingCommand(ctx, parsed)
	case "swap":
		return p.swapCommand(ctx, parsed)
	case "price":
		return p.priceCommand(ctx, parsed)
	case "price-impact":
		return p.priceImpactCommand(ctx, parsed)
	case "simulate-swap":
		return p.simulateSwapCommand(ctx, parsed)
	case "stake":
		return p.stakeCommand(ctx, parsed)
	case "unstake":
		return p.unstakeCommand(ctx, parsed)
	case "rewards":
		return p.rewardsCommand(ctx, parsed)
	case "staking-info":
		return p.stakingInfoCommand(ctx)
	case "balance":
		return p.balanceCommand(ctx)
	case "history":
		return p.historyCommand(ctx, parsed)
	default:
		return model.Fail(fmt.Sprintf("Unknown command: %s. Type 'help' to list available commands.", fields[0]))
	}
}

// fail converts a service error into the display envelope. Typed errors carry
// their message chain; this is the one unwrap point.
func fail(err error) model.CommandResult {
	return model.Fail(err.Error())
}

func lookupAsset(symbol string) (model.Asset, *model.CommandResult) {
	asset, ok := registry.AssetBySymbol(symbol)
	if !ok {
		res := model.Fail(fmt.Sprintf("Unknown token: %s. Supported: %s.", symbol, strings.Join(registry.Symbols(), ", ")))
		return model.Asset{}, &res
	}
	return asset, nil
}
