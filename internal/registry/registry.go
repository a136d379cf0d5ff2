// Package registry holds the static domain constants: the known asset table,
// staking tiers, network endpoints, fixed policy values, and the message
// vocabulary shared by every command. No behavior beyond lookups.
package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/solterm/solterm/internal/model"
)

// Network endpoints. Overridable via configuration; these are the defaults
// the terminal ships with.
const (
	DefaultRPCURL        = "https://api.mainnet-beta.solana.com"
	DefaultAggregatorURL = "https://lite-api.jup.ag/swap/v1"
)

// Fixed policy constants. These are product policy, not configuration.
const (
	// MinStreamDuration is the floor for a payment stream.
	MinStreamDuration = 60 * time.Second
	// MaxStreamDuration is the ceiling for a payment stream.
	MaxStreamDuration = 365 * 24 * time.Hour
	// CliffFraction is the share of a vesting deposit unlocked at the cliff.
	CliffFraction = 0.25
	// EarlyUnstakePenalty is the share of principal forfeited on a forced
	// unstake before the unlock time.
	EarlyUnstakePenalty = 0.10
	// HighImpactThresholdPct flags a swap quote as high price impact.
	HighImpactThresholdPct = 5.0
	// RewardDisplayDecimals is the precision rewards are rounded to at the
	// display/transfer boundary. Accrual keeps full precision internally.
	RewardDisplayDecimals = 9
	// DefaultSlippageBps applies when a swap command carries no slippage flag.
	DefaultSlippageBps = 50
)

// ProjectSymbol is the project's own token; staking operates on it.
const ProjectSymbol = "NEO"

// StableSymbol is the reference asset used to derive spot prices.
const StableSymbol = "USDC"

var assets = []model.Asset{
	{Symbol: "SOL", DisplayName: "Solana", Mint: "So11111111111111111111111111111111111111112", Decimals: 9},
	{Symbol: "USDC", DisplayName: "USD Coin", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6},
	{Symbol: "USDT", DisplayName: "Tether USD", Mint: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Decimals: 6},
	{Symbol: "BONK", DisplayName: "Bonk", Mint: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Decimals: 5},
	{Symbol: "NEO", DisplayName: "Neo Protocol", Mint: "NEoXRbeoxbhkiZMc8EzPhbWDSpkdAVNCoZkyF6sCpVs", Decimals: 9},
}

var assetsBySymbol = func() map[string]model.Asset {
	out := make(map[string]model.Asset, len(assets))
	for _, a := range assets {
		out[strings.ToUpper(a.Symbol)] = a
	}
	return out
}()

// AssetBySymbol looks up a known asset case-insensitively.
func AssetBySymbol(symbol string) (model.Asset, bool) {
	a, ok := assetsBySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return a, ok
}

// Assets returns every known asset sorted by symbol.
func Assets() []model.Asset {
	out := make([]model.Asset, len(assets))
	copy(out, assets)
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Symbols returns the known symbols sorted, for error messages.
func Symbols() []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Symbol)
	}
	sort.Strings(out)
	return out
}

// PoolTier is a fixed staking tier definition.
type PoolTier struct {
	ID       string
	LockDays int
	APY      float64
	MinStake float64
}

var poolTiers = []PoolTier{
	{ID: "flexible", LockDays: 0, APY: 5, MinStake: 100},
	{ID: "week", LockDays: 7, APY: 8, MinStake: 100},
	{ID: "month", LockDays: 30, APY: 12, MinStake: 100},
	{ID: "quarter", LockDays: 90, APY: 18, MinStake: 100},
	{ID: "year", LockDays: 365, APY: 25, MinStake: 100},
}

// PoolByID looks up a staking tier case-insensitively.
func PoolByID(id string) (PoolTier, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range poolTiers {
		if p.ID == id {
			return p, true
		}
	}
	return PoolTier{}, false
}

// Pools returns the tier table in lock-duration order.
func Pools() []PoolTier {
	out := make([]PoolTier, len(poolTiers))
	copy(out, poolTiers)
	return out
}

// PoolIDs returns the valid lock-period names, for usage errors.
func PoolIDs() []string {
	out := make([]string, 0, len(poolTiers))
	for _, p := range poolTiers {
		out = append(out, p.ID)
	}
	return out
}
