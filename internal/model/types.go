package model

import "time"

// CommandResult is the uniform envelope returned for every parsed terminal
// line. Exactly one of Output or Error is populated; Data optionally carries
// the structured payload behind Output for JSON consumers.
type CommandResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Ok(output string, data any) CommandResult {
	return CommandResult{Success: true, Output: output, Data: data}
}

func Fail(message string) CommandResult {
	return CommandResult{Success: false, Error: message}
}

// Asset is a fungible token known to the constants registry. Immutable after
// startup; looked up by symbol, case-insensitive.
type Asset struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
	Mint        string `json:"mint"`
	Decimals    int    `json:"decimals"`
}

type StreamStatus string

const (
	StreamScheduled StreamStatus = "scheduled"
	StreamActive    StreamStatus = "active"
	StreamCompleted StreamStatus = "completed"
	StreamCancelled StreamStatus = "cancelled"
)

// Stream is a unidirectional time-based release of a deposited amount from
// sender to recipient. Amounts are integer base units of Asset.
type Stream struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	Sender           string    `json:"sender"`
	Recipient        string    `json:"recipient"`
	Asset            Asset     `json:"asset"`
	DepositedAmount  uint64    `json:"deposited_amount"`
	WithdrawnAmount  uint64    `json:"withdrawn_amount"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ReleaseFrequency int64     `json:"release_frequency_s"`
	CliffTime        time.Time `json:"cliff_time,omitempty"`
	CliffAmount      uint64    `json:"cliff_amount,omitempty"`
	Cancelable       bool      `json:"cancelable"`
	Transferable     bool      `json:"transferable"`
	CancelledAt      time.Time `json:"cancelled_at,omitempty"`
}

// StatusAt derives the live status from timestamps. It is the only place
// stream status is computed; callers must not re-derive it ad hoc.
func (s Stream) StatusAt(now time.Time) StreamStatus {
	if !s.CancelledAt.IsZero() {
		return StreamCancelled
	}
	switch {
	case now.Before(s.StartTime):
		return StreamScheduled
	case now.Before(s.EndTime):
		return StreamActive
	default:
		return StreamCompleted
	}
}

// UnlockedAt reports how much of the deposit has vested at t, honoring the
// cliff: nothing before cliffTime, the cliff lump at cliffTime, then linear
// release of the remainder until EndTime.
func (s Stream) UnlockedAt(t time.Time) uint64 {
	if !s.CancelledAt.IsZero() && t.After(s.CancelledAt) {
		t = s.CancelledAt
	}
	start := s.StartTime
	unlockedBase := uint64(0)
	remainder := s.DepositedAmount
	if s.CliffAmount > 0 {
		if t.Before(s.CliffTime) {
			return 0
		}
		unlockedBase = s.CliffAmount
		remainder = s.DepositedAmount - s.CliffAmount
		start = s.CliffTime
	}
	if !t.After(start) {
		return unlockedBase
	}
	total := s.EndTime.Sub(start)
	if total <= 0 || !t.Before(s.EndTime) {
		return unlockedBase + remainder
	}
	elapsed := t.Sub(start)
	linear := uint64(float64(remainder) * (elapsed.Seconds() / total.Seconds()))
	if linear > remainder {
		linear = remainder
	}
	return unlockedBase + linear
}

// AvailableAt is the amount withdrawable right now.
func (s Stream) AvailableAt(t time.Time) uint64 {
	unlocked := s.UnlockedAt(t)
	if unlocked <= s.WithdrawnAmount {
		return 0
	}
	return unlocked - s.WithdrawnAmount
}

// ProgressAt is the 0-100 time progress of the stream, clamped.
func (s Stream) ProgressAt(t time.Time) float64 {
	total := s.EndTime.Sub(s.StartTime).Seconds()
	if total <= 0 {
		return 100
	}
	p := t.Sub(s.StartTime).Seconds() / total * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// StreamSummary is the list-view projection of a stream with live-derived
// fields attached.
type StreamSummary struct {
	ID        string       `json:"id"`
	Name      string       `json:"name,omitempty"`
	Direction string       `json:"direction"`
	Recipient string       `json:"recipient"`
	Sender    string       `json:"sender"`
	Symbol    string       `json:"symbol"`
	Deposited string       `json:"deposited"`
	Withdrawn string       `json:"withdrawn"`
	Progress  float64      `json:"progress_pct"`
	Status    StreamStatus `json:"status"`
	EndTime   time.Time    `json:"end_time"`
}

// StreamDetail is the info-view projection with the withdrawable amount.
type StreamDetail struct {
	Stream    Stream       `json:"stream"`
	Status    StreamStatus `json:"status"`
	Progress  float64      `json:"progress_pct"`
	Unlocked  string       `json:"unlocked"`
	Available string       `json:"available"`
}

// SwapQuote is a point-in-time routed estimate. It is never persisted and
// never reused across execution attempts.
type SwapQuote struct {
	InputAsset     Asset     `json:"input_asset"`
	OutputAsset    Asset     `json:"output_asset"`
	InputAmount    uint64    `json:"input_amount"`
	OutputAmount   uint64    `json:"output_amount"`
	PriceImpactPct float64   `json:"price_impact_pct"`
	Route          []string  `json:"route"`
	SlippageBps    int       `json:"slippage_bps"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// SwapReceipt is the result of an executed swap.
type SwapReceipt struct {
	TransactionID  string   `json:"transaction_id"`
	InputSymbol    string   `json:"input_symbol"`
	OutputSymbol   string   `json:"output_symbol"`
	InputAmount    string   `json:"input_amount"`
	OutputAmount   string   `json:"output_amount"`
	PriceImpactPct float64  `json:"price_impact_pct"`
	Route          []string `json:"route"`
}

// SwapSimulation reports a dry run against the network simulation endpoint.
type SwapSimulation struct {
	WouldFail    bool     `json:"would_fail"`
	Error        string   `json:"error,omitempty"`
	ComputeUnits uint64   `json:"compute_units"`
	Logs         []string `json:"logs,omitempty"`
}

type StakeStatus string

const (
	StakeActive    StakeStatus = "active"
	StakeWithdrawn StakeStatus = "withdrawn"
)

// Stake is a position in exactly one staking pool. Amounts are display units
// of the project token. APY is snapshotted at stake time and never follows
// later pool-rate changes.
type Stake struct {
	ID              string      `json:"id"`
	Owner           string      `json:"owner"`
	PoolID          string      `json:"pool_id"`
	Amount          float64     `json:"amount"`
	APY             float64     `json:"apy"`
	StakedAt        time.Time   `json:"staked_at"`
	UnlockTime      time.Time   `json:"unlock_time"`
	LastRewardClaim time.Time   `json:"last_reward_claim"`
	ClaimedRewards  float64     `json:"claimed_rewards"`
	Status          StakeStatus `json:"status"`
}

// LockedAt reports whether the position is still inside its lock window.
func (s Stake) LockedAt(now time.Time) bool {
	return now.Before(s.UnlockTime)
}

// Pool is a staking tier definition. TotalStaked and Participants are live
// aggregates derived from the ledger, never stored counters.
type Pool struct {
	ID           string  `json:"id"`
	LockDays     int     `json:"lock_days"`
	APY          float64 `json:"apy"`
	MinStake     float64 `json:"min_stake"`
	TotalStaked  float64 `json:"total_staked"`
	Participants int     `json:"participants"`
}

// StakeReceipt is returned by a successful stake.
type StakeReceipt struct {
	StakeID        string    `json:"stake_id"`
	PoolID         string    `json:"pool_id"`
	Amount         float64   `json:"amount"`
	APY            float64   `json:"apy"`
	UnlockTime     time.Time `json:"unlock_time"`
	EstDailyReward float64   `json:"est_daily_reward"`
	TransactionID  string    `json:"transaction_id,omitempty"`
}

// UnstakeReceipt is returned by a successful unstake.
type UnstakeReceipt struct {
	StakeID     string  `json:"stake_id"`
	Principal   float64 `json:"principal"`
	Penalty     float64 `json:"penalty"`
	Rewards     float64 `json:"rewards"`
	FinalAmount float64 `json:"final_amount"`
	ForcedEarly bool    `json:"forced_early"`
}

// ClaimReceipt is returned by a rewards claim.
type ClaimReceipt struct {
	StakeIDs    []string `json:"stake_ids"`
	TotalAmount float64  `json:"total_amount"`
	NothingDue  bool     `json:"nothing_due"`
}

// StakingOverview aggregates the caller's positions plus pool definitions.
type StakingOverview struct {
	TotalStaked    float64 `json:"total_staked"`
	TotalClaimed   float64 `json:"total_claimed"`
	PendingRewards float64 `json:"pending_rewards"`
	ActiveStakes   int     `json:"active_stakes"`
	Pools          []Pool  `json:"pools"`
}

// HistoryEntry is one confirmed signature from the wallet's history.
type HistoryEntry struct {
	Signature string    `json:"signature"`
	Slot      uint64    `json:"slot"`
	Time      time.Time `json:"time,omitempty"`
	Failed    bool      `json:"failed"`
}
