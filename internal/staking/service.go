// Package staking manages fixed-tier lock pools for the project token.
// Positions live in the ledger; pool aggregates are derived from it on every
// read so concurrent sessions always agree.
package staking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	solsdk "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/id"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/solana"
	"github.com/solterm/solterm/internal/store"
)

type Service struct {
	ledger *store.Ledger
	conn   solana.Connection
	owner  solsdk.PublicKey
	asset  model.Asset
	log    *logrus.Entry
	now    func() time.Time
}

func NewService(ledger *store.Ledger, conn solana.Connection, owner solsdk.PublicKey, log *logrus.Entry) (*Service, error) {
	asset, ok := registry.AssetBySymbol(registry.ProjectSymbol)
	if !ok {
		return nil, clierr.New(clierr.CodeInternal, "project token missing from registry")
	}
	return &Service{
		ledger: ledger,
		conn:   conn,
		owner:  owner,
		asset:  asset,
		log:    log,
		now:    time.Now,
	}, nil
}

// Accrued computes the reward earned by a stake since its last claim using
// continuous prorated time. Full precision; rounding happens only at the
// display/transfer boundary.
func Accrued(stake model.Stake, now time.Time) float64 {
	if stake.Status != model.StakeActive || stake.Amount <= 0 || stake.APY <= 0 {
		return 0
	}
	elapsed := now.Sub(stake.LastRewardClaim)
	if elapsed <= 0 {
		return 0
	}
	days := elapsed.Hours() / 24
	return stake.Amount * (stake.APY / 365 / 100) * days
}

// RoundReward rounds to the fixed display precision.
func RoundReward(v float64) float64 {
	scale := math.Pow10(registry.RewardDisplayDecimals)
	return math.Round(v*scale) / scale
}

// Stake opens a position in the named pool, snapshotting its current APY.
func (s *Service) Stake(ctx context.Context, amount float64, poolID string) (model.StakeReceipt, error) {
	pool, ok := registry.PoolByID(poolID)
	if !ok {
		return model.StakeReceipt{}, clierr.Newf(clierr.CodeUsage, "unknown lock period: %s (valid: %v)", poolID, registry.PoolIDs())
	}
	if amount <= 0 {
		return model.StakeReceipt{}, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	if amount < pool.MinStake {
		return model.StakeReceipt{}, clierr.Newf(clierr.CodeBelowMinimum, "minimum stake for the %s pool is %g %s", pool.ID, pool.MinStake, s.asset.Symbol)
	}

	mint, err := solsdk.PublicKeyFromBase58(s.asset.Mint)
	if err != nil {
		return model.StakeReceipt{}, clierr.Wrap(clierr.CodeInternal, "registry mint is malformed", err)
	}
	balanceBase, err := s.conn.GetTokenBalance(ctx, s.owner, mint)
	if err != nil {
		return model.StakeReceipt{}, err
	}
	balance := id.AmountToFloat(balanceBase, s.asset.Decimals)
	if balance < amount {
		return model.StakeReceipt{}, clierr.Newf(clierr.CodeInvalidAmount, "insufficient balance: have %g %s", balance, s.asset.Symbol)
	}

	now := s.now().UTC()
	stake := model.Stake{
		ID:              id.NewID(),
		Owner:           s.owner.String(),
		PoolID:          pool.ID,
		Amount:          amount,
		APY:             pool.APY,
		StakedAt:        now,
		UnlockTime:      now.Add(time.Duration(pool.LockDays) * 24 * time.Hour),
		LastRewardClaim: now,
		Status:          model.StakeActive,
	}
	if err := s.ledger.SaveStake(stake); err != nil {
		return model.StakeReceipt{}, clierr.Wrap(clierr.CodeInternal, "record stake", err)
	}
	s.log.WithFields(logrus.Fields{"stake": stake.ID, "pool": pool.ID, "amount": amount}).Info("stake opened")
	return model.StakeReceipt{
		StakeID:        stake.ID,
		PoolID:         pool.ID,
		Amount:         amount,
		APY:            pool.APY,
		UnlockTime:     stake.UnlockTime,
		EstDailyReward: RoundReward(amount * pool.APY / 365 / 100),
	}, nil
}

// Unstake closes a position. Before the unlock time it fails unless forced,
// and a forced early exit pays the flat penalty on principal. Unclaimed
// rewards always fold into the payout.
func (s *Service) Unstake(_ context.Context, stakeID string, force bool) (model.UnstakeReceipt, error) {
	stake, err := s.getActiveStake(stakeID)
	if err != nil {
		return model.UnstakeReceipt{}, err
	}

	now := s.now().UTC()
	locked := stake.LockedAt(now)
	if locked && !force {
		return model.UnstakeReceipt{}, clierr.Newf(clierr.CodeLocked,
			"Stake is locked until %s. Use --force to withdraw early (%.0f%% penalty).",
			stake.UnlockTime.Format("2006-01-02 15:04 MST"), registry.EarlyUnstakePenalty*100)
	}

	rewards := RoundReward(Accrued(stake, now))
	penalty := 0.0
	if locked {
		penalty = stake.Amount * registry.EarlyUnstakePenalty
	}
	final := stake.Amount - penalty + rewards

	stake.Status = model.StakeWithdrawn
	stake.ClaimedRewards += rewards
	stake.LastRewardClaim = now
	if err := s.ledger.SaveStake(stake); err != nil {
		return model.UnstakeReceipt{}, clierr.Wrap(clierr.CodeInternal, "record unstake", err)
	}
	s.log.WithFields(logrus.Fields{"stake": stakeID, "forced": locked, "payout": final}).Info("stake closed")
	return model.UnstakeReceipt{
		StakeID:     stakeID,
		Principal:   stake.Amount,
		Penalty:     penalty,
		Rewards:     rewards,
		FinalAmount: final,
		ForcedEarly: locked,
	}, nil
}

// Claim realizes accrued rewards. With an empty stakeID it claims across all
// of the caller's active stakes. A total that rounds to zero is a no-op that
// signals "nothing to claim" without resetting any accrual clock.
func (s *Service) Claim(_ context.Context, stakeID string) (model.ClaimReceipt, error) {
	var stakes []model.Stake
	if stakeID == "" {
		all, err := s.ledger.ListStakes(s.owner.String(), model.StakeActive)
		if err != nil {
			return model.ClaimReceipt{}, clierr.Wrap(clierr.CodeInternal, "list stakes", err)
		}
		stakes = all
	} else {
		stake, err := s.getActiveStake(stakeID)
		if err != nil {
			return model.ClaimReceipt{}, err
		}
		stakes = []model.Stake{stake}
	}

	now := s.now().UTC()
	total := 0.0
	for _, stake := range stakes {
		total += Accrued(stake, now)
	}
	if RoundReward(total) == 0 {
		return model.ClaimReceipt{NothingDue: true}, nil
	}

	ids := make([]string, 0, len(stakes))
	for _, stake := range stakes {
		reward := Accrued(stake, now)
		stake.ClaimedRewards += RoundReward(reward)
		stake.LastRewardClaim = now
		if err := s.ledger.SaveStake(stake); err != nil {
			return model.ClaimReceipt{}, clierr.Wrap(clierr.CodeInternal, "record claim", err)
		}
		ids = append(ids, stake.ID)
	}
	s.log.WithFields(logrus.Fields{"stakes": len(ids), "amount": RoundReward(total)}).Info("rewards claimed")
	return model.ClaimReceipt{StakeIDs: ids, TotalAmount: RoundReward(total)}, nil
}

// Overview aggregates the caller's positions and echoes the pool table with
// ledger-derived aggregates.
func (s *Service) Overview(_ context.Context) (model.StakingOverview, error) {
	stakes, err := s.ledger.ListStakes(s.owner.String(), "")
	if err != nil {
		return model.StakingOverview{}, clierr.Wrap(clierr.CodeInternal, "list stakes", err)
	}
	now := s.now().UTC()
	overview := model.StakingOverview{}
	for _, stake := range stakes {
		overview.TotalClaimed += stake.ClaimedRewards
		if stake.Status == model.StakeActive {
			overview.TotalStaked += stake.Amount
			overview.PendingRewards += Accrued(stake, now)
			overview.ActiveStakes++
		}
	}
	overview.PendingRewards = RoundReward(overview.PendingRewards)

	for _, tier := range registry.Pools() {
		total, participants, err := s.ledger.PoolAggregates(tier.ID)
		if err != nil {
			return model.StakingOverview{}, clierr.Wrap(clierr.CodeInternal, "aggregate pools", err)
		}
		overview.Pools = append(overview.Pools, model.Pool{
			ID:           tier.ID,
			LockDays:     tier.LockDays,
			APY:          tier.APY,
			MinStake:     tier.MinStake,
			TotalStaked:  total,
			Participants: participants,
		})
	}
	return overview, nil
}

func (s *Service) getActiveStake(stakeID string) (model.Stake, error) {
	stake, err := s.ledger.GetStake(stakeID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Stake{}, clierr.New(clierr.CodeNotFound, registry.MsgStakeNotFound)
		}
		return model.Stake{}, clierr.Wrap(clierr.CodeInternal, "read stake", err)
	}
	if stake.Owner != s.owner.String() {
		return model.Stake{}, clierr.New(clierr.CodeUnauthorized, fmt.Sprintf("stake %s is not owned by this wallet", stakeID))
	}
	if stake.Status != model.StakeActive {
		return model.Stake{}, clierr.New(clierr.CodeNotFound, registry.MsgStakeNotFound)
	}
	return stake, nil
}
