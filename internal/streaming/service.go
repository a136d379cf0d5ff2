// Package streaming implements time-released payment streams and
// cliff-vesting schedules on top of the payment-streaming program
// collaborator and the local ledger.
package streaming

import (
	"context"
	"errors"
	"time"

	solsdk "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/id"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/store"
)

// Service validates stream operations, drives the program collaborator, and
// keeps the ledger record in step with what was submitted.
type Service struct {
	ledger *store.Ledger
	client Client
	owner  solsdk.PublicKey
	log    *logrus.Entry
	now    func() time.Time
}

func NewService(ledger *store.Ledger, client Client, owner solsdk.PublicKey, log *logrus.Entry) *Service {
	return &Service{
		ledger: ledger,
		client: client,
		owner:  owner,
		log:    log,
		now:    time.Now,
	}
}

// CreateParams carries a validated stream creation request. Amount is base
// units of Asset.
type CreateParams struct {
	Recipient solsdk.PublicKey
	Amount    uint64
	Asset     model.Asset
	Duration  time.Duration
	Name      string
}

// CreateReceipt echoes the created stream back to the caller.
type CreateReceipt struct {
	StreamID         string             `json:"stream_id"`
	TransactionID    string             `json:"transaction_id"`
	Recipient        string             `json:"recipient"`
	Amount           string             `json:"amount"`
	Symbol           string             `json:"symbol"`
	DurationSeconds  int64              `json:"duration_seconds"`
	PerSecondRelease string             `json:"per_second_release"`
	Status           model.StreamStatus `json:"status"`
}

// CreateStream opens a linear stream releasing Amount over Duration.
func (s *Service) CreateStream(ctx context.Context, params CreateParams) (CreateReceipt, error) {
	if params.Amount == 0 {
		return CreateReceipt{}, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	if params.Duration < registry.MinStreamDuration {
		return CreateReceipt{}, clierr.Newf(clierr.CodeInvalidAmount, "duration must be at least %d seconds", int64(registry.MinStreamDuration.Seconds()))
	}
	if params.Duration > registry.MaxStreamDuration {
		return CreateReceipt{}, clierr.New(clierr.CodeInvalidAmount, "duration must not exceed one year")
	}

	now := s.now().UTC()
	stream := model.Stream{
		ID:               id.NewID(),
		Name:             params.Name,
		Sender:           s.owner.String(),
		Recipient:        params.Recipient.String(),
		Asset:            params.Asset,
		DepositedAmount:  params.Amount,
		StartTime:        now,
		EndTime:          now.Add(params.Duration),
		ReleaseFrequency: 1,
		Cancelable:       true,
		Transferable:     true,
	}
	txID, err := s.submitCreate(ctx, stream)
	if err != nil {
		return CreateReceipt{}, err
	}

	durationSeconds := int64(params.Duration.Seconds())
	perSecond := params.Amount / uint64(durationSeconds)
	return CreateReceipt{
		StreamID:         stream.ID,
		TransactionID:    txID,
		Recipient:        stream.Recipient,
		Amount:           id.FormatAmount(params.Amount, params.Asset.Decimals),
		Symbol:           params.Asset.Symbol,
		DurationSeconds:  durationSeconds,
		PerSecondRelease: id.FormatAmountTrim(perSecond, params.Asset.Decimals),
		Status:           stream.StatusAt(s.now()),
	}, nil
}

// VestingParams carries a validated vesting creation request.
type VestingParams struct {
	Recipient   solsdk.PublicKey
	TotalAmount uint64
	Asset       model.Asset
	CliffDays   int
	VestingDays int
	Name        string
}

// CreateVesting opens a schedule unlocking a fixed cliff fraction at the
// cliff and the remainder linearly until the vesting end.
func (s *Service) CreateVesting(ctx context.Context, params VestingParams) (CreateReceipt, error) {
	if params.TotalAmount == 0 {
		return CreateReceipt{}, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	if params.CliffDays < 0 || params.VestingDays <= 0 {
		return CreateReceipt{}, clierr.New(clierr.CodeInvalidAmount, "cliff and vesting days must be positive")
	}
	if params.CliffDays >= params.VestingDays {
		return CreateReceipt{}, clierr.New(clierr.CodeInvalidAmount, "vesting days must exceed cliff days")
	}
	duration := time.Duration(params.VestingDays) * 24 * time.Hour
	if duration > registry.MaxStreamDuration {
		return CreateReceipt{}, clierr.New(clierr.CodeInvalidAmount, "vesting must not exceed one year")
	}

	now := s.now().UTC()
	cliffAmount := uint64(float64(params.TotalAmount) * registry.CliffFraction)
	stream := model.Stream{
		ID:               id.NewID(),
		Name:             params.Name,
		Sender:           s.owner.String(),
		Recipient:        params.Recipient.String(),
		Asset:            params.Asset,
		DepositedAmount:  params.TotalAmount,
		StartTime:        now,
		EndTime:          now.Add(duration),
		ReleaseFrequency: 1,
		CliffTime:        now.Add(time.Duration(params.CliffDays) * 24 * time.Hour),
		CliffAmount:      cliffAmount,
		Cancelable:       true,
		Transferable:     false,
	}
	txID, err := s.submitCreate(ctx, stream)
	if err != nil {
		return CreateReceipt{}, err
	}
	return CreateReceipt{
		StreamID:        stream.ID,
		TransactionID:   txID,
		Recipient:       stream.Recipient,
		Amount:          id.FormatAmount(params.TotalAmount, params.Asset.Decimals),
		Symbol:          params.Asset.Symbol,
		DurationSeconds: int64(duration.Seconds()),
		Status:          stream.StatusAt(s.now()),
	}, nil
}

func (s *Service) submitCreate(ctx context.Context, stream model.Stream) (string, error) {
	mint, err := solsdk.PublicKeyFromBase58(stream.Asset.Mint)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "registry mint is malformed", err)
	}
	recipient, err := solsdk.PublicKeyFromBase58(stream.Recipient)
	if err != nil {
		return "", clierr.Newf(clierr.CodeInvalidAddress, "invalid address: %s", stream.Recipient)
	}
	op := CreateOp{
		StreamID:         stream.ID,
		Recipient:        recipient,
		Mint:             mint,
		Amount:           stream.DepositedAmount,
		StartUnix:        stream.StartTime.Unix(),
		EndUnix:          stream.EndTime.Unix(),
		ReleaseFrequency: stream.ReleaseFrequency,
		Cancelable:       stream.Cancelable,
		Transferable:     stream.Transferable,
	}
	if stream.CliffAmount > 0 {
		op.CliffUnix = stream.CliffTime.Unix()
		op.CliffAmount = stream.CliffAmount
	}
	txID, err := s.client.Create(ctx, op)
	if err != nil {
		return "", err
	}
	if err := s.ledger.SaveStream(stream); err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "record stream", err)
	}
	s.log.WithFields(logrus.Fields{"stream": stream.ID, "tx": txID}).Info("stream created")
	return txID, nil
}

// Cancel stops a cancelable stream. Only the sender may cancel, and only
// before the stream completes.
func (s *Service) Cancel(ctx context.Context, streamID string) (string, error) {
	stream, err := s.getStream(streamID)
	if err != nil {
		return "", err
	}
	if stream.Sender != s.owner.String() {
		return "", clierr.New(clierr.CodeUnauthorized, "only the sender can cancel this stream")
	}
	if !stream.Cancelable {
		return "", clierr.New(clierr.CodeUnauthorized, "this stream is not cancelable")
	}
	switch stream.StatusAt(s.now()) {
	case model.StreamScheduled, model.StreamActive:
	default:
		return "", clierr.New(clierr.CodeUnauthorized, "stream is already finished")
	}

	txID, err := s.client.Cancel(ctx, streamID)
	if err != nil {
		return "", err
	}
	stream.CancelledAt = s.now().UTC()
	if err := s.ledger.SaveStream(stream); err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "record cancellation", err)
	}
	s.log.WithFields(logrus.Fields{"stream": streamID, "tx": txID}).Info("stream cancelled")
	return txID, nil
}

// List returns the caller's streams filtered by direction, with live-derived
// progress and status.
func (s *Service) List(_ context.Context, direction string) ([]model.StreamSummary, error) {
	switch direction {
	case "", "all", "incoming", "outgoing":
	default:
		return nil, clierr.New(clierr.CodeUsage, registry.UsageStreamList)
	}
	streams, err := s.ledger.ListStreams(s.owner.String(), direction)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "list streams", err)
	}
	now := s.now()
	out := make([]model.StreamSummary, 0, len(streams))
	for _, stream := range streams {
		dir := "outgoing"
		if stream.Recipient == s.owner.String() {
			dir = "incoming"
		}
		out = append(out, model.StreamSummary{
			ID:        stream.ID,
			Name:      stream.Name,
			Direction: dir,
			Recipient: stream.Recipient,
			Sender:    stream.Sender,
			Symbol:    stream.Asset.Symbol,
			Deposited: id.FormatAmountTrim(stream.DepositedAmount, stream.Asset.Decimals),
			Withdrawn: id.FormatAmountTrim(stream.WithdrawnAmount, stream.Asset.Decimals),
			Progress:  stream.ProgressAt(now),
			Status:    stream.StatusAt(now),
			EndTime:   stream.EndTime,
		})
	}
	return out, nil
}

// Info is a pure read returning the full stream detail.
func (s *Service) Info(_ context.Context, streamID string) (model.StreamDetail, error) {
	stream, err := s.getStream(streamID)
	if err != nil {
		return model.StreamDetail{}, err
	}
	now := s.now()
	return model.StreamDetail{
		Stream:    stream,
		Status:    stream.StatusAt(now),
		Progress:  stream.ProgressAt(now),
		Unlocked:  id.FormatAmountTrim(stream.UnlockedAt(now), stream.Asset.Decimals),
		Available: id.FormatAmountTrim(stream.AvailableAt(now), stream.Asset.Decimals),
	}, nil
}

// Withdraw moves released funds to the recipient. A zero amount means
// "withdraw all available".
func (s *Service) Withdraw(ctx context.Context, streamID string, amount uint64) (string, uint64, error) {
	stream, err := s.getStream(streamID)
	if err != nil {
		return "", 0, err
	}
	if stream.Recipient != s.owner.String() {
		return "", 0, clierr.New(clierr.CodeUnauthorized, "only the recipient can withdraw from this stream")
	}
	available := stream.AvailableAt(s.now())
	if amount == 0 {
		amount = available
	}
	if amount == 0 {
		return "", 0, clierr.New(clierr.CodeInvalidAmount, "nothing available to withdraw yet")
	}
	if amount > available {
		return "", 0, clierr.Newf(clierr.CodeInvalidAmount, "requested amount exceeds available (%s %s)",
			id.FormatAmountTrim(available, stream.Asset.Decimals), stream.Asset.Symbol)
	}

	txID, err := s.client.Withdraw(ctx, streamID, amount)
	if err != nil {
		return "", 0, err
	}
	stream.WithdrawnAmount += amount
	if err := s.ledger.SaveStream(stream); err != nil {
		return "", 0, clierr.Wrap(clierr.CodeInternal, "record withdrawal", err)
	}
	return txID, amount, nil
}

// Transfer reassigns the stream to a new recipient.
func (s *Service) Transfer(ctx context.Context, streamID string, newRecipient solsdk.PublicKey) (string, error) {
	stream, err := s.getStream(streamID)
	if err != nil {
		return "", err
	}
	if !stream.Transferable {
		return "", clierr.New(clierr.CodeUnauthorized, "this stream is not transferable")
	}
	if stream.Recipient != s.owner.String() {
		return "", clierr.New(clierr.CodeUnauthorized, "only the recipient can transfer this stream")
	}

	txID, err := s.client.Transfer(ctx, streamID, newRecipient)
	if err != nil {
		return "", err
	}
	stream.Recipient = newRecipient.String()
	if err := s.ledger.SaveStream(stream); err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "record transfer", err)
	}
	return txID, nil
}

// Topup adds funds to an active stream's deposit.
func (s *Service) Topup(ctx context.Context, streamID string, amount uint64) (string, error) {
	if amount == 0 {
		return "", clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	stream, err := s.getStream(streamID)
	if err != nil {
		return "", err
	}
	if stream.Sender != s.owner.String() {
		return "", clierr.New(clierr.CodeUnauthorized, "only the sender can top up this stream")
	}
	switch stream.StatusAt(s.now()) {
	case model.StreamScheduled, model.StreamActive:
	default:
		return "", clierr.New(clierr.CodeUnauthorized, "stream is already finished")
	}

	txID, err := s.client.Topup(ctx, streamID, amount)
	if err != nil {
		return "", err
	}
	stream.DepositedAmount += amount
	if err := s.ledger.SaveStream(stream); err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "record topup", err)
	}
	return txID, nil
}

func (s *Service) getStream(streamID string) (model.Stream, error) {
	stream, err := s.ledger.GetStream(streamID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Stream{}, clierr.New(clierr.CodeNotFound, registry.MsgStreamNotFound)
		}
		return model.Stream{}, clierr.Wrap(clierr.CodeInternal, "read stream", err)
	}
	return stream, nil
}
