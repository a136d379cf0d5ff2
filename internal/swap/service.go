// Package swap obtains routed quotes and executes token swaps through the
// aggregator collaborator. Per request the flow is quote, build, sign,
// submit, confirm; a fresh quote is always fetched at execution time.
package swap

import (
	"context"

	"github.com/sirupsen/logrus"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/id"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/solana"
)

type Service struct {
	router Router
	conn   solana.Connection
	wallet solana.Wallet
	log    *logrus.Entry
}

func NewService(router Router, conn solana.Connection, wallet solana.Wallet, log *logrus.Entry) *Service {
	return &Service{
		router: router,
		conn:   conn,
		wallet: wallet,
		log:    log,
	}
}

// GetQuote is a pure read; safe to call repeatedly, never cached.
func (s *Service) GetQuote(ctx context.Context, input, output model.Asset, amount uint64, slippageBps int) (model.SwapQuote, error) {
	if amount == 0 {
		return model.SwapQuote{}, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	quote, err := s.router.Quote(ctx, QuoteRequest{Input: input, Output: output, Amount: amount, SlippageBps: slippageBps})
	if err != nil {
		return model.SwapQuote{}, err
	}
	return quote.SwapQuote, nil
}

// ExecuteSwap re-fetches a fresh quote, asks the aggregator for the routed
// transaction, signs, submits, and blocks until confirmation. A caller's
// earlier quote is never trusted.
func (s *Service) ExecuteSwap(ctx context.Context, input, output model.Asset, amount uint64, slippageBps int) (model.SwapReceipt, error) {
	if amount == 0 {
		return model.SwapReceipt{}, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	quote, err := s.router.Quote(ctx, QuoteRequest{Input: input, Output: output, Amount: amount, SlippageBps: slippageBps})
	if err != nil {
		return model.SwapReceipt{}, err
	}
	tx, err := s.router.BuildSwap(ctx, quote, s.wallet.PublicKey())
	if err != nil {
		return model.SwapReceipt{}, err
	}
	if err := s.wallet.SignTransaction(tx); err != nil {
		return model.SwapReceipt{}, err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return model.SwapReceipt{}, clierr.Wrap(clierr.CodeTransaction, "serialize transaction", err)
	}
	sig, err := s.conn.SendRawTransaction(ctx, raw)
	if err != nil {
		return model.SwapReceipt{}, err
	}
	if err := s.conn.ConfirmTransaction(ctx, sig); err != nil {
		return model.SwapReceipt{}, err
	}

	s.log.WithFields(logrus.Fields{
		"tx":   sig,
		"pair": input.Symbol + "/" + output.Symbol,
	}).Info("swap confirmed")
	return model.SwapReceipt{
		TransactionID:  sig,
		InputSymbol:    input.Symbol,
		OutputSymbol:   output.Symbol,
		InputAmount:    id.FormatAmount(quote.InputAmount, input.Decimals),
		OutputAmount:   id.FormatAmount(quote.OutputAmount, output.Decimals),
		PriceImpactPct: quote.PriceImpactPct,
		Route:          quote.Route,
	}, nil
}

// TokenPrice derives a spot price by quoting one display unit of asset
// against the stable reference asset. There is no direct price feed.
func (s *Service) TokenPrice(ctx context.Context, asset model.Asset) (float64, error) {
	stable, ok := registry.AssetBySymbol(registry.StableSymbol)
	if !ok {
		return 0, clierr.New(clierr.CodeInternal, "reference asset missing from registry")
	}
	if asset.Symbol == stable.Symbol {
		return 1, nil
	}
	oneUnit := pow10(asset.Decimals)
	quote, err := s.router.Quote(ctx, QuoteRequest{Input: asset, Output: stable, Amount: oneUnit})
	if err != nil {
		return 0, err
	}
	in := id.AmountToFloat(quote.InputAmount, asset.Decimals)
	out := id.AmountToFloat(quote.OutputAmount, stable.Decimals)
	if in == 0 {
		return 0, clierr.New(clierr.CodeInternal, "aggregator returned zero input")
	}
	return out / in, nil
}

// ImpactReport compares the requested-size quote with a minimal reference
// quote to isolate impact from base spread.
type ImpactReport struct {
	InputSymbol   string  `json:"input_symbol"`
	OutputSymbol  string  `json:"output_symbol"`
	Amount        string  `json:"amount"`
	ImpactPct     float64 `json:"impact_pct"`
	EffectiveRate float64 `json:"effective_rate"`
	ReferenceRate float64 `json:"reference_rate"`
	HighImpact    bool    `json:"high_impact"`
}

// PriceImpact is advisory only; it never blocks execution.
func (s *Service) PriceImpact(ctx context.Context, input, output model.Asset, amount uint64) (ImpactReport, error) {
	if amount == 0 {
		return ImpactReport{}, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	reference := pow10(input.Decimals) / 100 // 0.01 display units
	if reference == 0 {
		reference = 1
	}
	refQuote, err := s.router.Quote(ctx, QuoteRequest{Input: input, Output: output, Amount: reference})
	if err != nil {
		return ImpactReport{}, err
	}
	bigQuote, err := s.router.Quote(ctx, QuoteRequest{Input: input, Output: output, Amount: amount})
	if err != nil {
		return ImpactReport{}, err
	}

	refRate := rate(refQuote.SwapQuote, input.Decimals, output.Decimals)
	bigRate := rate(bigQuote.SwapQuote, input.Decimals, output.Decimals)
	if refRate == 0 {
		return ImpactReport{}, clierr.New(clierr.CodeNoRoute, registry.MsgNoRoute)
	}
	impact := (refRate - bigRate) / refRate * 100
	if impact < 0 {
		impact = 0
	}
	return ImpactReport{
		InputSymbol:   input.Symbol,
		OutputSymbol:  output.Symbol,
		Amount:        id.FormatAmountTrim(amount, input.Decimals),
		ImpactPct:     impact,
		EffectiveRate: bigRate,
		ReferenceRate: refRate,
		HighImpact:    impact > registry.HighImpactThresholdPct,
	}, nil
}

// Simulate builds the routed transaction and dry-runs it against the
// network simulation endpoint without submitting.
func (s *Service) Simulate(ctx context.Context, input, output model.Asset, amount uint64) (model.SwapSimulation, error) {
	if amount == 0 {
		return model.SwapSimulation{}, clierr.New(clierr.CodeInvalidAmount, "amount must be greater than zero")
	}
	quote, err := s.router.Quote(ctx, QuoteRequest{Input: input, Output: output, Amount: amount})
	if err != nil {
		return model.SwapSimulation{}, err
	}
	tx, err := s.router.BuildSwap(ctx, quote, s.wallet.PublicKey())
	if err != nil {
		return model.SwapSimulation{}, err
	}
	return s.conn.SimulateTransaction(ctx, tx)
}

func rate(q model.SwapQuote, inDecimals, outDecimals int) float64 {
	in := id.AmountToFloat(q.InputAmount, inDecimals)
	out := id.AmountToFloat(q.OutputAmount, outDecimals)
	if in == 0 {
		return 0
	}
	return out / in
}

func pow10(n int) uint64 {
	out := uint64(1)
	for i := 0; i < n; i++ {
		out *= 10
	}
	return out
}
