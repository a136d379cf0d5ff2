// Package solana wraps the RPC and wallet collaborators the terminal core
// depends on. Everything above this package speaks in the Connection and
// Wallet interfaces; the concrete types here are the only place the RPC SDK
// is touched.
package solana

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/model"
)

// Connection is the RPC collaborator surface consumed by the services.
type Connection interface {
	GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error)
	GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error)
	GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]model.HistoryEntry, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
	ConfirmTransaction(ctx context.Context, signature string) error
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (model.SwapSimulation, error)
}

// RPCConnection is the production Connection backed by a JSON-RPC endpoint.
type RPCConnection struct {
	client  *rpc.Client
	log     *logrus.Entry
	limiter *rate.Limiter
	// statusPolls bounds how many confirmation polls may come back with no
	// record of the signature before the transaction is reported as lost.
	statusPolls int
}

func NewRPCConnection(endpoint string, log *logrus.Entry) *RPCConnection {
	return &RPCConnection{
		client: rpc.New(endpoint),
		log:    log,
		// Confirmation polling is the chatty path; keep it polite.
		limiter:     rate.NewLimiter(rate.Every(time.Second), 2),
		statusPolls: 30,
	}
}

func (c *RPCConnection) GetBalance(ctx context.Context, address solana.PublicKey) (uint64, error) {
	res, err := c.client.GetBalance(ctx, address, rpc.CommitmentFinalized)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeNetwork, "fetch balance", err)
	}
	return res.Value, nil
}

// GetTokenBalance reads the owner's associated token account for mint and
// returns the balance in base units. A missing token account reads as zero;
// any other failure surfaces as a network error.
func (c *RPCConnection) GetTokenBalance(ctx context.Context, owner, mint solana.PublicKey) (uint64, error) {
	account, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeInternal, "derive token account", err)
	}
	res, err := c.client.GetTokenAccountBalance(ctx, account, rpc.CommitmentFinalized)
	if err != nil {
		if isAccountNotFound(err) {
			return 0, nil
		}
		return 0, clierr.Wrap(clierr.CodeNetwork, "fetch token balance", err)
	}
	if res.Value == nil {
		return 0, nil
	}
	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, clierr.Wrap(clierr.CodeNetwork, "parse token balance", err)
	}
	return amount, nil
}

// The cluster answers getTokenAccountBalance for an account that was never
// funded with an invalid-param error instead of a null value.
func isAccountNotFound(err error) bool {
	var rpcErr *jsonrpc.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == -32602
}

func (c *RPCConnection) GetSignaturesForAddress(ctx context.Context, address solana.PublicKey, limit int) ([]model.HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	sigs, err := c.client.GetSignaturesForAddressWithOpts(ctx, address, &rpc.GetSignaturesForAddressOpts{
		Limit: &limit,
	})
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeNetwork, "fetch signatures", err)
	}
	out := make([]model.HistoryEntry, 0, len(sigs))
	for _, sig := range sigs {
		entry := model.HistoryEntry{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
			Failed:    sig.Err != nil,
		}
		if sig.BlockTime != nil {
			entry.Time = sig.BlockTime.Time()
		}
		out = append(out, entry)
	}
	return out, nil
}

func (c *RPCConnection) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, clierr.Wrap(clierr.CodeNetwork, "fetch blockhash", err)
	}
	return res.Value.Blockhash, nil
}

func (c *RPCConnection) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	sig, err := c.client.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return "", clierr.Wrap(clierr.CodeTransaction, "submit transaction", err)
	}
	c.log.WithField("signature", sig.String()).Debug("transaction submitted")
	return sig.String(), nil
}

// ConfirmTransaction blocks until the signature reaches confirmed commitment
// or ctx expires. Polling is rate limited; the caller owns the deadline.
func (c *RPCConnection) ConfirmTransaction(ctx context.Context, signature string) error {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return clierr.Wrap(clierr.CodeTransaction, "malformed signature", err)
	}
	misses := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return clierr.Wrap(clierr.CodeTransaction, "confirmation timed out", err)
		}
		res, err := c.client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return clierr.Wrap(clierr.CodeNetwork, "poll signature status", err)
		}
		if len(res.Value) == 0 || res.Value[0] == nil {
			misses++
			if misses >= c.statusPolls {
				return clierr.Newf(clierr.CodeTransaction, "signature %s not found after %d status checks", signature, misses)
			}
			continue
		}
		status := res.Value[0]
		if status.Err != nil {
			return clierr.Newf(clierr.CodeTransaction, "transaction failed on chain: %v", status.Err)
		}
		switch status.ConfirmationStatus {
		case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
			c.log.WithField("signature", signature).Debug("transaction confirmed")
			return nil
		}
	}
}

func (c *RPCConnection) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (model.SwapSimulation, error) {
	res, err := c.client.SimulateTransactionWithOpts(ctx, tx, &rpc.SimulateTransactionOpts{
		SigVerify:  false,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return model.SwapSimulation{}, clierr.Wrap(clierr.CodeSimulationFailed, "simulate transaction", err)
	}
	if res.Value == nil {
		return model.SwapSimulation{}, clierr.New(clierr.CodeSimulationFailed, "empty simulation result")
	}
	sim := model.SwapSimulation{
		WouldFail: res.Value.Err != nil,
		Logs:      res.Value.Logs,
	}
	if res.Value.Err != nil {
		sim.Error = fmt.Sprintf("%v", res.Value.Err)
	}
	if res.Value.UnitsConsumed != nil {
		sim.ComputeUnits = *res.Value.UnitsConsumed
	}
	return sim, nil
}
