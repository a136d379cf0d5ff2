package streaming

import (
	"context"

	bin "github.com/gagliardetto/binary"
	solsdk "github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/solana"
)

// Client is the payment-streaming program collaborator. It performs the
// on-chain side of each operation and returns the transaction id; record
// keeping stays in the ledger.
type Client interface {
	Create(ctx context.Context, op CreateOp) (string, error)
	Cancel(ctx context.Context, streamID string) (string, error)
	Withdraw(ctx context.Context, streamID string, amount uint64) (string, error)
	Transfer(ctx context.Context, streamID string, newRecipient solsdk.PublicKey) (string, error)
	Topup(ctx context.Context, streamID string, amount uint64) (string, error)
}

// CreateOp is the on-chain creation payload.
type CreateOp struct {
	StreamID         string
	Recipient        solsdk.PublicKey
	Mint             solsdk.PublicKey
	Amount           uint64
	StartUnix        int64
	EndUnix          int64
	CliffUnix        int64
	CliffAmount      uint64
	ReleaseFrequency int64
	Cancelable       bool
	Transferable     bool
}

// StreamProgramID is the deployed payment-streaming program.
var StreamProgramID = solsdk.MustPublicKeyFromBase58("strmRqUCoQUgGUan5YhzUZa6KqdzwX5L6FpUxfmKg5m")

const (
	opCreate uint8 = iota + 1
	opCancel
	opWithdraw
	opTransfer
	opTopup
)

type programClient struct {
	conn    solana.Connection
	wallet  solana.Wallet
	program solsdk.PublicKey
	log     *logrus.Entry
}

// NewProgramClient builds the production collaborator submitting through the
// RPC connection and signing with the wallet.
func NewProgramClient(conn solana.Connection, wallet solana.Wallet, log *logrus.Entry) Client {
	return &programClient{conn: conn, wallet: wallet, program: StreamProgramID, log: log}
}

type createInstruction struct {
	Tag              uint8
	StreamID         string
	Amount           uint64
	StartUnix        int64
	EndUnix          int64
	CliffUnix        int64
	CliffAmount      uint64
	ReleaseFrequency int64
	Cancelable       bool
	Transferable     bool
}

type mutateInstruction struct {
	Tag      uint8
	StreamID string
	Amount   uint64
}

func (c *programClient) Create(ctx context.Context, op CreateOp) (string, error) {
	data, err := bin.MarshalBorsh(&createInstruction{
		Tag:              opCreate,
		StreamID:         op.StreamID,
		Amount:           op.Amount,
		StartUnix:        op.StartUnix,
		EndUnix:          op.EndUnix,
		CliffUnix:        op.CliffUnix,
		CliffAmount:      op.CliffAmount,
		ReleaseFrequency: op.ReleaseFrequency,
		Cancelable:       op.Cancelable,
		Transferable:     op.Transferable,
	})
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "encode create instruction", err)
	}
	accounts := solsdk.AccountMetaSlice{
		solsdk.Meta(c.wallet.PublicKey()).WRITE().SIGNER(),
		solsdk.Meta(op.Recipient).WRITE(),
		solsdk.Meta(op.Mint),
	}
	return c.submit(ctx, data, accounts)
}

func (c *programClient) Cancel(ctx context.Context, streamID string) (string, error) {
	return c.mutate(ctx, opCancel, streamID, 0, nil)
}

func (c *programClient) Withdraw(ctx context.Context, streamID string, amount uint64) (string, error) {
	return c.mutate(ctx, opWithdraw, streamID, amount, nil)
}

func (c *programClient) Transfer(ctx context.Context, streamID string, newRecipient solsdk.PublicKey) (string, error) {
	extra := solsdk.AccountMetaSlice{solsdk.Meta(newRecipient).WRITE()}
	return c.mutate(ctx, opTransfer, streamID, 0, extra)
}

func (c *programClient) Topup(ctx context.Context, streamID string, amount uint64) (string, error) {
	return c.mutate(ctx, opTopup, streamID, amount, nil)
}

func (c *programClient) mutate(ctx context.Context, tag uint8, streamID string, amount uint64, extra solsdk.AccountMetaSlice) (string, error) {
	data, err := bin.MarshalBorsh(&mutateInstruction{Tag: tag, StreamID: streamID, Amount: amount})
	if err != nil {
		return "", clierr.Wrap(clierr.CodeInternal, "encode stream instruction", err)
	}
	accounts := solsdk.AccountMetaSlice{
		solsdk.Meta(c.wallet.PublicKey()).WRITE().SIGNER(),
	}
	accounts = append(accounts, extra...)
	return c.submit(ctx, data, accounts)
}

func (c *programClient) submit(ctx context.Context, data []byte, accounts solsdk.AccountMetaSlice) (string, error) {
	blockhash, err := c.conn.LatestBlockhash(ctx)
	if err != nil {
		return "", err
	}
	inst := solsdk.NewInstruction(c.program, accounts, data)
	tx, err := solsdk.NewTransaction(
		[]solsdk.Instruction{inst},
		blockhash,
		solsdk.TransactionPayer(c.wallet.PublicKey()),
	)
	if err != nil {
		return "", clierr.Wrap(clierr.CodeTransaction, "build transaction", err)
	}
	if err := c.wallet.SignTransaction(tx); err != nil {
		return "", err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", clierr.Wrap(clierr.CodeTransaction, "serialize transaction", err)
	}
	sig, err := c.conn.SendRawTransaction(ctx, raw)
	if err != nil {
		return "", err
	}
	if err := c.conn.ConfirmTransaction(ctx, sig); err != nil {
		return "", err
	}
	c.log.WithField("signature", sig).Debug("stream transaction confirmed")
	return sig, nil
}
