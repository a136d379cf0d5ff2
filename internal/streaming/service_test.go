package streaming

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	solsdk "github.com/gagliardetto/solana-go"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/logging"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
	"github.com/solterm/solterm/internal/store"
)

var (
	testNow   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sender    = solsdk.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	recipient = solsdk.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	neoAsset  = mustAsset("NEO")
)

func mustAsset(symbol string) model.Asset {
	asset, ok := registry.AssetBySymbol(symbol)
	if !ok {
		panic("unknown test asset " + symbol)
	}
	return asset
}

type fakeClient struct {
	creates   []CreateOp
	cancels   []string
	withdraws []uint64
	transfers []solsdk.PublicKey
	topups    []uint64
	err       error
}

func (f *fakeClient) Create(_ context.Context, op CreateOp) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.creates = append(f.creates, op)
	return "tx-create", nil
}

func (f *fakeClient) Cancel(_ context.Context, streamID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.cancels = append(f.cancels, streamID)
	return "tx-cancel", nil
}

func (f *fakeClient) Withdraw(_ context.Context, _ string, amount uint64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.withdraws = append(f.withdraws, amount)
	return "tx-withdraw", nil
}

func (f *fakeClient) Transfer(_ context.Context, _ string, newRecipient solsdk.PublicKey) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.transfers = append(f.transfers, newRecipient)
	return "tx-transfer", nil
}

func (f *fakeClient) Topup(_ context.Context, _ string, amount uint64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.topups = append(f.topups, amount)
	return "tx-topup", nil
}

func newTestService(t *testing.T, owner solsdk.PublicKey) (*Service, *fakeClient, *store.Ledger) {
	t.Helper()
	dir := t.TempDir()
	ledger, err := store.Open(filepath.Join(dir, "ledger.db"), filepath.Join(dir, "ledger.lock"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })

	client := &fakeClient{}
	svc := NewService(ledger, client, owner, logging.Component(logging.Discard(), "streaming"))
	svc.now = func() time.Time { return testNow }
	return svc, client, ledger
}

func TestCreateStream(t *testing.T) {
	svc, client, ledger := newTestService(t, sender)

	receipt, err := svc.CreateStream(context.Background(), CreateParams{
		Recipient: recipient,
		Amount:    3_600_000_000_000,
		Asset:     neoAsset,
		Duration:  time.Hour,
		Name:      "team payroll",
	})
	if err != nil {
		t.Fatalf("CreateStream failed: %v", err)
	}
	if receipt.TransactionID != "tx-create" {
		t.Fatalf("tx id = %s", receipt.TransactionID)
	}
	if receipt.DurationSeconds != 3600 {
		t.Fatalf("duration = %d", receipt.DurationSeconds)
	}
	if receipt.PerSecondRelease != "1" {
		t.Fatalf("per-second release = %s", receipt.PerSecondRelease)
	}
	if receipt.Status != model.StreamActive {
		t.Fatalf("status = %s", receipt.Status)
	}

	if len(client.creates) != 1 {
		t.Fatalf("create ops = %d", len(client.creates))
	}
	op := client.creates[0]
	if op.Recipient != recipient || op.Amount != 3_600_000_000_000 {
		t.Fatalf("create op = %+v", op)
	}
	if op.EndUnix-op.StartUnix != 3600 {
		t.Fatalf("window = %d..%d", op.StartUnix, op.EndUnix)
	}

	stored, err := ledger.GetStream(receipt.StreamID)
	if err != nil {
		t.Fatalf("stream not recorded: %v", err)
	}
	if stored.Sender != sender.String() || stored.Name != "team payroll" {
		t.Fatalf("stored stream = %+v", stored)
	}
	if !stored.Cancelable || !stored.Transferable {
		t.Fatalf("stream flags = %+v", stored)
	}
}

func TestCreateStreamDurationBounds(t *testing.T) {
	svc, _, _ := newTestService(t, sender)
	cases := []struct {
		name     string
		duration time.Duration
	}{
		{"below minimum", 59 * time.Second},
		{"above maximum", 366 * 24 * time.Hour},
	}
	for _, tc := range cases {
		_, err := svc.CreateStream(context.Background(), CreateParams{
			Recipient: recipient, Amount: 1000, Asset: neoAsset, Duration: tc.duration,
		})
		if clierr.CodeOf(err) != clierr.CodeInvalidAmount {
			t.Fatalf("%s: code = %v (%v)", tc.name, clierr.CodeOf(err), err)
		}
	}
}

func TestCreateStreamRejectsZeroAmount(t *testing.T) {
	svc, client, _ := newTestService(t, sender)
	_, err := svc.CreateStream(context.Background(), CreateParams{
		Recipient: recipient, Amount: 0, Asset: neoAsset, Duration: time.Hour,
	})
	if clierr.CodeOf(err) != clierr.CodeInvalidAmount {
		t.Fatalf("code = %v", clierr.CodeOf(err))
	}
	if len(client.creates) != 0 {
		t.Fatalf("invalid request reached the program client")
	}
}

func TestCreateVesting(t *testing.T) {
	svc, client, ledger := newTestService(t, sender)

	receipt, err := svc.CreateVesting(context.Background(), VestingParams{
		Recipient:   recipient,
		TotalAmount: 1_000_000_000_000,
		Asset:       neoAsset,
		CliffDays:   30,
		VestingDays: 120,
	})
	if err != nil {
		t.Fatalf("CreateVesting failed: %v", err)
	}
	op := client.creates[0]
	if op.CliffAmount != 250_000_000_000 {
		t.Fatalf("cliff amount = %d", op.CliffAmount)
	}
	if op.CliffUnix != testNow.Add(30*24*time.Hour).Unix() {
		t.Fatalf("cliff time = %d", op.CliffUnix)
	}

	stored, err := ledger.GetStream(receipt.StreamID)
	if err != nil {
		t.Fatalf("vesting not recorded: %v", err)
	}
	if stored.Transferable {
		t.Fatalf("vesting schedules must not be transferable")
	}
	if got := stored.UnlockedAt(testNow.Add(29 * 24 * time.Hour)); got != 0 {
		t.Fatalf("unlocked before cliff = %d", got)
	}
	if got := stored.UnlockedAt(testNow.Add(30 * 24 * time.Hour)); got != 250_000_000_000 {
		t.Fatalf("unlocked at cliff = %d", got)
	}
}

func TestCreateVestingValidation(t *testing.T) {
	svc, _, _ := newTestService(t, sender)
	cases := []VestingParams{
		{Recipient: recipient, TotalAmount: 0, Asset: neoAsset, CliffDays: 10, VestingDays: 100},
		{Recipient: recipient, TotalAmount: 100, Asset: neoAsset, CliffDays: 100, VestingDays: 100},
		{Recipient: recipient, TotalAmount: 100, Asset: neoAsset, CliffDays: 10, VestingDays: 0},
		{Recipient: recipient, TotalAmount: 100, Asset: neoAsset, CliffDays: 10, VestingDays: 400},
	}
	for i, params := range cases {
		if _, err := svc.CreateVesting(context.Background(), params); err == nil {
			t.Fatalf("case %d accepted invalid params", i)
		}
	}
}

func TestCancelStream(t *testing.T) {
	svc, _, ledger := newTestService(t, sender)
	receipt, err := svc.CreateStream(context.Background(), CreateParams{
		Recipient: recipient, Amount: 1000, Asset: neoAsset, Duration: time.Hour,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	txID, err := svc.Cancel(context.Background(), receipt.StreamID)
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if txID != "tx-cancel" {
		t.Fatalf("tx id = %s", txID)
	}
	stored, _ := ledger.GetStream(receipt.StreamID)
	if stored.StatusAt(testNow) != model.StreamCancelled {
		t.Fatalf("status after cancel = %s", stored.StatusAt(testNow))
	}

	if _, err := svc.Cancel(context.Background(), receipt.StreamID); err == nil {
		t.Fatalf("second cancel accepted")
	}
}

func TestCancelUnknownStream(t *testing.T) {
	svc, _, _ := newTestService(t, sender)
	_, err := svc.Cancel(context.Background(), "not-a-real-id")
	if clierr.CodeOf(err) != clierr.CodeNotFound {
		t.Fatalf("code = %v", clierr.CodeOf(err))
	}
	if err.Error() != registry.MsgStreamNotFound {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestCancelRequiresSender(t *testing.T) {
	svc, _, ledger := newTestService(t, sender)
	stream := model.Stream{
		ID: "foreign", Sender: recipient.String(), Recipient: sender.String(),
		Asset: neoAsset, DepositedAmount: 10,
		StartTime: testNow, EndTime: testNow.Add(time.Hour), Cancelable: true,
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed stream: %v", err)
	}
	_, err := svc.Cancel(context.Background(), "foreign")
	if clierr.CodeOf(err) != clierr.CodeUnauthorized {
		t.Fatalf("code = %v", clierr.CodeOf(err))
	}
}

func TestListFiltersDirection(t *testing.T) {
	svc, _, ledger := newTestService(t, sender)
	seed := []model.Stream{
		{ID: "out", Sender: sender.String(), Recipient: recipient.String(), Asset: neoAsset, DepositedAmount: 10, StartTime: testNow, EndTime: testNow.Add(time.Hour)},
		{ID: "in", Sender: recipient.String(), Recipient: sender.String(), Asset: neoAsset, DepositedAmount: 10, StartTime: testNow, EndTime: testNow.Add(time.Hour)},
	}
	for _, s := range seed {
		if err := ledger.SaveStream(s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	incoming, err := svc.List(context.Background(), "incoming")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(incoming) != 1 || incoming[0].ID != "in" || incoming[0].Direction != "incoming" {
		t.Fatalf("incoming = %+v", incoming)
	}

	all, err := svc.List(context.Background(), "all")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d streams", len(all))
	}

	if _, err := svc.List(context.Background(), "sideways"); clierr.CodeOf(err) != clierr.CodeUsage {
		t.Fatalf("bad direction code = %v", clierr.CodeOf(err))
	}
}

func TestWithdraw(t *testing.T) {
	svc, client, ledger := newTestService(t, recipient)
	// Half elapsed: 500 of 1000 released.
	stream := model.Stream{
		ID: "w1", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 1000,
		StartTime: testNow.Add(-30 * time.Minute), EndTime: testNow.Add(30 * time.Minute),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}

	txID, withdrawn, err := svc.Withdraw(context.Background(), "w1", 200)
	if err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if txID != "tx-withdraw" || withdrawn != 200 {
		t.Fatalf("withdraw = %s, %d", txID, withdrawn)
	}
	if len(client.withdraws) != 1 || client.withdraws[0] != 200 {
		t.Fatalf("client withdraws = %v", client.withdraws)
	}

	// Zero amount drains the remainder of what has released.
	_, withdrawn, err = svc.Withdraw(context.Background(), "w1", 0)
	if err != nil {
		t.Fatalf("Withdraw all failed: %v", err)
	}
	if withdrawn != 300 {
		t.Fatalf("withdraw all = %d, want 300", withdrawn)
	}

	// Everything released so far is taken.
	if _, _, err := svc.Withdraw(context.Background(), "w1", 0); clierr.CodeOf(err) != clierr.CodeInvalidAmount {
		t.Fatalf("drained stream code = %v", clierr.CodeOf(err))
	}
}

func TestWithdrawRejectsOverdraw(t *testing.T) {
	svc, _, ledger := newTestService(t, recipient)
	stream := model.Stream{
		ID: "w2", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 1000,
		StartTime: testNow.Add(-30 * time.Minute), EndTime: testNow.Add(30 * time.Minute),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, _, err := svc.Withdraw(context.Background(), "w2", 900)
	if clierr.CodeOf(err) != clierr.CodeInvalidAmount {
		t.Fatalf("overdraw code = %v (%v)", clierr.CodeOf(err), err)
	}
}

func TestWithdrawRequiresRecipient(t *testing.T) {
	svc, _, ledger := newTestService(t, sender)
	stream := model.Stream{
		ID: "w3", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 1000,
		StartTime: testNow.Add(-time.Hour), EndTime: testNow.Add(time.Hour),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, _, err := svc.Withdraw(context.Background(), "w3", 0)
	if clierr.CodeOf(err) != clierr.CodeUnauthorized {
		t.Fatalf("code = %v", clierr.CodeOf(err))
	}
}

func TestTransfer(t *testing.T) {
	svc, client, ledger := newTestService(t, recipient)
	other := solsdk.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
	stream := model.Stream{
		ID: "t1", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 1000, Transferable: true,
		StartTime: testNow, EndTime: testNow.Add(time.Hour),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Transfer(context.Background(), "t1", other); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if len(client.transfers) != 1 || client.transfers[0] != other {
		t.Fatalf("client transfers = %v", client.transfers)
	}
	stored, _ := ledger.GetStream("t1")
	if stored.Recipient != other.String() {
		t.Fatalf("recipient after transfer = %s", stored.Recipient)
	}
}

func TestTransferRequiresTransferableFlag(t *testing.T) {
	svc, _, ledger := newTestService(t, recipient)
	stream := model.Stream{
		ID: "t2", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 1000, Transferable: false,
		StartTime: testNow, EndTime: testNow.Add(time.Hour),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := svc.Transfer(context.Background(), "t2", sender)
	if clierr.CodeOf(err) != clierr.CodeUnauthorized {
		t.Fatalf("code = %v", clierr.CodeOf(err))
	}
}

func TestTopup(t *testing.T) {
	svc, client, ledger := newTestService(t, sender)
	stream := model.Stream{
		ID: "p1", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 1000,
		StartTime: testNow, EndTime: testNow.Add(time.Hour),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Topup(context.Background(), "p1", 500); err != nil {
		t.Fatalf("Topup failed: %v", err)
	}
	if len(client.topups) != 1 || client.topups[0] != 500 {
		t.Fatalf("client topups = %v", client.topups)
	}
	stored, _ := ledger.GetStream("p1")
	if stored.DepositedAmount != 1500 {
		t.Fatalf("deposit after topup = %d", stored.DepositedAmount)
	}
}

func TestTopupFinishedStream(t *testing.T) {
	svc, _, ledger := newTestService(t, sender)
	stream := model.Stream{
		ID: "p2", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 1000,
		StartTime: testNow.Add(-2 * time.Hour), EndTime: testNow.Add(-time.Hour),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := svc.Topup(context.Background(), "p2", 500)
	if clierr.CodeOf(err) != clierr.CodeUnauthorized {
		t.Fatalf("code = %v", clierr.CodeOf(err))
	}
}

func TestClientFailureDoesNotRecord(t *testing.T) {
	svc, client, ledger := newTestService(t, sender)
	client.err = clierr.New(clierr.CodeNetwork, "rpc unreachable")

	_, err := svc.CreateStream(context.Background(), CreateParams{
		Recipient: recipient, Amount: 1000, Asset: neoAsset, Duration: time.Hour,
	})
	if clierr.CodeOf(err) != clierr.CodeNetwork {
		t.Fatalf("code = %v", clierr.CodeOf(err))
	}
	streams, listErr := ledger.ListStreams(sender.String(), "outgoing")
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(streams) != 0 {
		t.Fatalf("failed create was recorded")
	}
}

func TestInfo(t *testing.T) {
	svc, _, ledger := newTestService(t, sender)
	stream := model.Stream{
		ID: "i1", Sender: sender.String(), Recipient: recipient.String(),
		Asset: neoAsset, DepositedAmount: 2_000_000_000, WithdrawnAmount: 500_000_000,
		StartTime: testNow.Add(-30 * time.Minute), EndTime: testNow.Add(30 * time.Minute),
	}
	if err := ledger.SaveStream(stream); err != nil {
		t.Fatalf("seed: %v", err)
	}

	detail, err := svc.Info(context.Background(), "i1")
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if detail.Status != model.StreamActive {
		t.Fatalf("status = %s", detail.Status)
	}
	if detail.Progress != 50 {
		t.Fatalf("progress = %v", detail.Progress)
	}
	if detail.Unlocked != "1" {
		t.Fatalf("unlocked = %s", detail.Unlocked)
	}
	if detail.Available != "0.5" {
		t.Fatalf("available = %s", detail.Available)
	}
}
