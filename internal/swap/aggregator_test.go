package swap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	solsdk "github.com/gagliardetto/solana-go"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/httpx"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
)

var (
	testSOL  = model.Asset{Symbol: "SOL", Mint: "So11111111111111111111111111111111111111112", Decimals: 9}
	testUSDC = model.Asset{Symbol: "USDC", Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Decimals: 6}
)

func TestQuoteParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != testSOL.Mint || q.Get("outputMint") != testUSDC.Mint {
			t.Errorf("unexpected mints: %v", q)
		}
		if q.Get("amount") != "1500000000" || q.Get("slippageBps") != "75" {
			t.Errorf("unexpected amount/slippage: %v", q)
		}
		_, _ = w.Write([]byte(`{
			"outAmount": "210750000",
			"priceImpactPct": "0.42",
			"routePlan": [
				{"swapInfo": {"label": "Orca"}},
				{"swapInfo": {"label": "Orca"}},
				{"swapInfo": {"label": "Raydium"}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(httpx.New(2*time.Second, 0), srv.URL)
	quote, err := client.Quote(context.Background(), QuoteRequest{
		Input: testSOL, Output: testUSDC, Amount: 1_500_000_000, SlippageBps: 75,
	})
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if quote.OutputAmount != 210_750_000 {
		t.Fatalf("out amount = %d", quote.OutputAmount)
	}
	if quote.PriceImpactPct != 0.42 {
		t.Fatalf("impact = %v", quote.PriceImpactPct)
	}
	if len(quote.Route) != 2 || quote.Route[0] != "Orca" || quote.Route[1] != "Raydium" {
		t.Fatalf("route = %v", quote.Route)
	}
	if len(quote.raw) == 0 {
		t.Fatalf("raw payload not retained")
	}
}

func TestQuoteDefaultsSlippage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("slippageBps"); got != "50" {
			t.Errorf("slippageBps = %s", got)
		}
		_, _ = w.Write([]byte(`{"outAmount": "1"}`))
	}))
	defer srv.Close()

	client := NewClient(httpx.New(2*time.Second, 0), srv.URL)
	quote, err := client.Quote(context.Background(), QuoteRequest{Input: testSOL, Output: testUSDC, Amount: 10})
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if quote.SlippageBps != registry.DefaultSlippageBps {
		t.Fatalf("slippage = %d", quote.SlippageBps)
	}
	if len(quote.Route) != 1 || quote.Route[0] != "direct" {
		t.Fatalf("empty plan route = %v", quote.Route)
	}
}

func TestQuoteMapsClientErrorToNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer srv.Close()

	client := NewClient(httpx.New(2*time.Second, 0), srv.URL)
	_, err := client.Quote(context.Background(), QuoteRequest{Input: testSOL, Output: testUSDC, Amount: 10})
	if clierr.CodeOf(err) != clierr.CodeNoRoute {
		t.Fatalf("code = %v (%v)", clierr.CodeOf(err), err)
	}
	if err.Error() != registry.MsgNoRoute {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestQuoteZeroOutAmountIsNoRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"outAmount": "0"}`))
	}))
	defer srv.Close()

	client := NewClient(httpx.New(2*time.Second, 0), srv.URL)
	_, err := client.Quote(context.Background(), QuoteRequest{Input: testSOL, Output: testUSDC, Amount: 10})
	if clierr.CodeOf(err) != clierr.CodeNoRoute {
		t.Fatalf("code = %v (%v)", clierr.CodeOf(err), err)
	}
}

func TestBuildSwapEchoesQuotePayload(t *testing.T) {
	rawQuote := json.RawMessage(`{"outAmount":"5","routePlan":[]}`)
	user := solsdk.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

	wallet := solsdk.NewWallet()
	ix := solsdk.NewInstruction(
		solsdk.MemoProgramID,
		solsdk.AccountMetaSlice{solsdk.Meta(wallet.PublicKey()).SIGNER().WRITE()},
		[]byte("noop"),
	)
	tx, err := solsdk.NewTransaction([]solsdk.Instruction{ix}, solsdk.Hash{}, solsdk.TransactionPayer(wallet.PublicKey()))
	if err != nil {
		t.Fatalf("build fixture tx: %v", err)
	}
	encoded := tx.MustToBase64()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req swapRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if string(req.QuoteResponse) != string(rawQuote) {
			t.Errorf("quote payload not echoed verbatim: %s", req.QuoteResponse)
		}
		if req.UserPublicKey != user.String() {
			t.Errorf("user = %s", req.UserPublicKey)
		}
		_ = json.NewEncoder(w).Encode(swapResponse{SwapTransaction: encoded})
	}))
	defer srv.Close()

	client := NewClient(httpx.New(2*time.Second, 0), srv.URL)
	got, err := client.BuildSwap(context.Background(), Quote{raw: rawQuote}, user)
	if err != nil {
		t.Fatalf("BuildSwap failed: %v", err)
	}
	if got.Message.AccountKeys[0] != wallet.PublicKey() {
		t.Fatalf("decoded payer = %s", got.Message.AccountKeys[0])
	}
}

func TestBuildSwapRequiresPayload(t *testing.T) {
	client := NewClient(httpx.New(2*time.Second, 0), "http://unused.invalid")
	if _, err := client.BuildSwap(context.Background(), Quote{}, solsdk.PublicKey{}); err == nil {
		t.Fatalf("empty payload accepted")
	}
}
