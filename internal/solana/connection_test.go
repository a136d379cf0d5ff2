package solana

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	solsdk "github.com/gagliardetto/solana-go"
	"golang.org/x/time/rate"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/logging"
)

var (
	testOwner = solsdk.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	testMint  = solsdk.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

func newTestConnection(t *testing.T, handler http.HandlerFunc) *RPCConnection {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	conn := NewRPCConnection(server.URL, logging.Component(logging.Discard(), "rpc"))
	conn.limiter = rate.NewLimiter(rate.Inf, 1)
	return conn
}

func rpcResult(w http.ResponseWriter, result string) {
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":0,"result":%s}`, result)
}

func rpcError(w http.ResponseWriter, code int, message string) {
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":0,"error":{"code":%d,"message":%q}}`, code, message)
}

func TestGetTokenBalance(t *testing.T) {
	conn := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		rpcResult(w, `{"context":{"slot":5},"value":{"amount":"2500000000","decimals":9,"uiAmountString":"2.5"}}`)
	})
	balance, err := conn.GetTokenBalance(context.Background(), testOwner, testMint)
	if err != nil {
		t.Fatalf("GetTokenBalance: %v", err)
	}
	if balance != 2_500_000_000 {
		t.Fatalf("balance = %d, want 2500000000", balance)
	}
}

func TestGetTokenBalanceMissingAccountIsZero(t *testing.T) {
	conn := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		rpcError(w, -32602, "Invalid param: could not find account")
	})
	balance, err := conn.GetTokenBalance(context.Background(), testOwner, testMint)
	if err != nil {
		t.Fatalf("GetTokenBalance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestGetTokenBalanceTransportFailure(t *testing.T) {
	conn := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := conn.GetTokenBalance(context.Background(), testOwner, testMint)
	if err == nil {
		t.Fatal("expected an error for a failing RPC endpoint")
	}
	if clierr.CodeOf(err) != clierr.CodeNetwork {
		t.Fatalf("code = %v, want %v", clierr.CodeOf(err), clierr.CodeNetwork)
	}
}

func TestGetTokenBalanceRPCFailure(t *testing.T) {
	conn := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		rpcError(w, -32005, "Node is behind by 150 slots")
	})
	_, err := conn.GetTokenBalance(context.Background(), testOwner, testMint)
	if clierr.CodeOf(err) != clierr.CodeNetwork {
		t.Fatalf("code = %v, want %v", clierr.CodeOf(err), clierr.CodeNetwork)
	}
}

func TestConfirmTransaction(t *testing.T) {
	polls := 0
	conn := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		polls++
		if polls == 1 {
			rpcResult(w, `{"context":{"slot":1},"value":[null]}`)
			return
		}
		rpcResult(w, `{"context":{"slot":2},"value":[{"slot":2,"confirmations":1,"err":null,"confirmationStatus":"confirmed"}]}`)
	})
	sig := strings.Repeat("1", 64)
	if err := conn.ConfirmTransaction(context.Background(), sig); err != nil {
		t.Fatalf("ConfirmTransaction: %v", err)
	}
	if polls != 2 {
		t.Fatalf("polls = %d, want 2", polls)
	}
}

func TestConfirmTransactionFailedOnChain(t *testing.T) {
	conn := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		rpcResult(w, `{"context":{"slot":2},"value":[{"slot":2,"confirmations":1,"err":{"InstructionError":[0,"Custom"]},"confirmationStatus":"confirmed"}]}`)
	})
	err := conn.ConfirmTransaction(context.Background(), strings.Repeat("1", 64))
	if clierr.CodeOf(err) != clierr.CodeTransaction {
		t.Fatalf("code = %v, want %v", clierr.CodeOf(err), clierr.CodeTransaction)
	}
}

func TestConfirmTransactionGivesUpOnUnknownSignature(t *testing.T) {
	polls := 0
	conn := newTestConnection(t, func(w http.ResponseWriter, r *http.Request) {
		polls++
		rpcResult(w, `{"context":{"slot":1},"value":[null]}`)
	})
	conn.statusPolls = 3

	err := conn.ConfirmTransaction(context.Background(), strings.Repeat("1", 64))
	if clierr.CodeOf(err) != clierr.CodeTransaction {
		t.Fatalf("code = %v, want %v (%v)", clierr.CodeOf(err), clierr.CodeTransaction, err)
	}
	if polls != 3 {
		t.Fatalf("polls = %d, want 3", polls)
	}
}
