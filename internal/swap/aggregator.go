package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	solsdk "github.com/gagliardetto/solana-go"

	clierr "github.com/solterm/solterm/internal/errors"
	"github.com/solterm/solterm/internal/httpx"
	"github.com/solterm/solterm/internal/model"
	"github.com/solterm/solterm/internal/registry"
)

// QuoteRequest asks the routing collaborator for an exact-input quote.
// Amount is integer base units of Input.
type QuoteRequest struct {
	Input       model.Asset
	Output      model.Asset
	Amount      uint64
	SlippageBps int
}

// Quote pairs the parsed quote with the raw aggregator payload, which must be
// echoed back verbatim when asking for the routed transaction.
type Quote struct {
	model.SwapQuote
	raw json.RawMessage
}

// Router is the routing/quote collaborator: price quotes plus routed
// transaction construction.
type Router interface {
	Quote(ctx context.Context, req QuoteRequest) (Quote, error)
	BuildSwap(ctx context.Context, quote Quote, user solsdk.PublicKey) (*solsdk.Transaction, error)
}

// Client talks to the swap aggregator over HTTP: GET /quote for routed
// quotes, POST /swap for a serialized transaction.
type Client struct {
	http    *httpx.Client
	baseURL string
	now     func() time.Time
}

func NewClient(httpClient *httpx.Client, baseURL string) *Client {
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

type quoteResponse struct {
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
	RoutePlan      []struct {
		SwapInfo struct {
			Label string `json:"label"`
		} `json:"swapInfo"`
	} `json:"routePlan"`
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if req.SlippageBps <= 0 {
		req.SlippageBps = registry.DefaultSlippageBps
	}
	vals := url.Values{}
	vals.Set("inputMint", req.Input.Mint)
	vals.Set("outputMint", req.Output.Mint)
	vals.Set("amount", strconv.FormatUint(req.Amount, 10))
	vals.Set("slippageBps", strconv.Itoa(req.SlippageBps))

	endpoint := fmt.Sprintf("%s/quote?%s", c.baseURL, vals.Encode())
	hReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeInternal, "build quote request", err)
	}

	var raw json.RawMessage
	if _, err := c.http.DoJSON(ctx, hReq, &raw); err != nil {
		return Quote{}, mapRouteError(err)
	}
	var resp quoteResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Quote{}, clierr.Wrap(clierr.CodeNetwork, "decode quote", err)
	}
	outAmount, err := strconv.ParseUint(strings.TrimSpace(resp.OutAmount), 10, 64)
	if err != nil || outAmount == 0 {
		return Quote{}, clierr.New(clierr.CodeNoRoute, registry.MsgNoRoute)
	}

	return Quote{
		SwapQuote: model.SwapQuote{
			InputAsset:     req.Input,
			OutputAsset:    req.Output,
			InputAmount:    req.Amount,
			OutputAmount:   outAmount,
			PriceImpactPct: parsePriceImpactPct(resp.PriceImpactPct),
			Route:          routeFromPlan(resp.RoutePlan),
			SlippageBps:    req.SlippageBps,
			FetchedAt:      c.now().UTC(),
		},
		raw: raw,
	}, nil
}

type swapRequest struct {
	QuoteResponse json.RawMessage `json:"quoteResponse"`
	UserPublicKey string          `json:"userPublicKey"`
	WrapUnwrapSOL bool            `json:"wrapAndUnwrapSol"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

func (c *Client) BuildSwap(ctx context.Context, quote Quote, user solsdk.PublicKey) (*solsdk.Transaction, error) {
	if len(quote.raw) == 0 {
		return nil, clierr.New(clierr.CodeInternal, "quote carries no aggregator payload")
	}
	var resp swapResponse
	req := swapRequest{QuoteResponse: quote.raw, UserPublicKey: user.String(), WrapUnwrapSOL: true}
	if _, err := c.http.PostJSON(ctx, c.baseURL+"/swap", req, &resp); err != nil {
		return nil, mapRouteError(err)
	}
	if strings.TrimSpace(resp.SwapTransaction) == "" {
		return nil, clierr.New(clierr.CodeTransaction, "aggregator returned no transaction")
	}
	rawTx, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeTransaction, "decode routed transaction", err)
	}
	tx, err := solsdk.TransactionFromDecoder(bin.NewBinDecoder(rawTx))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeTransaction, "parse routed transaction", err)
	}
	return tx, nil
}

// mapRouteError turns aggregator 4xx responses into NoRoute; transport
// failures pass through as typed network errors.
func mapRouteError(err error) error {
	var status *httpx.StatusError
	if errors.As(err, &status) && status.StatusCode >= 400 && status.StatusCode < 500 {
		return clierr.New(clierr.CodeNoRoute, registry.MsgNoRoute)
	}
	return err
}

func parsePriceImpactPct(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func routeFromPlan(plan []struct {
	SwapInfo struct {
		Label string `json:"label"`
	} `json:"swapInfo"`
}) []string {
	parts := make([]string, 0, len(plan))
	for _, hop := range plan {
		label := strings.TrimSpace(hop.SwapInfo.Label)
		if label == "" {
			continue
		}
		if len(parts) == 0 || parts[len(parts)-1] != label {
			parts = append(parts, label)
		}
	}
	if len(parts) == 0 {
		return []string{"direct"}
	}
	return parts
}
