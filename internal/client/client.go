// Package client talks to the token ledger HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/token-ledger/internal/httpapi"
	"github.com/sheikh-saqib/token-ledger/internal/models"
	"github.com/sheikh-saqib/token-ledger/internal/service"
)

// APIError is a non-2xx response from the server. Code is the ledger failure
// kind for rejected operations.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type Client struct {
	baseURL string
	caller  common.Address
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithCaller sets the identity sent with mutations.
func WithCaller(caller common.Address) Option {
	return func(cl *Client) { cl.caller = caller }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Info(ctx context.Context) (service.TokenInfo, error) {
	var info service.TokenInfo
	err := c.get(ctx, "/token", nil, &info)
	return info, err
}

func (c *Client) BalanceOf(ctx context.Context, account common.Address) (decimal.Decimal, error) {
	var res httpapi.BalanceResponse
	q := url.Values{"account_id": {account.Hex()}}
	if err := c.get(ctx, "/accounts/balance", q, &res); err != nil {
		return decimal.Zero, err
	}
	return res.Balance, nil
}

func (c *Client) Allowance(ctx context.Context, owner, spender common.Address) (decimal.Decimal, error) {
	var res httpapi.AllowanceResponse
	q := url.Values{"owner": {owner.Hex()}, "spender": {spender.Hex()}}
	if err := c.get(ctx, "/allowance", q, &res); err != nil {
		return decimal.Zero, err
	}
	return res.Allowance, nil
}

// History lists journaled operations, filtered to account when it is non-nil.
func (c *Client) History(ctx context.Context, account *common.Address) ([]models.Operation, error) {
	var q url.Values
	if account != nil {
		q = url.Values{"account_id": {account.Hex()}}
	}
	var res httpapi.OperationsResponse
	if err := c.get(ctx, "/operations", q, &res); err != nil {
		return nil, err
	}
	return res.Operations, nil
}

// Mutations. idempotencyKey may be empty.

func (c *Client) Transfer(ctx context.Context, to common.Address, amount decimal.Decimal, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/transfer", httpapi.TransferRequest{To: to.Hex(), Amount: &amount}, idempotencyKey)
}

func (c *Client) Approve(ctx context.Context, spender common.Address, amount decimal.Decimal, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/approve", httpapi.AllowanceRequest{Spender: spender.Hex(), Amount: &amount}, idempotencyKey)
}

func (c *Client) IncreaseAllowance(ctx context.Context, spender common.Address, amount decimal.Decimal, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/allowance/increase", httpapi.AllowanceRequest{Spender: spender.Hex(), Amount: &amount}, idempotencyKey)
}

func (c *Client) DecreaseAllowance(ctx context.Context, spender common.Address, amount decimal.Decimal, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/allowance/decrease", httpapi.AllowanceRequest{Spender: spender.Hex(), Amount: &amount}, idempotencyKey)
}

func (c *Client) TransferFrom(ctx context.Context, owner, to common.Address, amount decimal.Decimal, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/transfer-from", httpapi.TransferFromRequest{Owner: owner.Hex(), To: to.Hex(), Amount: &amount}, idempotencyKey)
}

func (c *Client) Mint(ctx context.Context, to common.Address, amount decimal.Decimal, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/mint", httpapi.MintRequest{To: to.Hex(), Amount: &amount}, idempotencyKey)
}

func (c *Client) Burn(ctx context.Context, from common.Address, amount decimal.Decimal, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/burn", httpapi.BurnRequest{From: from.Hex(), Amount: &amount}, idempotencyKey)
}

func (c *Client) FinishMinting(ctx context.Context, idempotencyKey string) (service.Result, error) {
	return c.post(ctx, "/finish-minting", nil, idempotencyKey)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any, idempotencyKey string) (service.Result, error) {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return service.Result{}, fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return service.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(httpapi.HeaderCaller, c.caller.Hex())
	if idempotencyKey != "" {
		req.Header.Set(httpapi.HeaderIdempotencyKey, idempotencyKey)
	}

	var res service.Result
	if err := c.do(req, &res); err != nil {
		return service.Result{}, err
	}
	return res, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body httpapi.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			apiErr.Code = http.StatusText(resp.StatusCode)
			apiErr.Message = "unreadable error body"
			return apiErr
		}
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
