package httpapi

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/token-ledger/internal/ledger"
	"github.com/sheikh-saqib/token-ledger/internal/service"
	"github.com/sheikh-saqib/token-ledger/internal/storage/memory"
)

var (
	deployer = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob      = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	svc, err := service.NewTokenService(deployer, memory.NewMemoryJournalStore(),
		service.WithLedgerOptions(ledger.WithGenesisSupply(decimal.NewFromInt(1000))))
	require.NoError(t, err)
	return NewHandler(svc, opts...)
}

func do(t *testing.T, h http.Handler, method, target string, caller *common.Address, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if caller != nil {
		req.Header.Set(HeaderCaller, caller.Hex())
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestTransferAndBalance(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/transfer", &deployer, `{"to":"`+alice.Hex()+`","amount":"10"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decodeBody[service.Result](t, rec)
	assert.Equal(t, int64(1), res.Operation.Seq)
	assert.Equal(t, alice, res.Operation.To)

	rec = do(t, h, http.MethodGet, "/accounts/balance?account_id="+alice.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	bal := decodeBody[BalanceResponse](t, rec)
	assert.Equal(t, alice, bal.AccountID)
	assert.True(t, decimal.NewFromInt(10).Equal(bal.Balance))
}

func TestRejectionIsUnprocessable(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/transfer", &alice, `{"to":"`+bob.Hex()+`","amount":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(ledger.KindInsufficientToken), decodeBody[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/transfer", &deployer, `{"to":"0x0000000000000000000000000000000000000000","amount":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(ledger.KindAddressZero), decodeBody[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/mint", &alice, `{"to":"`+alice.Hex()+`","amount":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(ledger.KindOnlyMinter), decodeBody[ErrorResponse](t, rec).Code)
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name   string
		caller *common.Address
		path   string
		body   string
		status int
	}{
		{"missing caller", nil, "/transfer", `{"to":"` + alice.Hex() + `","amount":"1"}`, http.StatusUnauthorized},
		{"missing amount", &deployer, "/transfer", `{"to":"` + alice.Hex() + `"}`, http.StatusBadRequest},
		{"missing to", &deployer, "/transfer", `{"amount":"1"}`, http.StatusBadRequest},
		{"bad address", &deployer, "/approve", `{"spender":"bob","amount":"1"}`, http.StatusBadRequest},
		{"unknown field", &deployer, "/burn", `{"from":"` + alice.Hex() + `","amount":"1","memo":"x"}`, http.StatusBadRequest},
		{"not json", &deployer, "/mint", `amount=1`, http.StatusBadRequest},
		{"fractional amount", &deployer, "/transfer", `{"to":"` + alice.Hex() + `","amount":"0.5"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.caller, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestIdempotentReplay(t *testing.T) {
	h := newTestHandler(t)
	body := `{"to":"` + alice.Hex() + `","amount":"10"}`

	first := do(t, h, http.MethodPost, "/transfer", &deployer, body, HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(t, h, http.MethodPost, "/transfer", &deployer, body, HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusOK, second.Code)
	res := decodeBody[service.Result](t, second)
	assert.True(t, res.Replayed)
	assert.Equal(t, decodeBody[service.Result](t, first).Operation.ID, res.Operation.ID)

	conflict := do(t, h, http.MethodPost, "/approve", &deployer, `{"spender":"`+bob.Hex()+`","amount":"1"}`, HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, CodeConflict, decodeBody[ErrorResponse](t, conflict).Code)
}

func TestAllowanceFlow(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/approve", &deployer, `{"spender":"`+alice.Hex()+`","amount":"30"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/allowance/increase", &deployer, `{"spender":"`+alice.Hex()+`","amount":"5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/allowance/decrease", &deployer, `{"spender":"`+alice.Hex()+`","amount":"15"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/transfer-from", &alice, `{"owner":"`+deployer.Hex()+`","to":"`+bob.Hex()+`","amount":"20"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/allowance?owner="+deployer.Hex()+"&spender="+alice.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[AllowanceResponse](t, rec).Allowance.IsZero())

	rec = do(t, h, http.MethodPost, "/transfer-from", &alice, `{"owner":"`+deployer.Hex()+`","to":"`+bob.Hex()+`","amount":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(ledger.KindInsufficientAllowance), decodeBody[ErrorResponse](t, rec).Code)
}

func TestMintingLifecycle(t *testing.T) {
	h := newTestHandler(t)

	rec := do(t, h, http.MethodPost, "/mint", &deployer, `{"to":"`+alice.Hex()+`","amount":"7"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/burn", &deployer, `{"from":"`+alice.Hex()+`","amount":"2"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/finish-minting", &deployer, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/mint", &deployer, `{"to":"`+alice.Hex()+`","amount":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(ledger.KindMintingHasFinished), decodeBody[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/token", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decodeBody[service.TokenInfo](t, rec)
	assert.True(t, info.MintingFinished)
	assert.True(t, decimal.NewFromInt(1005).Equal(info.TotalSupply))
	assert.Equal(t, deployer, info.Minter)
}

func TestOperationsHistory(t *testing.T) {
	h := newTestHandler(t)

	do(t, h, http.MethodPost, "/transfer", &deployer, `{"to":"`+alice.Hex()+`","amount":"1"}`)
	do(t, h, http.MethodPost, "/transfer", &deployer, `{"to":"`+bob.Hex()+`","amount":"1"}`)

	rec := do(t, h, http.MethodGet, "/operations", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[OperationsResponse](t, rec).Operations, 2)

	rec = do(t, h, http.MethodGet, "/operations?account_id="+bob.Hex(), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ops := decodeBody[OperationsResponse](t, rec).Operations
	require.Len(t, ops, 1)
	assert.Equal(t, bob, ops[0].To)

	rec = do(t, h, http.MethodGet, "/operations?account_id=nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRateLimitedByHost(t *testing.T) {
	h := newTestHandler(t, WithRateLimiter(NewRateLimiter(1, 1, time.Minute)))
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	get := func(remoteAddr string, caller common.Address) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/token", nil)
		req.RemoteAddr = remoteAddr
		req.Header.Set(HeaderCaller, caller.Hex())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, get("10.0.0.1:1000", alice).Code)

	// A new X-Caller or source port from the same host shares the bucket.
	for i := 0; i < 20; i++ {
		caller := common.BigToAddress(big.NewInt(int64(i + 100)))
		rec := get("10.0.0.1:"+strconv.Itoa(2000+i), caller)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
	rec := get("10.0.0.1:3000", bob)
	assert.Equal(t, CodeRateLimited, decodeBody[ErrorResponse](t, rec).Code)

	assert.Equal(t, http.StatusOK, get("10.0.0.2:1000", alice).Code)
}

func TestHugeAmountIsRejectedWithoutExpansion(t *testing.T) {
	h := newTestHandler(t)

	for _, path := range []string{"/transfer", "/mint"} {
		rec := do(t, h, http.MethodPost, path, &deployer, `{"to":"`+alice.Hex()+`","amount":"1e20000000"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, path)
		assert.Equal(t, string(ledger.KindInvalidAmount), decodeBody[ErrorResponse](t, rec).Code)
		assert.Less(t, rec.Body.Len(), 1024)
	}

	rec := do(t, h, http.MethodPost, "/approve", &deployer, `{"spender":"`+alice.Hex()+`","amount":"1e20000000"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Less(t, rec.Body.Len(), 1024)

	rec = do(t, h, http.MethodPost, "/approve", &deployer, `{"spender":"`+alice.Hex()+`","amount":"`+ledger.MaxAmount.String()+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/allowance/increase", &deployer, `{"spender":"`+alice.Hex()+`","amount":"1"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(ledger.KindInvalidAmount), decodeBody[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/operations", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[OperationsResponse](t, rec).Operations, 1)
}

func TestOversizedBody(t *testing.T) {
	h := newTestHandler(t)
	digits := strings.Repeat("1", maxBodyBytes)

	rec := do(t, h, http.MethodPost, "/transfer", &deployer, `{"to":"`+alice.Hex()+`","amount":"`+digits+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeTooLarge, decodeBody[ErrorResponse](t, rec).Code)
}

func TestMetricsRouteIsOptional(t *testing.T) {
	h := newTestHandler(t)
	rec := do(t, h, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	h = newTestHandler(t, WithMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})))
	rec = do(t, h, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
