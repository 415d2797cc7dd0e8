package httpapi

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/token-ledger/internal/models"
)

type BalanceResponse struct {
	AccountID common.Address  `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type AllowanceResponse struct {
	Owner     common.Address  `json:"owner"`
	Spender   common.Address  `json:"spender"`
	Allowance decimal.Decimal `json:"allowance"`
}

type OperationsResponse struct {
	Operations []models.Operation `json:"operations"`
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Info())
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	account, err := requireAddress("account_id", r.URL.Query().Get("account_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountID: account,
		Balance:   h.svc.BalanceOf(account),
	})
}

func (h *Handler) allowance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	owner, err := requireAddress("owner", q.Get("owner"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	spender, err := requireAddress("spender", q.Get("spender"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AllowanceResponse{
		Owner:     owner,
		Spender:   spender,
		Allowance: h.svc.Allowance(owner, spender),
	})
}

func (h *Handler) operations(w http.ResponseWriter, r *http.Request) {
	var account *common.Address
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		a, err := requireAddress("account_id", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		account = &a
	}

	ops, err := h.svc.History(r.Context(), account)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if ops == nil {
		ops = []models.Operation{}
	}
	writeJSON(w, http.StatusOK, OperationsResponse{Operations: ops})
}
