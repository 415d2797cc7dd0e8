package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/token-ledger/internal/models"
)

// Amounts are base units. They may be sent as JSON strings or numbers.
type TransferRequest struct {
	To     string           `json:"to"`
	Amount *decimal.Decimal `json:"amount"`
}

type AllowanceRequest struct {
	Spender string           `json:"spender"`
	Amount  *decimal.Decimal `json:"amount"`
}

type TransferFromRequest struct {
	Owner  string           `json:"owner"`
	To     string           `json:"to"`
	Amount *decimal.Decimal `json:"amount"`
}

type MintRequest struct {
	To     string           `json:"to"`
	Amount *decimal.Decimal `json:"amount"`
}

type BurnRequest struct {
	From   string           `json:"from"`
	Amount *decimal.Decimal `json:"amount"`
}

// maxBodyBytes bounds mutation request bodies.
const maxBodyBytes = 64 << 10

// operationHandler turns a request with a known caller into an operation.
type operationHandler func(r *http.Request, caller common.Address) (models.Operation, error)

func (h *Handler) serveOperation(w http.ResponseWriter, r *http.Request, build operationHandler) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	op, err := build(r, caller)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	res, err := h.svc.Execute(r.Context(), op, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, func(r *http.Request, caller common.Address) (models.Operation, error) {
		var req TransferRequest
		if err := decode(r, &req); err != nil {
			return models.Operation{}, err
		}
		to, err := requireAddress("to", req.To)
		if err != nil {
			return models.Operation{}, err
		}
		amount, err := requireAmount(req.Amount)
		if err != nil {
			return models.Operation{}, err
		}
		return models.NewTransfer(caller, to, amount), nil
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, allowanceOperation(models.NewApprove))
}

func (h *Handler) increaseAllowance(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, allowanceOperation(models.NewIncreaseAllowance))
}

func (h *Handler) decreaseAllowance(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, allowanceOperation(models.NewDecreaseAllowance))
}

func allowanceOperation(newOp func(caller, spender common.Address, amount decimal.Decimal) models.Operation) operationHandler {
	return func(r *http.Request, caller common.Address) (models.Operation, error) {
		var req AllowanceRequest
		if err := decode(r, &req); err != nil {
			return models.Operation{}, err
		}
		spender, err := requireAddress("spender", req.Spender)
		if err != nil {
			return models.Operation{}, err
		}
		amount, err := requireAmount(req.Amount)
		if err != nil {
			return models.Operation{}, err
		}
		return newOp(caller, spender, amount), nil
	}
}

func (h *Handler) transferFrom(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, func(r *http.Request, caller common.Address) (models.Operation, error) {
		var req TransferFromRequest
		if err := decode(r, &req); err != nil {
			return models.Operation{}, err
		}
		owner, err := requireAddress("owner", req.Owner)
		if err != nil {
			return models.Operation{}, err
		}
		to, err := requireAddress("to", req.To)
		if err != nil {
			return models.Operation{}, err
		}
		amount, err := requireAmount(req.Amount)
		if err != nil {
			return models.Operation{}, err
		}
		return models.NewTransferFrom(caller, owner, to, amount), nil
	})
}

func (h *Handler) mint(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, func(r *http.Request, caller common.Address) (models.Operation, error) {
		var req MintRequest
		if err := decode(r, &req); err != nil {
			return models.Operation{}, err
		}
		to, err := requireAddress("to", req.To)
		if err != nil {
			return models.Operation{}, err
		}
		amount, err := requireAmount(req.Amount)
		if err != nil {
			return models.Operation{}, err
		}
		return models.NewMint(caller, to, amount), nil
	})
}

func (h *Handler) burn(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, func(r *http.Request, caller common.Address) (models.Operation, error) {
		var req BurnRequest
		if err := decode(r, &req); err != nil {
			return models.Operation{}, err
		}
		from, err := requireAddress("from", req.From)
		if err != nil {
			return models.Operation{}, err
		}
		amount, err := requireAmount(req.Amount)
		if err != nil {
			return models.Operation{}, err
		}
		return models.NewBurn(caller, from, amount), nil
	})
}

func (h *Handler) finishMinting(w http.ResponseWriter, r *http.Request) {
	h.serveOperation(w, r, func(r *http.Request, caller common.Address) (models.Operation, error) {
		return models.NewFinishMinting(caller), nil
	})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// requireAddress accepts the zero address; the ledger decides whether it is
// allowed for the operation.
func requireAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, fmt.Errorf("%s is required", field)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s %q is not a hex address", field, value)
	}
	return common.HexToAddress(value), nil
}

func requireAmount(amount *decimal.Decimal) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, errors.New("amount is required")
	}
	return *amount, nil
}
