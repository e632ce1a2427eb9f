package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/services/wallet"
)

type createHolderRequest struct {
	Name string `json:"name"`
}

// mutationRequest accepts the amount as a JSON string or number.
type mutationRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description string           `json:"description"`
}

// CreateHolderHandler handles POST /users
func (h *HandlerProvider) CreateHolderHandler(w http.ResponseWriter, r *http.Request) {
	var req createHolderRequest

	err := decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	u, err := h.svc.CreateHolder(r.Context(), req.Name)
	if err != nil {
		h.writeServiceError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusCreated, holderResponse{ID: u.ID, Name: u.Name, CreatedAt: u.CreatedAt.UTC()})
}

// CreditHandler handles POST /users/{userId}/credit
func (h *HandlerProvider) CreditHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, models.KindCredit)
}

// DebitHandler handles POST /users/{userId}/debit
func (h *HandlerProvider) DebitHandler(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, models.KindDebit)
}

func (h *HandlerProvider) mutate(w http.ResponseWriter, r *http.Request, kind models.Kind) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid userId in path")

		return
	}

	var req mutationRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	if req.Amount == nil {
		h.writeError(w, http.StatusBadRequest, "amount required")

		return
	}

	res, err := h.svc.Apply(r.Context(), wallet.Operation{
		UserID:           userID,
		Kind:             kind,
		Amount:           *req.Amount,
		Description:      req.Description,
		IdempotencyToken: r.Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		h.writeServiceError(w, r, err)

		return
	}

	if res.Replayed {
		w.Header().Set(headerReplayed, "true")
	}

	h.writeJSON(w, http.StatusOK, newTransactionResponse(res.Transaction))
}

// GetBalanceHandler handles GET /users/{userId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid userId in path")

		return
	}

	acc, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, balanceResponse{
		UserID:   acc.UserID,
		WalletID: acc.ID,
		Balance:  acc.Balance.StringFixed(2),
		Version:  acc.Version,
	})
}

// HistoryHandler handles GET /users/{userId}/transactions?limit=N
func (h *HandlerProvider) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid userId in path")

		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())

		return
	}

	list, err := h.svc.History(r.Context(), userID, limit)
	if err != nil {
		h.writeServiceError(w, r, err)

		return
	}

	resp := historyResponse{UserID: userID, Transactions: make([]transactionResponse, 0, len(list))}
	for _, t := range list {
		resp.Transactions = append(resp.Transactions, newTransactionResponse(t))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// AuditHandler handles GET /users/{userId}/audit
func (h *HandlerProvider) AuditHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserIDFromPath(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid userId in path")

		return
	}

	report, err := h.svc.Audit(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)

		return
	}

	h.writeJSON(w, http.StatusOK, auditResponse{
		UserID:          report.UserID,
		WalletID:        report.AccountID,
		Version:         report.Version,
		StoredBalance:   report.StoredBalance.StringFixed(2),
		ReplayedBalance: report.ReplayedBalance.StringFixed(2),
		Transactions:    report.Transactions,
		FirstMismatch:   report.FirstMismatch,
		Consistent:      report.Consistent,
	})
}
