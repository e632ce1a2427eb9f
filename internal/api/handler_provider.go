package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fastprodman/walletledger/internal/models"
	"github.com/fastprodman/walletledger/internal/services/wallet"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxBodyBytes         = 1 << 20
)

// WalletService is the part of the ledger engine the HTTP layer uses.
type WalletService interface {
	CreateHolder(ctx context.Context, name string) (models.User, error)
	Apply(ctx context.Context, op wallet.Operation) (wallet.Result, error)
	GetBalance(ctx context.Context, userID uint64) (models.Account, error)
	History(ctx context.Context, userID uint64, limit int) ([]models.Transaction, error)
	Audit(ctx context.Context, userID uint64) (wallet.AuditReport, error)
}

// HandlerProvider wraps a WalletService and exposes HTTP handlers.
type HandlerProvider struct {
	svc    WalletService
	logger *slog.Logger
}

func NewHandler(svc WalletService, logger *slog.Logger) *HandlerProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &HandlerProvider{svc: svc, logger: logger}
}

// --- Helpers ---

func (h *HandlerProvider) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		// headers are already sent; nothing left to tell the client
		h.logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *HandlerProvider) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps engine errors to HTTP statuses.
func (h *HandlerProvider) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *wallet.InsufficientFundsError

	switch {
	case errors.As(err, &insufficient):
		h.writeJSON(w, http.StatusUnprocessableEntity, insufficientFundsResponse{
			Error:     "insufficient funds",
			Available: insufficient.Available.StringFixed(2),
			Requested: insufficient.Requested.StringFixed(2),
		})
	case errors.Is(err, wallet.ErrUnknownUser):
		h.writeError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, wallet.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "wallet not found")
	case errors.Is(err, wallet.ErrIdempotencyMismatch):
		h.writeError(w, http.StatusConflict, "idempotency key already used for a different request")
	case wallet.IsClientError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case wallet.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		h.writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry later")
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// parseUserIDFromPath reads `{userId}` from chi routes like:
//
//	GET  /users/{userId}/balance
//	POST /users/{userId}/credit
func parseUserIDFromPath(r *http.Request) (uint64, error) {
	idStr := chi.URLParam(r, "userId")
	if idStr == "" {
		return 0, errors.New("missing userId")
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid userId: %w", err)
	}

	if id == 0 {
		return 0, errors.New("invalid userId: must be positive")
	}

	return id, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, errors.New("limit must be a positive integer")
	}

	return limit, nil
}

// decodeBody reads a JSON body of at most maxBodyBytes, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		return fmt.Errorf("decode body: %w", err)
	}

	return nil
}

// --- Responses ---

type errorResponse struct {
	Error string `json:"error"`
}

type insufficientFundsResponse struct {
	Error     string `json:"error"`
	Available string `json:"available"`
	Requested string `json:"requested"`
}

type holderResponse struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type balanceResponse struct {
	UserID   uint64 `json:"userId"`
	WalletID int64  `json:"walletId"`
	Balance  string `json:"balance"`
	Version  int64  `json:"version"`
}

type transactionResponse struct {
	ID           string    `json:"id"`
	UserID       uint64    `json:"userId"`
	WalletID     int64     `json:"walletId"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balanceAfter"`
	Sequence     int64     `json:"sequence"`
	Status       string    `json:"status"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newTransactionResponse(t models.Transaction) transactionResponse {
	return transactionResponse{
		ID:           t.ID,
		UserID:       t.UserID,
		WalletID:     t.AccountID,
		Kind:         string(t.Kind),
		Amount:       t.Amount.StringFixed(2),
		BalanceAfter: t.BalanceAfter.StringFixed(2),
		Sequence:     t.Sequence,
		Status:       string(t.Status),
		Description:  t.Description,
		CreatedAt:    t.CreatedAt.UTC(),
	}
}

type historyResponse struct {
	UserID       uint64                `json:"userId"`
	Transactions []transactionResponse `json:"transactions"`
}

type auditResponse struct {
	UserID          uint64 `json:"userId"`
	WalletID        int64  `json:"walletId"`
	Version         int64  `json:"version"`
	StoredBalance   string `json:"storedBalance"`
	ReplayedBalance string `json:"replayedBalance"`
	Transactions    int    `json:"transactions"`
	FirstMismatch   int64  `json:"firstMismatch,omitempty"`
	Consistent      bool   `json:"consistent"`
}
