package customer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/store"
)

// Handler wires customer records and ledger operations to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type customerPayload struct {
	Name  string `json:"name" validate:"required,min=1,max=120"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,min=6,max=20"`
}

// List returns customers matching the q query parameter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	customers, total, err := h.Svc.List(r.Context(), r.URL.Query().Get("q"), int32(perPage), int32((page-1)*perPage))
	if err != nil {
		h.writeError(w, err)
		return
	}
	items := make([]map[string]any, 0, len(customers))
	for _, c := range customers {
		items = append(items, customerResponse(c))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{"data": items, "total": total})
}

// Get returns one customer with ledger balances and loyalty level.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customerResponse(c)})
}

// Create registers a new customer.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.Create(r.Context(), store.Customer{
		Name:  strings.TrimSpace(payload.Name),
		Email: strings.TrimSpace(payload.Email),
		Phone: strings.TrimSpace(payload.Phone),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": customerResponse(c)})
}

// Update rewrites contact details.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var payload customerPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.Update(r.Context(), store.Customer{
		ID:    chi.URLParam(r, "id"),
		Name:  strings.TrimSpace(payload.Name),
		Email: strings.TrimSpace(payload.Email),
		Phone: strings.TrimSpace(payload.Phone),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": customerResponse(c)})
}

// RedeemPoints deducts loyalty points outside a sale.
func (h *Handler) RedeemPoints(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Points int64 `json:"points" validate:"required,gt=0"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	after, err := h.Svc.RedeemPoints(r.Context(), chi.URLParam(r, "id"), payload.Points)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"customerId":      after.CustomerID,
		"loyaltyPoints":   after.LoyaltyPoints,
		"outstandingDebt": after.OutstandingDebt,
		"level":           Level(after.LoyaltyPoints),
	}})
}

// PayDebt collects cash against outstanding debt and returns the recorded
// DEBT_PAYMENT transaction.
func (h *Handler) PayDebt(w http.ResponseWriter, r *http.Request) {
	cashierID, _ := common.UserID(r.Context())
	var payload struct {
		Amount int64 `json:"amount" validate:"required,gt=0"`
	}
	if !h.decode(w, r, &payload) {
		return
	}
	txn, err := h.Svc.PayDebt(r.Context(), chi.URLParam(r, "id"), cashierID, payload.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": txn})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "customer not found", nil)
	case errors.Is(err, store.ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "customer already exists", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "customer operation failed", nil)
	}
}

func customerResponse(c store.Customer) map[string]any {
	return map[string]any{
		"id":              c.ID,
		"name":            c.Name,
		"email":           c.Email,
		"phone":           c.Phone,
		"outstandingDebt": c.OutstandingDebt,
		"loyaltyPoints":   c.LoyaltyPoints,
		"totalSpent":      c.TotalSpent,
		"level":           Level(c.LoyaltyPoints),
		"createdAt":       c.CreatedAt,
		"lastVisit":       c.LastVisit,
	}
}
