package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/kasirku/backend-pos/internal/common"
	"github.com/kasirku/backend-pos/internal/store"
)

// Handler wires the catalog to HTTP. Reads are open to any cashier, writes
// are mounted behind the admin role in the router.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type productPayload struct {
	Name              string `json:"name" validate:"required,min=1,max=160"`
	Price             int64  `json:"price" validate:"required,gt=0"`
	Image             string `json:"image" validate:"omitempty,url"`
	CategoryID        string `json:"categoryId"`
	Stock             int64  `json:"stock" validate:"gte=0"`
	LowStockThreshold int64  `json:"lowStockThreshold" validate:"gte=0"`
}

type stockAdjustmentPayload struct {
	Delta int64 `json:"delta" validate:"required"`
}

type categoryPayload struct {
	Name string `json:"name" validate:"required,min=1,max=80"`
	Icon string `json:"icon" validate:"omitempty,max=16"`
}

// ListProducts returns products filtered by category and q.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Svc.ListProducts(r.Context(), r.URL.Query().Get("category"), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// GetProduct returns one product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if !h.decode(w, r, &payload) {
		return
	}
	p, err := h.Svc.CreateProduct(r.Context(), store.Product{
		Name:              strings.TrimSpace(payload.Name),
		Price:             payload.Price,
		Image:             payload.Image,
		CategoryID:        payload.CategoryID,
		Stock:             payload.Stock,
		LowStockThreshold: payload.LowStockThreshold,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": p})
}

// UpdateProduct rewrites a product.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if !h.decode(w, r, &payload) {
		return
	}
	p, err := h.Svc.UpdateProduct(r.Context(), store.Product{
		ID:                chi.URLParam(r, "id"),
		Name:              strings.TrimSpace(payload.Name),
		Price:             payload.Price,
		Image:             payload.Image,
		CategoryID:        payload.CategoryID,
		LowStockThreshold: payload.LowStockThreshold,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// AdjustStock restocks or corrects a product's on-hand quantity by a signed
// delta. Deductions past zero are rejected.
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var payload stockAdjustmentPayload
	if !h.decode(w, r, &payload) {
		return
	}
	p, err := h.Svc.AdjustStock(r.Context(), chi.URLParam(r, "id"), payload.Delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}

// DeleteProduct removes a product.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCategories returns categories with product counts.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Svc.ListCategories(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": categories})
}

// CreateCategory adds a category.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.CreateCategory(r.Context(), store.Category{
		Name: strings.TrimSpace(payload.Name),
		Icon: payload.Icon,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// UpdateCategory rewrites a category.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var payload categoryPayload
	if !h.decode(w, r, &payload) {
		return
	}
	c, err := h.Svc.UpdateCategory(r.Context(), store.Category{
		ID:   chi.URLParam(r, "id"),
		Name: strings.TrimSpace(payload.Name),
		Icon: payload.Icon,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}

// DeleteCategory removes a category. Its products fall back to uncategorised.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
	switch {
	case errors.Is(err, store.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "record not found", nil)
	case errors.Is(err, store.ErrConflict):
		common.JSONError(w, http.StatusConflict, "CONFLICT", "record already exists", nil)
	case errors.Is(err, store.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "stock cannot go below zero", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog operation failed", nil)
	}
}
