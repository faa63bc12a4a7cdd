package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maysqunaibi/strollers-backend/internal/modules/rentals"
	"github.com/maysqunaibi/strollers-backend/internal/shared/apperr"
)

// OrdersHandler is the operator surface over the ledger: open/recent rentals
// plus the manual overrides for hardware that never phoned home.
type OrdersHandler struct {
	Logger *slog.Logger
	Ledger *rentals.Ledger
}

func NewOrdersHandler(logger *slog.Logger, ledger *rentals.Ledger) *OrdersHandler {
	return &OrdersHandler{Logger: logger, Ledger: ledger}
}

// GET /api/orders/open
func (h *OrdersHandler) Open(c *gin.Context) {
	orders, err := h.Ledger.OpenOrders(c.Request.Context())
	if err != nil {
		respondAppErr(c, apperr.Wrap(err))
		return
	}
	respondOK(c, orders)
}

// GET /api/orders/recent?limit=50
func (h *OrdersHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	orders, err := h.Ledger.RecentOrders(c.Request.Context(), limit)
	if err != nil {
		respondAppErr(c, apperr.Wrap(err))
		return
	}
	respondOK(c, orders)
}

// GET /api/orders/:id
func (h *OrdersHandler) Get(c *gin.Context) {
	order, err := h.Ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLedgerErr(c, err)
		return
	}
	respondOK(c, order)
}

type manualReturnRequest struct {
	Note string `json:"note"`
}

// POST /api/orders/:id/return
func (h *OrdersHandler) MarkReturned(c *gin.Context) {
	var req manualReturnRequest
	_ = c.ShouldBindJSON(&req)

	order, err := h.Ledger.MarkReturnedManually(c.Request.Context(), c.Param("id"), req.Note)
	if err != nil {
		h.respondLedgerErr(c, err)
		return
	}
	h.Logger.Info("order manually returned", "order_id", order.ID)
	respondOK(c, order)
}

// POST /api/orders/:id/cancel
func (h *OrdersHandler) Cancel(c *gin.Context) {
	order, err := h.Ledger.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondLedgerErr(c, err)
		return
	}
	h.Logger.Info("order canceled", "order_id", order.ID)
	respondOK(c, order)
}

func (h *OrdersHandler) respondLedgerErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, rentals.ErrOrderNotFound):
		respondAppErr(c, apperr.NotFoundErr("order not found"))
	case errors.Is(err, rentals.ErrNotCancellable):
		respondAppErr(c, apperr.ConflictErr("only pending_payment orders can be canceled"))
	case errors.Is(err, rentals.ErrAlreadyClosed):
		respondAppErr(c, apperr.ConflictErr("order already closed"))
	default:
		respondAppErr(c, apperr.Wrap(err))
	}
}
