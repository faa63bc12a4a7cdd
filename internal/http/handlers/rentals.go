package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maysqunaibi/strollers-backend/internal/modules/payments"
	"github.com/maysqunaibi/strollers-backend/internal/modules/rentals"
	"github.com/maysqunaibi/strollers-backend/internal/shared/apperr"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

type RentalHandler struct {
	Logger *slog.Logger
	Svc    *rentals.Service
}

func NewRentalHandler(logger *slog.Logger, svc *rentals.Service) *RentalHandler {
	return &RentalHandler{Logger: logger, Svc: svc}
}

type confirmUnlockRequest struct {
	PaymentID     string `json:"paymentId" binding:"required"`
	DeviceNo      string `json:"deviceNo" binding:"required"`
	CartNo        string `json:"cartNo" binding:"required"`
	CartIndex     *int   `json:"cartIndex" binding:"required"`
	SiteNo        string `json:"siteNo"`
	AmountHalalas int    `json:"amountHalalas" binding:"required,gt=0"`
}

// POST /api/handcart/confirm-unlock
// Confirms the payment against the gateway, opens (or reuses) the rental
// order and fires the signed vendor unlock.
func (h *RentalHandler) ConfirmUnlock(c *gin.Context) {
	var req confirmUnlockRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.Svc.ConfirmAndUnlock(c.Request.Context(), rentals.UnlockInput{
		PaymentID:     req.PaymentID,
		DeviceNo:      req.DeviceNo,
		CartNo:        req.CartNo,
		CartIndex:     *req.CartIndex,
		SiteNo:        req.SiteNo,
		AmountHalalas: req.AmountHalalas,
	})
	if err != nil {
		var ie *payments.InvalidError
		if errors.As(err, &ie) {
			respondAppErr(c, apperr.PayInvalidErr(ie.Error()))
			return
		}
		var re *trx.RemoteError
		if errors.As(err, &re) {
			// Hand the vendor's own error body back so callers can read its code.
			c.Data(http.StatusBadGateway, "application/json", re.Body)
			return
		}
		h.Logger.Error("confirm-unlock failed", "payment_id", req.PaymentID, "err", err)
		respondErr(c, http.StatusBadGateway, apperr.CodeLocalError, "upstream call failed")
		return
	}

	data := gin.H{
		"orderId":        res.Order.ID,
		"order":          res.Order,
		"payment":        res.Payment,
		"vendorResponse": res.VendorResponse,
	}
	if res.VendorResponse.Code != "" && !res.VendorResponse.OK() {
		// The unlock was rejected by the vendor: the order is committed in
		// unlock_failed and the vendor's business code passes through.
		c.JSON(http.StatusOK, envelope{Code: res.VendorResponse.Code, Msg: res.VendorResponse.Msg, Data: data})
		return
	}
	respondOK(c, data)
}
