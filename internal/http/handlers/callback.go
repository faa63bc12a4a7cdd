package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maysqunaibi/strollers-backend/internal/modules/rentals"
	"github.com/maysqunaibi/strollers-backend/internal/shared/apperr"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

// ReturnEnqueuer hands verified return events to the reconcile worker.
type ReturnEnqueuer interface {
	Enqueue(task rentals.ReturnTask) bool
}

type CallbackHandler struct {
	Logger     *slog.Logger
	Verifier   *trx.Verifier
	Reconciler ReturnEnqueuer
}

func NewCallbackHandler(logger *slog.Logger, v *trx.Verifier, r ReturnEnqueuer) *CallbackHandler {
	return &CallbackHandler{Logger: logger, Verifier: v, Reconciler: r}
}

type callbackRequest struct {
	MerchantNo   string          `json:"merchantNo"`
	Sign         string          `json:"sign"`
	OriginalData json.RawMessage `json:"originalData"`
}

type callbackData struct {
	CartNo      string `json:"cartNo"`
	CartIndex   *int   `json:"cartIndex"`
	Electricity any    `json:"electricity"`
	DeviceNo    string `json:"deviceNo"`
}

// POST /handcart/callback
// The vendor's return notification. The ledger write is queued and the
// success envelope goes out first: the vendor's response timeout is short
// and a late ack makes it redeliver the callback. Success here therefore
// means "accepted for reconciliation", not "order closed"; observers poll
// order state instead of trusting this response.
func (h *CallbackHandler) HandleReturn(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErr(c, http.StatusBadRequest, apperr.CodeMissingParam, "bad request")
		return
	}
	if req.MerchantNo == "" || req.Sign == "" || len(req.OriginalData) == 0 {
		respondErr(c, http.StatusBadRequest, apperr.CodeMissingParam, "merchantNo, sign and originalData are required")
		return
	}

	// Verification runs over the raw payload tree, exactly as transmitted.
	var payload map[string]any
	if err := json.Unmarshal(req.OriginalData, &payload); err != nil {
		respondErr(c, http.StatusBadRequest, apperr.CodeMissingParam, "originalData is not an object")
		return
	}
	if !h.Verifier.Verify(req.MerchantNo, req.Sign, payload) {
		h.Logger.Warn("callback signature rejected", "merchant_no", req.MerchantNo)
		respondAppErr(c, apperr.SignInvalidErr("invalid sign"))
		return
	}

	var data callbackData
	if err := json.Unmarshal(req.OriginalData, &data); err != nil {
		respondErr(c, http.StatusBadRequest, apperr.CodeMissingParam, "originalData malformed")
		return
	}

	h.Reconciler.Enqueue(rentals.ReturnTask{
		MerchantNo:  req.MerchantNo,
		DeviceNo:    data.DeviceNo,
		CartNo:      data.CartNo,
		CartIndex:   data.CartIndex,
		Electricity: data.Electricity,
	})

	// Exact envelope the vendor contract expects; anything else retriggers
	// its retry loop.
	c.JSON(http.StatusOK, envelope{Code: trx.CodeSuccess, Msg: "success"})
}
