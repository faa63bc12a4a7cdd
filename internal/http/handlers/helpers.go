package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maysqunaibi/strollers-backend/internal/http/validation"
	"github.com/maysqunaibi/strollers-backend/internal/shared/apperr"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

// Every externally-facing response is a {code,msg} envelope; the vendor-facing
// success code is the literal "00000" its retry logic keys on.

type envelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Code: trx.CodeSuccess, Msg: "success", Data: data})
}

func respondErr(c *gin.Context, status int, code, msg string) {
	c.JSON(status, envelope{Code: code, Msg: msg})
}

func respondAppErr(c *gin.Context, err error) {
	respondErr(c, apperr.HTTPStatus(err), apperr.PublicCode(err), apperr.PublicMessage(err))
}

// bindJSON binds the request body into dst and writes the missing-param
// envelope on failure. Returns false when the request was already answered.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fields := validation.FromBindError(err, dst)
		c.JSON(http.StatusBadRequest, envelope{
			Code: apperr.CodeMissingParam,
			Msg:  "invalid request",
			Data: gin.H{"fields": fields},
		})
		return false
	}
	return true
}
