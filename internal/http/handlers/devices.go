package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/maysqunaibi/strollers-backend/internal/modules/rentals"
	"github.com/maysqunaibi/strollers-backend/internal/shared/apperr"
	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

// DevicesHandler exposes the fleet-management surface: thin signed
// pass-throughs to the vendor API. No local state, the vendor envelope
// is relayed as-is so the dashboard sees exactly what the vendor said.
type DevicesHandler struct {
	Logger     *slog.Logger
	Vendor     rentals.VendorAPI
	MerchantNo string
	DeviceType string
}

func NewDevicesHandler(logger *slog.Logger, vendor rentals.VendorAPI, merchantNo, deviceType string) *DevicesHandler {
	return &DevicesHandler{Logger: logger, Vendor: vendor, MerchantNo: merchantNo, DeviceType: deviceType}
}

// forward signs value, posts it to the vendor and relays the reply. Non-2xx
// vendor bodies go back verbatim; transport failures map to LOCAL_ERROR.
func (h *DevicesHandler) forward(c *gin.Context, path string, value any) {
	resp, err := h.Vendor.Post(c.Request.Context(), path, value)
	if err != nil {
		var re *trx.RemoteError
		if errors.As(err, &re) {
			c.Data(http.StatusBadGateway, "application/json", re.Body)
			return
		}
		h.Logger.Error("vendor request failed", "path", path, "error", err)
		respondErr(c, http.StatusBadGateway, apperr.CodeLocalError, err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/site/:siteNo/slots
func (h *DevicesHandler) SiteSlots(c *gin.Context) {
	h.forward(c, "/trx/interface/device/getSiteLocationNumByMch", map[string]any{
		"merchantNo": h.MerchantNo,
		"siteNo":     c.Param("siteNo"),
	})
}

// GET /api/site/list
func (h *DevicesHandler) SiteList(c *gin.Context) {
	h.forward(c, "/trx/interface/site/getSiteList", map[string]any{
		"merchantNo": h.MerchantNo,
	})
}

type siteAddRequest struct {
	Address  string `json:"address"`
	City     string `json:"city"`
	County   string `json:"county"`
	Province string `json:"province"`
	SiteName string `json:"siteName" binding:"required"`
	SiteType string `json:"siteType" binding:"required"`
}

// POST /api/site/add
func (h *DevicesHandler) SiteAdd(c *gin.Context) {
	var req siteAddRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/site/addSite", map[string]any{
		"address":    req.Address,
		"city":       req.City,
		"county":     req.County,
		"province":   req.Province,
		"siteName":   req.SiteName,
		"siteType":   req.SiteType,
		"merchantNo": h.MerchantNo,
	})
}

type siteUpdateRequest struct {
	SiteNo   string `json:"siteNo" binding:"required"`
	Address  string `json:"address"`
	City     string `json:"city"`
	County   string `json:"county"`
	Province string `json:"province"`
	SiteName string `json:"siteName"`
	SiteType string `json:"siteType"`
}

// POST /api/site/update
func (h *DevicesHandler) SiteUpdate(c *gin.Context) {
	var req siteUpdateRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/site/updateSite", map[string]any{
		"address":    req.Address,
		"city":       req.City,
		"county":     req.County,
		"province":   req.Province,
		"siteName":   req.SiteName,
		"siteType":   req.SiteType,
		"siteNo":     req.SiteNo,
		"merchantNo": h.MerchantNo,
	})
}

type siteRemoveRequest struct {
	SiteNo string `json:"siteNo" binding:"required"`
}

// POST /api/site/remove
func (h *DevicesHandler) SiteRemove(c *gin.Context) {
	var req siteRemoveRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/site/removeSite", map[string]any{
		"merchantNo": h.MerchantNo,
		"siteNo":     req.SiteNo,
	})
}

// GET /api/site/:siteNo/meals
func (h *DevicesHandler) SiteMeals(c *gin.Context) {
	h.forward(c, "/trx/interface/setMeal/query", map[string]any{
		"deviceType":    h.DeviceType,
		"merchantNo":    h.MerchantNo,
		"siteNo":        c.Param("siteNo"),
		"siteOrderType": "LAUNCH",
		"type":          "SITE",
	})
}

// GET /api/site/:siteNo/default-meals
func (h *DevicesHandler) SiteDefaultMeals(c *gin.Context) {
	h.forward(c, "/trx/interface/setMeal/defaultMeal", map[string]any{
		"deviceType":    h.DeviceType,
		"merchantNo":    h.MerchantNo,
		"siteNo":        c.Param("siteNo"),
		"siteOrderType": "LAUNCH",
		"type":          "SITE",
	})
}

type setMealInput struct {
	Amount      float64 `json:"amount"`
	Coin        int     `json:"coin"`
	SetMealName string  `json:"setMealName"`
	Status      string  `json:"status"`
}

type setMealSaveRequest struct {
	SiteNo        string         `json:"siteNo" binding:"required"`
	SetMeals      []setMealInput `json:"setMeals"`
	SiteOrderType string         `json:"siteOrderType"`
	Type          string         `json:"type"`
}

// POST /api/setMeal/save
// The vendor's meal-plan save wants every list entry to repeat the merchant
// and device type plus its fixed unit labels; the dashboard only supplies
// amount/coin/name, the rest is filled in here.
func (h *DevicesHandler) SetMealSave(c *gin.Context) {
	var req setMealSaveRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.SiteOrderType == "" {
		req.SiteOrderType = "LAUNCH"
	}
	if req.Type == "" {
		req.Type = "SITE"
	}

	list := make([]map[string]any, 0, len(req.SetMeals))
	for _, m := range req.SetMeals {
		status := m.Status
		if status == "" {
			status = "ENABLE"
		}
		list = append(list, map[string]any{
			"amount":              m.Amount,
			"amountType":          "decimal",
			"amountUnit":          "元",
			"coin":                m.Coin,
			"coinUnit":            "币",
			"deviceType":          h.DeviceType,
			"merchantNo":          h.MerchantNo,
			"orders":              strconv.Itoa(m.Coin),
			"setMealName":         m.SetMealName,
			"siteNo":              req.SiteNo,
			"siteOrderType":       req.SiteOrderType,
			"status":              status,
			"type":                req.Type,
			"whetherRecommend":    0,
			"whetherRecommendExt": 0,
		})
	}

	h.forward(c, "/trx/interface/setMeal/save", map[string]any{
		"deviceType":    h.DeviceType,
		"merchantNo":    h.MerchantNo,
		"setMealList":   list,
		"siteNo":        req.SiteNo,
		"siteNoList":    []string{req.SiteNo},
		"siteOrderType": req.SiteOrderType,
		"type":          req.Type,
	})
}

// GET /api/device/:deviceNo/info
func (h *DevicesHandler) DeviceInfo(c *gin.Context) {
	h.forward(c, "/trx/interface/device/deviceInfo", map[string]any{
		"deviceNo":   c.Param("deviceNo"),
		"merchantNo": h.MerchantNo,
	})
}

type deviceStatusRequest struct {
	DeviceNo string `json:"deviceNo" binding:"required"`
}

// POST /api/device-status
func (h *DevicesHandler) DeviceStatus(c *gin.Context) {
	var req deviceStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/device/getDeviceInfo", map[string]any{
		"deviceNo":   req.DeviceNo,
		"merchantNo": h.MerchantNo,
	})
}

// GET /api/device/:deviceNo/params
func (h *DevicesHandler) DeviceParams(c *gin.Context) {
	h.forward(c, "/trx/interface/device/getDeviceParamList", map[string]any{
		"deviceNo":   c.Param("deviceNo"),
		"merchantNo": h.MerchantNo,
	})
}

type deviceScoreRequest struct {
	DeviceNo string `json:"deviceNo" binding:"required"`
	CoinNum  int    `json:"coinNum"`
	Amount   int    `json:"amount"`
}

// POST /api/device/score
func (h *DevicesHandler) DeviceScore(c *gin.Context) {
	var req deviceScoreRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/device/score", map[string]any{
		"deviceNo":   req.DeviceNo,
		"merchantNo": h.MerchantNo,
		"coinNum":    req.CoinNum,
		"amount":     req.Amount,
	})
}

type bindRequest struct {
	DeviceNo     string `json:"deviceNo" binding:"required"`
	SiteNo       string `json:"siteNo" binding:"required"`
	Orders       string `json:"orders"`
	CoinsPerTime int    `json:"coinsPerTime"`
}

// POST /api/bind
func (h *DevicesHandler) Bind(c *gin.Context) {
	var req bindRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/device/bind", map[string]any{
		"coinsPerTime": req.CoinsPerTime,
		"deviceNo":     req.DeviceNo,
		"deviceType":   h.DeviceType,
		"merchantNo":   h.MerchantNo,
		"orders":       req.Orders,
		"siteNo":       req.SiteNo,
	})
}

type unbindRequest struct {
	DeviceNo string `json:"deviceNo" binding:"required"`
}

// POST /api/unbind
func (h *DevicesHandler) Unbind(c *gin.Context) {
	var req unbindRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/device/unbind", map[string]any{
		"deviceNo":   req.DeviceNo,
		"merchantNo": h.MerchantNo,
	})
}

type handcartListRequest struct {
	DeviceNo string `json:"deviceNo" binding:"required"`
}

// POST /api/handcart/list
func (h *DevicesHandler) HandcartList(c *gin.Context) {
	var req handcartListRequest
	if !bindJSON(c, &req) {
		return
	}
	h.forward(c, "/trx/interface/handCart/getCartList", map[string]any{
		"merchantNo": h.MerchantNo,
		"deviceNo":   req.DeviceNo,
	})
}

type handcartBindRequest struct {
	// Accepts a single IC number or a list; normalized to a list before
	// forwarding.
	CartNo any `json:"cartNo" binding:"required"`
}

func (r handcartBindRequest) cartNos() []string {
	switch v := r.CartNo.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// POST /api/handcart/bind
func (h *DevicesHandler) HandcartBind(c *gin.Context) {
	var req handcartBindRequest
	if !bindJSON(c, &req) {
		return
	}
	list := req.cartNos()
	if len(list) == 0 {
		respondErr(c, http.StatusBadRequest, apperr.CodeMissingParam, "cartNo is required")
		return
	}
	h.forward(c, "/trx/interface/handCart/bind", map[string]any{
		"merchantNo": h.MerchantNo,
		"cartNo":     list,
	})
}

// POST /api/handcart/unbind
func (h *DevicesHandler) HandcartUnbind(c *gin.Context) {
	var req handcartBindRequest
	if !bindJSON(c, &req) {
		return
	}
	list := req.cartNos()
	if len(list) == 0 {
		respondErr(c, http.StatusBadRequest, apperr.CodeMissingParam, "cartNo is required")
		return
	}
	h.forward(c, "/trx/interface/handCart/unbind", map[string]any{
		"merchantNo": h.MerchantNo,
		"cartNo":     list,
	})
}
