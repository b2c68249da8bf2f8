package handler

import (
	"strconv"

	"estate_trade/model"
	"estate_trade/service"
	"estate_trade/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PropertyHandler 房产token处理器
type PropertyHandler struct {
	tradingService service.TradingService
}

// NewPropertyHandler 创建房产token处理器
func NewPropertyHandler(tradingService service.TradingService) *PropertyHandler {
	return &PropertyHandler{
		tradingService: tradingService,
	}
}

// mintReq 铸造请求体（初始持有关系由登记合约维护，此处不收地址）
type mintReq struct {
	Length   uint64 `json:"length"`
	Width    uint64 `json:"width"`
	X        int64  `json:"x"`
	Y        int64  `json:"y"`
	Category string `json:"category"` // LAND/HOUSE/APARTMENT
}

// Mint 铸造房产token
func (h *PropertyHandler) Mint(c *gin.Context) {
	var req mintReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		respondBadRequest(c, err.Error())
		return
	}
	category, ok := model.ParseCategory(req.Category)
	if !ok {
		respondBadRequest(c, "invalid category, expect LAND/HOUSE/APARTMENT")
		return
	}

	tokenID, err := h.tradingService.Mint(c.Request.Context(), service.MintReq{
		Length:   req.Length,
		Width:    req.Width,
		X:        req.X,
		Y:        req.Y,
		Category: category,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"token_id": tokenID})
}

// GetRecord 查询房产尺寸
func (h *PropertyHandler) GetRecord(c *gin.Context) {
	tokenID, ok := parseTokenID(c)
	if !ok {
		return
	}

	length, width, err := h.tradingService.GetRecord(c.Request.Context(), tokenID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"length": length, "width": width})
}

// TokenURI 查询token元数据URI
func (h *PropertyHandler) TokenURI(c *gin.Context) {
	tokenID, ok := parseTokenID(c)
	if !ok {
		return
	}

	uri, err := h.tradingService.TokenURI(c.Request.Context(), tokenID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"uri": uri})
}

// parseTokenID 解析token_id查询参数
func parseTokenID(c *gin.Context) (uint64, bool) {
	tokenID, err := strconv.ParseUint(c.Query("token_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid token_id")
		return 0, false
	}
	return tokenID, true
}
