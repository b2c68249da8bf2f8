package handler

import (
	"strconv"

	"estate_trade/service"
	"estate_trade/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TradeHandler 出售/报价处理器
type TradeHandler struct {
	tradingService service.TradingService
}

// NewTradeHandler 创建出售/报价处理器
func NewTradeHandler(tradingService service.TradingService) *TradeHandler {
	return &TradeHandler{
		tradingService: tradingService,
	}
}

// saleReq 出售类请求体（price/payment为wei字符串）
type saleReq struct {
	CallerAddr string `json:"caller_addr"`
	TokenID    uint64 `json:"token_id"`
	BuyerAddr  string `json:"buyer_addr,omitempty"`
	Price      string `json:"price,omitempty"`
	Payment    string `json:"payment,omitempty"`
	Amount     string `json:"amount,omitempty"`
	OfferIndex *int   `json:"offer_index,omitempty"`
}

// bindSaleReq 绑定并校验出售类请求
func bindSaleReq(c *gin.Context) (*saleReq, bool) {
	var req saleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Error("参数绑定失败", zap.Error(err))
		respondBadRequest(c, err.Error())
		return nil, false
	}
	if !validAddr(req.CallerAddr) {
		respondBadRequest(c, "invalid caller address")
		return nil, false
	}
	return &req, true
}

// List 公开挂牌出售
func (h *TradeHandler) List(c *gin.Context) {
	req, ok := bindSaleReq(c)
	if !ok {
		return
	}
	price, ok := parseWei(req.Price)
	if !ok {
		respondBadRequest(c, "invalid price")
		return
	}

	if err := h.tradingService.List(c.Request.Context(), req.CallerAddr, req.TokenID, price); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// DesignateBuyer 指定买家出售
func (h *TradeHandler) DesignateBuyer(c *gin.Context) {
	req, ok := bindSaleReq(c)
	if !ok {
		return
	}
	if !validAddr(req.BuyerAddr) {
		respondBadRequest(c, "invalid buyer address")
		return
	}
	price, ok := parseWei(req.Price)
	if !ok {
		respondBadRequest(c, "invalid price")
		return
	}

	if err := h.tradingService.DesignateBuyer(c.Request.Context(), req.CallerAddr, req.BuyerAddr, req.TokenID, price); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// CancelSale 取消出售/下架
func (h *TradeHandler) CancelSale(c *gin.Context) {
	req, ok := bindSaleReq(c)
	if !ok {
		return
	}

	if err := h.tradingService.CancelSaleOrUnlist(c.Request.Context(), req.CallerAddr, req.TokenID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// Settle 出售结算（买家付款成交）
func (h *TradeHandler) Settle(c *gin.Context) {
	req, ok := bindSaleReq(c)
	if !ok {
		return
	}
	payment, ok := parseWei(req.Payment)
	if !ok {
		respondBadRequest(c, "invalid payment")
		return
	}

	if err := h.tradingService.Settle(c.Request.Context(), req.CallerAddr, req.TokenID, payment); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// MakeOffer 提交报价
func (h *TradeHandler) MakeOffer(c *gin.Context) {
	req, ok := bindSaleReq(c)
	if !ok {
		return
	}
	amount, ok := parseWei(req.Amount)
	if !ok {
		respondBadRequest(c, "invalid amount")
		return
	}

	if err := h.tradingService.MakeOffer(c.Request.Context(), req.CallerAddr, req.TokenID, amount); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// AcceptOffer 接受报价
func (h *TradeHandler) AcceptOffer(c *gin.Context) {
	req, ok := bindSaleReq(c)
	if !ok {
		return
	}
	if req.OfferIndex == nil {
		respondBadRequest(c, "offer_index required")
		return
	}

	if err := h.tradingService.AcceptOffer(c.Request.Context(), req.CallerAddr, req.TokenID, *req.OfferIndex); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// GetPrice 价格查询
func (h *TradeHandler) GetPrice(c *gin.Context) {
	caller, tokenID, ok := bindQueryCaller(c)
	if !ok {
		return
	}

	price, err := h.tradingService.GetPrice(c.Request.Context(), caller, tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"price": price.String()})
}

// GetBuyer 指定买家查询
func (h *TradeHandler) GetBuyer(c *gin.Context) {
	caller, tokenID, ok := bindQueryCaller(c)
	if !ok {
		return
	}

	buyer, err := h.tradingService.GetDesignatedBuyer(c.Request.Context(), caller, tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"buyer_addr": buyer})
}

// GetOffers 报价列表查询
func (h *TradeHandler) GetOffers(c *gin.Context) {
	caller, tokenID, ok := bindQueryCaller(c)
	if !ok {
		return
	}

	offers, err := h.tradingService.GetOffers(c.Request.Context(), caller, tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"offers": offers})
}

// GetTradeRecords 查询成交记录
func (h *TradeHandler) GetTradeRecords(c *gin.Context) {
	// 解析查询参数
	userAddr := c.Query("user_addr")
	tokenID, _ := strconv.ParseUint(c.Query("token_id"), 10, 64)
	page, _ := strconv.Atoi(c.Query("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if pageSize <= 0 {
		pageSize = 10
	}

	records, total, err := h.tradingService.GetTradeRecords(c.Request.Context(), service.GetTradeRecordsReq{
		UserAddr: userAddr,
		TokenID:  tokenID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// bindQueryCaller 解析受限读操作的caller_addr与token_id
func bindQueryCaller(c *gin.Context) (string, uint64, bool) {
	caller := c.Query("caller_addr")
	if !validAddr(caller) {
		respondBadRequest(c, "invalid caller address")
		return "", 0, false
	}
	tokenID, ok := parseTokenID(c)
	if !ok {
		return "", 0, false
	}
	return caller, tokenID, true
}
