package handler

import (
	"estate_trade/service"
	"estate_trade/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuctionHandler 拍卖处理器
type AuctionHandler struct {
	tradingService service.TradingService
}

// NewAuctionHandler 创建拍卖处理器
func NewAuctionHandler(tradingService service.TradingService) *AuctionHandler {
	return &AuctionHandler{
		tradingService: tradingService,
	}
}

// auctionReq 拍卖类请求体（金额均为wei字符串）
type auctionReq struct {
	CallerAddr    string `json:"caller_addr"`
	TokenID       uint64 `json:"token_id"`
	StartingPrice string `json:"starting_price,omitempty"`
	BidAmount     string `json:"bid_amount,omitempty"`
	Payment       string `json:"payment,omitempty"`
}

// bindAuctionReq 绑定并校验拍卖类请求
func bindAuctionReq(c *gin.Context) (*auctionReq, bool) {
	var req auctionReq
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

// Open 开启拍卖
func (h *AuctionHandler) Open(c *gin.Context) {
	req, ok := bindAuctionReq(c)
	if !ok {
		return
	}
	startingPrice, ok := parseWei(req.StartingPrice)
	if !ok {
		respondBadRequest(c, "invalid starting_price")
		return
	}

	if err := h.tradingService.OpenAuction(c.Request.Context(), req.CallerAddr, req.TokenID, startingPrice); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// Bid 竞价
func (h *AuctionHandler) Bid(c *gin.Context) {
	req, ok := bindAuctionReq(c)
	if !ok {
		return
	}
	bidAmount, ok := parseWei(req.BidAmount)
	if !ok {
		respondBadRequest(c, "invalid bid_amount")
		return
	}
	payment, ok := parseWei(req.Payment)
	if !ok {
		respondBadRequest(c, "invalid payment")
		return
	}

	if err := h.tradingService.MakeBid(c.Request.Context(), req.CallerAddr, req.TokenID, bidAmount, payment); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// Close 收拍
func (h *AuctionHandler) Close(c *gin.Context) {
	req, ok := bindAuctionReq(c)
	if !ok {
		return
	}

	if err := h.tradingService.CloseAuction(c.Request.Context(), req.CallerAddr, req.TokenID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// Cancel 卖方解除拍卖（宽限期后）
func (h *AuctionHandler) Cancel(c *gin.Context) {
	req, ok := bindAuctionReq(c)
	if !ok {
		return
	}

	if err := h.tradingService.CancelAuction(c.Request.Context(), req.CallerAddr, req.TokenID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// CancelBid 出价人撤回出价（宽限期后）
func (h *AuctionHandler) CancelBid(c *gin.Context) {
	req, ok := bindAuctionReq(c)
	if !ok {
		return
	}

	if err := h.tradingService.CancelBid(c.Request.Context(), req.CallerAddr, req.TokenID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// Settle 中标人付清尾款结算
func (h *AuctionHandler) Settle(c *gin.Context) {
	req, ok := bindAuctionReq(c)
	if !ok {
		return
	}
	payment, ok := parseWei(req.Payment)
	if !ok {
		respondBadRequest(c, "invalid payment")
		return
	}

	if err := h.tradingService.SettleAuctionWinner(c.Request.Context(), req.CallerAddr, req.TokenID, payment); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"token_id": req.TokenID})
}

// LatestBid 最高出价查询
func (h *AuctionHandler) LatestBid(c *gin.Context) {
	caller, tokenID, ok := bindQueryCaller(c)
	if !ok {
		return
	}

	bid, err := h.tradingService.GetLatestBid(c.Request.Context(), caller, tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"highest_bid": bid.String()})
}

// CloseTime 收拍时间查询
func (h *AuctionHandler) CloseTime(c *gin.Context) {
	caller, tokenID, ok := bindQueryCaller(c)
	if !ok {
		return
	}

	closeTime, err := h.tradingService.GetAuctionCloseTime(c.Request.Context(), caller, tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"close_time": closeTime})
}

// LastBidTime 最近出价时间查询
func (h *AuctionHandler) LastBidTime(c *gin.Context) {
	caller, tokenID, ok := bindQueryCaller(c)
	if !ok {
		return
	}

	bidTime, err := h.tradingService.GetLastBidTime(c.Request.Context(), caller, tokenID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"last_bid_time": bidTime})
}
