package handler

import (
	"errors"
	"math/big"
	"net/http"

	"estate_trade/service"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// respondOK 成功响应
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": data,
	})
}

// respondBadRequest 参数错误响应
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code": 400,
		"msg":  msg,
	})
}

// respondError 业务错误响应（按交易核心错误类型映射HTTP状态码）
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNoSuchToken):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotAuthorized),
		errors.Is(err, service.ErrNotAuctionWinner):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCounterparty),
		errors.Is(err, service.ErrInsufficientPayment),
		errors.Is(err, service.ErrPrepaymentTooLow),
		errors.Is(err, service.ErrBidTooLow),
		errors.Is(err, service.ErrNoSuchOffer):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyTrading),
		errors.Is(err, service.ErrNoOpenAuction),
		errors.Is(err, service.ErrNotPending),
		errors.Is(err, service.ErrGracePeriodActive),
		errors.Is(err, service.ErrNotOnSale):
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{
		"code": status,
		"msg":  err.Error(),
	})
}

// parseWei 解析wei金额字符串（空串按0处理，负数/非法值拒绝）
func parseWei(s string) (*big.Int, bool) {
	if s == "" {
		return big.NewInt(0), true
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// validAddr 校验十六进制钱包地址
func validAddr(s string) bool {
	return common.IsHexAddress(s)
}
