package service

import "errors"

// 交易核心错误类型：所有错误都表示整笔操作原子失败，
// 不存在部分生效，重试与否由调用方决定
var (
	// ErrNoSuchToken token不存在
	ErrNoSuchToken = errors.New("no such token")
	// ErrInvalidCounterparty 请求对手方非法（指定自己为买家、持有人自己出价等）
	ErrInvalidCounterparty = errors.New("invalid counterparty")
	// ErrAlreadyTrading 请求的交易模式与当前挂牌/指定买家/拍卖冲突
	ErrAlreadyTrading = errors.New("token already in another trading mode")
	// ErrInsufficientPayment 附带付款低于要求金额
	ErrInsufficientPayment = errors.New("insufficient payment")
	// ErrPrepaymentTooLow 预付款低于出价的1%下限
	ErrPrepaymentTooLow = errors.New("prepayment below required floor")
	// ErrBidTooLow 出价未超过当前最高价
	ErrBidTooLow = errors.New("bid not higher than current highest bid")
	// ErrNoOpenAuction 当前没有进行中的拍卖
	ErrNoOpenAuction = errors.New("no open auction")
	// ErrNotPending 拍卖未处于待结算状态
	ErrNotPending = errors.New("auction not pending settlement")
	// ErrNotAuctionWinner 调用方不是当前最高出价人
	ErrNotAuctionWinner = errors.New("caller is not the auction winner")
	// ErrGracePeriodActive 宽限期未过
	ErrGracePeriodActive = errors.New("grace period still active")
	// ErrNotOnSale 当前没有进行中的出售
	ErrNotOnSale = errors.New("token not on sale")
	// ErrNoSuchOffer 报价不存在或序号越界
	ErrNoSuchOffer = errors.New("no such offer")
	// ErrNotAuthorized 权限校验失败（非持有人/被授权人）
	ErrNotAuthorized = errors.New("caller not authorized")
)
