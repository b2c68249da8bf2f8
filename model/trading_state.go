package model

import (
	"math/big"
	"time"
)

// AuctionState 拍卖状态机状态
type AuctionState int

const (
	AuctionClosed  AuctionState = 0 // 无拍卖
	AuctionPending AuctionState = 1 // 已收拍截止，等待中标人付款
	AuctionOpen    AuctionState = 2 // 拍卖进行中
)

// TradingState 交易状态表（每个token一行，聚合全部交易模式字段，
// 保证互斥检查只落在一条记录上）
type TradingState struct {
	ID               uint64       `gorm:"primaryKey;comment:主键"`
	TokenID          uint64       `gorm:"uniqueIndex;comment:TokenID" json:"token_id"`
	AuctionState     AuctionState `gorm:"comment:拍卖状态 0-关闭 1-待结算 2-进行中" json:"auction_state"`
	IsListed         bool         `gorm:"comment:是否公开挂牌" json:"is_listed"`
	DesignatedBuyer  string       `gorm:"comment:指定买家地址（空表示未指定）" json:"designated_buyer"`
	Price            string       `gorm:"comment:挂牌/指定价格（wei，0表示无交易）" json:"price"`
	HighestBid       string       `gorm:"comment:当前最高出价（wei，拍卖开启时先存起拍价）" json:"highest_bid"`
	LastBidder       string       `gorm:"comment:当前最高出价人地址" json:"last_bidder"`
	PrepaymentAmount string       `gorm:"comment:最高出价人托管的预付款（wei）" json:"prepayment_amount"`
	AuctionCloseTime *time.Time   `gorm:"comment:收拍时间（null表示未收拍）" json:"auction_close_time"`
	LastBidTime      *time.Time   `gorm:"comment:最近出价时间（null表示无出价）" json:"last_bid_time"`
	CreatedAt        time.Time    `gorm:"comment:创建时间"`
	UpdatedAt        time.Time    `gorm:"comment:更新时间"`
}

// TableName 表名
func (t *TradingState) TableName() string {
	return "trading_states"
}

// NewTradingState 构造铸造时的全默认交易状态
func NewTradingState(tokenID uint64) *TradingState {
	return &TradingState{
		TokenID:          tokenID,
		AuctionState:     AuctionClosed,
		Price:            "0",
		HighestBid:       "0",
		PrepaymentAmount: "0",
	}
}

// parseAmount 解析wei字符串，空串/非法值按0处理（字段默认值为"0"）
func parseAmount(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// PriceBig 当前价格
func (t *TradingState) PriceBig() *big.Int {
	return parseAmount(t.Price)
}

// HighestBidBig 当前最高出价
func (t *TradingState) HighestBidBig() *big.Int {
	return parseAmount(t.HighestBid)
}

// PrepaymentBig 当前托管预付款
func (t *TradingState) PrepaymentBig() *big.Int {
	return parseAmount(t.PrepaymentAmount)
}

// ClearSale 清理出售相关字段（挂牌、指定买家、价格一并复位）
func (t *TradingState) ClearSale() {
	t.DesignatedBuyer = ""
	t.Price = "0"
	t.IsListed = false
}

// ClearAuction 清理拍卖相关字段（预付款与出价人同生同灭）
func (t *TradingState) ClearAuction() {
	t.AuctionState = AuctionClosed
	t.HighestBid = "0"
	t.LastBidder = ""
	t.PrepaymentAmount = "0"
	t.AuctionCloseTime = nil
	t.LastBidTime = nil
}
