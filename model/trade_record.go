package model

import (
	"time"
)

// 成交类型
const (
	TradeKindSale    = 0 // 直售/指定买家成交
	TradeKindAuction = 1 // 拍卖结算成交
)

// TradeRecord 成交记录表（最终账本，由结算事件消费者落库）
type TradeRecord struct {
	ID         uint64    `gorm:"primaryKey;comment:记录ID"`
	TradeNo    string    `gorm:"uniqueIndex;comment:成交编号" json:"trade_no"`
	TokenID    uint64    `gorm:"index;comment:TokenID" json:"token_id"`
	SellerAddr string    `gorm:"comment:卖方地址" json:"seller_addr"`
	BuyerAddr  string    `gorm:"comment:买方地址" json:"buyer_addr"`
	Price      string    `gorm:"comment:成交金额（wei）" json:"price"`
	Kind       int       `gorm:"comment:0-直售 1-拍卖" json:"kind"`
	TxHash     string    `gorm:"comment:链上过户交易哈希" json:"tx_hash"`
	TradeTime  time.Time `gorm:"comment:成交时间" json:"trade_time"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
}

// TableName 表名
func (r *TradeRecord) TableName() string {
	return "estate_trade_records"
}

// SettlementEvent 结算事件（结算成功后经MQ投递，消费者写入成交记录）
type SettlementEvent struct {
	TradeNo    string    `json:"trade_no"`
	TokenID    uint64    `json:"token_id"`
	SellerAddr string    `json:"seller_addr"`
	BuyerAddr  string    `json:"buyer_addr"`
	Price      string    `json:"price"`
	Kind       int       `json:"kind"`
	TxHash     string    `json:"tx_hash"`
	TradeTime  time.Time `json:"trade_time"`
}
