package model

import (
	"time"
)

// Offer 报价表（按token内插入顺序编号，只追加不重排，
// 成交/拍卖结算后整体清空）
type Offer struct {
	ID          uint64    `gorm:"primaryKey;comment:主键"`
	TokenID     uint64    `gorm:"index:idx_offer_token;comment:TokenID" json:"token_id"`
	OfferIdx    int       `gorm:"index:idx_offer_token;comment:token内报价序号（从0开始）" json:"offer_idx"`
	OffererAddr string    `gorm:"comment:报价人地址" json:"offerer_addr"`
	Amount      string    `gorm:"comment:报价金额（wei）" json:"amount"`
	CreatedAt   time.Time `gorm:"comment:报价时间" json:"created_at"`
}

// TableName 表名
func (o *Offer) TableName() string {
	return "estate_offers"
}
