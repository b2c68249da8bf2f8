package model

import (
	"time"
)

// PropertyCategory 房产类别
type PropertyCategory int

const (
	CategoryLand      PropertyCategory = 0 // 土地
	CategoryHouse     PropertyCategory = 1 // 独栋房屋
	CategoryApartment PropertyCategory = 2 // 公寓
)

// ParseCategory 解析房产类别字符串（LAND/HOUSE/APARTMENT）
func ParseCategory(s string) (PropertyCategory, bool) {
	switch s {
	case "LAND":
		return CategoryLand, true
	case "HOUSE":
		return CategoryHouse, true
	case "APARTMENT":
		return CategoryApartment, true
	default:
		return 0, false
	}
}

// String 类别名称
func (c PropertyCategory) String() string {
	switch c {
	case CategoryLand:
		return "LAND"
	case CategoryHouse:
		return "HOUSE"
	case CategoryApartment:
		return "APARTMENT"
	default:
		return "UNKNOWN"
	}
}

// PropertyRecord 房产记录表（铸造后不可变，token不可销毁，记录永不删除）
type PropertyRecord struct {
	TokenID   uint64           `gorm:"primaryKey;autoIncrement;comment:TokenID（顺序分配）" json:"token_id"`
	Length    uint64           `gorm:"comment:长度" json:"length"`
	Width     uint64           `gorm:"comment:宽度" json:"width"`
	X         int64            `gorm:"comment:位置坐标X" json:"x"`
	Y         int64            `gorm:"comment:位置坐标Y" json:"y"`
	Category  PropertyCategory `gorm:"comment:类别 0-土地 1-房屋 2-公寓" json:"category"`
	CreatedAt time.Time        `gorm:"comment:铸造时间" json:"created_at"`
}

// TableName 表名
func (p *PropertyRecord) TableName() string {
	return "property_records"
}
