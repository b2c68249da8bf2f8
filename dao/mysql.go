package dao

import (
	"estate_trade/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// InitMySQL 初始化MySQL连接并迁移表结构
func InitMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	// 自动迁移表（开发环境）
	if err := db.AutoMigrate(
		&model.PropertyRecord{},
		&model.TradingState{},
		&model.Offer{},
		&model.TradeRecord{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
