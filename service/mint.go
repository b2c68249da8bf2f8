package service

import (
	"context"

	"estate_trade/dao"
	"estate_trade/model"
	"estate_trade/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mint 铸造房产token：创建不可变房产记录与全默认交易状态，
// TokenID顺序分配。初始持有关系由外部登记合约维护，本服务不经手。
// 当前对任意调用方开放（演示形态），生产部署应收紧
func (s *tradingService) Mint(ctx context.Context, req MintReq) (uint64, error) {
	record := &model.PropertyRecord{
		Length:   req.Length,
		Width:    req.Width,
		X:        req.X,
		Y:        req.Y,
		Category: req.Category,
	}

	// 事务：创建房产记录 + 交易状态
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			return err
		}
		return tx.Create(model.NewTradingState(record.TokenID)).Error
	})
	if err != nil {
		utils.Logger.Error("铸造失败", zap.Error(err))
		return 0, err
	}

	utils.Logger.Info("铸造成功",
		zap.Uint64("token_id", record.TokenID),
		zap.String("category", record.Category.String()))
	return record.TokenID, nil
}

// GetRecord 查询房产尺寸（长、宽）
func (s *tradingService) GetRecord(ctx context.Context, tokenID uint64) (uint64, uint64, error) {
	record, err := s.loadRecord(ctx, tokenID)
	if err != nil {
		return 0, 0, err
	}
	return record.Length, record.Width, nil
}

// TokenURI 生成token元数据URI（记录不可变，结果走Redis缓存）
func (s *tradingService) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	if uri, err := dao.GetCachedTokenURI(ctx, tokenID); err == nil && uri != "" {
		return uri, nil
	}

	record, err := s.loadRecord(ctx, tokenID)
	if err != nil {
		return "", err
	}

	uri := model.TokenURI(record)
	if err := dao.CacheTokenURI(ctx, tokenID, uri); err != nil {
		// 缓存失败不影响读取
		utils.Logger.Warn("缓存元数据URI失败", zap.Uint64("token_id", tokenID), zap.Error(err))
	}
	return uri, nil
}

func (s *tradingService) loadRecord(ctx context.Context, tokenID uint64) (*model.PropertyRecord, error) {
	var record model.PropertyRecord
	if err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&record).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNoSuchToken
		}
		return nil, err
	}
	return &record, nil
}
