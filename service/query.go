package service

import (
	"context"
	"math/big"
	"time"

	"estate_trade/model"
	"estate_trade/utils"

	"go.uber.org/zap"
)

// GetPrice 价格查询：指定买家本人、持有人可见；公开挂牌时任何人可见
func (s *tradingService) GetPrice(ctx context.Context, caller string, tokenID uint64) (*big.Int, error) {
	state, err := s.loadState(s.db.WithContext(ctx), tokenID)
	if err != nil {
		return nil, err
	}
	if !state.IsListed && !sameAddr(caller, state.DesignatedBuyer) {
		custodian, err := s.registry.CustodianOf(ctx, tokenID)
		if err != nil {
			return nil, err
		}
		if !sameAddr(caller, custodian) {
			return nil, ErrNotAuthorized
		}
	}
	return state.PriceBig(), nil
}

// GetDesignatedBuyer 指定买家查询（仅持有人）
func (s *tradingService) GetDesignatedBuyer(ctx context.Context, caller string, tokenID uint64) (string, error) {
	state, err := s.loadState(s.db.WithContext(ctx), tokenID)
	if err != nil {
		return "", err
	}
	if err := s.requireCustodian(ctx, caller, tokenID); err != nil {
		return "", err
	}
	return state.DesignatedBuyer, nil
}

// GetOffers 报价列表查询（仅持有人，按插入顺序返回）
func (s *tradingService) GetOffers(ctx context.Context, caller string, tokenID uint64) ([]model.Offer, error) {
	if _, err := s.loadState(s.db.WithContext(ctx), tokenID); err != nil {
		return nil, err
	}
	if err := s.requireCustodian(ctx, caller, tokenID); err != nil {
		return nil, err
	}

	var offers []model.Offer
	if err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).Order("offer_idx ASC").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// GetLatestBid 最高出价查询（仅持有人）
func (s *tradingService) GetLatestBid(ctx context.Context, caller string, tokenID uint64) (*big.Int, error) {
	state, err := s.loadState(s.db.WithContext(ctx), tokenID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCustodian(ctx, caller, tokenID); err != nil {
		return nil, err
	}
	return state.HighestBidBig(), nil
}

// GetAuctionCloseTime 收拍时间查询（仅持有人）
func (s *tradingService) GetAuctionCloseTime(ctx context.Context, caller string, tokenID uint64) (*time.Time, error) {
	state, err := s.loadState(s.db.WithContext(ctx), tokenID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCustodian(ctx, caller, tokenID); err != nil {
		return nil, err
	}
	return state.AuctionCloseTime, nil
}

// GetLastBidTime 最近出价时间查询（仅当前最高出价人本人）
func (s *tradingService) GetLastBidTime(ctx context.Context, caller string, tokenID uint64) (*time.Time, error) {
	state, err := s.loadState(s.db.WithContext(ctx), tokenID)
	if err != nil {
		return nil, err
	}
	if !sameAddr(caller, state.LastBidder) {
		return nil, ErrNotAuctionWinner
	}
	return state.LastBidTime, nil
}

// requireCustodian 仅持有人本人（不含被授权操作者）
func (s *tradingService) requireCustodian(ctx context.Context, caller string, tokenID uint64) error {
	custodian, err := s.registry.CustodianOf(ctx, tokenID)
	if err != nil {
		return err
	}
	if !sameAddr(caller, custodian) {
		return ErrNotAuthorized
	}
	return nil
}

// GetTradeRecords 查询成交记录（分页）
func (s *tradingService) GetTradeRecords(ctx context.Context, req GetTradeRecordsReq) ([]model.TradeRecord, int64, error) {
	var records []model.TradeRecord
	var total int64

	// 构建查询条件
	query := s.db.WithContext(ctx).Model(&model.TradeRecord{})
	if req.UserAddr != "" {
		query = query.Where("seller_addr = ? OR buyer_addr = ?", req.UserAddr, req.UserAddr)
	}
	if req.TokenID > 0 {
		query = query.Where("token_id = ?", req.TokenID)
	}

	// 统计总数
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 分页查询
	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("trade_time DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// RecordSettlement 落库结算事件（MQ消费者入口，按trade_no幂等）
func (s *tradingService) RecordSettlement(ctx context.Context, evt model.SettlementEvent) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.TradeRecord{}).Where("trade_no = ?", evt.TradeNo).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		// 消息重投，跳过
		return nil
	}

	record := model.TradeRecord{
		TradeNo:    evt.TradeNo,
		TokenID:    evt.TokenID,
		SellerAddr: evt.SellerAddr,
		BuyerAddr:  evt.BuyerAddr,
		Price:      evt.Price,
		Kind:       evt.Kind,
		TxHash:     evt.TxHash,
		TradeTime:  evt.TradeTime,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	utils.Logger.Info("成交记录落库",
		zap.String("trade_no", evt.TradeNo),
		zap.Uint64("token_id", evt.TokenID),
		zap.String("price", evt.Price))
	return nil
}
