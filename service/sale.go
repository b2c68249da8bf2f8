package service

import (
	"context"
	"fmt"
	"math/big"

	"estate_trade/model"
	"estate_trade/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// List 公开挂牌出售
// 互斥：已挂牌、已指定买家或拍卖未关闭时拒绝
func (s *tradingService) List(ctx context.Context, caller string, tokenID uint64, price *big.Int) error {
	price = amountOrZero(price)
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			exists, err := s.recordExists(tx, tokenID)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNoSuchToken
			}
			if err := s.requireApproved(ctx, caller, tokenID); err != nil {
				return err
			}

			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			if state.IsListed || state.DesignatedBuyer != "" || state.AuctionState != model.AuctionClosed {
				return ErrAlreadyTrading
			}

			state.IsListed = true
			state.Price = price.String()
			return tx.Save(state).Error
		})
	})
}

// DesignateBuyer 指定买家出售
func (s *tradingService) DesignateBuyer(ctx context.Context, caller, buyer string, tokenID uint64, price *big.Int) error {
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.designateBuyerTx(ctx, tx, caller, buyer, tokenID, amountOrZero(price))
		})
	})
}

// designateBuyerTx 指定买家的事务内实现（AcceptOffer复用，继承全部前置检查）
func (s *tradingService) designateBuyerTx(ctx context.Context, tx *gorm.DB, caller, buyer string, tokenID uint64, price *big.Int) error {
	exists, err := s.recordExists(tx, tokenID)
	if err != nil {
		return err
	}
	// token不存在与指定自己为买家同属非法对手方请求
	if !exists || sameAddr(buyer, caller) {
		return ErrInvalidCounterparty
	}
	if err := s.requireApproved(ctx, caller, tokenID); err != nil {
		return err
	}

	state, err := s.loadState(tx, tokenID)
	if err != nil {
		return err
	}
	if state.DesignatedBuyer != "" || state.IsListed || state.AuctionState != model.AuctionClosed {
		return ErrAlreadyTrading
	}

	state.DesignatedBuyer = buyer
	state.Price = price.String()
	return tx.Save(state).Error
}

// CancelSaleOrUnlist 取消出售/下架（挂牌、指定买家、价格一并清理）
func (s *tradingService) CancelSaleOrUnlist(ctx context.Context, caller string, tokenID uint64) error {
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			if err := s.requireApproved(ctx, caller, tokenID); err != nil {
				return err
			}
			if state.PriceBig().Sign() == 0 {
				return ErrNotOnSale
			}

			state.ClearSale()
			return tx.Save(state).Error
		})
	})
}

// Settle 出售结算：付款转给当前持有人、过户给买家、
// 清理出售状态并作废全部历史报价，任一环节失败整笔回滚
func (s *tradingService) Settle(ctx context.Context, caller string, tokenID uint64, payment *big.Int) error {
	payment = amountOrZero(payment)
	var evt model.SettlementEvent

	err := s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			if state.PriceBig().Sign() == 0 {
				return ErrNotOnSale
			}
			// 仅指定买家本人，或任何人购买公开挂牌
			if !sameAddr(caller, state.DesignatedBuyer) && !state.IsListed {
				return ErrNotAuthorized
			}
			if payment.Cmp(state.PriceBig()) < 0 {
				return ErrInsufficientPayment
			}

			custodian, err := s.registry.CustodianOf(ctx, tokenID)
			if err != nil {
				return err
			}

			// 1. 付款推给当前持有人（失败即整笔失败）
			if err := s.payer.Send(ctx, custodian, payment); err != nil {
				return fmt.Errorf("forward payment to custodian: %w", err)
			}

			// 2. 过户给买家
			txHash, err := s.registry.TransferCustody(ctx, custodian, caller, tokenID)
			if err != nil {
				return err
			}

			// 3. 清理出售状态 + 作废全部报价
			price := state.Price
			state.ClearSale()
			if err := tx.Save(state).Error; err != nil {
				return err
			}
			if err := s.clearOffers(tx, tokenID); err != nil {
				return err
			}

			evt = model.SettlementEvent{
				TradeNo:    utils.GenerateTradeNo(),
				TokenID:    tokenID,
				SellerAddr: custodian,
				BuyerAddr:  caller,
				Price:      price,
				Kind:       model.TradeKindSale,
				TxHash:     txHash,
				TradeTime:  s.nowFn(),
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	s.emitSettlement(ctx, evt)
	return nil
}

// MakeOffer 提交报价（非持有人，追加到token的报价序列尾部）
func (s *tradingService) MakeOffer(ctx context.Context, caller string, tokenID uint64, amount *big.Int) error {
	amount = amountOrZero(amount)
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			exists, err := s.recordExists(tx, tokenID)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNoSuchToken
			}

			custodian, err := s.registry.CustodianOf(ctx, tokenID)
			if err != nil {
				return err
			}
			if sameAddr(caller, custodian) {
				return ErrInvalidCounterparty
			}

			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			// 拍卖已有出价或token已挂牌时不接受场外报价
			if state.HighestBidBig().Sign() != 0 || state.IsListed {
				return ErrAlreadyTrading
			}

			var count int64
			if err := tx.Model(&model.Offer{}).Where("token_id = ?", tokenID).Count(&count).Error; err != nil {
				return err
			}
			return tx.Create(&model.Offer{
				TokenID:     tokenID,
				OfferIdx:    int(count),
				OffererAddr: caller,
				Amount:      amount.String(),
			}).Error
		})
	})
}

// AcceptOffer 接受指定序号的报价：转发到指定买家流程，
// 其全部前置检查（含与挂牌/拍卖的互斥）原样生效
func (s *tradingService) AcceptOffer(ctx context.Context, caller string, tokenID uint64, index int) error {
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.requireApproved(ctx, caller, tokenID); err != nil {
				return err
			}

			// 序号越界与从未写入同样按报价不存在处理，不允许panic
			var offer model.Offer
			if err := tx.Where("token_id = ? AND offer_idx = ?", tokenID, index).First(&offer).Error; err != nil {
				if err == gorm.ErrRecordNotFound {
					return ErrNoSuchOffer
				}
				return err
			}
			if offer.OffererAddr == "" {
				return ErrNoSuchOffer
			}

			amount, ok := new(big.Int).SetString(offer.Amount, 10)
			if !ok {
				return fmt.Errorf("malformed offer amount: %q", offer.Amount)
			}
			return s.designateBuyerTx(ctx, tx, caller, offer.OffererAddr, tokenID, amount)
		})
	})
}

// emitSettlement 投递结算事件（结算已提交，投递失败只记日志）
func (s *tradingService) emitSettlement(ctx context.Context, evt model.SettlementEvent) {
	if evt.TradeNo == "" {
		return
	}
	if err := s.emitter.PublishSettlement(ctx, evt); err != nil {
		utils.Logger.Error("投递结算事件失败",
			zap.String("trade_no", evt.TradeNo),
			zap.Uint64("token_id", evt.TokenID),
			zap.Error(err))
	}
}
