package service

import (
	"context"
	"fmt"
	"math/big"

	"estate_trade/model"
	"estate_trade/utils"

	"gorm.io/gorm"
)

// OpenAuction 开启英式拍卖（仅持有人本人），起拍价暂存在最高出价字段
func (s *tradingService) OpenAuction(ctx context.Context, caller string, tokenID uint64, startingPrice *big.Int) error {
	startingPrice = amountOrZero(startingPrice)
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			exists, err := s.recordExists(tx, tokenID)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNoSuchToken
			}
			if err := s.requireCustodian(ctx, caller, tokenID); err != nil {
				return err
			}

			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			// 有进行中的出售（挂牌或已指定买家，价格为0也算）或拍卖未关闭时拒绝
			if state.IsListed || state.DesignatedBuyer != "" || state.PriceBig().Sign() != 0 ||
				state.AuctionState != model.AuctionClosed {
				return ErrAlreadyTrading
			}

			state.HighestBid = startingPrice.String()
			state.AuctionState = model.AuctionOpen
			return tx.Save(state).Error
		})
	})
}

// MakeBid 竞价：预付款不低于出价的1/100，出价必须严格高于当前最高价。
// 存在前一位出价人时先退还其预付款，退款未确认成功前不接受新出价
func (s *tradingService) MakeBid(ctx context.Context, caller string, tokenID uint64, bidAmount, payment *big.Int) error {
	bidAmount = amountOrZero(bidAmount)
	payment = amountOrZero(payment)
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}

			custodian, err := s.registry.CustodianOf(ctx, tokenID)
			if err != nil {
				return err
			}
			if sameAddr(caller, custodian) {
				return ErrInvalidCounterparty
			}
			if state.AuctionState != model.AuctionOpen {
				return ErrNoOpenAuction
			}

			floor := new(big.Int).Div(bidAmount, prepaymentDivisor)
			if payment.Cmp(floor) < 0 {
				return ErrPrepaymentTooLow
			}
			if bidAmount.Cmp(state.HighestBidBig()) <= 0 {
				return ErrBidTooLow
			}

			// 先退还上一位出价人的预付款，退款失败则整笔竞价拒绝
			if state.LastBidder != "" {
				if err := s.payer.Send(ctx, state.LastBidder, state.PrepaymentBig()); err != nil {
					return fmt.Errorf("refund outbid bidder: %w", err)
				}
			}

			now := s.nowFn()
			state.LastBidder = caller
			state.PrepaymentAmount = payment.String()
			state.HighestBid = bidAmount.String()
			state.LastBidTime = &now
			return tx.Save(state).Error
		})
	})
}

// CloseAuction 收拍（仅持有人本人）：无人出价直接关闭；有出价人时
// 预付款立即付给持有人作为不可退定金，拍卖转入待结算状态等待中标人付清尾款
func (s *tradingService) CloseAuction(ctx context.Context, caller string, tokenID uint64) error {
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			if err := s.requireCustodian(ctx, caller, tokenID); err != nil {
				return err
			}
			if state.AuctionState != model.AuctionOpen {
				return ErrNoOpenAuction
			}

			// 流拍：恢复默认
			if state.LastBidder == "" {
				state.AuctionState = model.AuctionClosed
				state.HighestBid = "0"
				return tx.Save(state).Error
			}

			// 预付款付给卖方（失败即整笔失败），进入待结算
			if err := s.payer.Send(ctx, caller, state.PrepaymentBig()); err != nil {
				return fmt.Errorf("forward prepayment to seller: %w", err)
			}

			now := s.nowFn()
			state.AuctionState = model.AuctionPending
			state.AuctionCloseTime = &now
			return tx.Save(state).Error
		})
	})
}

// CancelAuction 持有人本人在中标人弃付时解除拍卖，须等待收拍后7天宽限期
func (s *tradingService) CancelAuction(ctx context.Context, caller string, tokenID uint64) error {
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			if err := s.requireCustodian(ctx, caller, tokenID); err != nil {
				return err
			}
			if state.AuctionState != model.AuctionPending {
				return ErrNotPending
			}
			if state.AuctionCloseTime == nil || s.nowFn().Before(state.AuctionCloseTime.Add(GracePeriod)) {
				return ErrGracePeriodActive
			}

			state.ClearAuction()
			return tx.Save(state).Error
		})
	})
}

// CancelBid 出价人在卖方一直不收拍时撤回出价，须等待出价后7天宽限期，
// 预付款全额退还
func (s *tradingService) CancelBid(ctx context.Context, caller string, tokenID uint64) error {
	return s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			if !sameAddr(caller, state.LastBidder) {
				return ErrNotAuctionWinner
			}
			if state.AuctionState != model.AuctionOpen {
				return ErrNoOpenAuction
			}
			if state.LastBidTime == nil || s.nowFn().Before(state.LastBidTime.Add(GracePeriod)) {
				return ErrGracePeriodActive
			}

			if err := s.payer.Send(ctx, caller, state.PrepaymentBig()); err != nil {
				return fmt.Errorf("refund prepayment: %w", err)
			}

			state.ClearAuction()
			return tx.Save(state).Error
		})
	})
}

// SettleAuctionWinner 中标人付清尾款（最高价减去已付预付款）完成结算：
// 尾款付给卖方、过户给中标人、拍卖字段复位、历史报价作废。
// 不强制要求处于待结算状态：只要是当前最高出价人且付款足额即可提前结算
func (s *tradingService) SettleAuctionWinner(ctx context.Context, caller string, tokenID uint64, payment *big.Int) error {
	payment = amountOrZero(payment)
	var evt model.SettlementEvent

	err := s.withTokenLock(ctx, tokenID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state, err := s.loadState(tx, tokenID)
			if err != nil {
				return err
			}
			if !sameAddr(caller, state.LastBidder) {
				return ErrNotAuctionWinner
			}

			due := new(big.Int).Sub(state.HighestBidBig(), state.PrepaymentBig())
			if due.Sign() < 0 {
				due.SetInt64(0)
			}
			if payment.Cmp(due) < 0 {
				return ErrInsufficientPayment
			}

			custodian, err := s.registry.CustodianOf(ctx, tokenID)
			if err != nil {
				return err
			}

			// 1. 尾款推给卖方
			if err := s.payer.Send(ctx, custodian, payment); err != nil {
				return fmt.Errorf("forward payment to custodian: %w", err)
			}

			// 2. 过户给中标人
			txHash, err := s.registry.TransferCustody(ctx, custodian, caller, tokenID)
			if err != nil {
				return err
			}

			// 3. 拍卖字段复位 + 作废全部报价
			finalPrice := state.HighestBid
			state.ClearAuction()
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
				Price:      finalPrice,
				Kind:       model.TradeKindAuction,
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
