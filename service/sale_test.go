package service

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"estate_trade/model"

	"github.com/stretchr/testify/require"
)

func TestListAndSettle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)

	require.NoError(t, env.svc.List(ctx, addrSeller, tokenID, eth(1)))
	state := env.state(t, tokenID)
	require.True(t, state.IsListed)
	require.Equal(t, eth(1), state.PriceBig())

	// 任何人可购买公开挂牌
	require.NoError(t, env.svc.Settle(ctx, addrBuyer, tokenID, eth(1)))

	// 货款推给卖方，过户给买家，状态复位
	require.Equal(t, eth(1), env.payer.totalSentTo(addrSeller))
	require.Equal(t, addrBuyer, env.reg.custodians[tokenID])
	requireDefaultState(t, env.state(t, tokenID))

	// 结算事件已投递
	require.Len(t, env.emitter.events, 1)
	evt := env.emitter.events[0]
	require.Equal(t, model.TradeKindSale, evt.Kind)
	require.Equal(t, eth(1).String(), evt.Price)
	require.Equal(t, addrSeller, evt.SellerAddr)
	require.Equal(t, addrBuyer, evt.BuyerAddr)
	require.NotEmpty(t, evt.TradeNo)
	require.NotEmpty(t, evt.TxHash)
}

func TestListPreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)

	// token不存在
	require.ErrorIs(t, env.svc.List(ctx, addrSeller, tokenID+100, eth(1)), ErrNoSuchToken)
	// 非持有人/被授权人
	require.ErrorIs(t, env.svc.List(ctx, addrBuyer, tokenID, eth(1)), ErrNotAuthorized)
	// 重复挂牌
	require.NoError(t, env.svc.List(ctx, addrSeller, tokenID, eth(1)))
	require.ErrorIs(t, env.svc.List(ctx, addrSeller, tokenID, eth(2)), ErrAlreadyTrading)
}

func TestListByApprovedOperator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)
	env.reg.operators[fmt.Sprintf("%d:%s", tokenID, addrOperator)] = true

	require.NoError(t, env.svc.List(ctx, addrOperator, tokenID, eth(1)))
	require.True(t, env.state(t, tokenID).IsListed)
}

func TestTradingModeMutualExclusion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 挂牌后：不能指定买家，不能开拍
	listed := env.mint(t, addrSeller)
	require.NoError(t, env.svc.List(ctx, addrSeller, listed, eth(1)))
	require.ErrorIs(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, listed, eth(1)), ErrAlreadyTrading)
	require.ErrorIs(t, env.svc.OpenAuction(ctx, addrSeller, listed, eth(1)), ErrAlreadyTrading)

	// 指定买家后：不能挂牌，不能开拍
	designated := env.mint(t, addrSeller)
	require.NoError(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, designated, eth(1)))
	require.ErrorIs(t, env.svc.List(ctx, addrSeller, designated, eth(1)), ErrAlreadyTrading)
	require.ErrorIs(t, env.svc.OpenAuction(ctx, addrSeller, designated, eth(1)), ErrAlreadyTrading)

	// 开拍后：不能挂牌，不能指定买家
	auctioned := env.mint(t, addrSeller)
	require.NoError(t, env.svc.OpenAuction(ctx, addrSeller, auctioned, eth(1)))
	require.ErrorIs(t, env.svc.List(ctx, addrSeller, auctioned, eth(1)), ErrAlreadyTrading)
	require.ErrorIs(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, auctioned, eth(1)), ErrAlreadyTrading)
}

func TestDesignateBuyerPreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)

	// 指定自己为买家
	require.ErrorIs(t, env.svc.DesignateBuyer(ctx, addrSeller, addrSeller, tokenID, eth(1)), ErrInvalidCounterparty)
	// token不存在
	require.ErrorIs(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, tokenID+100, eth(1)), ErrInvalidCounterparty)
	// 非持有人
	require.ErrorIs(t, env.svc.DesignateBuyer(ctx, addrBuyer, addrBidderA, tokenID, eth(1)), ErrNotAuthorized)
	// 重复指定
	require.NoError(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, tokenID, eth(1)))
	require.ErrorIs(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBidderA, tokenID, eth(2)), ErrAlreadyTrading)
}

func TestCancelSaleRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)

	// token不存在优先于权限/状态检查
	require.ErrorIs(t, env.svc.CancelSaleOrUnlist(ctx, addrSeller, tokenID+100), ErrNoSuchToken)

	// 无出售时取消
	require.ErrorIs(t, env.svc.CancelSaleOrUnlist(ctx, addrSeller, tokenID), ErrNotOnSale)

	// 指定买家后取消，字段回到指定前的默认值
	require.NoError(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, tokenID, eth(1)))
	require.NoError(t, env.svc.CancelSaleOrUnlist(ctx, addrSeller, tokenID))
	requireDefaultState(t, env.state(t, tokenID))

	// 下架同理
	require.NoError(t, env.svc.List(ctx, addrSeller, tokenID, eth(1)))
	require.NoError(t, env.svc.CancelSaleOrUnlist(ctx, addrSeller, tokenID))
	requireDefaultState(t, env.state(t, tokenID))
}

func TestSettleDesignatedBuyerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)
	require.NoError(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, tokenID, eth(1)))

	// 非指定买家不能结算
	require.ErrorIs(t, env.svc.Settle(ctx, addrBidderA, tokenID, eth(1)), ErrNotAuthorized)
	// 付款不足
	require.ErrorIs(t, env.svc.Settle(ctx, addrBuyer, tokenID, big.NewInt(1)), ErrInsufficientPayment)
	// 指定买家足额付款成交
	require.NoError(t, env.svc.Settle(ctx, addrBuyer, tokenID, eth(1)))
	require.Equal(t, addrBuyer, env.reg.custodians[tokenID])
}

func TestSettleNothingOnSale(t *testing.T) {
	env := newTestEnv(t)
	tokenID := env.mint(t, addrSeller)
	require.ErrorIs(t, env.svc.Settle(context.Background(), addrBuyer, tokenID, eth(1)), ErrNotOnSale)
}

func TestSettlePaymentFailureLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)
	require.NoError(t, env.svc.List(ctx, addrSeller, tokenID, eth(1)))

	env.payer.failAll = true
	require.Error(t, env.svc.Settle(ctx, addrBuyer, tokenID, eth(1)))

	// 整笔失败：仍挂牌、未过户、无事件
	state := env.state(t, tokenID)
	require.True(t, state.IsListed)
	require.Equal(t, addrSeller, env.reg.custodians[tokenID])
	require.Empty(t, env.emitter.events)
}

func TestMakeOfferAndAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)

	// 持有人不能给自己报价
	require.ErrorIs(t, env.svc.MakeOffer(ctx, addrSeller, tokenID, eth(1)), ErrInvalidCounterparty)
	// token不存在
	require.ErrorIs(t, env.svc.MakeOffer(ctx, addrBuyer, tokenID+100, eth(1)), ErrNoSuchToken)

	// 报价按插入顺序编号
	require.NoError(t, env.svc.MakeOffer(ctx, addrBuyer, tokenID, eth(2)))
	require.NoError(t, env.svc.MakeOffer(ctx, addrBidderA, tokenID, eth(3)))
	offers, err := env.svc.GetOffers(ctx, addrSeller, tokenID)
	require.NoError(t, err)
	require.Len(t, offers, 2)
	require.Equal(t, 0, offers[0].OfferIdx)
	require.Equal(t, addrBuyer, offers[0].OffererAddr)
	require.Equal(t, addrBidderA, offers[1].OffererAddr)

	// 序号越界按报价不存在处理，不允许panic
	require.ErrorIs(t, env.svc.AcceptOffer(ctx, addrSeller, tokenID, 5), ErrNoSuchOffer)
	require.ErrorIs(t, env.svc.AcceptOffer(ctx, addrSeller, tokenID, -1), ErrNoSuchOffer)

	// 接受报价即按报价人与报价金额指定买家
	require.NoError(t, env.svc.AcceptOffer(ctx, addrSeller, tokenID, 1))
	state := env.state(t, tokenID)
	require.Equal(t, addrBidderA, state.DesignatedBuyer)
	require.Equal(t, eth(3), state.PriceBig())
}

func TestMakeOfferBlockedWhileListedOrBidActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	listed := env.mint(t, addrSeller)
	require.NoError(t, env.svc.List(ctx, addrSeller, listed, eth(1)))
	require.ErrorIs(t, env.svc.MakeOffer(ctx, addrBuyer, listed, eth(1)), ErrAlreadyTrading)

	auctioned := env.mint(t, addrSeller)
	require.NoError(t, env.svc.OpenAuction(ctx, addrSeller, auctioned, eth(1)))
	require.NoError(t, env.svc.MakeBid(ctx, addrBidderA, auctioned, eth(2), eth(1)))
	require.ErrorIs(t, env.svc.MakeOffer(ctx, addrBuyer, auctioned, eth(1)), ErrAlreadyTrading)
}

func TestAcceptOfferCascadesDesignatePreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)

	require.NoError(t, env.svc.MakeOffer(ctx, addrBuyer, tokenID, eth(2)))
	// 先挂牌再接受报价：转发到指定买家流程后因互斥被拒
	require.NoError(t, env.svc.List(ctx, addrSeller, tokenID, eth(1)))
	require.ErrorIs(t, env.svc.AcceptOffer(ctx, addrSeller, tokenID, 0), ErrAlreadyTrading)
}

func TestOffersClearedOnSettle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)

	require.NoError(t, env.svc.MakeOffer(ctx, addrBuyer, tokenID, eth(2)))
	require.NoError(t, env.svc.MakeOffer(ctx, addrBidderA, tokenID, eth(1)))
	require.NoError(t, env.svc.AcceptOffer(ctx, addrSeller, tokenID, 0))
	require.Equal(t, int64(2), env.offerCount(t, tokenID))

	// 成交后全部历史报价作废
	require.NoError(t, env.svc.Settle(ctx, addrBuyer, tokenID, eth(2)))
	require.Equal(t, int64(0), env.offerCount(t, tokenID))
}

func TestPriceQueryGating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)
	require.NoError(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, tokenID, eth(1)))

	// 指定买家与持有人可见
	price, err := env.svc.GetPrice(ctx, addrBuyer, tokenID)
	require.NoError(t, err)
	require.Equal(t, eth(1), price)
	_, err = env.svc.GetPrice(ctx, addrSeller, tokenID)
	require.NoError(t, err)
	// 第三方不可见
	_, err = env.svc.GetPrice(ctx, addrBidderA, tokenID)
	require.ErrorIs(t, err, ErrNotAuthorized)

	// 挂牌后对任何人可见
	require.NoError(t, env.svc.CancelSaleOrUnlist(ctx, addrSeller, tokenID))
	require.NoError(t, env.svc.List(ctx, addrSeller, tokenID, eth(2)))
	price, err = env.svc.GetPrice(ctx, addrBidderA, tokenID)
	require.NoError(t, err)
	require.Equal(t, eth(2), price)
}

func TestCustodianOnlyQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	tokenID := env.mint(t, addrSeller)
	require.NoError(t, env.svc.DesignateBuyer(ctx, addrSeller, addrBuyer, tokenID, eth(1)))

	buyer, err := env.svc.GetDesignatedBuyer(ctx, addrSeller, tokenID)
	require.NoError(t, err)
	require.Equal(t, addrBuyer, buyer)

	_, err = env.svc.GetDesignatedBuyer(ctx, addrBuyer, tokenID)
	require.ErrorIs(t, err, ErrNotAuthorized)
	_, err = env.svc.GetOffers(ctx, addrBuyer, tokenID)
	require.ErrorIs(t, err, ErrNotAuthorized)
	_, err = env.svc.GetLatestBid(ctx, addrBuyer, tokenID)
	require.ErrorIs(t, err, ErrNotAuthorized)
	_, err = env.svc.GetAuctionCloseTime(ctx, addrBuyer, tokenID)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRecordSettlementIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	evt := model.SettlementEvent{
		TradeNo:    "1700000000000-abcd1234",
		TokenID:    1,
		SellerAddr: addrSeller,
		BuyerAddr:  addrBuyer,
		Price:      eth(1).String(),
		Kind:       model.TradeKindSale,
		TxHash:     "0xfaketx1",
		TradeTime:  env.now,
	}
	require.NoError(t, env.svc.RecordSettlement(ctx, evt))
	// 消息重投不产生重复记录
	require.NoError(t, env.svc.RecordSettlement(ctx, evt))

	records, total, err := env.svc.GetTradeRecords(ctx, GetTradeRecordsReq{UserAddr: addrBuyer, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, records, 1)
	require.Equal(t, evt.TradeNo, records[0].TradeNo)
}
