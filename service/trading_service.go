package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"time"

	"estate_trade/model"

	"gorm.io/gorm"
)

// 拍卖解锁宽限期：收拍后中标人有7天付款窗口，
// 出价后卖方有7天收拍窗口，超时后对方才可单方面解除
const GracePeriod = 7 * 24 * time.Hour

// 预付款下限为出价的1/100（整数截断除法）
var prepaymentDivisor = big.NewInt(100)

// OwnershipRegistry 所有权登记接口（外部协作方，本服务不维护授权簿）
type OwnershipRegistry interface {
	CustodianOf(ctx context.Context, tokenID uint64) (string, error)
	IsApprovedOrCustodian(ctx context.Context, caller string, tokenID uint64) (bool, error)
	// TransferCustody 过户，返回链上交易哈希
	TransferCustody(ctx context.Context, from, to string, tokenID uint64) (string, error)
}

// PaymentSender 原生币出账接口（外部协作方）
// 所有资金外推都必须检查返回错误，失败即整笔操作失败
type PaymentSender interface {
	Send(ctx context.Context, to string, amount *big.Int) error
}

// TokenMutex 按token的排他锁：外部转账先于自身状态收尾的操作全程持锁，
// 同时为每个token提供串行化执行语义
type TokenMutex interface {
	AcquireTokenLock(ctx context.Context, tokenID uint64) (func(), error)
}

// EventEmitter 结算事件发射器
type EventEmitter interface {
	PublishSettlement(ctx context.Context, evt model.SettlementEvent) error
}

// noopEmitter 默认空实现
type noopEmitter struct{}

func (noopEmitter) PublishSettlement(context.Context, model.SettlementEvent) error { return nil }

// -------------- 请求结构体 --------------

// MintReq 铸造请求
type MintReq struct {
	Length   uint64                 `json:"length"`
	Width    uint64                 `json:"width"`
	X        int64                  `json:"x"`
	Y        int64                  `json:"y"`
	Category model.PropertyCategory `json:"-"`
}

// GetTradeRecordsReq 查询成交记录请求
type GetTradeRecordsReq struct {
	UserAddr string `json:"user_addr"` // 买家/卖家地址
	TokenID  uint64 `json:"token_id"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// TradingService 房产token交易服务接口
type TradingService interface {
	// 铸造与元数据
	Mint(ctx context.Context, req MintReq) (uint64, error)
	GetRecord(ctx context.Context, tokenID uint64) (length, width uint64, err error)
	TokenURI(ctx context.Context, tokenID uint64) (string, error)

	// 出售/报价
	List(ctx context.Context, caller string, tokenID uint64, price *big.Int) error
	DesignateBuyer(ctx context.Context, caller, buyer string, tokenID uint64, price *big.Int) error
	CancelSaleOrUnlist(ctx context.Context, caller string, tokenID uint64) error
	Settle(ctx context.Context, caller string, tokenID uint64, payment *big.Int) error
	MakeOffer(ctx context.Context, caller string, tokenID uint64, amount *big.Int) error
	AcceptOffer(ctx context.Context, caller string, tokenID uint64, index int) error

	// 拍卖
	OpenAuction(ctx context.Context, caller string, tokenID uint64, startingPrice *big.Int) error
	MakeBid(ctx context.Context, caller string, tokenID uint64, bidAmount, payment *big.Int) error
	CloseAuction(ctx context.Context, caller string, tokenID uint64) error
	CancelAuction(ctx context.Context, caller string, tokenID uint64) error
	CancelBid(ctx context.Context, caller string, tokenID uint64) error
	SettleAuctionWinner(ctx context.Context, caller string, tokenID uint64, payment *big.Int) error

	// 受限读操作
	GetPrice(ctx context.Context, caller string, tokenID uint64) (*big.Int, error)
	GetDesignatedBuyer(ctx context.Context, caller string, tokenID uint64) (string, error)
	GetOffers(ctx context.Context, caller string, tokenID uint64) ([]model.Offer, error)
	GetLatestBid(ctx context.Context, caller string, tokenID uint64) (*big.Int, error)
	GetAuctionCloseTime(ctx context.Context, caller string, tokenID uint64) (*time.Time, error)
	GetLastBidTime(ctx context.Context, caller string, tokenID uint64) (*time.Time, error)

	// 成交账本
	GetTradeRecords(ctx context.Context, req GetTradeRecordsReq) ([]model.TradeRecord, int64, error)
	RecordSettlement(ctx context.Context, evt model.SettlementEvent) error
}

// tradingService 交易服务实现
type tradingService struct {
	db       *gorm.DB
	registry OwnershipRegistry
	payer    PaymentSender
	locker   TokenMutex
	emitter  EventEmitter
	nowFn    func() time.Time // 测试中可覆盖的时间源
}

// NewTradingService 创建交易服务（emitter传nil则不投递结算事件）
func NewTradingService(db *gorm.DB, registry OwnershipRegistry, payer PaymentSender, locker TokenMutex, emitter EventEmitter) TradingService {
	if emitter == nil {
		emitter = noopEmitter{}
	}
	return &tradingService{
		db:       db,
		registry: registry,
		payer:    payer,
		locker:   locker,
		emitter:  emitter,
		nowFn:    time.Now,
	}
}

// -------------- 内部辅助 --------------

// sameAddr 地址相等比较（十六进制地址大小写不敏感）
func sameAddr(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}

// amountOrZero 防御空指针，nil按0处理
func amountOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// recordExists 房产记录存在性检查（token是否已铸造以记录库为准）
func (s *tradingService) recordExists(tx *gorm.DB, tokenID uint64) (bool, error) {
	var count int64
	if err := tx.Model(&model.PropertyRecord{}).Where("token_id = ?", tokenID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// loadState 加载交易状态，token未铸造返回ErrNoSuchToken
func (s *tradingService) loadState(tx *gorm.DB, tokenID uint64) (*model.TradingState, error) {
	var state model.TradingState
	if err := tx.Where("token_id = ?", tokenID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSuchToken
		}
		return nil, err
	}
	return &state, nil
}

// requireApproved 校验caller为持有人或被授权操作者
func (s *tradingService) requireApproved(ctx context.Context, caller string, tokenID uint64) error {
	ok, err := s.registry.IsApprovedOrCustodian(ctx, caller, tokenID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

// clearOffers 清空token的全部报价（成交后旧报价全部作废）
func (s *tradingService) clearOffers(tx *gorm.DB, tokenID uint64) error {
	return tx.Where("token_id = ?", tokenID).Delete(&model.Offer{}).Error
}

// withTokenLock 持token锁执行fn
func (s *tradingService) withTokenLock(ctx context.Context, tokenID uint64, fn func() error) error {
	release, err := s.locker.AcquireTokenLock(ctx, tokenID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
