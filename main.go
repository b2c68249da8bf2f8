package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"estate_trade/config"
	"estate_trade/contract"
	"estate_trade/dao"
	"estate_trade/handler"
	"estate_trade/model"
	"estate_trade/service"
	"estate_trade/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// 1. 初始化配置
	if err := config.InitConfig(); err != nil {
		zap.L().Fatal("初始化配置失败", zap.Error(err))
	}

	// 2. 初始化日志
	if err := utils.InitLogger(); err != nil {
		zap.L().Fatal("初始化日志失败", zap.Error(err))
	}

	// 3. 初始化MySQL
	db, err := dao.InitMySQL(config.GlobalConfig.MySQLDSN)
	if err != nil {
		utils.Logger.Fatal("初始化MySQL失败", zap.Error(err))
	}

	// 4. 初始化Redis（token锁 + 元数据缓存）
	if err := utils.InitRedis(config.GlobalConfig.RedisAddr, config.GlobalConfig.RedisPassword, config.GlobalConfig.RedisDB); err != nil {
		utils.Logger.Fatal("初始化Redis失败", zap.Error(err))
	}

	// 5. 初始化RabbitMQ
	if err := utils.InitRabbitMQ(config.GlobalConfig.RabbitMQURL); err != nil {
		utils.Logger.Fatal("初始化RabbitMQ失败", zap.Error(err))
	}
	defer utils.CloseRabbitMQ()

	// 6. 初始化链上协作方（所有权登记 + 托管出账）
	registry, err := contract.NewERC721Registry(
		config.GlobalConfig.ChainRPCUrl,
		config.GlobalConfig.RegistryAddr,
		config.GlobalConfig.EscrowPrivateKey,
	)
	if err != nil {
		utils.Logger.Fatal("初始化所有权登记器失败", zap.Error(err))
	}
	payer, err := contract.NewNativePayer(config.GlobalConfig.ChainRPCUrl, config.GlobalConfig.EscrowPrivateKey)
	if err != nil {
		utils.Logger.Fatal("初始化托管出账器失败", zap.Error(err))
	}

	// 7. 初始化服务和处理器
	tradingService := service.NewTradingService(db, registry, payer, utils.TokenLocker{}, utils.AMQPEmitter{})
	propertyHandler := handler.NewPropertyHandler(tradingService)
	tradeHandler := handler.NewTradeHandler(tradingService)
	auctionHandler := handler.NewAuctionHandler(tradingService)

	// 8. 启动RabbitMQ消费者（结算事件落库）
	err = utils.ConsumeSettlementEvents(func(evt model.SettlementEvent) error {
		return tradingService.RecordSettlement(context.Background(), evt)
	})
	if err != nil {
		utils.Logger.Fatal("启动消费者失败", zap.Error(err))
	}

	// 9. 初始化Gin引擎
	r := gin.Default()

	// 路由
	property := r.Group("/api/v1/property")
	{
		property.POST("/mint", propertyHandler.Mint)       // 铸造（演示形态：不限调用方）
		property.GET("/record", propertyHandler.GetRecord) // 查询尺寸
		property.GET("/uri", propertyHandler.TokenURI)     // 查询元数据URI
	}

	trade := r.Group("/api/v1/trade")
	{
		trade.POST("/list", tradeHandler.List)               // 公开挂牌
		trade.POST("/cancel", tradeHandler.CancelSale)       // 取消出售/下架
		trade.POST("/designate", tradeHandler.DesignateBuyer) // 指定买家
		trade.POST("/settle", tradeHandler.Settle)           // 买家付款成交
		trade.POST("/offer", tradeHandler.MakeOffer)         // 提交报价
		trade.POST("/offer/accept", tradeHandler.AcceptOffer) // 接受报价
		trade.GET("/price", tradeHandler.GetPrice)           // 价格查询（受限）
		trade.GET("/buyer", tradeHandler.GetBuyer)           // 指定买家查询（仅持有人）
		trade.GET("/offers", tradeHandler.GetOffers)         // 报价列表（仅持有人）
		trade.GET("/records", tradeHandler.GetTradeRecords)  // 成交记录
	}

	auction := r.Group("/api/v1/auction")
	{
		auction.POST("/open", auctionHandler.Open)              // 开启拍卖
		auction.POST("/bid", auctionHandler.Bid)                // 竞价
		auction.POST("/close", auctionHandler.Close)            // 收拍
		auction.POST("/cancel", auctionHandler.Cancel)          // 卖方解除（宽限期后）
		auction.POST("/bid/cancel", auctionHandler.CancelBid)   // 出价人撤回（宽限期后）
		auction.POST("/settle", auctionHandler.Settle)          // 中标人结算
		auction.GET("/latest-bid", auctionHandler.LatestBid)    // 最高出价（仅持有人）
		auction.GET("/close-time", auctionHandler.CloseTime)    // 收拍时间（仅持有人）
		auction.GET("/last-bid-time", auctionHandler.LastBidTime) // 最近出价时间（仅出价人）
	}

	// 10. 启动服务（优雅关闭）
	go func() {
		if err := r.Run(config.GlobalConfig.ServerPort); err != nil {
			utils.Logger.Fatal("启动服务失败", zap.Error(err))
		}
	}()

	// 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	utils.Logger.Info("服务正在关闭...")
}
