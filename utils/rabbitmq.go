package utils

import (
	"context"
	"encoding/json"
	"time"

	"estate_trade/model"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

var RabbitMQConn *amqp.Connection
var RabbitMQChannel *amqp.Channel

const (
	settlementExchange   = "estate_trade_exchange"
	settlementQueue      = "estate_settlement_queue"
	settlementRoutingKey = "trade.settled"
)

// InitRabbitMQ 初始化RabbitMQ
func InitRabbitMQ(url string) error {
	// 建立连接
	conn, err := amqp.Dial(url)
	if err != nil {
		return err
	}
	RabbitMQConn = conn

	// 建立通道
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	RabbitMQChannel = ch

	// 声明交换机和队列
	return declareExchangeAndQueue()
}

// 声明交换机和队列（结算事件队列）
func declareExchangeAndQueue() error {
	// 声明交换机
	err := RabbitMQChannel.ExchangeDeclare(
		settlementExchange, // 交换机名
		"direct",           // 类型
		true,               // 持久化
		false,              // 自动删除
		false,              // 内部
		false,              // 等待
		nil,                // 参数
	)
	if err != nil {
		return err
	}

	// 声明队列
	_, err = RabbitMQChannel.QueueDeclare(
		settlementQueue, // 队列名
		true,            // 持久化
		false,           // 自动删除
		false,           // 排他
		false,           // 等待
		nil,             // 参数
	)
	if err != nil {
		return err
	}

	// 绑定队列到交换机
	return RabbitMQChannel.QueueBind(
		settlementQueue,
		settlementRoutingKey,
		settlementExchange,
		false,
		nil,
	)
}

// PublishSettlementEvent 发布结算事件（结算本身已原子完成，这里只做事后账本投递）
func PublishSettlementEvent(ctx context.Context, evt model.SettlementEvent) error {
	msg, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return RabbitMQChannel.Publish(
		settlementExchange,
		settlementRoutingKey,
		false, // 强制
		false, // 立即
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent, // 持久化
			Timestamp:    time.Now(),
		},
	)
}

// AMQPEmitter 结算事件发射器（实现service.EventEmitter）
type AMQPEmitter struct{}

// PublishSettlement 经RabbitMQ投递结算事件
func (AMQPEmitter) PublishSettlement(ctx context.Context, evt model.SettlementEvent) error {
	return PublishSettlementEvent(ctx, evt)
}

// ConsumeSettlementEvents 消费结算事件
func ConsumeSettlementEvents(handler func(evt model.SettlementEvent) error) error {
	msgs, err := RabbitMQChannel.Consume(
		settlementQueue, // 队列名
		"",              // 消费者标签
		false,           // 自动确认
		false,           // 排他
		false,           // 不本地
		false,           // 等待
		nil,             // 参数
	)
	if err != nil {
		return err
	}

	// 启动协程消费消息
	go func() {
		for d := range msgs {
			var evt model.SettlementEvent
			if err := json.Unmarshal(d.Body, &evt); err != nil {
				Logger.Error("结算事件反序列化失败", zap.Error(err))
				d.Nack(false, false) // 拒绝消息，不重新入队
				continue
			}

			if err := handler(evt); err != nil {
				Logger.Error("处理结算事件失败", zap.String("trade_no", evt.TradeNo), zap.Error(err))
				d.Nack(false, true) // 拒绝消息，重新入队
			} else {
				d.Ack(false)
			}
		}
	}()

	return nil
}

// CloseRabbitMQ 关闭RabbitMQ连接
func CloseRabbitMQ() {
	if RabbitMQChannel != nil {
		RabbitMQChannel.Close()
	}
	if RabbitMQConn != nil {
		RabbitMQConn.Close()
	}
}
