package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// NotifyQueue 订单状态变更通知队列
const NotifyQueue = "order_notify_queue"

// StatusNotification 状态变更通知载荷，由 notify-worker 消费后发邮件
type StatusNotification struct {
	MessageID      string `json:"message_id"`
	To             string `json:"to"`
	OrderNumber    string `json:"order_number"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// Notifier 通知分发接口。发送失败由调用方记录并吞掉，绝不影响主流程。
type Notifier interface {
	OrderStatusChanged(ctx context.Context, n *StatusNotification) error
}

// mqNotifier 把通知投递到 RabbitMQ，实际发信由 notify-worker 完成
type mqNotifier struct {
	conn *amqp.Connection
}

// NewMQNotifier 创建基于 RabbitMQ 的通知分发器
func NewMQNotifier(conn *amqp.Connection) Notifier {
	return &mqNotifier{conn: conn}
}

func (n *mqNotifier) OrderStatusChanged(ctx context.Context, msg *StatusNotification) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}

	ch, err := n.conn.Channel()
	if err != nil {
		GetMonitor().RecordMQError()
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(NotifyQueue, true, false, false, false, nil); err != nil {
		GetMonitor().RecordMQError()
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	if err = ch.PublishWithContext(
		ctx,
		"",
		NotifyQueue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			MessageId:   msg.MessageID,
			Body:        body,
		},
	); err != nil {
		GetMonitor().RecordMQError()
		return err
	}
	return nil
}

// NopNotifier 空实现，单测和不接 MQ 的场景用
type NopNotifier struct{}

func (NopNotifier) OrderStatusChanged(ctx context.Context, n *StatusNotification) error { return nil }
