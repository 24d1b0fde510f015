package main

import (
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/anirudh-tech/IZONE-sub001/internal/config"
	"github.com/anirudh-tech/IZONE-sub001/internal/infra/mq"
	"github.com/anirudh-tech/IZONE-sub001/internal/logging"
	"github.com/anirudh-tech/IZONE-sub001/internal/service"
)

// Sender 邮件投递边界。真正的发信渠道在系统外部，
// 这里只负责把格式化好的内容交出去。
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// logSender 默认实现：记录日志代替真实发信
type logSender struct{}

func (logSender) Send(to, subject, htmlBody string) error {
	zap.L().Info("notification delivered",
		zap.String("to", to), zap.String("subject", subject))
	return nil
}

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.Init()

	mqConn := mq.Init(&cfg.RabbitMQ)

	ch, err := mqConn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(service.NotifyQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}

	// 手动确认模式（auto-ack=false），发送失败的消息重新入队
	msgs, err := ch.Consume(service.NotifyQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	log.Println("notify worker started, waiting for messages...")

	var sender Sender = logSender{}
	for d := range msgs {
		handleMessage(sender, d)
	}
}

func handleMessage(sender Sender, d amqp.Delivery) {
	var n service.StatusNotification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		zap.L().Error("invalid notification payload", zap.Error(err))
		// 消息格式错误，拒绝并丢弃
		_ = d.Nack(false, false)
		return
	}

	subject := fmt.Sprintf("Your order %s is now %s", n.OrderNumber, n.NewStatus)
	body := renderBody(&n)

	if err := sender.Send(n.To, subject, body); err != nil {
		zap.L().Error("send notification failed",
			zap.String("message_id", n.MessageID),
			zap.String("order_number", n.OrderNumber),
			zap.Error(err))
		service.GetMonitor().RecordNotifyError()
		// 发送失败，重新入队稍后再试
		_ = d.Nack(false, true)
		return
	}

	if err := d.Ack(false); err != nil {
		zap.L().Error("failed to ack message", zap.Error(err))
	}
}

func renderBody(n *service.StatusNotification) string {
	body := fmt.Sprintf(
		"<p>Your order <b>%s</b> changed from <b>%s</b> to <b>%s</b>.</p>",
		n.OrderNumber, n.PreviousStatus, n.NewStatus,
	)
	if n.TrackingNumber != "" {
		body += fmt.Sprintf("<p>Tracking number: %s</p>", n.TrackingNumber)
	}
	if n.Notes != "" {
		body += fmt.Sprintf("<p>%s</p>", n.Notes)
	}
	return body
}
