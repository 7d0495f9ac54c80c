package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

// ErrProduce возвращается, если сообщение не удалось записать
var ErrProduce = errors.New("kafka: failed to produce message")

// Logger интерфейс для логирования
type Logger interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Producer синхронный продюсер: Produce возвращается после подтверждения всех реплик
type Producer struct {
	writer *kafka.Writer
	logger Logger
}

// NewProducer создает продюсер. Топик задаётся в каждом сообщении.
func NewProducer(brokers []string, logger Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(msg, args...) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(msg, args...) }),
	}

	return &Producer{writer: writer, logger: logger}
}

// Produce публикует сообщение; ключ определяет партицию, поэтому события одного агрегата упорядочены
func (p *Producer) Produce(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	produceCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(produceCtx, msg); err != nil {
		return fmt.Errorf("%w: topic=%s key=%s: %v", ErrProduce, topic, key, err)
	}

	p.logger.Debug("Kafka: produced message topic=%s key=%s", topic, key)
	return nil
}

// Close закрывает writer
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("kafka: failed to close producer: %w", err)
	}
	p.logger.Info("Kafka: producer closed")
	return nil
}

// LogProducer пишет события в лог вместо kafka (kafka выключена)
type LogProducer struct {
	logger Logger
}

func NewLogProducer(logger Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

func (p *LogProducer) Produce(_ context.Context, topic, key string, value []byte, _ map[string]string) error {
	p.logger.Info("Outbox event topic=%s key=%s payload=%s", topic, key, value)
	return nil
}

func (p *LogProducer) Close() error {
	return nil
}
