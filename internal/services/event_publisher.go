package services

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// DomainEvent представляет доменное событие системы (мутации каталога,
// смены статусов заявок и накладных)
type DomainEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // Например, "purchase_request.approved"
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

// EventPublisher публикует доменные события в Kafka
// Отправка асинхронная: HTTP-ответ не ждет подтверждения брокера
type EventPublisher struct {
	writer    *kafka.Writer
	sentCount int64 // Счетчик отправленных сообщений
}

// NewEventPublisher создает publisher для указанных брокеров и топика
// При пустом списке брокеров возвращает nil — события просто не публикуются
func NewEventPublisher(brokers, topic, username, password, caCert string) *EventPublisher {
	if brokers == "" {
		return nil
	}

	writer := &kafka.Writer{
		Addr:      kafka.TCP(parseBrokers(brokers)...),
		Topic:     topic,
		Balancer:  &kafka.LeastBytes{},
		Async:     true,
		Transport: createKafkaTransport(username, password, caCert),
	}
	log.Printf("✅ Kafka producer подключен к %s (топик %s)", brokers, topic)

	return &EventPublisher{writer: writer}
}

// PublishAsync отправляет событие в Kafka, не блокируя вызывающего
func (p *EventPublisher) PublishAsync(eventType string, payload map[string]interface{}) {
	if p == nil || p.writer == nil {
		return
	}

	event := DomainEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	go func() {
		// Background context с таймаутом: контекст запроса может быть уже отменен
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(event)
		if err != nil {
			log.Printf("⚠️ Kafka: не удалось сериализовать событие %s: %v", eventType, err)
			return
		}

		err = p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(event.ID),
			Value: data,
		})
		if err != nil {
			// Топик создастся автоматически — "Unknown Topic Or Partition" не считаем ошибкой
			errStr := err.Error()
			if !strings.Contains(errStr, "Unknown Topic Or Partition") &&
				!strings.Contains(errStr, "context canceled") {
				log.Printf("⚠️ Kafka error при отправке события %s: %v", eventType, err)
			}
			return
		}

		atomic.AddInt64(&p.sentCount, 1)
		if atomic.LoadInt64(&p.sentCount) <= 10 {
			log.Printf("✅ Kafka: отправлено событие %s (%d байт)", eventType, len(data))
		}
	}()
}

// Close закрывает Kafka writer
func (p *EventPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// createKafkaTransport создает транспорт с поддержкой SASL/PLAIN и TLS (для managed Kafka)
func createKafkaTransport(username, password, caCert string) *kafka.Transport {
	transport := &kafka.Transport{
		DialTimeout: 10 * time.Second,
	}

	if username != "" && password != "" {
		transport.SASL = plain.Mechanism{
			Username: username,
			Password: password,
		}
		log.Printf("🔐 Kafka: SASL/PLAIN аутентификация включена (username: %s)", username)
	}

	tlsConfig := &tls.Config{
		InsecureSkipVerify: false,
	}

	if caCert != "" {
		caCertPool := x509.NewCertPool()
		if ok := caCertPool.AppendCertsFromPEM([]byte(caCert)); ok {
			tlsConfig.RootCAs = caCertPool
			log.Printf("🔒 Kafka: TLS с CA сертификатом включен")
		} else {
			log.Printf("⚠️ Kafka: не удалось распарсить CA сертификат, используем системные сертификаты")
		}
	}

	// Managed-провайдеры требуют TLS при SASL
	if transport.SASL != nil || caCert != "" {
		transport.TLS = tlsConfig
	}

	return transport
}

// parseBrokers парсит строку с брокерами (может быть через запятую)
func parseBrokers(brokers string) []string {
	brokerList := strings.Split(strings.ReplaceAll(brokers, " ", ""), ",")
	var result []string
	for _, broker := range brokerList {
		if broker != "" {
			result = append(result, broker)
		}
	}
	return result
}
