package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	ComplaintCreated      = "complaint.created"
	ComplaintTransitioned = "complaint.transitioned"
	ComplaintDeleted      = "complaint.deleted"
)

type Event struct {
	Name        string    `json:"event"`
	ComplaintID string    `json:"complaintId"`
	Code        string    `json:"code"`
	OwnerID     string    `json:"ownerId"`
	Type        string    `json:"type,omitempty"`
	From        string    `json:"from,omitempty"`
	Status      string    `json:"status"`
	Actor       string    `json:"actor,omitempty"`
	Note        string    `json:"note,omitempty"`
	At          time.Time `json:"at"`
}

// Publisher 尽力投递，失败只记日志，不影响主流程
type Publisher interface {
	Publish(ctx context.Context, e Event)
	Close() error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
func (Nop) Close() error                   { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

// NewKafkaPublisher brokers 或 topic 为空时返回 Nop
func NewKafkaPublisher(brokers []string, topic string, l *zap.Logger) Publisher {
	if len(brokers) == 0 || topic == "" {
		return Nop{}
	}
	if l == nil {
		l = zap.NewNop()
	}
	p := &KafkaPublisher{log: l}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // 同一投诉落同一分区，保证顺序
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				l.Warn("kafka: deliver complaint events", zap.Int("count", len(msgs)), zap.Error(err))
			}
		},
	}
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		p.log.Warn("kafka: marshal complaint event", zap.Error(err))
		return
	}
	msg := kafka.Message{Key: []byte(e.ComplaintID), Value: body, Time: e.At}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Warn("kafka: write complaint event", zap.String("event", e.Name), zap.Error(err))
	}
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// ParseBrokers "host1:9092,host2:9092" → []string
func ParseBrokers(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
