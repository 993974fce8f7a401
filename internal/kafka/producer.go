package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/circuit"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Publisher emits pricing and risk events
type Publisher interface {
	PublishValuation(ctx context.Context, c models.Contract, v *models.Valuation) error
	PublishRiskReport(ctx context.Context, r *models.RiskReport) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer the producer needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON events through a kafka-go writer. Writes go
// through a circuit breaker so an unreachable cluster fails fast.
type Producer struct {
	writer    messageWriter
	breaker   *circuit.Breaker
	topic     string
	riskTopic string
	recorder  *metrics.Recorder
	log       *logger.Logger
}

// NewProducer creates a producer for the configured brokers
func NewProducer(config *Config, recorder *metrics.Recorder) (*Producer, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	acks, _ := parseAcks(config.RequiredAcks)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           acks,
		BatchTimeout:           config.BatchTimeout,
		WriteTimeout:           config.WriteTimeout,
		AllowAutoTopicCreation: true,
	}

	log := logger.GetLogger("kafka.producer")
	log.Infow("Kafka producer created", "brokers", config.Brokers, "topic", config.Topic)

	return newProducer(w, config.Topic, config.RiskTopic, recorder, log), nil
}

func newProducer(w messageWriter, topic, riskTopic string, recorder *metrics.Recorder, log *logger.Logger) *Producer {
	return &Producer{
		writer:    w,
		breaker:   circuit.NewBreaker("kafka.producer", circuit.DefaultConfig()),
		topic:     topic,
		riskTopic: riskTopic,
		recorder:  recorder,
		log:       log,
	}
}

// PublishValuation publishes a valuation keyed by instrument ID
func (p *Producer) PublishValuation(ctx context.Context, c models.Contract, v *models.Valuation) error {
	if c == nil || v == nil {
		return errors.InvalidArgument("cannot publish a nil valuation")
	}
	headers := []MessageHeader{{Key: "event-type", Value: []byte(EventTypeValuation)}}
	return p.ProduceJSON(ctx, p.topic, []byte(v.InstrumentID), NewValuationEvent(c, v), headers)
}

// PublishRiskReport publishes a risk report keyed by portfolio ID
func (p *Producer) PublishRiskReport(ctx context.Context, r *models.RiskReport) error {
	if r == nil {
		return errors.InvalidArgument("cannot publish a nil risk report")
	}
	headers := []MessageHeader{{Key: "event-type", Value: []byte(EventTypeRiskReport)}}
	return p.ProduceJSON(ctx, p.riskTopic, []byte(r.PortfolioID), NewRiskEvent(r), headers)
}

// ProduceJSON serializes value and writes it to topic
func (p *Producer) ProduceJSON(ctx context.Context, topic string, key []byte, value interface{}, headers []MessageHeader) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to serialize event")
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   payload,
		Headers: toKafkaHeaders(headers),
	}
	err = p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.writer.WriteMessages(ctx, msg)
	})
	p.recorder.RecordPublish(topic, err)
	if err != nil {
		p.log.Errorw("Failed to publish event", "topic", topic, "key", string(key), "error", err)
		return errors.Wrapf(err, "failed to publish to %s", topic)
	}

	p.log.Debugw("Event published", "topic", topic, "key", string(key))
	return nil
}

// Close flushes pending messages and closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// NopPublisher discards every event
type NopPublisher struct{}

// PublishValuation implements Publisher
func (NopPublisher) PublishValuation(context.Context, models.Contract, *models.Valuation) error {
	return nil
}

// PublishRiskReport implements Publisher
func (NopPublisher) PublishRiskReport(context.Context, *models.RiskReport) error { return nil }

// Close implements Publisher
func (NopPublisher) Close() error { return nil }

// MultiPublisher sends every event to each of its publishers in order and
// reports the first failure.
type MultiPublisher []Publisher

// PublishValuation implements Publisher
func (m MultiPublisher) PublishValuation(ctx context.Context, c models.Contract, v *models.Valuation) error {
	var first error
	for _, p := range m {
		if err := p.PublishValuation(ctx, c, v); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishRiskReport implements Publisher
func (m MultiPublisher) PublishRiskReport(ctx context.Context, r *models.RiskReport) error {
	var first error
	for _, p := range m {
		if err := p.PublishRiskReport(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close implements Publisher
func (m MultiPublisher) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
