package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Config contains the producer settings for the event stream
type Config struct {
	Brokers      []string
	Topic        string
	RiskTopic    string
	RequiredAcks string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// MessageHeader represents a Kafka message header
type MessageHeader struct {
	Key   string
	Value []byte
}

// DefaultConfig returns a default Kafka configuration
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		Topic:        "option-valuations",
		RiskTopic:    "portfolio-risk",
		RequiredAcks: "one",
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

// Validate checks that the config can build a writer
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.InvalidArgument("kafka: at least one broker is required")
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			return errors.InvalidArgument("kafka: empty broker address")
		}
	}
	if c.Topic == "" || c.RiskTopic == "" {
		return errors.InvalidArgument("kafka: valuation and risk topics are required")
	}
	if _, err := parseAcks(c.RequiredAcks); err != nil {
		return err
	}
	return nil
}

func parseAcks(s string) (kafka.RequiredAcks, error) {
	switch strings.ToLower(s) {
	case "", "one", "1":
		return kafka.RequireOne, nil
	case "all", "-1":
		return kafka.RequireAll, nil
	case "none", "0":
		return kafka.RequireNone, nil
	default:
		return 0, errors.InvalidArgument("kafka: unknown required acks %q", s)
	}
}

func toKafkaHeaders(headers []MessageHeader) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kafka.Header, len(headers))
	for i, h := range headers {
		out[i] = kafka.Header{Key: h.Key, Value: h.Value}
	}
	return out
}
