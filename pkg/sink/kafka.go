package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
)

// KafkaConfig Kafka 输出配置
type KafkaConfig struct {
	Brokers      []string
	TopicPrefix  string
	RequiredAcks string // all / leader / none
	Compression  string // none / gzip / snappy / lz4 / zstd
	MaxElapsed   time.Duration
}

func (c *KafkaConfig) applyDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "uof"
	}
	if c.RequiredAcks == "" {
		c.RequiredAcks = "all"
	}
	if c.Compression == "" {
		c.Compression = "none"
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = 5 * time.Second
	}
}

func (c KafkaConfig) validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: at least one broker is required: %w", common.ErrInvalidInput)
	}
	return nil
}

func buildSaramaConfig(c KafkaConfig) (*sarama.Config, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.Return.Errors = true

	switch strings.ToLower(c.RequiredAcks) {
	case "all":
		sc.Producer.RequiredAcks = sarama.WaitForAll
	case "leader":
		sc.Producer.RequiredAcks = sarama.WaitForLocal
	case "none":
		sc.Producer.RequiredAcks = sarama.NoResponse
	default:
		return nil, fmt.Errorf("kafka: invalid required acks %q: %w", c.RequiredAcks, common.ErrInvalidInput)
	}

	switch strings.ToLower(c.Compression) {
	case "none":
		sc.Producer.Compression = sarama.CompressionNone
	case "gzip":
		sc.Producer.Compression = sarama.CompressionGZIP
	case "snappy":
		sc.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		sc.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		sc.Producer.Compression = sarama.CompressionZSTD
	default:
		return nil, fmt.Errorf("kafka: invalid compression %q: %w", c.Compression, common.ErrInvalidInput)
	}
	return sc, nil
}

// KafkaSink 将映射后的消息发布到 {prefix}.{kind} 主题
type KafkaSink struct {
	producer   sarama.SyncProducer
	prefix     string
	logger     common.Logger
	maxElapsed time.Duration
}

// NewKafkaSink 连接 Kafka
func NewKafkaSink(cfg KafkaConfig, logger common.Logger) (*KafkaSink, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sc, err := buildSaramaConfig(cfg)
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka: new producer: %w", err)
	}
	logger.Info("[KafkaSink] Connected to %v (prefix=%s)", cfg.Brokers, cfg.TopicPrefix)
	return NewKafkaSinkWithProducer(p, cfg, logger), nil
}

// NewKafkaSinkWithProducer 使用已有的 SyncProducer
func NewKafkaSinkWithProducer(p sarama.SyncProducer, cfg KafkaConfig, logger common.Logger) *KafkaSink {
	cfg.applyDefaults()
	return &KafkaSink{producer: p, prefix: cfg.TopicPrefix, logger: logger, maxElapsed: cfg.MaxElapsed}
}

// Handle 实现 processing.MessageHandler，发送失败按指数退避重试
func (s *KafkaSink) Handle(ctx context.Context, msg entities.Message) error {
	env := NewEnvelope(msg)
	value, err := env.Marshal()
	if err != nil {
		return err
	}
	pm := &sarama.ProducerMessage{
		Topic: s.prefix + "." + string(env.Kind),
		Key:   sarama.StringEncoder(env.PartitionKey()),
		Value: sarama.ByteEncoder(value),
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = s.maxElapsed

	attempt := 0
	op := func() error {
		attempt++
		_, _, err := s.producer.SendMessage(pm)
		if err != nil {
			s.logger.Warn("[KafkaSink] Send to %s failed (attempt %d): %v", pm.Topic, attempt, err)
		}
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", pm.Topic, err)
	}
	return nil
}

// Close 关闭生产者
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
