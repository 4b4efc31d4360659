package sink

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
)

// MQTT Quality of Service levels
const (
	QoSAtMostOnce  = 0
	QoSAtLeastOnce = 1
	QoSExactlyOnce = 2
)

// MQTTConfig MQTT 推送配置
type MQTTConfig struct {
	Broker       string
	Username     string
	Password     string
	ClientID     string
	TopicPrefix  string
	QoS          byte
	PublishWait  time.Duration
	TLS          bool
	RetainSystem bool
}

func (c *MQTTConfig) applyDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "uof"
	}
	if c.QoS > QoSExactlyOnce {
		c.QoS = QoSAtLeastOnce
	}
	if c.PublishWait <= 0 {
		c.PublishWait = 5 * time.Second
	}
	if c.ClientID == "" {
		c.ClientID = fmt.Sprintf("uof_sdk_%d", time.Now().Unix())
	}
}

// publisher mqtt.Client 中推送所需的部分
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink 把映射后的消息发布到 {prefix}/{kind}/{event|producer}
type MQTTSink struct {
	client publisher
	cfg    MQTTConfig
	logger common.Logger
}

// NewMQTTSink 连接 broker
func NewMQTTSink(cfg MQTTConfig, logger common.Logger) (*MQTTSink, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required: %w", common.ErrInvalidInput)
	}
	cfg.applyDefaults()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	// Auto reconnect
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(true)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("[MQTT] Connected to broker %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("[MQTT] Connection lost: %v", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(30*time.Second) || token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", cfg.Broker, token.Error())
	}
	return newMQTTSink(client, cfg, logger), nil
}

func newMQTTSink(client publisher, cfg MQTTConfig, logger common.Logger) *MQTTSink {
	cfg.applyDefaults()
	return &MQTTSink{client: client, cfg: cfg, logger: logger}
}

// Topic 消息主题，URN 中的冒号替换为下划线
func (s *MQTTSink) Topic(env Envelope) string {
	target := env.PartitionKey()
	target = strings.NewReplacer(":", "_", "/", "_", "+", "_", "#", "_").Replace(target)
	return s.cfg.TopicPrefix + "/" + string(env.Kind) + "/" + target
}

// Handle 作为会话订阅者发布消息，系统消息按配置保留
func (s *MQTTSink) Handle(ctx context.Context, msg entities.Message) error {
	env := NewEnvelope(msg)
	payload, err := env.Marshal()
	if err != nil {
		return err
	}

	retained := s.cfg.RetainSystem && env.EventID == ""
	token := s.client.Publish(s.Topic(env), s.cfg.QoS, retained, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.PublishWait):
		return fmt.Errorf("publish %s: timed out after %s", env.Kind, s.cfg.PublishWait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", env.Kind, err)
	}
	return nil
}

// Close 断开连接
func (s *MQTTSink) Close() error {
	s.client.Disconnect(250)
	return nil
}
