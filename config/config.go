package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"uof-sdk/pkg/routing"
)

type Config struct {
	// Betradar配置
	AccessToken   string `envconfig:"BETRADAR_ACCESS_TOKEN" validate:"required"`
	MessagingHost string `envconfig:"BETRADAR_MESSAGING_HOST" default:"stgmq.betradar.com:5671" validate:"required,hostname_port"`
	VirtualHost   string `envconfig:"BETRADAR_VIRTUAL_HOST"`
	UseTLS        bool   `envconfig:"BETRADAR_USE_TLS" default:"true"`
	APIBaseURL    string `envconfig:"BETRADAR_API_BASE_URL" default:"https://stgapi.betradar.com/v1" validate:"required,url"`
	NodeID        int    `envconfig:"UOF_NODE_ID" default:"1" validate:"gte=0"`

	// 会话配置 (all, live, prematch, hi, low, virtual, events:sr:match:1;sr:match:2)
	Sessions          []string      `envconfig:"UOF_SESSIONS" default:"all" validate:"min=1,dive,required"`
	Cultures          []string      `envconfig:"UOF_CULTURES" default:"en" validate:"min=1,dive,len=2"`
	Replay            bool          `envconfig:"UOF_REPLAY" default:"false"`
	DisabledProducers []int         `envconfig:"UOF_DISABLED_PRODUCERS"`
	MaxInactivity     time.Duration `envconfig:"UOF_MAX_INACTIVITY" default:"20s"`
	DedupTTL          time.Duration `envconfig:"UOF_DEDUP_TTL" default:"20m"`

	// 恢复配置
	AutoRecovery bool `envconfig:"AUTO_RECOVERY" default:"true"`

	// 存储配置
	RedisURL         string `envconfig:"REDIS_URL" validate:"omitempty,url"`
	DatabaseURL      string `envconfig:"DATABASE_URL" validate:"omitempty,url"`
	ArchiveMessages  bool   `envconfig:"ARCHIVE_MESSAGES" default:"false"`
	CompressArchived bool   `envconfig:"ARCHIVE_COMPRESS" default:"true"`

	// 服务器配置
	Port string `envconfig:"PORT" default:"8080" validate:"required,numeric"`

	// 日志配置
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	DevMode  bool   `envconfig:"DEV_MODE" default:"false"`

	// 通知配置
	LarkWebhookURL string `envconfig:"LARK_WEBHOOK_URL" validate:"omitempty,url"`
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID" validate:"required_with=TelegramToken"`

	// Kafka 输出
	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS" validate:"dive,hostname_port"`
	KafkaTopicPrefix string   `envconfig:"KAFKA_TOPIC_PREFIX" default:"uof"`

	// MQTT 输出
	MQTTBroker      string `envconfig:"MQTT_BROKER"`
	MQTTUsername    string `envconfig:"MQTT_USERNAME"`
	MQTTPassword    string `envconfig:"MQTT_PASSWORD"`
	MQTTTopicPrefix string `envconfig:"MQTT_TOPIC_PREFIX" default:"uof"`
	MQTTQoS         byte   `envconfig:"MQTT_QOS" default:"1" validate:"lte=2"`
	MQTTUseTLS      bool   `envconfig:"MQTT_USE_TLS" default:"false"`
}

// Load 读取 .env (可选) 与环境变量并校验
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cfg.Interests(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Interests 解析会话订阅范围
func (c *Config) Interests() ([]routing.MessageInterest, error) {
	interests := make([]routing.MessageInterest, 0, len(c.Sessions))
	for _, s := range c.Sessions {
		interest, err := routing.ParseInterest(s)
		if err != nil {
			return nil, fmt.Errorf("session %q: %w", s, err)
		}
		interests = append(interests, interest)
	}
	return interests, nil
}

// SessionName 会话名称，同一订阅范围出现多次时追加序号
func (c *Config) SessionName(i int) string {
	name := sessionBase(c.Sessions[i])
	seen := 0
	for j := 0; j < i; j++ {
		if sessionBase(c.Sessions[j]) == name {
			seen++
		}
	}
	if seen > 0 {
		name += "-" + strconv.Itoa(seen+1)
	}
	return name
}

func sessionBase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "events:") {
		return "events"
	}
	return s
}
