package ingestion

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/streadway/amqp"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/metrics"
)

// DefaultExchange 反馈数据所在的 exchange
const DefaultExchange = "unifiedfeed"

// AMQPConfig AMQP 连接配置
type AMQPConfig struct {
	Host          string
	VirtualHost   string
	AccessToken   string
	APIBaseURL    string
	UseTLS        bool
	Exchange      string
	PrefetchCount int
	Heartbeat     time.Duration

	// 重连退避
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c *AMQPConfig) applyDefaults() {
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.PrefetchCount <= 0 {
		c.PrefetchCount = 100
	}
	if c.Heartbeat <= 0 {
		c.Heartbeat = 60 * time.Second
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = time.Second
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 60 * time.Second
	}
}

// AMQPTransport 基于 streadway/amqp 的传输层，连接断开后自动重连并重新绑定
type AMQPTransport struct {
	cfg    AMQPConfig
	logger common.Logger

	mu          sync.Mutex
	conn        *amqp.Connection
	channel     *amqp.Channel
	closeCh     chan *amqp.Error
	opened      bool
	routingKeys []string
	handler     DeliveryHandler
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewAMQPTransport 创建 AMQP 传输层，每个会话使用独立实例
func NewAMQPTransport(cfg AMQPConfig, logger common.Logger) *AMQPTransport {
	cfg.applyDefaults()
	return &AMQPTransport{cfg: cfg, logger: logger}
}

// Open 实现 MessageTransport
func (t *AMQPTransport) Open(routingKeys []string, handler DeliveryHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.opened {
		return common.ErrAlreadyConnected
	}

	t.ctx, t.cancel = context.WithCancel(context.Background())

	if t.cfg.VirtualHost == "" {
		vhost, err := t.fetchVirtualHost(t.ctx)
		if err != nil {
			t.cancel()
			return fmt.Errorf("failed to get bookmaker info: %w", err)
		}
		t.cfg.VirtualHost = vhost
	}

	t.routingKeys = append([]string(nil), routingKeys...)
	t.handler = handler

	deliveries, err := t.connectLocked()
	if err != nil {
		t.cancel()
		return err
	}
	t.opened = true

	t.wg.Add(2)
	go t.consume(deliveries)
	go t.monitor()
	return nil
}

// Close 实现 MessageTransport
func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	if !t.opened {
		t.mu.Unlock()
		return nil
	}
	t.opened = false
	t.cancel()
	err := t.teardownLocked()
	t.mu.Unlock()

	t.wg.Wait()
	t.logger.Info("[AMQP] Transport closed")
	return err
}

// IsOpened 实现 MessageTransport
func (t *AMQPTransport) IsOpened() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.opened
}

// fetchVirtualHost 从 whoami 接口获取 virtual host
func (t *AMQPTransport) fetchVirtualHost(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/users/whoami.xml", t.cfg.APIBaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-access-token", t.cfg.AccessToken)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var info struct {
		XMLName     xml.Name `xml:"bookmaker_details"`
		BookmakerID string   `xml:"bookmaker_id,attr"`
		VirtualHost string   `xml:"virtual_host,attr"`
	}
	if err := xml.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("failed to unmarshal user info: %w", err)
	}
	t.logger.Info("[AMQP] Bookmaker ID: %s, virtual host: %s", info.BookmakerID, info.VirtualHost)
	return info.VirtualHost, nil
}

// connectLocked 建立连接、声明队列、绑定 routing key 并开始消费
func (t *AMQPTransport) connectLocked() (<-chan amqp.Delivery, error) {
	scheme := "amqp"
	config := amqp.Config{
		Vhost:     t.cfg.VirtualHost,
		Heartbeat: t.cfg.Heartbeat,
		Locale:    "en_US",
	}
	if t.cfg.UseTLS {
		scheme = "amqps"
		config.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	amqpURL := fmt.Sprintf("%s://%s:@%s", scheme, t.cfg.AccessToken, t.cfg.Host)

	t.logger.Info("[AMQP] Connecting to %s (vhost: %s)...", t.cfg.Host, t.cfg.VirtualHost)
	conn, err := amqp.DialConfig(amqpURL, config)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.Qos(t.cfg.PrefetchCount, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	queue, err := channel.QueueDeclare(
		"",    // name (auto-generated)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, routingKey := range t.routingKeys {
		if err := channel.QueueBind(queue.Name, routingKey, t.cfg.Exchange, false, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to bind queue: %w", err)
		}
		t.logger.Debug("[AMQP] Bound %s to routing key: %s", queue.Name, routingKey)
	}

	deliveries, err := channel.Consume(
		queue.Name,
		"",    // consumer
		true,  // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to consume: %w", err)
	}

	t.conn = conn
	t.channel = channel
	t.closeCh = conn.NotifyClose(make(chan *amqp.Error, 1))
	t.logger.Info("[AMQP] Consuming from queue %s (%d routing keys)", queue.Name, len(t.routingKeys))
	return deliveries, nil
}

func (t *AMQPTransport) teardownLocked() error {
	var err error
	if t.channel != nil {
		err = t.channel.Close()
		t.channel = nil
	}
	if t.conn != nil {
		if cerr := t.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
		t.conn = nil
	}
	return err
}

// consume 在单个 goroutine 中按顺序投递
func (t *AMQPTransport) consume(deliveries <-chan amqp.Delivery) {
	defer t.wg.Done()
	for d := range deliveries {
		t.handler(Delivery{
			Body:       d.Body,
			RoutingKey: d.RoutingKey,
			Headers:    map[string]interface{}(d.Headers),
		})
	}
}

// monitor 监听连接关闭事件并按指数退避重连
func (t *AMQPTransport) monitor() {
	defer t.wg.Done()

	for {
		t.mu.Lock()
		closeCh := t.closeCh
		t.mu.Unlock()

		var closeErr *amqp.Error
		select {
		case closeErr = <-closeCh:
		case <-t.ctx.Done():
			return
		}
		if closeErr == nil {
			t.logger.Info("[AMQP] Connection closed normally")
			return
		}

		t.logger.Error("[AMQP] Connection lost: %v", closeErr)

		var deliveries <-chan amqp.Delivery
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = t.cfg.InitialInterval
		b.MaxInterval = t.cfg.MaxInterval
		b.MaxElapsedTime = 0

		op := func() error {
			metrics.Reconnects.Inc()
			t.mu.Lock()
			defer t.mu.Unlock()
			if !t.opened {
				return backoff.Permanent(common.ErrNotConnected)
			}
			_ = t.teardownLocked()
			var err error
			deliveries, err = t.connectLocked()
			return err
		}
		notify := func(err error, next time.Duration) {
			t.logger.Warn("[AMQP] Reconnect failed: %v (next attempt in %v)", err, next)
		}

		if err := backoff.RetryNotify(op, backoff.WithContext(b, t.ctx), notify); err != nil {
			t.logger.Info("[AMQP] Reconnect loop stopped: %v", err)
			return
		}

		t.logger.Info("[AMQP] Reconnected successfully")
		t.wg.Add(1)
		go t.consume(deliveries)
	}
}
