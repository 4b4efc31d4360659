package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"uof-sdk/config"
	"uof-sdk/database"
	"uof-sdk/logger"
	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/feed"
	"uof-sdk/pkg/ingestion"
	"uof-sdk/pkg/metrics"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/notify"
	"uof-sdk/pkg/processing"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/sink"
	"uof-sdk/web"
)

// serve 组装 Feed 及其周边组件，ctx 取消后按相反顺序关闭
func serve(ctx context.Context, cfg *config.Config) (err error) {
	zl, err := logger.New(cfg.LogLevel, cfg.DevMode)
	if err != nil {
		return err
	}
	defer zl.Sync()

	log := common.NewZapLogger(zl, "uof")
	log.Info("[Main] Starting Betradar UOF consumer (node_id=%d, sessions=%v)", cfg.NodeID, cfg.Sessions)
	metrics.Register()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
	}()

	// 生产者
	producers := producer.NewRegistry(log, producer.DefaultProducers())
	if len(cfg.DisabledProducers) > 0 {
		if err := producers.Disable(cfg.DisabledProducers...); err != nil {
			return err
		}
	}

	// 市场描述与赛事数据
	apiDescriptions := caching.NewAPIMarketDescriptions(log, cfg.APIBaseURL, cfg.AccessToken)
	for _, culture := range cfg.Cultures {
		if err := apiDescriptions.Load(ctx, culture); err != nil {
			log.Warn("[Main] Failed to preload market descriptions (%s): %v", culture, err)
		}
	}
	descriptions := caching.NewBreakerProvider(log, "market-descriptions", apiDescriptions)
	sportEvents := caching.NewAPISportEvents(log, cfg.APIBaseURL, cfg.AccessToken)

	// 去重存储
	var dedup caching.DedupStore
	if cfg.RedisURL != "" {
		redisDedup, err := caching.NewRedisDedupStore(ctx, log, cfg.RedisURL, "uof:fixture:", cfg.DedupTTL)
		if err != nil {
			return err
		}
		closers = append(closers, redisDedup.Close)
		dedup = redisDedup
	} else {
		ttl := caching.NewTTLCache(cfg.DedupTTL)
		closers = append(closers, func() error { ttl.Close(); return nil })
		dedup = ttl
	}

	f, err := feed.New(log, feed.Config{
		NodeID:        cfg.NodeID,
		Cultures:      cfg.Cultures,
		Replay:        cfg.Replay,
		APIBaseURL:    cfg.APIBaseURL,
		AccessToken:   cfg.AccessToken,
		AutoRecovery:  cfg.AutoRecovery,
		MaxInactivity: cfg.MaxInactivity,
	}, feed.Dependencies{
		Transports: func(session string) ingestion.MessageTransport {
			return ingestion.NewAMQPTransport(ingestion.AMQPConfig{
				Host:        cfg.MessagingHost,
				VirtualHost: cfg.VirtualHost,
				AccessToken: cfg.AccessToken,
				APIBaseURL:  cfg.APIBaseURL,
				UseTLS:      cfg.UseTLS,
			}, log)
		},
		Producers:    producers,
		Store:        caching.NewMemoryStore(log, sportEvents),
		Descriptions: descriptions,
		Dedup:        dedup,
		Competitors:  sportEvents,
	})
	if err != nil {
		return err
	}

	// 订阅者
	hub := web.NewHub(log)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	closers = append(closers, func() error { stopHub(); return nil })

	var kafka *sink.KafkaSink
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err = sink.NewKafkaSink(sink.KafkaConfig{Brokers: cfg.KafkaBrokers, TopicPrefix: cfg.KafkaTopicPrefix}, log)
		if err != nil {
			return err
		}
		closers = append(closers, kafka.Close)
	}

	var mqttSink *sink.MQTTSink
	if cfg.MQTTBroker != "" {
		mqttSink, err = sink.NewMQTTSink(sink.MQTTConfig{
			Broker:       cfg.MQTTBroker,
			Username:     cfg.MQTTUsername,
			Password:     cfg.MQTTPassword,
			TopicPrefix:  cfg.MQTTTopicPrefix,
			QoS:          cfg.MQTTQoS,
			TLS:          cfg.MQTTUseTLS,
			RetainSystem: true,
		}, log)
		if err != nil {
			return err
		}
		closers = append(closers, mqttSink.Close)
	}

	interests, err := cfg.Interests()
	if err != nil {
		return err
	}
	for i, interest := range interests {
		session, err := f.CreateSession(cfg.SessionName(i), interest, hub.Handle)
		if err != nil {
			return err
		}
		if kafka != nil {
			if err := session.Subscribe(processing.Subscriber{ID: "kafka", Handler: kafka.Handle}); err != nil {
				return err
			}
		}
		if mqttSink != nil {
			if err := session.Subscribe(processing.Subscriber{ID: "mqtt", Handler: mqttSink.Handle}); err != nil {
				return err
			}
		}
		if err := session.Subscribe(processing.Subscriber{
			ID:     "competitor-cache",
			Filter: processing.SubscriptionFilter{Kinds: []models.MessageKind{models.KindBetSettlement}},
			Handler: func(ctx context.Context, msg entities.Message) error {
				if event, ok := entities.EventOf(msg); ok {
					sportEvents.Forget(event.ID)
				}
				return nil
			},
		}); err != nil {
			return err
		}
	}

	// 通知
	var notifiers []notify.Notifier
	if cfg.LarkWebhookURL != "" {
		notifiers = append(notifiers, notify.NewLarkNotifier(cfg.LarkWebhookURL))
	}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, tg)
	}
	if len(notifiers) > 0 {
		alerts := notify.NewProducerAlerts(log, notifiers...)
		f.AddProducerObserver(alerts)
		closers = append(closers, func() error { alerts.Wait(); return nil })
	}

	// 数据库
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		closers = append(closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		f.AddProducerObserver(database.NewProducerStatusWriter(db, log))
		if cfg.ArchiveMessages {
			archive, err := database.NewMessageArchive(db, log, cfg.CompressArchived)
			if err != nil {
				return err
			}
			closers = append(closers, archive.Close)
			f.AddListener(archive)
		}
		log.Info("[Main] Database connected and migrated")
	}

	closers = append(closers, f.Close)
	if err := f.Open(ctx); err != nil {
		return fmt.Errorf("open feed: %w", err)
	}

	var recovery web.Recoverer
	if rm := f.Recovery(); rm != nil {
		recovery = rm
	}
	server := web.NewServer(log, cfg.Port, f, recovery, hub)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	log.Info("[Main] Service is running. Press Ctrl+C to stop.")
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error("[Main] Web server stopped: %v", err)
		}
	}

	log.Info("[Main] Shutting down service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Stop(shutdownCtx)
	return nil
}
