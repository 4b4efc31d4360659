package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// MessagesReceived 按类型统计反序列化成功的消息
	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uof",
		Subsystem: "feed",
		Name:      "messages_received_total",
		Help:      "Total number of feed messages received, by kind",
	}, []string{"kind"})

	// DeserializationFailures 反序列化失败次数
	DeserializationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "uof",
		Subsystem: "feed",
		Name:      "deserialization_failures_total",
		Help:      "Total number of payloads that could not be deserialized",
	})

	// MessagesDropped 按原因统计被丢弃的消息
	MessagesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uof",
		Subsystem: "feed",
		Name:      "messages_dropped_total",
		Help:      "Total number of messages dropped before dispatch, by reason",
	}, []string{"reason"})

	// ValidationResults 校验结果
	ValidationResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uof",
		Subsystem: "pipeline",
		Name:      "validation_results_total",
		Help:      "Validation verdicts, by message kind and result",
	}, []string{"kind", "result"})

	// MessagesDispatched 分发到订阅者的消息
	MessagesDispatched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "uof",
		Subsystem: "pipeline",
		Name:      "messages_dispatched_total",
		Help:      "Total number of mapped messages dispatched to subscribers, by kind",
	}, []string{"kind"})

	// ProcessingLatency 从接收到分发完成的耗时
	ProcessingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "uof",
		Subsystem: "pipeline",
		Name:      "processing_latency_seconds",
		Help:      "Latency from receiving a message to finishing dispatch (seconds)",
		Buckets:   prometheus.DefBuckets,
	})

	// Reconnects AMQP 重连次数
	Reconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "uof",
		Subsystem: "amqp",
		Name:      "reconnects_total",
		Help:      "Total number of AMQP reconnect attempts",
	})
)

// 丢弃原因
const (
	DropEmptyBody           = "empty_body"
	DropUnknownProducer     = "unknown_producer"
	DropProducerUnavailable = "producer_unavailable"
	DropValidationFailure   = "validation_failure"
	DropProcessingError     = "processing_error"
	DropDuplicate           = "duplicate_fixture_change"
)

// Register 注册所有指标，不传参数时使用 DefaultRegisterer
func Register(registerers ...prometheus.Registerer) {
	once.Do(func() {
		var reg prometheus.Registerer
		if len(registerers) > 0 && registerers[0] != nil {
			reg = registerers[0]
		} else {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(
			MessagesReceived,
			DeserializationFailures,
			MessagesDropped,
			ValidationResults,
			MessagesDispatched,
			ProcessingLatency,
			Reconnects,
		)
	})
}
