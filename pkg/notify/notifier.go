package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/producer"
)

// Notifier 告警通道
type Notifier interface {
	Send(ctx context.Context, title string, lines []string) error
}

// ProducerAlerts 将生产者上下线推送到全部告警通道，发送在后台进行
type ProducerAlerts struct {
	logger    common.Logger
	notifiers []Notifier
	timeout   time.Duration
	now       func() time.Time
	wg        conc.WaitGroup
}

// NewProducerAlerts 创建生产者告警
func NewProducerAlerts(logger common.Logger, notifiers ...Notifier) *ProducerAlerts {
	return &ProducerAlerts{
		logger:    logger,
		notifiers: notifiers,
		timeout:   10 * time.Second,
		now:       time.Now,
	}
}

// OnProducerDown 实现 feed.ProducerObserver
func (a *ProducerAlerts) OnProducerDown(p producer.Producer, reason string) {
	a.broadcast("Producer Down", []string{
		fmt.Sprintf("Producer: %d (%s)", p.ID, p.Name),
		fmt.Sprintf("Reason: %s", reason),
		fmt.Sprintf("Time: %s", a.now().Format("2006-01-02 15:04:05")),
	})
}

// OnProducerUp 实现 feed.ProducerObserver
func (a *ProducerAlerts) OnProducerUp(p producer.Producer) {
	a.broadcast("Producer Recovered", []string{
		fmt.Sprintf("Producer: %d (%s)", p.ID, p.Name),
		fmt.Sprintf("Time: %s", a.now().Format("2006-01-02 15:04:05")),
	})
}

func (a *ProducerAlerts) broadcast(title string, lines []string) {
	if len(a.notifiers) == 0 {
		return
	}
	a.wg.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		var err error
		for _, n := range a.notifiers {
			err = multierr.Append(err, n.Send(ctx, title, lines))
		}
		if err != nil {
			a.logger.Warn("[Notify] Failed to send %q: %v", title, err)
		}
	})
}

// Wait 等待发送完成
func (a *ProducerAlerts) Wait() {
	a.wg.Wait()
}
