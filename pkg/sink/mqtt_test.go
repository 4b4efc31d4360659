package sink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/urn"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                       { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakePublisher struct {
	token        mqtt.Token
	published    []published
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.published = append(p.published, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	return p.token
}

func (p *fakePublisher) Disconnect(uint) { p.disconnected = true }

func TestMQTTSink_Handle(t *testing.T) {
	pub := &fakePublisher{token: completedToken(nil)}
	s := newMQTTSink(pub, MQTTConfig{TopicPrefix: "feed", QoS: QoSAtLeastOnce, RetainSystem: true}, common.NewNopLogger())

	sport := urn.NewSportURN(1)
	require.NoError(t, s.Handle(context.Background(), entities.BetStop{EventMessage: entities.EventMessage{
		Header: entities.Header{Producer: 1},
		Event:  entities.SportEvent{ID: urn.MustParse("sr:match:5"), SportID: &sport},
	}}))
	require.NoError(t, s.Handle(context.Background(), entities.Alive{Header: entities.Header{Producer: 3}, Subscribed: true}))

	require.Len(t, pub.published, 2)
	assert.Equal(t, "feed/bet_stop/sr_match_5", pub.published[0].topic)
	assert.Equal(t, byte(QoSAtLeastOnce), pub.published[0].qos)
	assert.False(t, pub.published[0].retained)

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &env))
	assert.Equal(t, "sr:match:5", env["event_id"])

	assert.Equal(t, "feed/alive/producer_3", pub.published[1].topic)
	assert.True(t, pub.published[1].retained, "system messages are retained")

	require.NoError(t, s.Close())
	assert.True(t, pub.disconnected)
}

func TestMQTTSink_Errors(t *testing.T) {
	alive := entities.Alive{Header: entities.Header{Producer: 1}}

	failing := newMQTTSink(&fakePublisher{token: completedToken(errors.New("not connected"))}, MQTTConfig{}, common.NewNopLogger())
	err := failing.Handle(context.Background(), alive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	pending := &fakeToken{done: make(chan struct{})}
	slow := newMQTTSink(&fakePublisher{token: pending}, MQTTConfig{PublishWait: 20 * time.Millisecond}, common.NewNopLogger())
	err = slow.Handle(context.Background(), alive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow = newMQTTSink(&fakePublisher{token: pending}, MQTTConfig{PublishWait: time.Minute}, common.NewNopLogger())
	assert.ErrorIs(t, slow.Handle(ctx, alive), context.Canceled)

	_, err = NewMQTTSink(MQTTConfig{}, common.NewNopLogger())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
