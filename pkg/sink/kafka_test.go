package sink

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/urn"
)

func TestBuildSaramaConfig(t *testing.T) {
	tests := []struct {
		acks, compression string
		wantErr           bool
	}{
		{"all", "none", false},
		{"LEADER", "zstd", false},
		{"none", "gzip", false},
		{"bogus", "none", true},
		{"all", "brotli", true},
	}
	for _, tt := range tests {
		t.Run(tt.acks+"/"+tt.compression, func(t *testing.T) {
			_, err := buildSaramaConfig(KafkaConfig{RequiredAcks: tt.acks, Compression: tt.compression})
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewKafkaSink_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaSink(KafkaConfig{}, common.NewNopLogger())
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestKafkaSink_Handle(t *testing.T) {
	mp := mocks.NewSyncProducer(t, sarama.NewConfig())
	sport := urn.NewSportURN(1)
	msg := entities.BetStop{
		EventMessage: entities.EventMessage{
			Header: entities.Header{Producer: 1},
			Event:  entities.SportEvent{ID: urn.MustParse("sr:match:5"), SportID: &sport},
		},
		Groups: []string{"all"},
	}

	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var env map[string]interface{}
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		assert.Equal(t, "bet_stop", env["kind"])
		assert.Equal(t, "sr:match:5", env["event_id"])
		assert.Equal(t, "sr:sport:1", env["sport_id"])
		return nil
	})

	s := NewKafkaSinkWithProducer(mp, KafkaConfig{TopicPrefix: "feed"}, common.NewNopLogger())
	require.NoError(t, s.Handle(context.Background(), msg))
	require.NoError(t, s.Close())
}

func TestKafkaSink_RetriesThenSucceeds(t *testing.T) {
	mp := mocks.NewSyncProducer(t, sarama.NewConfig())
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	mp.ExpectSendMessageAndSucceed()

	s := NewKafkaSinkWithProducer(mp, KafkaConfig{MaxElapsed: time.Second}, common.NewNopLogger())
	require.NoError(t, s.Handle(context.Background(), entities.Alive{Header: entities.Header{Producer: 3}, Subscribed: true}))
	require.NoError(t, s.Close())
}

func TestEnvelope_PartitionKey(t *testing.T) {
	assert.Equal(t, "producer:3", NewEnvelope(entities.Alive{Header: entities.Header{Producer: 3}}).PartitionKey())

	fc := entities.FixtureChange{EventMessage: entities.EventMessage{Event: entities.SportEvent{ID: urn.MustParse("sr:match:9")}}}
	env := NewEnvelope(fc)
	assert.Equal(t, "sr:match:9", env.PartitionKey())
	assert.Empty(t, env.SportID)
}
