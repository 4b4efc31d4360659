package processing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"uof-sdk/pkg/caching"
	"uof-sdk/pkg/common"
	"uof-sdk/pkg/models"
	"uof-sdk/pkg/producer"
	"uof-sdk/pkg/urn"
)

// decode 反序列化并模拟接收器回填 sport id
func decode(t *testing.T, body string) models.FeedMessage {
	t.Helper()
	msg, err := models.Deserialize([]byte(body))
	require.NoError(t, err)
	if msg.IsEventRelated() {
		sport := urn.NewSportURN(1)
		msg.Base().SportID = &sport
	}
	return msg
}

func newRegistry() *producer.Registry {
	return producer.NewRegistry(common.NewNopLogger(), producer.DefaultProducers())
}

func newTestValidator(descriptions caching.MarketDescriptionProvider) *Validator {
	return NewValidator(common.NewNopLogger(), newRegistry(), descriptions, caching.DefaultNamedValues(), "en")
}

type unknownMessage struct {
	models.MessageBase
}

func (unknownMessage) Kind() models.MessageKind { return "unknown" }

// decodeNoT 供 goroutine 内使用
func decodeNoT(body string) (models.FeedMessage, error) {
	msg, err := models.Deserialize([]byte(body))
	if err != nil {
		return nil, err
	}
	sport := urn.NewSportURN(1)
	msg.Base().SportID = &sport
	return msg, nil
}
