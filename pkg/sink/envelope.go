package sink

import (
	"encoding/json"
	"fmt"
	"strconv"

	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/models"
)

// Envelope 对外推送的消息格式
type Envelope struct {
	Kind       models.MessageKind        `json:"kind"`
	Producer   int                       `json:"producer"`
	EventID    string                    `json:"event_id,omitempty"`
	SportID    string                    `json:"sport_id,omitempty"`
	Timestamps entities.MessageTimestamp `json:"timestamps"`
	Payload    entities.Message          `json:"payload"`
}

// NewEnvelope 包装映射后的消息
func NewEnvelope(msg entities.Message) Envelope {
	env := Envelope{
		Kind:       msg.Kind(),
		Producer:   msg.ProducerID(),
		Timestamps: msg.Timestamps(),
		Payload:    msg,
	}
	if event, ok := entities.EventOf(msg); ok {
		env.EventID = event.ID.String()
		if event.SportID != nil {
			env.SportID = event.SportID.String()
		}
	}
	return env
}

// Marshal 序列化为 JSON
func (e Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", e.Kind, err)
	}
	return data, nil
}

// PartitionKey 赛事消息按赛事分区，系统消息按生产者分区
func (e Envelope) PartitionKey() string {
	if e.EventID != "" {
		return e.EventID
	}
	return "producer:" + strconv.Itoa(e.Producer)
}
