package models

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"uof-sdk/pkg/common"
)

// RootElement 读取 XML 根元素名称，跳过 XML 声明等
func RootElement(body []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: no root element", common.ErrDeserialization)
			}
			return "", fmt.Errorf("%w: %v", common.ErrDeserialization, err)
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// NewMessage 根据类型创建空消息
func NewMessage(kind MessageKind) (FeedMessage, bool) {
	switch kind {
	case KindAlive:
		return &Alive{}, true
	case KindSnapshotComplete:
		return &SnapshotComplete{}, true
	case KindFixtureChange:
		return &FixtureChange{}, true
	case KindBetStop:
		return &BetStop{}, true
	case KindBetSettlement:
		return &BetSettlement{}, true
	case KindBetCancel:
		return &BetCancel{}, true
	case KindRollbackBetSettlement:
		return &RollbackBetSettlement{}, true
	case KindRollbackBetCancel:
		return &RollbackBetCancel{}, true
	case KindOddsChange:
		return &OddsChange{}, true
	}
	return nil, false
}

// Deserialize 将原始 XML 解析为具体消息
func Deserialize(body []byte) (FeedMessage, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", common.ErrDeserialization)
	}

	root, err := RootElement(body)
	if err != nil {
		return nil, err
	}

	msg, ok := NewMessage(MessageKind(root))
	if !ok {
		return nil, fmt.Errorf("%w: unknown root element %q", common.ErrDeserialization, root)
	}

	if err := xml.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrDeserialization, root, err)
	}
	return msg, nil
}
