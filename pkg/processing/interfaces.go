package processing

import (
	"context"

	"uof-sdk/pkg/entities"
	"uof-sdk/pkg/models"
)

// MessageValidator 消息校验器
type MessageValidator interface {
	Validate(ctx context.Context, msg models.FeedMessage) (ValidationResult, error)
}

// CacheProcessor 缓存处理器
type CacheProcessor interface {
	Process(ctx context.Context, msg models.FeedMessage) (CacheOutcome, error)
}

// MessageMapper 领域对象映射器
type MessageMapper interface {
	Map(ctx context.Context, msg models.FeedMessage, raw []byte) (entities.Message, error)
}

// MessageDispatcher 订阅者分发
type MessageDispatcher interface {
	Dispatch(ctx context.Context, msg entities.Message) int
}
