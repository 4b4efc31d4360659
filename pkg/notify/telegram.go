package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier 发送到 Telegram 会话
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier 创建 Telegram 通知器，会调用 getMe 校验 token
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID, nil)
}

// NewTelegramNotifierWithEndpoint 指定 API 地址，client 为 nil 时使用默认 http client
func NewTelegramNotifierWithEndpoint(token, endpoint string, chatID int64, client tgbotapi.HTTPClient) (*TelegramNotifier, error) {
	var (
		bot *tgbotapi.BotAPI
		err error
	)
	if client == nil {
		bot, err = tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	} else {
		bot, err = tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	}
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

// Send 发送纯文本消息
// tgbotapi 不支持 context，超时由 http client 控制
func (n *TelegramNotifier) Send(ctx context.Context, title string, lines []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := title + "\n" + strings.Join(lines, "\n")
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, text)); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}
