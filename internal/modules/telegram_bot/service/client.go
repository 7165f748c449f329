package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ratio_bot/internal/metrics"
	"ratio_bot/internal/models"
	"ratio_bot/internal/modules/config"
	"ratio_bot/pkg/logger"
)

// Sender то, что нужно от *tgbot.BotAPI.
type Sender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram односторонний канал уведомлений. Send не блокирует: сообщения уходят
// из очереди отдельным воркером, ошибки доставки только логируются.
type Telegram struct {
	bot    Sender
	chatID int64
	out    io.Writer // куда печатаем, если бота нет

	mu     sync.Mutex
	queue  chan string
	closed bool
	done   chan struct{}
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	var bot Sender
	if cfg.Telegram.Token != "" {
		b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("telegram bot: %w", err)
		}
		bot = b
	} else {
		logger.Warn("[TG] токен не задан, уведомления пишем в stdout")
	}
	return New(bot, cfg.Telegram.ChatID, cfg.Telegram.QueueSize), nil
}

// New bot == nil -> уведомления печатаются в stdout.
func New(bot Sender, chatID int64, queueSize int) *Telegram {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		out:    os.Stdout,
		queue:  make(chan string, queueSize),
		done:   make(chan struct{}),
	}
}

func (t *Telegram) Send(_ context.Context, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		metrics.NotifyDropped.Inc()
		return
	}

	select {
	case t.queue <- msg:
	default:
		metrics.NotifyDropped.Inc()
		logger.Warn("[TG] очередь уведомлений переполнена, сообщение отброшено")
	}
}

// Start запускает воркер доставки.
func (t *Telegram) Start() {
	go func() {
		defer close(t.done)
		for msg := range t.queue {
			if err := t.deliver(msg); err != nil {
				metrics.NotifyDropped.Inc()
				logger.Warn("[TG] %v", err)
			}
		}
	}()
}

// Stop закрывает очередь и ждёт, пока воркер доставит остаток.
func (t *Telegram) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Telegram) deliver(msg string) error {
	if t.bot == nil {
		_, err := fmt.Fprintln(t.out, msg)
		return err
	}

	m := tgbot.NewMessage(t.chatID, msg)
	m.ParseMode = tgbot.ModeHTML
	m.DisableWebPagePreview = true
	if _, err := t.bot.Send(m); err != nil {
		return fmt.Errorf("send to chat %d: %v: %w", t.chatID, err, models.ErrNotification)
	}
	return nil
}
