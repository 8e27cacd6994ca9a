package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/BTreeMap/RecipeBot/internal/models"
)

// DefaultPollTimeout is the long-polling timeout in seconds.
const DefaultPollTimeout = 60

// TelegramService implements Service with the Telegram Bot API using long polling.
type TelegramService struct {
	api      *tgbotapi.BotAPI
	stream   *eventStream
	stopPoll sync.Once
}

// NewTelegramService authorizes the bot token and creates the service.
func NewTelegramService(token string, debug bool) (*TelegramService, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("TelegramService failed to authorize bot", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	api.Debug = debug
	slog.Info("TelegramService authorized", "username", api.Self.UserName)
	return &TelegramService{api: api, stream: newEventStream("TelegramService")}, nil
}

// Start begins polling for updates until ctx is done or Stop is called.
func (s *TelegramService) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = DefaultPollTimeout
	updates := s.api.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				s.stopPolling()
				slog.Debug("TelegramService polling stopped due to context cancellation")
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if ev, ok := EventFromUpdate(update); ok {
					s.stream.emitWait(ctx, ev)
				}
			}
		}
	}()
	slog.Info("TelegramService polling started")
	return nil
}

// Stop stops polling and closes the event channel.
func (s *TelegramService) Stop() error {
	s.stopPolling()
	if s.stream.close() {
		slog.Info("TelegramService stopped and channel closed")
	}
	return nil
}

func (s *TelegramService) stopPolling() {
	s.stopPoll.Do(s.api.StopReceivingUpdates)
}

// Events returns the channel of inbound events.
func (s *TelegramService) Events() <-chan models.Event {
	return s.stream.events
}

// Send delivers msg through the Bot API.
func (s *TelegramService) Send(ctx context.Context, msg models.Message) error {
	if s.stream.isStopped() {
		return ErrServiceStopped
	}
	c, err := BuildChattable(msg)
	if err != nil {
		return err
	}
	if msg.Kind == models.MessageCallbackAnswer {
		_, err = s.api.Request(c)
	} else {
		_, err = s.api.Send(c)
	}
	if err != nil {
		slog.Error("TelegramService Send error", "error", err, "chatID", msg.ChatID, "kind", msg.Kind)
		return fmt.Errorf("telegram send %s: %w", msg.Kind, err)
	}
	return nil
}

// BuildChattable converts an outbound message into a Bot API request.
func BuildChattable(msg models.Message) (tgbotapi.Chattable, error) {
	if msg.Kind == models.MessageCallbackAnswer {
		return tgbotapi.NewCallback(msg.CallbackID, msg.Text), nil
	}

	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", msg.ChatID, err)
	}
	parseMode := ""
	if msg.HTML {
		parseMode = tgbotapi.ModeHTML
	}

	switch msg.Kind {
	case models.MessagePhoto:
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(msg.PhotoURL))
		p.Caption = msg.Text
		p.ParseMode = parseMode
		if markup := replyMarkup(msg); markup != nil {
			p.ReplyMarkup = markup
		}
		return p, nil
	case models.MessageText:
		m := tgbotapi.NewMessage(chatID, msg.Text)
		m.ParseMode = parseMode
		if markup := replyMarkup(msg); markup != nil {
			m.ReplyMarkup = markup
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported message kind %q", msg.Kind)
	}
}

// replyMarkup returns the inline keyboard, the reply keyboard, or nil.
func replyMarkup(msg models.Message) interface{} {
	if len(msg.Buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(msg.Buttons))
		for _, row := range msg.Buttons {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if len(msg.Keyboard) > 0 {
		rows := make([][]tgbotapi.KeyboardButton, 0, len(msg.Keyboard))
		for _, row := range msg.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		return kb
	}
	return nil
}

// EventFromUpdate converts a Bot API update into an event. ok is false for
// updates RecipeBot does not handle (edits, channel posts, non-text messages).
func EventFromUpdate(update tgbotapi.Update) (models.Event, bool) {
	if cq := update.CallbackQuery; cq != nil {
		if cq.From == nil {
			return models.Event{}, false
		}
		chatID := ""
		if cq.Message != nil && cq.Message.Chat != nil {
			chatID = strconv.FormatInt(cq.Message.Chat.ID, 10)
		}
		return models.NewCallbackEvent(strconv.FormatInt(cq.From.ID, 10), chatID, cq.ID, cq.Data), true
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || msg.Text == "" {
		return models.Event{}, false
	}
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if msg.IsCommand() {
		return models.NewCommandEvent(userID, chatID, msg.Command(), msg.CommandArguments()), true
	}
	// Telegram only marks latin command names as commands
	return ParseText(userID, chatID, msg.Text), true
}
