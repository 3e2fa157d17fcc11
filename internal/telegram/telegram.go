package telegram

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nightowlworks/grindbot/internal/config"
)

// Message is one raw chat message from the source window. Messages are never
// persisted by this subsystem; they are re-fetched on every invocation and
// only the cursor derived from them survives.
type Message struct {
	ID         int
	SenderID   int64
	SenderName string
	ChatID     int64
	Text       string
	Time       time.Time
}

// Bot interface for mocking telegram bot API
type Bot interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetSelf() tgbotapi.User
}

// tgBotWrapper wraps tgbotapi.BotAPI to implement Bot interface
type tgBotWrapper struct {
	bot *tgbotapi.BotAPI
}

func (w *tgBotWrapper) GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	return w.bot.GetUpdates(config)
}

func (w *tgBotWrapper) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return w.bot.Send(c)
}

func (w *tgBotWrapper) GetSelf() tgbotapi.User {
	return w.bot.Self
}

// BotFactory creates Bot instances (allows mocking)
type BotFactory func(token, apiEndpoint string, client *http.Client) (Bot, error)

var defaultBotFactory BotFactory = func(token, apiEndpoint string, client *http.Client) (Bot, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, client)
	if err != nil {
		return nil, err
	}
	return &tgBotWrapper{bot: bot}, nil
}

// Client is the poll-style message source and delivery sink for one chat.
// The source has no acknowledgment semantics: repeated polls can return
// already-seen messages, which is why the cursor resolver exists downstream.
type Client struct {
	cfg        config.TelegramConfig
	bot        Bot
	botFactory BotFactory
	httpClient *http.Client
}

func NewClient(cfg config.TelegramConfig) (*Client, error) {
	return NewClientWithFactory(cfg, defaultBotFactory)
}

// NewClientWithFactory creates a Client with a custom bot factory (for testing)
func NewClientWithFactory(cfg config.TelegramConfig, factory BotFactory) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	return &Client{cfg: cfg, botFactory: factory}, nil
}

func (c *Client) Init() error {
	var client *http.Client
	if c.cfg.Proxy != "" {
		proxyURL, err := url.Parse(c.cfg.Proxy)
		if err != nil {
			return fmt.Errorf("parse proxy url: %w", err)
		}
		client = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	} else {
		client = http.DefaultClient
	}
	c.httpClient = client

	bot, err := c.botFactory(c.cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}
	c.bot = bot
	log.Printf("[telegram] authorized as @%s", bot.GetSelf().UserName)
	return nil
}

// SetBot sets the bot (for testing)
func (c *Client) SetBot(bot Bot) {
	c.bot = bot
}

func (c *Client) SelfID() int64 {
	if c.bot == nil {
		return 0
	}
	return c.bot.GetSelf().ID
}

func (c *Client) ChatID() int64 {
	return c.cfg.ChatID
}

// FetchRecent polls the source for a bounded window of recent messages.
// The window size is fixed by config; ordering is whatever the API returns.
func (c *Client) FetchRecent() ([]Message, error) {
	if c.bot == nil {
		return nil, fmt.Errorf("telegram bot not initialized")
	}

	u := tgbotapi.NewUpdate(0)
	u.Limit = c.cfg.FetchWindow
	u.Timeout = 0

	updates, err := c.bot.GetUpdates(u)
	if err != nil {
		return nil, fmt.Errorf("fetch telegram updates: %w", err)
	}

	msgs := make([]Message, 0, len(updates))
	for _, upd := range updates {
		m := upd.Message
		if m == nil || m.From == nil || m.Chat == nil {
			continue
		}
		name := m.From.UserName
		if name == "" {
			name = m.From.FirstName
		}
		msgs = append(msgs, Message{
			ID:         m.MessageID,
			SenderID:   m.From.ID,
			SenderName: name,
			ChatID:     m.Chat.ID,
			Text:       m.Text,
			Time:       time.Unix(int64(m.Date), 0),
		})
	}
	return msgs, nil
}

// SendText dispatches one text segment and returns the new message id.
func (c *Client) SendText(chatID int64, text string) (int, error) {
	if c.bot == nil {
		return 0, fmt.Errorf("telegram bot not initialized")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send telegram message: %w", err)
	}
	return sent.MessageID, nil
}

// SendSticker dispatches one media-reference segment (a cached sticker file
// id) and returns the new message id.
func (c *Client) SendSticker(chatID int64, fileID string) (int, error) {
	if c.bot == nil {
		return 0, fmt.Errorf("telegram bot not initialized")
	}
	sticker := tgbotapi.NewSticker(chatID, tgbotapi.FileID(fileID))
	sent, err := c.bot.Send(sticker)
	if err != nil {
		return 0, fmt.Errorf("send telegram sticker: %w", err)
	}
	return sent.MessageID, nil
}
