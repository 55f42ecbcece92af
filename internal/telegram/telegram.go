package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const timeout = 10 * time.Second

var (
	ErrNoToken   = errors.New("bot token is required")
	ErrNoChatID  = errors.New("chat ID is required")
	ErrEmptyText = errors.New("message text is required")
)

// Client represents a Telegram Bot API client bound to one chat
type Client struct {
	bot    *telego.Bot
	chatID telego.ChatID
}

type clientOptions struct {
	apiServer  string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*clientOptions)

// WithAPIServer overrides the Bot API base URL
func WithAPIServer(url string) ClientOption {
	return func(o *clientOptions) {
		o.apiServer = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, opts ...ClientOption) (*Client, error) {
	if botToken == "" {
		return nil, ErrNoToken
	}
	if chatID == "" {
		return nil, ErrNoChatID
	}

	o := clientOptions{httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(&o)
	}

	botOpts := []telego.BotOption{
		telego.WithHTTPClient(o.httpClient),
		telego.WithDiscardLogger(),
	}
	if o.apiServer != "" {
		botOpts = append(botOpts, telego.WithAPIServer(o.apiServer))
	}

	bot, err := telego.NewBot(botToken, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating bot: %w", err)
	}

	return &Client{
		bot:    bot,
		chatID: parseChatID(chatID),
	}, nil
}

// parseChatID accepts numeric IDs and @usernames
func parseChatID(s string) telego.ChatID {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return tu.ID(id)
	}
	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	return tu.Username(s)
}

// SendMessage sends an HTML message to the configured chat
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	params := tu.Message(c.chatID, text).
		WithParseMode(telego.ModeHTML).
		WithLinkPreviewOptions(&telego.LinkPreviewOptions{IsDisabled: true})

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// Ping checks the token by calling getMe and returns the bot username
func (c *Client) Ping(ctx context.Context) (string, error) {
	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("checking bot: %w", err)
	}
	return me.Username, nil
}
