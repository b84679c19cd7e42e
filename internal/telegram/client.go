// Package telegram sends batch summaries via the Telegram Bot API.
// It formats the runs of a batch into a MarkdownV2 message and handles
// delivery with retry logic for reliability.
package telegram

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/usfs-r5/edart/internal/models"
)

// sender is the part of tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendSummary sends one message listing every run of a batch.
func (c *Client) SendSummary(kind string, runs []models.Run) error {
	return c.send(formatSummary(kind, runs, time.Now()))
}

// SendError reports a batch that stopped on err.
func (c *Client) SendError(kind string, err error) error {
	message := fmt.Sprintf("❌ *edart %s failed*\n\n`%s`", escapeMarkdownV2(kind), escapeCode(err.Error()))
	return c.send(message)
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

var statusEmoji = map[string]string{
	models.RunDone:    "✅",
	models.RunSkipped: "⏭",
	models.RunFailed:  "❌",
	models.RunRunning: "⏳",
}

// formatSummary formats the runs of a batch into a Telegram message
func formatSummary(kind string, runs []models.Run, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🌲 *edart %s batch*\n\n", escapeMarkdownV2(kind))
	fmt.Fprintf(&b, "📅 Finished: %s\n", escapeMarkdownV2(now.Format("2006-01-02 15:04:05")))

	counts := map[string]int{}
	outputs := 0
	for _, r := range runs {
		counts[r.Status]++
		outputs += r.Outputs
	}
	fmt.Fprintf(&b, "%s done: %d  %s skipped: %d  %s failed: %d  outputs: %d\n\n",
		statusEmoji[models.RunDone], counts[models.RunDone],
		statusEmoji[models.RunSkipped], counts[models.RunSkipped],
		statusEmoji[models.RunFailed], counts[models.RunFailed], outputs)

	for i, r := range runs {
		fmt.Fprintf(&b, "%d\\. %s %s", i+1, statusEmoji[r.Status], escapeMarkdownV2(sceneName(r.Scene)))
		if r.Outputs > 0 {
			fmt.Fprintf(&b, " \\(%d outputs", r.Outputs)
			if d := r.Duration(); d > 0 {
				fmt.Fprintf(&b, ", %s", escapeMarkdownV2(formatDuration(d)))
			}
			b.WriteString("\\)")
		}
		b.WriteString("\n")
		if r.Message != "" {
			fmt.Fprintf(&b, "   %s\n", escapeMarkdownV2(r.Message))
		}
	}
	return b.String()
}

// sceneName shortens a TDIS path to <scene>/<run>.
func sceneName(path string) string {
	clean := filepath.Clean(path)
	parts := strings.Split(clean, string(filepath.Separator))
	for i := len(parts) - 1; i >= 2; i-- {
		if parts[i-1] == "TDIS" && parts[i-2] == "envi_aux" && i >= 3 {
			return parts[i-3] + "/" + parts[i]
		}
	}
	return filepath.Base(clean)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// escapeCode escapes text inside a MarkdownV2 code span.
func escapeCode(text string) string {
	return strings.NewReplacer("\\", "\\\\", "`", "\\`").Replace(text)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if h := int(d.Hours()); h >= 1 {
		return fmt.Sprintf("%dh%02dm", h, int(d.Minutes())%60)
	}
	if m := int(d.Minutes()); m >= 1 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
