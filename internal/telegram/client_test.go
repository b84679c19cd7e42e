package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/usfs-r5/edart/internal/models"
)

type fakeBot struct {
	fails int
	sent  []string
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.fails > 0 {
		f.fails--
		return tgbotapi.Message{}, errors.New("Too Many Requests")
	}
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg.Text)
	return tgbotapi.Message{}, nil
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{1 * time.Hour, "1h00m"},
		{2*time.Hour + 5*time.Minute, "2h05m"},
		{30 * time.Minute, "30m"},
		{1 * time.Minute, "1m"},
		{42 * time.Second, "42s"},
	}

	for _, tt := range tests {
		result := formatDuration(tt.duration)
		if result != tt.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", tt.duration, result, tt.expected)
		}
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"p044r034_2018/TDISm__v2", `p044r034\_2018/TDISm\_\_v2`},
		{"2024-03-01 10.5!", `2024\-03\-01 10\.5\!`},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.in); got != tt.want {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestSceneName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/data/p044r034_2018/envi_aux/TDIS/TDISm__v2", "p044r034_2018/TDISm__v2"},
		{"/data/other", "other"},
	}
	for _, tt := range tests {
		if got := sceneName(tt.in); got != tt.want {
			t.Errorf("sceneName(%q) = %q, expected %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSummary(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Minute)
	runs := []models.Run{
		{Scene: "/data/p044r034_2018/envi_aux/TDIS/TDISm__v2", Status: models.RunDone, Outputs: 14, StartedAt: start, FinishedAt: &end},
		{Scene: "/data/p045r034_2018/envi_aux/TDIS/TDISm__v2", Status: models.RunSkipped, Message: "already processed", StartedAt: start, FinishedAt: &end},
	}

	msg := formatSummary("flatten", runs, end)
	for _, want := range []string{
		"*edart flatten batch*",
		"done: 1",
		"skipped: 1",
		"failed: 0",
		"outputs: 14",
		`1\. ✅ p044r034\_2018/TDISm\_\_v2 \(14 outputs, 3m\)`,
		`2\. ⏭ p045r034\_2018/TDISm\_\_v2`,
		"already processed",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("summary missing %q:\n%s", want, msg)
		}
	}
}

func TestSendRetries(t *testing.T) {
	bot := &fakeBot{fails: 2}
	c, err := newClient(bot, "12345", 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendSummary("extract", nil); err != nil {
		t.Fatalf("SendSummary failed: %v", err)
	}
	if len(bot.sent) != 1 {
		t.Errorf("Expected 1 delivered message, got %d", len(bot.sent))
	}

	bot = &fakeBot{fails: 5}
	c, _ = newClient(bot, "12345", 2, time.Millisecond)
	if err := c.SendError("flatten", errors.New("no match found")); err == nil {
		t.Error("Expected error after exhausting retries")
	}
}

func TestInvalidChatID(t *testing.T) {
	if _, err := newClient(&fakeBot{}, "not-a-number", 0, 0); err == nil {
		t.Error("Expected invalid chat ID error")
	}
}
