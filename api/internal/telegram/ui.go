package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	cbHintNext  = "hint_next"
	cbHintReset = "hint_reset"
)

// Кнопки под подсказкой: следующая подсказка и сброс.
func makeHintKeyboard() tgbotapi.InlineKeyboardMarkup {
	next := tgbotapi.NewInlineKeyboardButtonData("Next hint", cbHintNext)
	reset := tgbotapi.NewInlineKeyboardButtonData("Start over", cbHintReset)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(next, reset))
}

// лёгкое экранирование для Markdown
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

// trimForTelegram обрезает текст под лимит сообщения Telegram.
func trimForTelegram(s string) string {
	const limit = 3900
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}
