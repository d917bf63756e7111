package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tutorpy/api/internal/hint"
)

// nextHint: /hint и кнопка "Next hint": следующая подсказка по задаче из хранилища.
func (r *Router) nextHint(chatID int64) {
	s := r.session(chatID)
	c := s.snapshot("")

	ctx, cancel := r.ctx()
	defer cancel()

	out, err := r.Tutor.NextHint(ctx, owner(chatID), r.choice(chatID), c)
	if err != nil {
		r.SendError(chatID, err)
		return
	}

	msg := tgbotapi.NewMessage(chatID, trimForTelegram(formatHint(out.Level, out.Hint)))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if !out.Record.Exhausted() {
		msg.ReplyMarkup = makeHintKeyboard()
	}
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}
}

func (r *Router) showHints(chatID int64) {
	p := r.session(chatID).problem()
	ctx, cancel := r.ctx()
	defer cancel()

	rec, err := r.Tutor.Hints(ctx, owner(chatID), p)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	r.send(chatID, trimForTelegram(fmt.Sprintf("Hints so far (%d of %d):\n%s", rec.CurrentLevel, hint.MaxLevel, hint.HistoryText(rec))))
}

func (r *Router) resetHints(chatID int64) {
	p := r.session(chatID).problem()
	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.Tutor.Reset(ctx, owner(chatID), p); err != nil {
		r.SendError(chatID, err)
		return
	}
	r.send(chatID, "Hints reset. The next /hint starts from level 1.")
}

func formatHint(level hint.Level, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💡 *Hint %d* (%s)\n", level, level)
	b.WriteString(esc(strings.TrimSpace(text)))
	return b.String()
}
