// Package keyboard builds inline keyboards whose buttons decode with the callbacks package.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes one inline button. Data parts are joined with "|".
type InlineBtn struct {
	Text   string
	Unique string
	Data   []string
}

// Btn is shorthand for an InlineBtn literal.
func Btn(text, unique string, data ...string) InlineBtn {
	return InlineBtn{Text: text, Unique: unique, Data: data}
}

const defaultCancelButtonText = "❌ Cancel"

// InlineButtonsRows builds an inline keyboard from rows of buttons.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data...).Inline()
		}
		inline = append(inline, r)
	}
	markup.InlineKeyboard = inline
	return markup
}

// InlineButtonsNPerRow lays buttons out left to right, n per row.
func InlineButtonsNPerRow(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	return InlineButtonsRows(Chunk(buttons, n)...)
}

// Chunk splits buttons into rows of at most n; n <= 1 yields one button per row.
func Chunk(buttons []InlineBtn, n int) [][]InlineBtn {
	if n < 1 {
		n = 1
	}
	rows := make([][]InlineBtn, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		rows = append(rows, buttons[i:min(i+n, len(buttons))])
	}
	return rows
}

// CancelButton returns a cancel button for action. The optional label replaces "❌ Cancel".
func CancelButton(action string, label ...string) InlineBtn {
	text := defaultCancelButtonText
	if len(label) > 0 && label[0] != "" {
		text = label[0]
	}
	return InlineBtn{Text: text, Unique: action}
}

// SingleCancelMarkup creates an inline keyboard with a single cancel button.
func SingleCancelMarkup(action string, label ...string) *tele.ReplyMarkup {
	return InlineButtonsRows([]InlineBtn{CancelButton(action, label...)})
}
