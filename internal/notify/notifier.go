// Package notify shows a one-shot desktop notification with the outcome
// of an update. Everything here is best-effort: an unavailable
// notification daemon must never fail the update itself.
package notify

import (
	"unicode/utf8"

	"github.com/gen2brain/beeep"
)

const maxMsgRunes = 280

// Test seam for the beeep call.
var sendFn = func(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Send shows a desktop notification, truncating overlong messages.
func Send(title, message string) error {
	return sendFn(title, truncate(message))
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxMsgRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxMsgRunes-1]) + "…"
}
