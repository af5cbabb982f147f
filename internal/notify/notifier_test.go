package notify

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSendTruncatesLongMessages(t *testing.T) {
	orig := sendFn
	var gotTitle, gotMessage string
	sendFn = func(title, message string) error {
		gotTitle, gotMessage = title, message
		return nil
	}
	defer func() { sendFn = orig }()

	long := strings.Repeat("x", 2*maxMsgRunes)
	if err := Send("updctl", long); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotTitle != "updctl" {
		t.Fatalf("title: got %q", gotTitle)
	}
	if n := utf8.RuneCountInString(gotMessage); n != maxMsgRunes {
		t.Fatalf("message runes: got %d want %d", n, maxMsgRunes)
	}
	if !strings.HasSuffix(gotMessage, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", gotMessage[len(gotMessage)-8:])
	}
}

func TestSendPassesShortMessagesUnchanged(t *testing.T) {
	orig := sendFn
	var got string
	sendFn = func(title, message string) error {
		got = message
		return nil
	}
	defer func() { sendFn = orig }()

	if err := Send("updctl", "updated to 1.2.3"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got != "updated to 1.2.3" {
		t.Fatalf("got %q", got)
	}
}
