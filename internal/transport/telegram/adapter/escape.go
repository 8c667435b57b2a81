package adapter

import "strings"

// markdownV2Special is the set of characters Telegram requires to be escaped in
// MarkdownV2 text outside of entities.
const markdownV2Special = "_*[]()~`>#+-=|{}.!\\"

// EscapeMarkdownV2 prefixes every MarkdownV2 special character with a backslash,
// so the text renders literally.
func EscapeMarkdownV2(s string) string {
	if !strings.ContainsAny(s, markdownV2Special) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		if r < 128 && strings.IndexByte(markdownV2Special, byte(r)) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
