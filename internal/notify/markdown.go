package notify

import (
	"regexp"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Formatted is message text with its Telegram entities.
type Formatted struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

var (
	headerRe = regexp.MustCompile(`(?m)^#{1,6}\s+(.+?)$`)
	inlineRe = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__|` + "`([^`]+?)`" + `|\*([^*\n]+?)\*|\b_([^_\n]+?)_\b`)
)

// entity kind per capture group of inlineRe
var inlineKinds = []string{"bold", "bold", "code", "italic", "italic"}

// utf16Len counts UTF-16 code units, the unit Telegram entity offsets use.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// Markdown turns the small Markdown subset the notifiers write into plain
// text plus entities: **bold**, __bold__, `code`, *italic*, _italic_, and
// headers rendered bold. Markers do not nest.
func Markdown(text string) Formatted {
	text = headerRe.ReplaceAllString(text, "**$1**")

	var (
		out      strings.Builder
		entities []tgbotapi.MessageEntity
		offset   int
		last     int
	)
	for _, m := range inlineRe.FindAllStringSubmatchIndex(text, -1) {
		plain := text[last:m[0]]
		out.WriteString(plain)
		offset += utf16Len(plain)

		for g := range inlineKinds {
			lo, hi := m[2+2*g], m[3+2*g]
			if lo == -1 {
				continue
			}
			inner := text[lo:hi]
			entities = append(entities, tgbotapi.MessageEntity{
				Type:   inlineKinds[g],
				Offset: offset,
				Length: utf16Len(inner),
			})
			out.WriteString(inner)
			offset += utf16Len(inner)
			break
		}
		last = m[1]
	}
	out.WriteString(text[last:])

	return Formatted{Text: strings.TrimRight(out.String(), " \n"), Entities: entities}
}
