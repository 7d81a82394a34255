// Package reputation — detector.go находит команду варианта в тексте и разбирает её.
package reputation

import (
	"regexp"
	"strings"
)

// Detector ищет команду одного варианта.
type Detector struct {
	variant Variant
	pattern *regexp.Regexp
}

// NewDetector создаёт детектор для варианта.
// Команда ищется в любом месте текста, регистр не важен, захватывается до конца строки.
func NewDetector(v Variant) *Detector {
	return &Detector{
		variant: v,
		pattern: regexp.MustCompile(`(?i)(?:^|\s)(` + regexp.QuoteMeta(v.Keyword) + `)(?:[ \t]+([^\r\n]*))?(?:$|[\r\n])`),
	}
}

// Detect возвращает разобранную команду, если текст её содержит.
//
// Примеры (Keyword "!cheers"):
//
//	"!cheers"                  → award, получатель — автор родителя
//	"!cheers me"               → self
//	"!cheers top"              → top
//	"!cheers to u/bob thanks"  → award u/bob, причина "thanks"
//	"great post !cheers u/bob" → award u/bob
func (d *Detector) Detect(text string) (Command, bool) {
	m := d.pattern.FindStringSubmatch(text)
	if m == nil {
		return Command{}, false
	}
	return d.parse(strings.Fields(m[2])), true
}

func (d *Detector) parse(words []string) Command {
	if len(words) > 0 {
		switch strings.ToLower(words[0]) {
		case "me":
			return Command{Kind: CommandSelf}
		case "top":
			return Command{Kind: CommandTop}
		}
	}

	idx := 0
	if len(words) > idx && strings.EqualFold(words[idx], "to") {
		idx++
	}
	if len(words) <= idx {
		return Command{Kind: CommandAward}
	}

	cmd := Command{
		Kind:   CommandAward,
		Target: strings.TrimRight(words[idx], ".,!?:;"),
	}
	if d.variant.ReasonEnabled {
		cmd.Reason = strings.TrimSpace(strings.Join(words[idx+1:], " "))
	}
	return cmd
}
