package models

import (
	"strings"
)

// NarrativeSectionTitles are the headings an analysis narrative is organised under, in order.
var NarrativeSectionTitles = []string{
	"Key Insights",
	"Overview",
	"Current State",
	"Risk Implications",
	"Top Gaps",
	"Recommendations",
	"Quick Wins",
}

type NarrativeSection struct {
	Heading    string
	Paragraphs []string
}

// ParseNarrative splits narrative text into labeled sections. Headings are recognised with or
// without numbering, markdown emphasis or a trailing colon; text after "Heading:" on the same
// line starts the section body. Text before the first heading, or text with no headings at
// all, lands in a section with an empty heading.
func ParseNarrative(text string) []NarrativeSection {
	var (
		sections []NarrativeSection
		current  *NarrativeSection
		para     []string
	)

	flush := func() {
		if len(para) == 0 {
			return
		}
		if current == nil {
			sections = append(sections, NarrativeSection{})
			current = &sections[len(sections)-1]
		}
		current.Paragraphs = append(current.Paragraphs, strings.Join(para, " "))
		para = nil
	}

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			flush()
			continue
		}
		if heading, rest, ok := matchHeading(line); ok {
			flush()
			sections = append(sections, NarrativeSection{Heading: heading})
			current = &sections[len(sections)-1]
			if rest != "" {
				para = append(para, rest)
			}
			continue
		}
		para = append(para, line)
	}
	flush()
	return sections
}

func matchHeading(line string) (heading, rest string, ok bool) {
	s := strings.TrimLeft(line, "#*_ ")
	s = strings.TrimLeft(s, "0123456789")
	s = strings.TrimLeft(s, ".) ")
	s = strings.TrimLeft(s, "*_ ")

	for _, title := range NarrativeSectionTitles {
		if len(s) < len(title) || !strings.EqualFold(s[:len(title)], title) {
			continue
		}
		tail := strings.TrimLeft(s[len(title):], "*_ ")
		switch {
		case tail == "":
			return title, "", true
		case strings.HasPrefix(tail, ":"):
			return title, strings.TrimSpace(strings.TrimLeft(tail[1:], "*_ ")), true
		}
	}
	return "", "", false
}
