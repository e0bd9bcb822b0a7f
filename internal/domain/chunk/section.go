package chunk

import (
	"regexp"
	"strings"
)

// Section is the outcome of section extraction: either a section identity
// was found or it was not. A chunk carries at most one.
type Section struct {
	Number string
	Title  string
	Found  bool
}

// numberedTitleLimit caps the title length for plain numbered sections,
// whose "title" is really the first sentence of the clause.
const numberedTitleLimit = 50

// sectionRule pairs a marker pattern with its extractor. Rules are tried in
// priority order and the first match wins, which keeps precedence explicit
// and each rule independently testable.
type sectionRule struct {
	name    string
	re      *regexp.Regexp
	extract func(m []string) Section
}

var sectionRules = []sectionRule{
	{
		// "ARTICLE IV" followed by its title on the next line.
		name: "article",
		re:   regexp.MustCompile(`(?i)ARTICLE\s+([IVX]+|\d+)\s*\n(.+)`),
		extract: func(m []string) Section {
			return Section{
				Number: "Article " + strings.ToUpper(m[1]),
				Title:  strings.TrimSpace(m[2]),
				Found:  true,
			}
		},
	},
	{
		// Lettered subsection: "A. Architectural Control Committee".
		name: "letter",
		re:   regexp.MustCompile(`(?m)^([A-Z])\.\s+([^\n.]+)`),
		extract: func(m []string) Section {
			return Section{
				Number: m[1],
				Title:  strings.TrimSpace(m[2]),
				Found:  true,
			}
		},
	},
	{
		// Numbered clause: "1. From and after January 1...".
		name: "numbered",
		re:   regexp.MustCompile(`(?m)^(\d+)\.\s+([^\n.]+)`),
		extract: func(m []string) Section {
			title := m[2]
			if r := []rune(title); len(r) > numberedTitleLimit {
				title = string(r[:numberedTitleLimit])
			}
			return Section{
				Number: m[1],
				Title:  strings.TrimSpace(title),
				Found:  true,
			}
		},
	},
	{
		// Legacy one-line form: "Section 4.1 - Title" / "ARTICLE III - Title".
		name: "legacy-dash",
		re:   regexp.MustCompile(`(?i)(?:Section\s+(\d+\.\d+)|ARTICLE\s+([IVX]+))\s*[-–]\s*([^\n*]+)`),
		extract: func(m []string) Section {
			number := m[1]
			if number == "" {
				number = strings.ToUpper(m[2])
			}
			return Section{
				Number: number,
				Title:  strings.TrimSpace(m[3]),
				Found:  true,
			}
		},
	},
	{
		// Legacy bold-markdown form: "**Section 4.1 - Title**".
		name: "legacy-bold",
		re:   regexp.MustCompile(`(?i)\*\*Section\s+(\d+\.\d+)\s*[-–]\s*(.+?)\*\*`),
		extract: func(m []string) Section {
			return Section{
				Number: m[1],
				Title:  strings.TrimSpace(m[2]),
				Found:  true,
			}
		},
	},
}

// ExtractSection finds the section identity of a chunk, if any.
func ExtractSection(text string) Section {
	for _, rule := range sectionRules {
		if m := rule.re.FindStringSubmatch(text); m != nil {
			return rule.extract(m)
		}
	}
	return Section{}
}
