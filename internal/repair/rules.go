package repair

import (
	"regexp"
	"strings"

	"mermaidlive/internal/diagtype"
)

// Rule is one textual substitution targeting a known mistake.
type Rule struct {
	ID    string
	Title string

	apply func(text string) (string, int)
}

// Rules returns the ordered rule set.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

var rules = []Rule{
	{
		ID:    "arrow-head-gap",
		Title: "join arrow head to its shaft",
		apply: regexpRule(
			regexp.MustCompile(`([-=.]*[-=])[ \t]+(>>?)`),
			func(m []string) string { return m[1] + m[2] },
		),
	},
	{
		ID:    "arrow-shaft-gap",
		Title: "join arrow shaft segments",
		apply: regexpRule(
			splitShaft,
			func(m []string) string { return gaps.ReplaceAllString(m[0], "") },
		),
	},
	{
		ID:    "edge-label-pipe-gap",
		Title: "remove space before closing edge label pipe",
		apply: regexpRule(
			regexp.MustCompile(`([-=.>ox])([ \t]*)\|([^|\n{}]*[^|\s{}])[ \t]+\|`),
			func(m []string) string { return m[1] + m[2] + "|" + m[3] + "|" },
		),
	},
	{
		ID:    "node-label-quotes",
		Title: "remove quotes inside node label",
		apply: skipDirectives(regexpRule(
			nodeLabel,
			func(m []string) string { return "[" + unquoteLabel(m[1]) + "]" },
		)),
	},
	{
		ID:    "block-keyword-space",
		Title: "separate block keyword from its title",
		apply: func(text string) (string, int) {
			sequence := isSequence(text)
			return regexpRule(
				blockOpen,
				func(m []string) string {
					if !blockTitleNeedsSpace(m[2], m[3], sequence) {
						return m[0]
					}
					return m[1] + m[2] + " " + m[3]
				},
			)(text)
		},
	},
}

var (
	// splitShaft matches a whole arrow whose segments are separated by
	// blanks, so a chain of any length is joined in one substitution.
	splitShaft = regexp.MustCompile(`[-=][-=.]*(?:[ \t]+[-=.]+)*[ \t]+[-=.]*[-=]>>?`)
	gaps       = regexp.MustCompile(`[ \t]+`)

	nodeLabel = regexp.MustCompile(`\[([^\[\]\n]*"[^\[\]\n]*)\]`)
	blockOpen = regexp.MustCompile(`(?m)^([ \t]*)(subgraph|loop|alt|opt|par|critical)([A-Za-z0-9_][^\n]*)$`)
)

// unquoteLabel strips quote characters from a bracketed label unless the
// label, inside any shape delimiters, is wrapped by exactly one pair.
func unquoteLabel(inner string) string {
	core := strings.Trim(inner, `()/\`)
	if len(core) >= 2 && strings.Count(core, `"`) == 2 &&
		strings.HasPrefix(core, `"`) && strings.HasSuffix(core, `"`) {
		return inner
	}
	return strings.ReplaceAll(inner, `"`, "")
}

// blockTitleNeedsSpace decides whether a keyword glued to the following
// text is a block opener. subgraph accepts any identifier; the sequence
// keywords only fire inside a sequence diagram before an upper-case letter
// or digit. Lines carrying an arrow are never touched.
func blockTitleNeedsSpace(keyword, rest string, sequence bool) bool {
	for _, arrow := range []string{"--", "==", "-.", "->"} {
		if strings.Contains(rest, arrow) {
			return false
		}
	}
	if keyword == "subgraph" {
		return true
	}
	if !sequence {
		return false
	}
	c := rest[0]
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// regexpRule builds a rule body from a pattern and a replacement over its
// submatches. A replacement equal to the match is not counted.
func regexpRule(re *regexp.Regexp, replace func(m []string) string) func(string) (string, int) {
	return func(text string) (string, int) {
		locs := re.FindAllStringSubmatchIndex(text, -1)
		if len(locs) == 0 {
			return text, 0
		}
		var b strings.Builder
		b.Grow(len(text))
		last, count := 0, 0
		for _, loc := range locs {
			groups := make([]string, len(loc)/2)
			for g := range groups {
				if loc[2*g] >= 0 {
					groups[g] = text[loc[2*g]:loc[2*g+1]]
				}
			}
			repl := replace(groups)
			if repl != groups[0] {
				count++
			}
			b.WriteString(text[last:loc[0]])
			b.WriteString(repl)
			last = loc[1]
		}
		b.WriteString(text[last:])
		return b.String(), count
	}
}

// skipDirectives applies fn to every line except `%%` comments and init
// directives, whose quotes belong to JSON.
func skipDirectives(fn func(string) (string, int)) func(string) (string, int) {
	return func(text string) (string, int) {
		lines := strings.Split(text, "\n")
		total := 0
		for i, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "%%") {
				continue
			}
			var n int
			lines[i], n = fn(line)
			total += n
		}
		if total == 0 {
			return text, 0
		}
		return strings.Join(lines, "\n"), total
	}
}

func isSequence(text string) bool {
	kw, ok := diagtype.Detect(strings.TrimSpace(text))
	return ok && kw == diagtype.Sequence
}
