// Package diagtype recognizes the leading diagram-type keyword of a diagram
// text so clearly malformed input never reaches the engine.
package diagtype

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Keyword is the canonical spelling of a diagram-type keyword.
type Keyword string

const (
	Flowchart      Keyword = "flowchart"
	Graph          Keyword = "graph"
	Sequence       Keyword = "sequenceDiagram"
	Class          Keyword = "classDiagram"
	ClassV2        Keyword = "classDiagram-v2"
	State          Keyword = "stateDiagram"
	StateV2        Keyword = "stateDiagram-v2"
	EntityRelation Keyword = "erDiagram"
	Journey        Keyword = "journey"
	Gantt          Keyword = "gantt"
	Pie            Keyword = "pie"
	GitGraph       Keyword = "gitGraph"
	Mindmap        Keyword = "mindmap"
	Timeline       Keyword = "timeline"
	Quadrant       Keyword = "quadrantChart"
	Block          Keyword = "block"
	BlockBeta      Keyword = "block-beta"
	Sankey         Keyword = "sankey"
	SankeyBeta     Keyword = "sankey-beta"
	XYChart        Keyword = "xychart"
	XYChartBeta    Keyword = "xychart-beta"
)

var keywords = []Keyword{
	Flowchart, Graph, Sequence, Class, ClassV2, State, StateV2, EntityRelation,
	Journey, Gantt, Pie, GitGraph, Mindmap, Timeline, Quadrant,
	Block, BlockBeta, Sankey, SankeyBeta, XYChart, XYChartBeta,
}

var (
	folder = cases.Fold()
	byFold = func() map[string]Keyword {
		m := make(map[string]Keyword, len(keywords))
		for _, kw := range keywords {
			m[folder.String(string(kw))] = kw
		}
		return m
	}()
)

// Detect returns the keyword the trimmed text starts with. Leading `%%`
// comment and directive lines are skipped. The keyword must be followed by
// end of text, whitespace or ';'.
func Detect(trimmed string) (Keyword, bool) {
	head := firstStatement(trimmed)
	if head == "" {
		return "", false
	}
	end := strings.IndexFunc(head, func(r rune) bool {
		return r == ';' || unicode.IsSpace(r)
	})
	if end >= 0 {
		head = head[:end]
	}
	kw, ok := byFold[folder.String(head)]
	return kw, ok
}

// IsRecognized reports whether trimmed starts with a known keyword.
func IsRecognized(trimmed string) bool {
	_, ok := Detect(trimmed)
	return ok
}

func firstStatement(text string) string {
	for text != "" {
		line := text
		rest := ""
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, rest = text[:i], text[i+1:]
		}
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "%%") {
			return strings.TrimLeftFunc(text, unicode.IsSpace)
		}
		text = rest
	}
	return ""
}

// List renders the keywords as a comma separated list for messages.
func List() string {
	parts := make([]string, len(keywords))
	for i, kw := range keywords {
		parts[i] = string(kw)
	}
	return strings.Join(parts, ", ")
}
