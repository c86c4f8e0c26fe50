package engine

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	svgRoot   = regexp.MustCompile(`<svg(?:\s[^>]*)?/?>`)
	svgAttr   = regexp.MustCompile(`([A-Za-z_:][-A-Za-z0-9_:.]*)\s*=\s*("[^"]*"|'[^']*')`)
	pixelSize = regexp.MustCompile(`^\s*([0-9]+(?:\.[0-9]+)?)\s*(?:px)?\s*$`)
)

type attr struct {
	name, value string
}

// Fit rewrites the root <svg> start tag so the artifact scales to its
// container: width="100%", a preserveAspectRatio, a max-width/height:auto
// style, and a viewBox derived from numeric width and height when missing.
// Everything after the start tag is left as is. ok is false when the markup
// has no <svg> root.
func Fit(svg string, maxWidth int) (string, bool) {
	loc := svgRoot.FindStringIndex(svg)
	if loc == nil {
		return "", false
	}
	tag := svg[loc[0]:loc[1]]
	selfClosing := strings.HasSuffix(tag, "/>")

	var attrs []attr
	for _, m := range svgAttr.FindAllStringSubmatch(tag, -1) {
		attrs = append(attrs, attr{name: m[1], value: m[2][1 : len(m[2])-1]})
	}
	get := func(name string) (string, int) {
		for i, a := range attrs {
			if strings.EqualFold(a.name, name) {
				return a.value, i
			}
		}
		return "", -1
	}
	set := func(name, value string) {
		if _, i := get(name); i >= 0 {
			attrs[i].value = value
			return
		}
		attrs = append(attrs, attr{name: name, value: value})
	}
	del := func(name string) {
		if _, i := get(name); i >= 0 {
			attrs = append(attrs[:i], attrs[i+1:]...)
		}
	}

	width, hasWidth := pixels(get("width"))
	height, hasHeight := pixels(get("height"))
	if _, i := get("viewBox"); i < 0 && hasWidth && hasHeight {
		set("viewBox", "0 0 "+trimFloat(width)+" "+trimFloat(height))
	}

	limit := ""
	switch {
	case maxWidth > 0:
		limit = strconv.Itoa(maxWidth) + "px"
	case hasWidth:
		limit = trimFloat(width) + "px"
	default:
		limit = existingMaxWidth(get("style"))
	}
	style, _ := get("style")
	style = withoutDecls(style, "max-width", "height", "width")
	if limit != "" {
		style = appendDecl(style, "max-width", limit)
	}
	style = appendDecl(style, "height", "auto")
	set("style", style)

	set("width", "100%")
	del("height")
	if _, i := get("preserveAspectRatio"); i < 0 {
		set("preserveAspectRatio", "xMidYMid meet")
	}

	var b strings.Builder
	b.WriteString("<svg")
	for _, a := range attrs {
		b.WriteString(" " + a.name + `="` + strings.ReplaceAll(a.value, `"`, "&quot;") + `"`)
	}
	if selfClosing {
		b.WriteString("/>")
	} else {
		b.WriteString(">")
	}
	return svg[:loc[0]] + b.String() + svg[loc[1]:], true
}

func pixels(value string, idx int) (float64, bool) {
	if idx < 0 {
		return 0, false
	}
	m := pixelSize.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func existingMaxWidth(style string, _ int) string {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "max-width") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func withoutDecls(style string, names ...string) string {
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		if strings.TrimSpace(decl) == "" {
			continue
		}
		name, _, _ := strings.Cut(decl, ":")
		name = strings.TrimSpace(name)
		drop := false
		for _, n := range names {
			if strings.EqualFold(name, n) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, strings.TrimSpace(decl))
		}
	}
	return strings.Join(kept, "; ")
}

func appendDecl(style, name, value string) string {
	decl := name + ": " + value
	if style == "" {
		return decl
	}
	return style + "; " + decl
}
