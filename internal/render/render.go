// Package render turns annotated tokens into display output.
package render

import (
	"fmt"
	"strings"

	"github.com/ppiankov/sentcheck/internal/model"
	"golang.org/x/net/html"
)

// Display colours per role class
var Colors = map[model.Role]string{
	model.RoleRoot:    "#8ef",
	model.RoleSubject: "#faa",
	model.RoleObject:  "#afa",
}

// ANSI background colours approximating Colors
var ansiColors = map[model.Role]string{
	model.RoleRoot:    "\x1b[46;30m",
	model.RoleSubject: "\x1b[41;30m",
	model.RoleObject:  "\x1b[42;30m",
}

const ansiReset = "\x1b[0m"

// Segment is one display unit: plain text or a highlighted token
type Segment struct {
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`
}

// Segments converts annotated tokens to display segments, preserving order
func Segments(tokens []model.AnnotatedToken) []Segment {
	out := make([]Segment, 0, len(tokens))
	for _, t := range tokens {
		if t.IsPlain() {
			out = append(out, Segment{Text: t.Text})
			continue
		}
		out = append(out, Segment{Text: t.Text, Label: t.Label, Color: Colors[t.Class]})
	}
	return out
}

// Plain drops all annotation and returns the original sentence
func Plain(tokens []model.AnnotatedToken) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Terminal highlights classified tokens with ANSI colours and a role suffix,
// e.g. "sleeps[VERB]". With color false only the suffix is added.
func Terminal(tokens []model.AnnotatedToken, color bool) string {
	var b strings.Builder
	for _, t := range tokens {
		if t.IsPlain() {
			b.WriteString(t.Text)
			continue
		}
		word, ws := splitTrailingSpace(t.Text)
		if color {
			fmt.Fprintf(&b, "%s%s[%s]%s%s", ansiColors[t.Class], word, t.Label, ansiReset, ws)
		} else {
			fmt.Fprintf(&b, "%s[%s]%s", word, t.Label, ws)
		}
	}
	return b.String()
}

// HTML renders tokens as escaped text with <mark> spans for classified tokens
func HTML(tokens []model.AnnotatedToken) string {
	var b strings.Builder
	b.WriteString(`<p class="sentence">`)
	for _, t := range tokens {
		if t.IsPlain() {
			b.WriteString(html.EscapeString(t.Text))
			continue
		}
		word, ws := splitTrailingSpace(t.Text)
		fmt.Fprintf(&b, `<mark class="%s" style="background-color: %s">%s <span class="label">%s</span></mark>%s`,
			t.Class, Colors[t.Class], html.EscapeString(word), html.EscapeString(t.Label), html.EscapeString(ws))
	}
	b.WriteString(`</p>`)
	return b.String()
}

func splitTrailingSpace(s string) (string, string) {
	trimmed := strings.TrimRight(s, " \t\n\r")
	return trimmed, s[len(trimmed):]
}
