// Package format renders the bracket markup used in task descriptions
// ([b], [i], [u], [color=name]) for terminals and for HTML.
package format

import (
	"html"
	"regexp"
)

var (
	boldRe      = regexp.MustCompile(`\[b\](.*?)\[/b\]`)
	italicRe    = regexp.MustCompile(`\[i\](.*?)\[/i\]`)
	underlineRe = regexp.MustCompile(`\[u\](.*?)\[/u\]`)
	colorRe     = regexp.MustCompile(`\[color=([a-zA-Z]+)\](.*?)\[/color\]`)
)

const ansiReset = "\033[0m"

var ansiColors = map[string]string{
	"red":     "\033[31m",
	"green":   "\033[32m",
	"yellow":  "\033[33m",
	"blue":    "\033[34m",
	"magenta": "\033[35m",
	"cyan":    "\033[36m",
}

var htmlColors = map[string]bool{
	"red": true, "green": true, "blue": true, "yellow": true,
	"magenta": true, "cyan": true, "black": true, "white": true,
	"gray": true, "orange": true, "purple": true, "brown": true,
	"pink": true,
}

// ANSI converts markup to terminal escape sequences. Colour tags with a name
// outside the terminal palette are left as written.
func ANSI(text string) string {
	out := boldRe.ReplaceAllString(text, "\033[1m${1}"+ansiReset)
	out = italicRe.ReplaceAllString(out, "\033[3m${1}"+ansiReset)
	out = underlineRe.ReplaceAllString(out, "\033[4m${1}"+ansiReset)
	return colorRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := colorRe.FindStringSubmatch(m)
		code, ok := ansiColors[sub[1]]
		if !ok {
			return m
		}
		return code + sub[2] + ansiReset
	})
}

// HTML escapes text and converts markup to inline tags. Unknown colours drop
// the tag and keep the inner text.
func HTML(text string) string {
	out := html.EscapeString(text)
	out = boldRe.ReplaceAllString(out, "<b>${1}</b>")
	out = italicRe.ReplaceAllString(out, "<i>${1}</i>")
	out = underlineRe.ReplaceAllString(out, "<u>${1}</u>")
	// nested colour tags surface after the outer one is replaced
	for colorRe.MatchString(out) {
		out = colorRe.ReplaceAllStringFunc(out, func(m string) string {
			sub := colorRe.FindStringSubmatch(m)
			if !htmlColors[sub[1]] {
				return sub[2]
			}
			return `<span style="color:` + sub[1] + `">` + sub[2] + "</span>"
		})
	}
	return out
}

// Plain strips all markup.
func Plain(text string) string {
	out := boldRe.ReplaceAllString(text, "${1}")
	out = italicRe.ReplaceAllString(out, "${1}")
	out = underlineRe.ReplaceAllString(out, "${1}")
	for colorRe.MatchString(out) {
		out = colorRe.ReplaceAllString(out, "${2}")
	}
	return out
}
