package render

import "strings"

var (
	// drawtext expansion treats % as a sequence introducer.
	expansionEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`)
	// av_opt_set_from_string splits on : and honours quotes.
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	// the filtergraph parser splits on , ; [ ] and honours quotes.
	graphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// EscapeDrawtext prepares caption text for an unquoted drawtext text= value
// inside a filter_complex graph.
func EscapeDrawtext(text string) string {
	return graphEscaper.Replace(optionEscaper.Replace(expansionEscaper.Replace(text)))
}

// escapeOptionValue prepares a non-text option value such as a font path.
func escapeOptionValue(value string) string {
	return graphEscaper.Replace(optionEscaper.Replace(value))
}
