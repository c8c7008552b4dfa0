package completion

import (
	"github.com/chzyer/readline"

	"github.com/psaab/ldapsh/pkg/analyzer"
)

var _ readline.AutoCompleter = (*Provider)(nil)

// Do implements readline.AutoCompleter. It returns the untyped suffix of
// each candidate, escaped for the quoting in effect, and the length of the
// word being completed. A single candidate is closed off with the pending
// quote, if any, and a space.
func (p *Provider) Do(line []rune, pos int) ([][]rune, int) {
	if pos > len(line) {
		pos = len(line)
	}
	if pos < 0 {
		pos = 0
	}
	s := string(line[:pos])
	_, tok := analyzer.ParseAt(s, len(s))
	if tok.End != len(s) {
		tok = analyzer.Token{Start: len(s), End: len(s)}
	}

	matches := p.Complete(tok.Text, s, tok.Start, tok.End)
	if len(matches) == 0 {
		return nil, 0
	}
	typed := []rune(tok.Text)
	out := make([][]rune, 0, len(matches))
	for _, m := range matches {
		out = append(out, escape([]rune(m)[len(typed):], tok.Quote))
	}
	if len(out) == 1 {
		if tok.Quote != 0 {
			out[0] = append(out[0], tok.Quote)
		}
		out[0] = append(out[0], ' ')
	}
	return out, len(typed)
}

// escape backslash-escapes the runes that would otherwise end the word or
// open a quote. Inside single quotes nothing can be escaped.
func escape(suffix []rune, quote rune) []rune {
	out := make([]rune, 0, len(suffix))
	for _, r := range suffix {
		switch quote {
		case 0:
			switch r {
			case ' ', '\t', '\'', '"', '\\':
				out = append(out, '\\')
			}
		case '"':
			if r == '"' || r == '\\' {
				out = append(out, '\\')
			}
		}
		out = append(out, r)
	}
	return out
}
