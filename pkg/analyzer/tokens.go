// Package analyzer splits shell input into tokens and classifies argument
// positions for help and completion.
package analyzer

import (
	"strings"
	"unicode/utf8"
)

// Token is one shell word. Start and End are byte offsets of the raw word in
// the source line, quotes included, End exclusive.
type Token struct {
	Text  string
	Start int
	End   int
	// Quote is the opening quote rune of a still-open quoted section, or 0.
	Quote  rune
	Quoted bool
}

// Open reports whether the token ends inside an unterminated quote.
func (t Token) Open() bool { return t.Quote != 0 }

// Tokenize splits s into words using POSIX-like quoting:
//   - unquoted blanks separate words;
//   - single quotes preserve their contents literally;
//   - double quotes preserve contents, backslash escapes " and \ only;
//   - outside quotes a backslash escapes the following rune.
//
// LDAP filter characters ( ) & | ! and = carry no special meaning. An
// unterminated quote yields a final open token rather than an error.
func Tokenize(s string) []Token {
	var (
		tokens []Token
		buf    strings.Builder
		start  = -1
		quote  rune
		quoted bool
		esc    bool
	)
	flush := func(end int) {
		if start < 0 {
			return
		}
		tokens = append(tokens, Token{Text: buf.String(), Start: start, End: end, Quote: quote, Quoted: quoted})
		buf.Reset()
		start = -1
		quote = 0
		quoted = false
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if start < 0 && !isBlank(r) {
			start = i
		}
		switch {
		case esc:
			if quote == '"' && r != '"' && r != '\\' {
				buf.WriteRune('\\')
			}
			buf.WriteRune(r)
			esc = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				buf.WriteRune(r)
			}
		case quote == '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				esc = true
			default:
				buf.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			quoted = true
		case r == '\\':
			esc = true
		case isBlank(r):
			flush(i)
		default:
			buf.WriteRune(r)
		}
		i += size
	}
	if esc && quote == 0 {
		// Trailing backslash is kept literally.
		buf.WriteRune('\\')
	}
	flush(len(s))
	return tokens
}

// Words returns the text of each token in s.
func Words(s string) []string {
	tokens := Tokenize(s)
	words := make([]string, len(tokens))
	for i, t := range tokens {
		words[i] = t.Text
	}
	return words
}

func isBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
