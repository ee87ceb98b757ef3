// Package argv splits a configured argument string into words using POSIX
// shell quoting rules.
package argv

import (
	"errors"
	"iter"
	"strings"
)

// ErrUnterminated reports an unclosed quote or a trailing escape.
var ErrUnterminated = errors.New("argv: unterminated quote or escape")

// Split parses s into words. Rules:
//   - Unquoted spaces, tabs and newlines separate words.
//   - Single quotes preserve their contents literally.
//   - Inside double quotes a backslash escapes only $, `, ", \ or newline.
//   - Outside quotes a backslash escapes the next rune; backslash-newline is
//     a line continuation.
//   - No expansion, globbing or comments.
//
// Quoted empty strings ('' or "") produce empty words.
func Split(s string) ([]string, error) {
	var out []string
	for word, err := range Words(s) {
		if err != nil {
			return nil, err
		}
		out = append(out, word)
	}
	return out, nil
}

// Words yields the words of s. A malformed input yields a final
// ("", ErrUnterminated) pair.
func Words(s string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var (
			buf     strings.Builder
			inWord  bool
			single  bool
			double  bool
			escaped bool
		)
		emit := func() bool {
			if !inWord {
				return true
			}
			word := buf.String()
			buf.Reset()
			inWord = false
			return yield(word, nil)
		}

		for _, r := range s {
			switch {
			case escaped:
				escaped = false
				if double {
					switch r {
					case '$', '`', '"', '\\':
						buf.WriteRune(r)
					case '\n':
					default:
						buf.WriteRune('\\')
						buf.WriteRune(r)
					}
					continue
				}
				if r == '\n' {
					continue
				}
				inWord = true
				buf.WriteRune(r)
			case single:
				if r == '\'' {
					single = false
				} else {
					buf.WriteRune(r)
				}
			case r == '\\':
				escaped = true
			case double:
				if r == '"' {
					double = false
				} else {
					buf.WriteRune(r)
				}
			case r == '\'':
				single, inWord = true, true
			case r == '"':
				double, inWord = true, true
			case r == ' ' || r == '\t' || r == '\n':
				if !emit() {
					return
				}
			default:
				inWord = true
				buf.WriteRune(r)
			}
		}

		if single || double || escaped {
			yield("", ErrUnterminated)
			return
		}
		emit()
	}
}
