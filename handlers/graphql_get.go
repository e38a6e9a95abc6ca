package handlers

import "strings"

// hasWriteOperation reports whether a GraphQL document defines a mutation or
// subscription. Only keywords outside any braces, parentheses, or brackets
// count; comments, strings, and block strings are skipped. An unterminated
// string ends the scan, and the executor rejects such a document anyway.
func hasWriteOperation(doc string) bool {
	depth := 0
	for i := 0; i < len(doc); {
		c := doc[i]
		switch {
		case c == '#':
			for i < len(doc) && doc[i] != '\n' && doc[i] != '\r' {
				i++
			}
		case strings.HasPrefix(doc[i:], `"""`):
			end := strings.Index(doc[i+3:], `"""`)
			if end < 0 {
				return false
			}
			i += end + 6
		case c == '"':
			i++
			for i < len(doc) && doc[i] != '"' {
				if doc[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case c == '{' || c == '(' || c == '[':
			depth++
			i++
		case c == '}' || c == ')' || c == ']':
			depth--
			i++
		case isNameStart(c):
			j := i + 1
			for j < len(doc) && (isNameStart(doc[j]) || (doc[j] >= '0' && doc[j] <= '9')) {
				j++
			}
			if depth == 0 {
				switch doc[i:j] {
				case "mutation", "subscription":
					return true
				}
			}
			i = j
		default:
			i++
		}
	}
	return false
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
