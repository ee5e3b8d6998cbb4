package query

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultAliases maps the short filter names callers write to the canonical
// field paths the search parser understands. Only bare names rewrite: a name
// already inside a path (preceded by '.') stays as written, and a name not
// followed by a comparison operator is left alone.
var DefaultAliases = map[string]string{
	"counterparty": "counterparty.name",
	"book":         "book.bookName",
	"trader":       "traderUser.loginId",
	"inputter":     "inputterUser.loginId",
	"status":       "tradeStatus.tradeStatus",
	"date":         "tradeDate",
}

var aliasPattern = buildAliasPattern()

func buildAliasPattern() *regexp.Regexp {
	names := make([]string, 0, len(DefaultAliases))
	for name := range DefaultAliases {
		names = append(names, regexp.QuoteMeta(name))
	}
	// Longest first so "counterparty" wins over any shorter prefix.
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })

	return regexp.MustCompile(`(?i)\b(` + strings.Join(names, "|") + `)\b`)
}

// RewriteAliases expands known aliases in a raw filter expression. The match
// is case-insensitive and whole-word; context is checked manually since RE2
// has no lookaround: the character before the match must not be '.' or a word
// character, and the text after it (spaces aside) must start a comparison
// operator. Rewriting is idempotent since expanded paths no longer match.
func RewriteAliases(filter string) string {
	if filter == "" {
		return filter
	}

	var b strings.Builder
	last := 0

	for _, loc := range aliasPattern.FindAllStringIndex(filter, -1) {
		start, end := loc[0], loc[1]

		if start > 0 {
			prev := filter[start-1]
			if prev == '.' || isWordByte(prev) {
				continue
			}
		}
		if !followedByOperator(filter[end:]) {
			continue
		}

		canonical, ok := DefaultAliases[strings.ToLower(filter[start:end])]
		if !ok {
			continue
		}

		b.WriteString(filter[last:start])
		b.WriteString(canonical)
		last = end
	}

	if last == 0 {
		return filter
	}
	b.WriteString(filter[last:])
	return b.String()
}

// followedByOperator reports whether the remainder starts (after optional
// spaces) with one of the comparison operators: ==, !=, =gt=, =ge=, =lt=, =le=.
func followedByOperator(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	if strings.HasPrefix(rest, "==") || strings.HasPrefix(rest, "!=") {
		return true
	}
	for _, op := range []string{"=gt=", "=ge=", "=lt=", "=le="} {
		if strings.HasPrefix(rest, op) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
