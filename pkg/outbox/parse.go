package outbox

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

var identPartRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParseIdentifier parses "schema.table" or "table".
func ParseIdentifier(s string) (pgx.Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, invalidConfig("table identifier is empty")
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return nil, invalidConfig("invalid identifier %q (expected table or schema.table)", s)
	}
	ident := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if !identPartRe.MatchString(p) {
			return nil, invalidConfig("invalid identifier %q (bad part %q)", s, p)
		}
		ident = append(ident, p)
	}
	return ident, nil
}

func tableLabel(table pgx.Identifier) string {
	return strings.Join(table, ".")
}
