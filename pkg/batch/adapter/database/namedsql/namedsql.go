// Package namedsql compiles statements written with ":name" placeholders into
// the positional form a driver understands.
package namedsql

import (
	"fmt"
	"strconv"
	"strings"
)

// Style is a positional placeholder style.
type Style int

const (
	// Question renders "?" (MySQL, SQLite, Snowflake, GORM).
	Question Style = iota
	// Dollar renders "$1", "$2", ... (PostgreSQL drivers).
	Dollar
)

// Compiled is a statement ready for a driver plus the parameter name of
// every placeholder in order. A name used twice appears twice.
type Compiled struct {
	SQL   string
	Names []string
}

// Compile rewrites query for style. Quoted literals, quoted identifiers and
// PostgreSQL "::" casts are left untouched.
func Compile(query string, style Style) Compiled {
	var (
		b     strings.Builder
		names []string
		quote rune
	)
	runes := []rune(query)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			b.WriteRune(r)
			if r == quote {
				quote = 0
			}
			continue
		}
		switch {
		case r == '\'' || r == '"' || r == '`':
			quote = r
			b.WriteRune(r)
		case r == ':' && i+1 < len(runes) && runes[i+1] == ':':
			b.WriteString("::")
			i++
		case r == ':' && i+1 < len(runes) && isNameStart(runes[i+1]):
			j := i + 1
			for j < len(runes) && isNamePart(runes[j]) {
				j++
			}
			names = append(names, string(runes[i+1:j]))
			if style == Dollar {
				b.WriteString("$" + strconv.Itoa(len(names)))
			} else {
				b.WriteByte('?')
			}
			i = j - 1
		default:
			b.WriteRune(r)
		}
	}
	return Compiled{SQL: b.String(), Names: names}
}

// Bind returns the positional arguments for params. Every name must be present.
func (c Compiled) Bind(params map[string]interface{}) ([]interface{}, error) {
	args := make([]interface{}, len(c.Names))
	for i, name := range c.Names {
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("missing value for parameter ':%s'", name)
		}
		args[i] = v
	}
	return args, nil
}

func isNameStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isNamePart(r rune) bool {
	return isNameStart(r) || r == '.' || (r >= '0' && r <= '9')
}
