package querysql

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/vql/internal/ir"
)

// identPattern is the shape every bare identifier coming from a request
// must have before it is written into SQL.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validIdent(s string) bool {
	return identPattern.MatchString(s)
}

// quoteIdent backtick-quotes an identifier, doubling embedded backticks.
func quoteIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// column renders `table`.`name`, or `name` when table is empty.
func column(table, name string) string {
	if table == "" {
		return quoteIdent(name)
	}
	return quoteIdent(table) + "." + quoteIdent(name)
}

// param converts a scalar Value to a driver argument.
func param(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.Int:
		return int64(val), nil
	case ir.Float:
		return float64(val), nil
	case ir.String:
		return string(val), nil
	case ir.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("%T cannot be used as a SQL parameter", v)
	}
}

// Literal renders a driver argument as a SQLite literal. It is the only
// place where values are written into SQL text, and it is used for
// display only (Query.Inline); executed queries always bind arguments.
func Literal(arg any) string {
	switch v := arg.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "NULL"
		}
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case bool:
		if v {
			return "1"
		}
		return "0"
	default:
		return Literal(fmt.Sprint(v))
	}
}
