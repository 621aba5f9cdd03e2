package sqldb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tigerroll/chunkbatch/pkg/batch/adapter/database/namedsql"
)

func columnRows(model interface{}) ([]map[string]interface{}, error) {
	switch m := model.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{m}, nil
	case []map[string]interface{}:
		return m, nil
	default:
		return nil, fmt.Errorf("upsert expects column maps, got %T", model)
	}
}

// buildUpsert renders a single-row upsert. Columns are emitted in name order.
func buildUpsert(d Dialect, table string, row map[string]interface{}, conflictColumns, updateColumns []string) (string, []interface{}, error) {
	if len(row) == 0 {
		return "", nil, fmt.Errorf("upsert into %s: empty row", table)
	}
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	args := make([]interface{}, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		args[i] = row[c]
		if d.Style == namedsql.Dollar {
			marks[i] = "$" + strconv.Itoa(i+1)
		} else {
			marks[i] = "?"
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(marks, ", "))

	switch d.Upsert {
	case UpsertOnConflict:
		b.WriteString(" ON CONFLICT")
		if len(conflictColumns) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(conflictColumns, ", "))
		}
		if len(updateColumns) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			sets := make([]string, len(updateColumns))
			for i, c := range updateColumns {
				sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
			}
			b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
		}
	case UpsertOnDuplicateKey:
		update := updateColumns
		if len(update) == 0 && len(conflictColumns) == 0 {
			return "", nil, fmt.Errorf("upsert into %s: no key or update columns", table)
		}
		if len(update) == 0 {
			// MySQL has no DO NOTHING; assigning the key to itself is the usual no-op.
			update = conflictColumns[:1]
		}
		sets := make([]string, len(update))
		for i, c := range update {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		}
		b.WriteString(" ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
	default:
		return "", nil, fmt.Errorf("upsert is not supported by driver %s", d.DriverName)
	}
	return b.String(), args, nil
}
