package reconcile

import (
	"fmt"
	"reflect"
	"time"

	"github.com/claude/hevysync/internal/models"
)

// encodeRows converts row values to the primitive scalars every store accepts:
// timestamps become "2006-01-02 15:04:05" text and pointers are dereferenced
// (nil pointers become nil).
func encodeRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		enc := make([]any, len(row))
		for j, v := range row {
			enc[j] = encodeValue(v)
		}
		out[i] = enc
	}
	return out
}

func encodeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(models.TimestampLayout)
	case string, int, int64, float64, bool:
		return x
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return encodeValue(rv.Elem().Interface())
	}
	return v
}

// identityKey renders a stored or in-memory identity value as a map key.
func identityKey(v any) (string, bool) {
	switch x := encodeValue(v).(type) {
	case nil:
		return "", false
	case string:
		return x, x != ""
	case []byte:
		return string(x), len(x) > 0
	default:
		return fmt.Sprint(x), true
	}
}
