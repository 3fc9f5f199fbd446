package hybridexcel

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"
)

// dateLike matches strings that look like an ISO date with an optional time part.
var dateLike = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

var timeType = reflect.TypeOf(time.Time{})

// Adapter maps records onto schema-ordered rows of typed cells.
// It never fails a row: values it cannot classify become Text.
type Adapter struct {
	schema ColumnSchema

	mu         sync.RWMutex
	fieldCache map[reflect.Type][]int // schema column -> struct field index, -1 when absent
}

func NewAdapter(schema ColumnSchema) *Adapter {
	return &Adapter{
		schema:     schema,
		fieldCache: make(map[reflect.Type][]int),
	}
}

// Adapt converts one record. A record may already be a Row, a []interface{}
// in schema order, a map keyed by column key, or a struct.
func (a *Adapter) Adapt(record interface{}) Row {
	switch r := record.(type) {
	case Row:
		return r
	case []Cell:
		return Row(r)
	case []interface{}:
		row := make(Row, len(r))
		for i, v := range r {
			row[i] = ToCell(v)
		}
		return row
	case map[string]interface{}:
		row := make(Row, len(a.schema))
		for i, col := range a.schema {
			row[i] = ToCell(r[col.Key])
		}
		return row
	}

	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return make(Row, len(a.schema))
		}
		v = v.Elem()
	}

	row := make(Row, len(a.schema))
	switch v.Kind() {
	case reflect.Struct:
		idx := a.fieldIndexes(v.Type())
		for i, fi := range idx {
			if fi >= 0 {
				row[i] = ToCell(v.Field(fi).Interface())
			}
		}
	case reflect.Map:
		for i, col := range a.schema {
			mv := v.MapIndex(reflect.ValueOf(col.Key))
			if mv.IsValid() {
				row[i] = ToCell(mv.Interface())
			}
		}
	default:
		if len(row) > 0 {
			row[0] = ToCell(v.Interface())
		}
	}
	return row
}

// fieldIndexes resolves schema keys to struct fields, matching the excel tag
// first, then the field name case-insensitively.
func (a *Adapter) fieldIndexes(t reflect.Type) []int {
	a.mu.RLock()
	idx, ok := a.fieldCache[t]
	a.mu.RUnlock()
	if ok {
		return idx
	}

	idx = make([]int, len(a.schema))
	for i, col := range a.schema {
		idx[i] = -1
		for f := 0; f < t.NumField(); f++ {
			sf := t.Field(f)
			if sf.PkgPath != "" {
				continue
			}
			tag := strings.Split(sf.Tag.Get("excel"), ",")[0]
			if tag == col.Key {
				idx[i] = f
				break
			}
			if idx[i] < 0 && tag == "" && strings.EqualFold(sf.Name, col.Key) {
				idx[i] = f
			}
		}
	}

	a.mu.Lock()
	a.fieldCache[t] = idx
	a.mu.Unlock()
	return idx
}

// ToCell classifies a single value. Pointers are followed first; a nil
// pointer is an empty cell.
func ToCell(v interface{}) Cell {
	if v == nil {
		return EmptyCell()
	}
	orig := v
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr {
		for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return EmptyCell()
			}
			rv = rv.Elem()
		}
		v = rv.Interface()
	}

	switch x := v.(type) {
	case nil:
		return EmptyCell()
	case Cell:
		return x
	case bool:
		return BoolCell(x)
	case int:
		return NumberCell(float64(x))
	case int8:
		return NumberCell(float64(x))
	case int16:
		return NumberCell(float64(x))
	case int32:
		return NumberCell(float64(x))
	case int64:
		return NumberCell(float64(x))
	case uint:
		return NumberCell(float64(x))
	case uint8:
		return NumberCell(float64(x))
	case uint16:
		return NumberCell(float64(x))
	case uint32:
		return NumberCell(float64(x))
	case uint64:
		return NumberCell(float64(x))
	case float32:
		return NumberCell(float64(x))
	case float64:
		return NumberCell(x)
	case time.Time:
		return TimeCell(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return NumberCell(f)
		}
		return TextCell(x.String())
	case string:
		return stringCell(x)
	case []byte:
		return stringCell(string(x))
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Struct && rv.Type().ConvertibleTo(timeType) {
		return TimeCell(rv.Convert(timeType).Interface().(time.Time))
	}
	if s, ok := v.(fmt.Stringer); ok {
		return TextCell(s.String())
	}
	if s, ok := orig.(fmt.Stringer); ok {
		return TextCell(s.String())
	}
	switch rv.Kind() {
	case reflect.Bool:
		return BoolCell(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberCell(float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NumberCell(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return NumberCell(rv.Float())
	case reflect.String:
		return stringCell(rv.String())
	}
	return TextCell(fmt.Sprint(v))
}

func stringCell(s string) Cell {
	if strings.HasPrefix(s, "=") && len(s) > 1 {
		return FormulaCell(s[1:])
	}
	if dateLike.MatchString(s) {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return TimeCell(t)
			}
		}
	}
	return TextCell(s)
}
