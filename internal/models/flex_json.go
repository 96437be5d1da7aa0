package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// fieldMaps caches JSON tag -> struct field index mappings per type
var fieldMaps sync.Map

func getFieldMap(t reflect.Type) map[string]int {
	if m, ok := fieldMaps.Load(t); ok {
		return m.(map[string]int)
	}
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		m[name] = i
	}
	actual, _ := fieldMaps.LoadOrStore(t, m)
	return actual.(map[string]int)
}

// UnmarshalJSON accepts both native and string-encoded values. Level files
// are edited by hand and "percentToQualify": "60" or "songID": 12345 are
// common; both are coerced to the field's Go type.
func (l *Level) UnmarshalJSON(data []byte) error {
	// Alias prevents infinite recursion
	type Alias Level
	return flexUnmarshal(data, (*Alias)(l))
}

// UnmarshalJSON accepts "percent": "87" and "mobile": "true".
func (r *Record) UnmarshalJSON(data []byte) error {
	type Alias Record
	return flexUnmarshal(data, (*Alias)(r))
}

// flexUnmarshal decodes data into the struct pointed to by dst.
func flexUnmarshal(data []byte, dst any) error {
	// Fast path: standard unmarshal works when all types match natively
	if err := json.Unmarshal(data, dst); err == nil {
		return nil
	}

	// Slow path: field-by-field with coercion
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("flex unmarshal: %w", err)
	}

	v := reflect.ValueOf(dst).Elem()
	fieldMap := getFieldMap(v.Type())

	for key, rawVal := range raw {
		idx, ok := fieldMap[key]
		if !ok {
			continue
		}

		fv := v.Field(idx)
		if !fv.CanSet() {
			continue
		}

		// Try direct unmarshal first
		ptr := reflect.New(fv.Type())
		if err := json.Unmarshal(rawVal, ptr.Interface()); err == nil {
			fv.Set(ptr.Elem())
			continue
		}

		// Value is a JSON string but target is numeric/bool
		if len(rawVal) > 1 && rawVal[0] == '"' {
			var s string
			if err := json.Unmarshal(rawVal, &s); err != nil {
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			coerceStringToField(fv, s)
			continue
		}

		// Value is a bare number but target is a string (songID: 12345)
		if fv.Kind() == reflect.String {
			var n json.Number
			if err := json.Unmarshal(rawVal, &n); err == nil {
				fv.SetString(n.String())
				continue
			}
		}

		// Nested values that cannot be coerced fail the whole document
		if fv.Kind() == reflect.Slice || fv.Kind() == reflect.Struct {
			if err := json.Unmarshal(rawVal, ptr.Interface()); err != nil {
				return fmt.Errorf("flex unmarshal %s: %w", key, err)
			}
		}
	}

	return nil
}

// coerceStringToField converts a string value to the field's native type.
func coerceStringToField(fv reflect.Value, s string) {
	switch fv.Kind() {
	case reflect.Float32, reflect.Float64:
		if n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil {
			fv.SetFloat(n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			fv.SetInt(int64(n))
		}
	case reflect.Bool:
		if b, err := strconv.ParseBool(s); err == nil {
			fv.SetBool(b)
		}
	case reflect.String:
		fv.SetString(s)
	}
}
