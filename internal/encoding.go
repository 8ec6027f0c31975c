package internal

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const structTagName = "torod"

func parseStructTag(tag string) (name string, omitempty bool) {
	parts := strings.Split(tag, ",")
	return parts[0], len(parts) > 1 && parts[1] == "omitempty"
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	}
	return false
}

func normalizeStruct(rv reflect.Value) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	for i := 0; i < rv.NumField(); i++ {
		sf := rv.Type().Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}

		fieldName := sf.Name
		name, omitempty := parseStructTag(sf.Tag.Get(structTagName))
		if name != "" {
			fieldName = name
		}

		fv := rv.Field(i)
		if omitempty && isEmptyValue(fv) {
			continue
		}

		normalized, err := Normalize(fv.Interface())
		if err != nil {
			return nil, err
		}

		embedded, isMap := normalized.(map[string]interface{})
		if sf.Anonymous && isMap {
			for k, v := range embedded {
				m[k] = v
			}
			continue
		}
		m[fieldName] = normalized
	}
	return m, nil
}

func normalizeSlice(rv reflect.Value) (interface{}, error) {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return append([]byte(nil), rv.Bytes()...), nil
	}

	s := make([]interface{}, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v, err := Normalize(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		s = append(s, v)
	}
	return s, nil
}

func normalizeMap(rv reflect.Value) (map[string]interface{}, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map key type must be a string")
	}

	m := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		normalized, err := Normalize(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		m[iter.Key().String()] = normalized
	}
	return m, nil
}

func derefValue(v interface{}) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return rv, false
		}
		rv = rv.Elem()
	}
	return rv, true
}

// Normalize converts v into the canonical representation used by documents:
// signed integers become int64, unsigned integers uint64, floats float64,
// structs and maps map[string]interface{}, slices []interface{} (except []byte).
func Normalize(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	rv, ok := derefValue(v)
	if !ok {
		return nil, nil
	}

	if t, isTime := rv.Interface().(time.Time); isTime {
		return t, nil
	}

	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Struct:
		return normalizeStruct(rv)
	case reflect.Map:
		return normalizeMap(rv)
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		return normalizeSlice(rv)
	}
	return nil, fmt.Errorf("invalid dtype %s", rv.Type().Name())
}

func structRenames(rt reflect.Type) map[string]string {
	renames := make(map[string]string)
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if tag, found := sf.Tag.Lookup(structTagName); found {
			if name, _ := parseStructTag(tag); name != "" {
				renames[name] = sf.Name
			}
		}
	}
	return renames
}

// renameKeys maps tag names back to Go field names so that encoding/json can
// populate the struct pointed by v.
func renameKeys(m map[string]interface{}, rt reflect.Type) map[string]interface{} {
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return m
	}

	renames := structRenames(rt)
	renamed := make(map[string]interface{}, len(m))
	for key, value := range m {
		if fieldName, ok := renames[key]; ok {
			key = fieldName
		}

		if sf, ok := rt.FieldByName(key); ok {
			if sub, isMap := value.(map[string]interface{}); isMap {
				value = renameKeys(sub, sf.Type)
			}
		}
		renamed[key] = value
	}
	return renamed
}

func Encode(m map[string]interface{}) ([]byte, error) {
	return msgpack.Marshal(replaceTimes(m))
}

func Decode(data []byte, m *map[string]interface{}) error {
	err := msgpack.Unmarshal(data, m)
	if err == nil {
		removeLocalizedTimes(*m)
	}
	return err
}

// Convert stores the content of m in the value pointed by v.
func Convert(m map[string]interface{}, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("convert: expected a non-nil pointer, got %T", v)
	}

	data, err := json.Marshal(renameKeys(m, rv.Type()))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
