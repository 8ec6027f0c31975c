package util

import "sort"

// CopyMap returns a deep copy of m. Nested maps and slices are copied,
// leaf values are shared.
func CopyMap(m map[string]interface{}) map[string]interface{} {
	mapCopy := make(map[string]interface{}, len(m))
	for k, v := range m {
		mapCopy[k] = copyValue(v)
	}
	return mapCopy
}

func copyValue(v interface{}) interface{} {
	switch vType := v.(type) {
	case map[string]interface{}:
		return CopyMap(vType)
	case []interface{}:
		s := make([]interface{}, len(vType))
		for i, elem := range vType {
			s[i] = copyValue(elem)
		}
		return s
	}
	return v
}

// MapKeys returns the keys of m. When includeSubFields is set, keys of nested
// maps are included using dot notation.
func MapKeys(m map[string]interface{}, sorted bool, includeSubFields bool) []string {
	keys := make([]string, 0, len(m))
	for key, value := range m {
		keys = append(keys, key)

		if !includeSubFields {
			continue
		}

		if subMap, isMap := value.(map[string]interface{}); isMap {
			for _, subKey := range MapKeys(subMap, false, true) {
				keys = append(keys, key+"."+subKey)
			}
		}
	}

	if sorted {
		sort.Strings(keys)
	}
	return keys
}
