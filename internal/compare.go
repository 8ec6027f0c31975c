package internal

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/ostafen/torod/util"
)

// type ranks, lowest first
const (
	rankNil = iota
	rankNumber
	rankString
	rankMap
	rankSlice
	rankBool
	rankTime
	rankBytes
	rankOther
)

func TypeName(v interface{}) string {
	if util.IsNumber(v) {
		return "number"
	}

	switch v.(type) {
	case nil:
		return "null"
	case time.Time:
		return "time"
	case []byte:
		return "bytes"
	}
	return reflect.TypeOf(v).Kind().String()
}

// TypeId returns the rank used to order values of different types.
func TypeId(v interface{}) int {
	if util.IsNumber(v) {
		return rankNumber
	}

	switch v.(type) {
	case nil:
		return rankNil
	case string:
		return rankString
	case map[string]interface{}:
		return rankMap
	case []interface{}:
		return rankSlice
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	case []byte:
		return rankBytes
	}
	return rankOther
}

func sign[T int | int64 | uint64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareFloats orders NaN below every other number. All NaNs are equal.
func compareFloats(f1, f2 float64) int {
	nan1, nan2 := math.IsNaN(f1), math.IsNaN(f2)
	switch {
	case nan1 && nan2:
		return 0
	case nan1:
		return -1
	case nan2:
		return 1
	}
	return sign(f1, f2)
}

func compareNumbers(v1 interface{}, v2 interface{}) int {
	if util.IsFloat(v1) || util.IsFloat(v2) {
		return compareFloats(util.ToFloat64(v1), util.ToFloat64(v2))
	}

	u1, isV1Uint := v1.(uint64)
	u2, isV2Uint := v2.(uint64)

	switch {
	case isV1Uint && isV2Uint:
		return sign(u1, u2)
	case isV1Uint:
		if i2 := util.ToInt64(v2); i2 < 0 {
			return 1
		} else {
			return sign(u1, uint64(i2))
		}
	case isV2Uint:
		return -compareNumbers(v2, v1)
	}
	return sign(util.ToInt64(v1), util.ToInt64(v2))
}

// Compare defines a total order over normalized values. Values of different
// types are ordered by type rank; numbers are compared by numeric value
// regardless of their concrete type.
func Compare(v1 interface{}, v2 interface{}) int {
	if res := TypeId(v1) - TypeId(v2); res != 0 {
		return res
	}

	switch v1Type := v1.(type) {
	case nil:
		return 0
	case string:
		return strings.Compare(v1Type, v2.(string))
	case bool:
		return util.BoolToInt(v1Type) - util.BoolToInt(v2.(bool))
	case time.Time:
		return v1Type.Compare(v2.(time.Time))
	case []byte:
		return bytes.Compare(v1Type, v2.([]byte))
	case []interface{}:
		return compareSlices(v1Type, v2.([]interface{}))
	case map[string]interface{}:
		return compareObjects(v1Type, v2.(map[string]interface{}))
	}

	if util.IsNumber(v1) {
		return compareNumbers(v1, v2)
	}
	return 0
}

func compareSlices(s1 []interface{}, s2 []interface{}) int {
	for i := 0; i < len(s1) && i < len(s2); i++ {
		if res := Compare(s1[i], s2[i]); res != 0 {
			return res
		}
	}
	return len(s1) - len(s2)
}

func compareObjects(m1 map[string]interface{}, m2 map[string]interface{}) int {
	m1Keys := util.MapKeys(m1, true, false)
	m2Keys := util.MapKeys(m2, true, false)

	for i := 0; i < len(m1Keys) && i < len(m2Keys); i++ {
		k1, k2 := m1Keys[i], m2Keys[i]

		if res := strings.Compare(k1, k2); res != 0 {
			return res
		}

		if res := Compare(m1[k1], m2[k2]); res != 0 {
			return res
		}
	}
	return len(m1Keys) - len(m2Keys)
}
