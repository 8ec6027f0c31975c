package internal

import (
	"fmt"
	"math"
	"time"

	"github.com/google/orderedcode"
	"github.com/ostafen/torod/util"
)

// number encodings inside rankNumber
const (
	numInt uint64 = iota
	numFloat
	numUint
	numNaN
)

func orderedCodeNumber(buf []byte, value interface{}) ([]byte, error) {
	if u, isUint := value.(uint64); isUint && u > math.MaxInt64 {
		return orderedcode.Append(buf, numUint, u)
	}

	if util.IsFloat(value) {
		f := util.ToFloat64(value)
		if math.IsNaN(f) {
			return orderedcode.Append(buf, numNaN)
		}

		// integral floats share the integer encoding, so that 1.0 and 1 collide
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return orderedcode.Append(buf, numInt, int64(f))
		}
		return orderedcode.Append(buf, numFloat, f)
	}
	return orderedcode.Append(buf, numInt, util.ToInt64(value))
}

// OrderedCode appends to buf a self-delimiting encoding of v which is equal
// for any two values v1, v2 such that Compare(v1, v2) == 0.
func OrderedCode(buf []byte, v interface{}) ([]byte, error) {
	buf, err := orderedcode.Append(buf, uint64(TypeId(v)))
	if err != nil {
		return nil, err
	}

	if util.IsNumber(v) {
		return orderedCodeNumber(buf, v)
	}

	switch vType := v.(type) {
	case nil:
		return buf, nil
	case string:
		return orderedcode.Append(buf, vType)
	case bool:
		return orderedcode.Append(buf, uint64(util.BoolToInt(vType)))
	case time.Time:
		return orderedcode.Append(buf, vType.UnixNano())
	case []byte:
		return orderedcode.Append(buf, string(vType))
	case []interface{}:
		return orderedCodeSlice(buf, vType)
	case map[string]interface{}:
		return orderedCodeObject(buf, vType)
	}
	return nil, fmt.Errorf("cannot encode value of type %s", TypeName(v))
}

func orderedCodeSlice(buf []byte, s []interface{}) ([]byte, error) {
	buf, err := orderedcode.Append(buf, uint64(len(s)))
	if err != nil {
		return nil, err
	}

	for _, v := range s {
		if buf, err = OrderedCode(buf, v); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func orderedCodeObject(buf []byte, o map[string]interface{}) ([]byte, error) {
	buf, err := orderedcode.Append(buf, uint64(len(o)))
	if err != nil {
		return nil, err
	}

	for _, key := range util.MapKeys(o, true, false) {
		if buf, err = orderedcode.Append(buf, key); err != nil {
			return nil, err
		}

		if buf, err = OrderedCode(buf, o[key]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}
