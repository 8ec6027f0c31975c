package internal

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	msgpack.RegisterExt(1, (*LocalizedTime)(nil))
}

// LocalizedTime preserves the location of a time.Time across a msgpack round trip.
type LocalizedTime struct {
	time.Time
}

var _ msgpack.Marshaler = (*LocalizedTime)(nil)
var _ msgpack.Unmarshaler = (*LocalizedTime)(nil)

func (tm *LocalizedTime) MarshalMsgpack() ([]byte, error) {
	return tm.GobEncode()
}

func (tm *LocalizedTime) UnmarshalMsgpack(b []byte) error {
	return tm.GobDecode(b)
}

func replaceTimes(v interface{}) interface{} {
	switch vType := v.(type) {
	case time.Time:
		return &LocalizedTime{vType}
	case map[string]interface{}:
		m := make(map[string]interface{}, len(vType))
		for k, elem := range vType {
			m[k] = replaceTimes(elem)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(vType))
		for i, elem := range vType {
			s[i] = replaceTimes(elem)
		}
		return s
	}
	return v
}

func removeLocalizedTimes(v interface{}) interface{} {
	switch vType := v.(type) {
	case *LocalizedTime:
		return vType.Time
	case map[string]interface{}:
		for k, elem := range vType {
			vType[k] = removeLocalizedTimes(elem)
		}
	case []interface{}:
		for i, elem := range vType {
			vType[i] = removeLocalizedTimes(elem)
		}
	}
	return v
}
