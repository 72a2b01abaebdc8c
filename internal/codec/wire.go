package codec

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// ErrBadMessage is returned when a Struct payload lacks a field or has the wrong type.
var ErrBadMessage = errors.New("malformed message")

// #region encode
// FloatList encodes v as a Struct list value.
func FloatList(v []float64) *structpb.Value {
	vals := make([]*structpb.Value, len(v))
	for i, f := range v {
		vals[i] = structpb.NewNumberValue(f)
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

// IntList encodes v as a Struct list value.
func IntList(v []int) *structpb.Value {
	vals := make([]*structpb.Value, len(v))
	for i, n := range v {
		vals[i] = structpb.NewNumberValue(float64(n))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: vals})
}

// #endregion encode

// #region decode
// Floats reads a numeric list field from s.
func Floats(s *structpb.Struct, field string) ([]float64, error) {
	list, err := listField(s, field)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(list))
	for i, v := range list {
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] is not a number", ErrBadMessage, field, i)
		}
		out[i] = n.NumberValue
	}
	return out, nil
}

// Ints reads a list field whose entries must all be integral numbers.
func Ints(s *structpb.Struct, field string) ([]int, error) {
	fs, err := Floats(s, field)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %s[%d]=%v is not an integer", ErrBadMessage, field, i, f)
		}
		out[i] = int(f)
	}
	return out, nil
}

// Number reads a numeric scalar field.
func Number(s *structpb.Struct, field string) (float64, error) {
	v, ok := s.GetFields()[field]
	if !ok {
		return 0, fmt.Errorf("%w: missing %q", ErrBadMessage, field)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadMessage, field)
	}
	return n.NumberValue, nil
}

// Int reads an integral numeric scalar field.
func Int(s *structpb.Struct, field string) (int, error) {
	f, err := Number(s, field)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q=%v is not an integer", ErrBadMessage, field, f)
	}
	return int(f), nil
}

// String reads a string field; a missing field yields "".
func String(s *structpb.Struct, field string) string {
	return s.GetFields()[field].GetStringValue()
}

// Bool reads a bool field; a missing field yields false.
func Bool(s *structpb.Struct, field string) bool {
	return s.GetFields()[field].GetBoolValue()
}

func listField(s *structpb.Struct, field string) ([]*structpb.Value, error) {
	v, ok := s.GetFields()[field]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrBadMessage, field)
	}
	l, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a list", ErrBadMessage, field)
	}
	return l.ListValue.GetValues(), nil
}

// #endregion decode
