package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the variant held by a Value or declared by a PropertySpec
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindStringList
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "str"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStringList:
		return "str[]"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseKind parses a declared property type name
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "str", "string":
		return KindString, nil
	case "int", "integer", "long":
		return KindInt, nil
	case "float", "double":
		return KindFloat, nil
	case "str[]", "string[]", "list", "array":
		return KindStringList, nil
	case "bool", "boolean":
		return KindBool, nil
	default:
		return KindNull, fmt.Errorf("unknown property type %q", s)
	}
}

// Value is a property value. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	list []string
	b    bool
}

// Null returns the absent value
func Null() Value { return Value{} }

// Int returns an integer value
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float returns a floating point value
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// String returns a string value
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bool returns a boolean value
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// StringList returns a list value; the slice is copied
func StringList(v ...string) Value {
	return Value{kind: KindStringList, list: append([]string(nil), v...)}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsInt returns the integer payload
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float payload; integers are widened
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }
func (v Value) AsBool() (bool, bool)     { return v.b, v.kind == KindBool }

// AsStringList returns the list payload
func (v Value) AsStringList() ([]string, bool) { return v.list, v.kind == KindStringList }

// Any returns the payload as a plain Go value, nil for null
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindStringList:
		return v.list
	case KindBool:
		return v.b
	}
	return nil
}

// MarshalJSON encodes the payload
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a JSON scalar or string array
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueFromAny converts a decoded JSON value. Numbers decoded as json.Number
// become Int when they have no fraction or exponent, Float otherwise.
func ValueFromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			if i, err := x.Int64(); err == nil {
				return Int(i), nil
			}
		}
		f, err := x.Float64()
		if err != nil {
			return Null(), fmt.Errorf("parsing number %q: %w", x, err)
		}
		return Float(f), nil
	case []string:
		return StringList(x...), nil
	case []any:
		list := make([]string, 0, len(x))
		for i, item := range x {
			s, ok := item.(string)
			if !ok {
				return Null(), fmt.Errorf("array element %d: expected string, got %T", i, item)
			}
			list = append(list, s)
		}
		return StringList(list...), nil
	default:
		return Null(), fmt.Errorf("unsupported property value %T", raw)
	}
}
