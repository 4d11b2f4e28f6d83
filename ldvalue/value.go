// Package ldvalue provides an immutable dynamic value type that can hold any
// of the types allowed in JSON: null, boolean, number, string, array, or
// object. Flag variations and clause values are both represented with this type so that the evaluator never has to special-case
// a particular application-chosen variation type.
package ldvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueType describes the kind of value a Value holds.
type ValueType int

const (
	// NullType is the type of Null().
	NullType ValueType = iota
	// BoolType is the type of a boolean value.
	BoolType
	// NumberType is the type of a numeric value.
	NumberType
	// StringType is the type of a string value.
	StringType
	// ArrayType is the type of an ordered array of values.
	ArrayType
	// ObjectType is the type of an ordered set of key/value pairs.
	ObjectType
	// UnrecognizedType prints as "unrecognized". No constructor or parser in
	// this package produces it; a missing object key yields Null.
	UnrecognizedType
)

func (t ValueType) String() string {
	switch t {
	case NullType:
		return "null"
	case BoolType:
		return "bool"
	case NumberType:
		return "number"
	case StringType:
		return "string"
	case ArrayType:
		return "array"
	case ObjectType:
		return "object"
	default:
		return "unrecognized"
	}
}

// ObjectEntry is a single key/value pair within an Object value. Entries
// preserve declaration order and duplicate keys are retained verbatim.
type ObjectEntry struct {
	Key   string
	Value Value
}

// Value is an immutable, dynamically typed value mirroring the JSON data
// model. The zero Value is Null.
type Value struct {
	valueType  ValueType
	boolValue  bool
	numValue   float64
	strValue   string
	arrValue   []Value
	objValue   []ObjectEntry
	hasDupKeys bool
}

// Null returns a Value of type NullType.
func Null() Value {
	return Value{valueType: NullType}
}

// Bool wraps a boolean in a Value.
func Bool(value bool) Value {
	return Value{valueType: BoolType, boolValue: value}
}

// Int wraps an integer in a Value as a NumberType.
func Int(value int) Value {
	return Value{valueType: NumberType, numValue: float64(value)}
}

// Float64 wraps a float64 in a Value as a NumberType.
func Float64(value float64) Value {
	return Value{valueType: NumberType, numValue: value}
}

// String wraps a string in a Value.
func String(value string) Value {
	return Value{valueType: StringType, strValue: value}
}

// Array constructs an ArrayType value from a slice, copying it so later
// mutation of the input slice has no effect.
func Array(values ...Value) Value {
	cp := make([]Value, len(values))
	copy(cp, values)
	return Value{valueType: ArrayType, arrValue: cp}
}

// Object constructs an ObjectType value from ordered entries, copying them.
// If any key appears more than once, the resulting Value is flagged so that
// Equal always returns false for it (see Equal).
func Object(entries ...ObjectEntry) Value {
	cp := make([]ObjectEntry, len(entries))
	copy(cp, entries)
	return Value{valueType: ObjectType, objValue: cp, hasDupKeys: hasDuplicateKeys(cp)}
}

func hasDuplicateKeys(entries []ObjectEntry) bool {
	if len(entries) < 2 {
		return false
	}
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			return true
		}
		seen[e.Key] = true
	}
	return false
}

// Type returns the value's type tag.
func (v Value) Type() ValueType {
	return v.valueType
}

// IsNull returns true if this is a Null value.
func (v Value) IsNull() bool {
	return v.valueType == NullType
}

// BoolValue returns the boolean value, or false if the type is not BoolType.
func (v Value) BoolValue() bool {
	if v.valueType != BoolType {
		return false
	}
	return v.boolValue
}

// Float64Value returns the numeric value, or 0 if the type is not NumberType.
func (v Value) Float64Value() float64 {
	if v.valueType != NumberType {
		return 0
	}
	return v.numValue
}

// IntValue returns the numeric value truncated to an int, or 0 if the type
// is not NumberType.
func (v Value) IntValue() int {
	if v.valueType != NumberType {
		return 0
	}
	return int(v.numValue)
}

// StringValue returns the string value, or "" if the type is not StringType.
func (v Value) StringValue() string {
	if v.valueType != StringType {
		return ""
	}
	return v.strValue
}

// AsArray returns the element slice for ArrayType, or nil otherwise. The
// returned slice must be treated as read-only.
func (v Value) AsArray() []Value {
	if v.valueType != ArrayType {
		return nil
	}
	return v.arrValue
}

// AsObject returns the entry slice for ObjectType, or nil otherwise. The
// returned slice must be treated as read-only and preserves declaration
// order, including duplicate keys.
func (v Value) AsObject() []ObjectEntry {
	if v.valueType != ObjectType {
		return nil
	}
	return v.objValue
}

// ObjectKeys returns the keys of an ObjectType value in declaration order,
// or nil for any other type.
func (v Value) ObjectKeys() []string {
	if v.valueType != ObjectType {
		return nil
	}
	keys := make([]string, len(v.objValue))
	for i, e := range v.objValue {
		keys[i] = e.Key
	}
	return keys
}

// GetByKey returns the value of the first entry matching key in an
// ObjectType value, and whether it was found.
func (v Value) GetByKey(key string) (Value, bool) {
	if v.valueType != ObjectType {
		return Value{}, false
	}
	for _, e := range v.objValue {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Count returns the number of elements or entries for Array/Object types,
// and 0 for any other type (including Null).
func (v Value) Count() int {
	switch v.valueType {
	case ArrayType:
		return len(v.arrValue)
	case ObjectType:
		return len(v.objValue)
	default:
		return 0
	}
}

// Clone returns a deep copy of the value. Scalars are already immutable and
// are returned as-is; arrays and objects are recursively copied.
func (v Value) Clone() Value {
	switch v.valueType {
	case ArrayType:
		cp := make([]Value, len(v.arrValue))
		for i, e := range v.arrValue {
			cp[i] = e.Clone()
		}
		return Value{valueType: ArrayType, arrValue: cp}
	case ObjectType:
		cp := make([]ObjectEntry, len(v.objValue))
		for i, e := range v.objValue {
			cp[i] = ObjectEntry{Key: e.Key, Value: e.Value.Clone()}
		}
		return Value{valueType: ObjectType, objValue: cp, hasDupKeys: v.hasDupKeys}
	default:
		return v
	}
}

// Equal reports structural equality: arrays compare element-by-element in
// order; objects compare as unordered key sets unless either side has
// duplicate keys, in which case they are never equal to anything (including
// themselves, except via reference identity, which Value does not expose).
func (v Value) Equal(o Value) bool {
	if v.valueType != o.valueType {
		return false
	}
	switch v.valueType {
	case NullType:
		return true
	case BoolType:
		return v.boolValue == o.boolValue
	case NumberType:
		return v.numValue == o.numValue
	case StringType:
		return v.strValue == o.strValue
	case ArrayType:
		if len(v.arrValue) != len(o.arrValue) {
			return false
		}
		for i := range v.arrValue {
			if !v.arrValue[i].Equal(o.arrValue[i]) {
				return false
			}
		}
		return true
	case ObjectType:
		if v.hasDupKeys || o.hasDupKeys {
			return false
		}
		if len(v.objValue) != len(o.objValue) {
			return false
		}
		for _, e := range v.objValue {
			ov, ok := o.GetByKey(e.Key)
			if !ok || !e.Value.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String returns the compact JSON serialization of the value.
func (v Value) String() string {
	b, _ := json.Marshal(v)
	return string(b)
}

// JSONString returns the compact JSON serialization of the value.
func (v Value) JSONString() string {
	return v.String()
}

// MarshalJSON implements json.Marshaler, preserving duplicate object keys.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.valueType {
	case NullType:
		buf.WriteString("null")
	case BoolType:
		buf.WriteString(strconv.FormatBool(v.boolValue))
	case NumberType:
		buf.WriteString(formatNumber(v.numValue))
	case StringType:
		b, err := json.Marshal(v.strValue)
		if err != nil {
			return err
		}
		buf.Write(b)
	case ArrayType:
		buf.WriteByte('[')
		for i, e := range v.arrValue {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectType:
		buf.WriteByte('{')
		for i, e := range v.objValue {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(e.Key)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := e.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("ldvalue: cannot serialize unrecognized value")
	}
	return nil
}

// WriteIndentedJSON writes a pretty-printed form using tab indentation and a
// space after each colon, matching the canonical pretty form.
func (v Value) WriteIndentedJSON(buf *bytes.Buffer) {
	v.writeIndented(buf, 0)
}

func (v Value) writeIndented(buf *bytes.Buffer, depth int) {
	indent := func(d int) {
		for i := 0; i < d; i++ {
			buf.WriteByte('\t')
		}
	}
	switch v.valueType {
	case ArrayType:
		if len(v.arrValue) == 0 {
			buf.WriteString("[]")
			return
		}
		buf.WriteString("[\n")
		for i, e := range v.arrValue {
			indent(depth + 1)
			e.writeIndented(buf, depth+1)
			if i < len(v.arrValue)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		indent(depth)
		buf.WriteByte(']')
	case ObjectType:
		if len(v.objValue) == 0 {
			buf.WriteString("{}")
			return
		}
		buf.WriteString("{\n")
		for i, e := range v.objValue {
			indent(depth + 1)
			kb, _ := json.Marshal(e.Key)
			buf.Write(kb)
			buf.WriteString(": ")
			e.Value.writeIndented(buf, depth+1)
			if i < len(v.objValue)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		indent(depth)
		buf.WriteByte('}')
	default:
		_ = v.writeJSON(buf)
	}
}

// IndentedString returns a pretty-printed form of the value.
func (v Value) IndentedString() string {
	var buf bytes.Buffer
	v.WriteIndentedJSON(&buf)
	return buf.String()
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// UnmarshalJSON implements json.Unmarshaler, retaining duplicate object keys
// in declaration order rather than collapsing to the last occurrence.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := parseValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Parse decodes a single JSON value from data.
func Parse(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Float64(f), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var elems []Value
			for dec.More() {
				ev, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, ev)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Array(elems...), nil
		case '{':
			var entries []ObjectEntry
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, _ := keyTok.(string)
				val, err := parseValue(dec)
				if err != nil {
					return Value{}, err
				}
				entries = append(entries, ObjectEntry{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Object(entries...), nil
		}
	}
	return Value{}, fmt.Errorf("ldvalue: unexpected token %v", tok)
}
