// Package record defines the Record type produced by logfile parsing.
//
// This package is separated from the main wintail package to avoid import cycles
// between pkg/wintail and internal/parser.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Well-known logfile field names.
const (
	// FieldMessage is the free-text outcome of a game ("escaped with the Orb", ...).
	FieldMessage = "tmsg"

	// FieldName is the player name.
	FieldName = "name"

	// FieldScore is the final score.
	FieldScore = "sc"

	// FieldEnd is the game end timestamp.
	FieldEnd = "end"

	// FieldRace, FieldClass and FieldCombo describe the character.
	FieldRace  = "race"
	FieldClass = "cls"
	FieldCombo = "char"
)

// Record is one parsed logfile line: an ordered mapping of field name to value.
// The zero value is an empty record ready for use.
type Record struct {
	keys   []string
	values map[string]string
}

// New builds a record from alternating key, value pairs.
// A trailing key without a value gets an empty value.
func New(kv ...string) Record {
	var r Record
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		r.Set(kv[i], v)
	}
	return r
}

// Set inserts or replaces a field. A replaced field keeps its original position.
func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value of a field and whether it is present.
func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value of a field, or "" when absent.
func (r Record) Value(key string) string {
	return r.values[key]
}

// Keys returns field names in insertion order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Map returns a copy of the fields as a plain map.
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.values[k]
	}
	return m
}

// MarshalJSON encodes the record as a JSON object with fields in insertion order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string values, keeping document order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("record: expected JSON object")
	}
	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		r.Set(key, value)
	}
	_, err = dec.Token()
	return err
}
