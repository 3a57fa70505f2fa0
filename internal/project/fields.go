package project

import (
	"bytes"
	"encoding/json"
	"sort"
)

// documentFields and iterationFields drop the JSON methods so the default
// struct encoding can be reused inside them.
type (
	documentFields  Document
	iterationFields IterationRecord
)

var (
	documentKeys  = []string{"slug", "idea", "created_date", "iterations"}
	iterationKeys = []string{"date", "summary", "applied"}
)

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (d *Document) UnmarshalJSON(data []byte) error {
	var fields documentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := unknownFields(data, documentKeys)
	if err != nil {
		return err
	}
	*d = Document(fields)
	d.Extra = extra
	return nil
}

// MarshalJSON writes the known fields followed by Extra in key order.
func (d Document) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(documentFields(d), d.Extra)
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (r *IterationRecord) UnmarshalJSON(data []byte) error {
	var fields iterationFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := unknownFields(data, iterationKeys)
	if err != nil {
		return err
	}
	*r = IterationRecord(fields)
	r.Extra = extra
	return nil
}

// MarshalJSON writes the known fields followed by Extra in key order.
func (r IterationRecord) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(iterationFields(r), r.Extra)
}

// unknownFields returns the members of the object in data not named in known,
// or nil when there are none.
func unknownFields(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// marshalWithExtra encodes v (a struct encoding to a non-empty object) and
// appends the extra members before the closing brace.
func marshalWithExtra(v any, extra map[string]json.RawMessage) ([]byte, error) {
	out, err := encode(v)
	if err != nil || len(extra) == 0 {
		return out, err
	}

	names := make([]string, 0, len(extra))
	for k := range extra {
		names = append(names, k)
	}
	sort.Strings(names)

	buf := bytes.NewBuffer(out[:len(out)-1])
	for _, k := range names {
		key, err := encode(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encode is json.Marshal without HTML escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
