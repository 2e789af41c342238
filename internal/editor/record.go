package editor

import (
	"fmt"
	"maps"
	"net/url"
	"slices"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Record is the form data stored for one page. Every field maps to its
// submitted values so repeated inputs survive a round trip.
type Record map[string][]string

// RecordFromValues copies a submitted form, dropping navigation buttons.
func RecordFromValues(values url.Values) Record {
	r := make(Record, len(values))
	for k, v := range values {
		if slices.Contains(navigationFields, k) {
			continue
		}
		r[k] = slices.Clone(v)
	}
	return r
}

func (r Record) Get(key string) string {
	if v := r[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

func (r Record) Empty() bool {
	return len(r) == 0
}

// With returns a copy of r holding every key in keys, adding empty values
// for the missing ones.
func (r Record) With(keys ...string) Record {
	out := maps.Clone(r)
	if out == nil {
		out = Record{}
	}
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			out[k] = []string{}
		}
	}
	return out
}

// filled returns r without the fields that hold no values. Form mapping
// expects at least one value per present key.
func (r Record) filled() map[string][]string {
	out := make(map[string][]string, len(r))
	for k, v := range r {
		if len(v) > 0 {
			out[k] = v
		}
	}
	return out
}

// Encode marshals r as a protobuf Struct.
func (r Record) Encode() ([]byte, error) {
	fields := make(map[string]any, len(r))
	for k, vs := range r {
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		fields[k] = list
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return proto.Marshal(s)
}

func DecodeRecord(data []byte) (Record, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	r := make(Record, len(s.GetFields()))
	for k, v := range s.GetFields() {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_ListValue:
			vals := make([]string, 0, len(kind.ListValue.GetValues()))
			for _, item := range kind.ListValue.GetValues() {
				vals = append(vals, item.GetStringValue())
			}
			r[k] = vals
		case *structpb.Value_StringValue:
			r[k] = []string{kind.StringValue}
		default:
			return nil, fmt.Errorf("decode record: field %q has unsupported type %T", k, kind)
		}
	}
	return r, nil
}
