package hl7v2

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedShape is returned when a field is nested deeper than the
// repetition/component structure HL7v2 allows.
var ErrUnexpectedShape = errors.New("hl7v2: unexpected field shape")

// Value is a single field (or component) of a ParsedMessage. It is exactly one
// of Absent, Scalar or Repeated.
//
// A Repeated whose members are all Scalar (or Absent) is the component list of a
// single repetition. A Repeated holding at least one Repeated member is a list
// of repetitions, each member being one repetition.
type Value interface {
	isValue()
}

// Absent marks a field that is missing or empty.
type Absent struct{}

// Scalar is a field carrying a single string.
type Scalar string

// Repeated is a component list or a repetition list, see Value.
type Repeated []Value

func (Absent) isValue()   {}
func (Scalar) isValue()   {}
func (Repeated) isValue() {}

// IsAbsent reports whether v carries no data at all.
func IsAbsent(v Value) bool {
	switch val := v.(type) {
	case nil, Absent:
		return true
	case Scalar:
		return val == ""
	case Repeated:
		for _, item := range val {
			if !IsAbsent(item) {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("hl7v2: unknown value type %T", v))
	}
}

// isRepetitionList reports whether r lists repetitions rather than components.
func (r Repeated) isRepetitionList() bool {
	for _, item := range r {
		if _, ok := item.(Repeated); ok {
			return true
		}
	}
	return false
}

// Repetitions splits v into its repetitions. Absent yields none.
func Repetitions(v Value) []Value {
	switch val := v.(type) {
	case nil, Absent:
		return nil
	case Scalar:
		if val == "" {
			return nil
		}
		return []Value{val}
	case Repeated:
		if IsAbsent(val) {
			return nil
		}
		if !val.isRepetitionList() {
			return []Value{val}
		}
		reps := make([]Value, 0, len(val))
		for _, item := range val {
			if !IsAbsent(item) {
				reps = append(reps, item)
			}
		}
		return reps
	default:
		panic(fmt.Sprintf("hl7v2: unknown value type %T", v))
	}
}

// First returns the first repetition of v, or Absent.
func First(v Value) Value {
	reps := Repetitions(v)
	if len(reps) == 0 {
		return Absent{}
	}
	return reps[0]
}

// Components returns the components of the first repetition of v. A component
// that is itself repeated is reported as ErrUnexpectedShape.
func Components(v Value) ([]string, error) {
	switch rep := First(v).(type) {
	case Absent:
		return nil, nil
	case Scalar:
		return []string{string(rep)}, nil
	case Repeated:
		return repetitionComponents(rep)
	default:
		panic(fmt.Sprintf("hl7v2: unknown value type %T", rep))
	}
}

// RepetitionComponents returns the components of one repetition, as returned by
// Repetitions.
func RepetitionComponents(rep Value) ([]string, error) {
	switch val := rep.(type) {
	case nil, Absent:
		return nil, nil
	case Scalar:
		return []string{string(val)}, nil
	case Repeated:
		return repetitionComponents(val)
	default:
		panic(fmt.Sprintf("hl7v2: unknown value type %T", rep))
	}
}

func repetitionComponents(rep Repeated) ([]string, error) {
	comps := make([]string, len(rep))
	for i, item := range rep {
		switch c := item.(type) {
		case nil, Absent:
		case Scalar:
			comps[i] = string(c)
		case Repeated:
			return nil, fmt.Errorf("%w: component %d is repeated", ErrUnexpectedShape, i+1)
		default:
			panic(fmt.Sprintf("hl7v2: unknown value type %T", item))
		}
	}
	return comps, nil
}

// Component returns the 1-based component of the first repetition of v, or ""
// when it is missing or the value is malformed.
func Component(v Value, idx int) string {
	comps, err := Components(v)
	if err != nil || idx < 1 || idx > len(comps) {
		return ""
	}
	return comps[idx-1]
}

// Text flattens v back to wire form, joining components with ^ and repetitions with ~.
func Text(v Value) string {
	switch val := v.(type) {
	case nil, Absent:
		return ""
	case Scalar:
		return string(val)
	case Repeated:
		sep := "^"
		if val.isRepetitionList() {
			sep = "~"
		}
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = Text(item)
		}
		return strings.Join(parts, sep)
	default:
		panic(fmt.Sprintf("hl7v2: unknown value type %T", v))
	}
}

// FromField converts a tokenized field into a Value.
func FromField(f Field) Value {
	if f.Value == "" {
		return Absent{}
	}
	if len(f.Repeats) <= 1 {
		return componentValue(f.Components)
	}
	reps := make(Repeated, len(f.Repeats))
	for i, comps := range f.Repeats {
		reps[i] = repetitionValue(comps)
	}
	return reps
}

func componentValue(comps []string) Value {
	if len(comps) <= 1 {
		if len(comps) == 0 || comps[0] == "" {
			return Absent{}
		}
		return Scalar(comps[0])
	}
	r := make(Repeated, len(comps))
	for i, c := range comps {
		if c == "" {
			r[i] = Absent{}
		} else {
			r[i] = Scalar(c)
		}
	}
	return r
}

// repetitionValue always wraps a repetition so the parent reads as a repetition list.
func repetitionValue(comps []string) Value {
	r := make(Repeated, len(comps))
	for i, c := range comps {
		if c == "" {
			r[i] = Absent{}
		} else {
			r[i] = Scalar(c)
		}
	}
	return r
}

// ParsedSegment is one segment instance with 1-indexed field access.
type ParsedSegment struct {
	Name   string
	fields []Value
}

// NewParsedSegment builds a segment instance; fields[0] is field 1 (MSH-1 for MSH).
func NewParsedSegment(name string, fields ...Value) ParsedSegment {
	return ParsedSegment{Name: name, fields: fields}
}

// Field returns the 1-indexed field, or Absent when it does not exist.
func (s ParsedSegment) Field(idx int) Value {
	if idx < 1 || idx > len(s.fields) || s.fields[idx-1] == nil {
		return Absent{}
	}
	return s.fields[idx-1]
}

// Text returns the flattened wire text of field idx.
func (s ParsedSegment) Text(idx int) string {
	return Text(s.Field(idx))
}

// Component returns component comp of the first repetition of field idx.
func (s ParsedSegment) Component(idx, comp int) string {
	return Component(s.Field(idx), comp)
}

// Has reports whether field idx carries data.
func (s ParsedSegment) Has(idx int) bool {
	return !IsAbsent(s.Field(idx))
}

// ParsedMessage maps segment codes to their instances in wire order. It is
// read-only once built.
type ParsedMessage struct {
	segments map[string][]ParsedSegment
}

// NewParsedMessage groups segment instances by code, preserving their order.
func NewParsedMessage(segments ...ParsedSegment) *ParsedMessage {
	m := &ParsedMessage{segments: make(map[string][]ParsedSegment)}
	for _, seg := range segments {
		m.segments[seg.Name] = append(m.segments[seg.Name], seg)
	}
	return m
}

// FromMessage adapts tokenizer output into a ParsedMessage.
func FromMessage(msg *Message) *ParsedMessage {
	segs := make([]ParsedSegment, 0, len(msg.Segments))
	for _, seg := range msg.Segments {
		fields := make([]Value, len(seg.Fields))
		for i, f := range seg.Fields {
			if seg.Name == "MSH" && i < 2 {
				// MSH-1 and MSH-2 hold delimiters, never components.
				fields[i] = Scalar(f.Value)
				continue
			}
			fields[i] = FromField(f)
		}
		segs = append(segs, NewParsedSegment(seg.Name, fields...))
	}
	return NewParsedMessage(segs...)
}

// ParseMessage tokenizes raw bytes straight into a ParsedMessage.
func ParseMessage(raw []byte) (*ParsedMessage, error) {
	msg, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return FromMessage(msg), nil
}

// Segment returns the first instance of the named segment.
func (m *ParsedMessage) Segment(name string) (ParsedSegment, bool) {
	if m == nil {
		return ParsedSegment{}, false
	}
	segs := m.segments[name]
	if len(segs) == 0 {
		return ParsedSegment{}, false
	}
	return segs[0], true
}

// Segments returns every instance of the named segment.
func (m *ParsedMessage) Segments(name string) []ParsedSegment {
	if m == nil {
		return nil
	}
	segs := m.segments[name]
	out := make([]ParsedSegment, len(segs))
	copy(out, segs)
	return out
}

// Has reports whether at least one instance of each named segment exists.
func (m *ParsedMessage) Has(names ...string) bool {
	if m == nil {
		return false
	}
	for _, name := range names {
		if len(m.segments[name]) == 0 {
			return false
		}
	}
	return true
}

// Plain converts v into JSON-friendly values: nil, string or []interface{}.
func Plain(v Value) interface{} {
	switch val := v.(type) {
	case nil, Absent:
		return nil
	case Scalar:
		return string(val)
	case Repeated:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = Plain(item)
		}
		return out
	default:
		panic(fmt.Sprintf("hl7v2: unknown value type %T", v))
	}
}

// View renders the message as segment code -> instances -> 1-indexed fields,
// field 1 being at index 0.
func (m *ParsedMessage) View() map[string][][]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string][][]interface{}, len(m.segments))
	for name, segs := range m.segments {
		instances := make([][]interface{}, len(segs))
		for i, seg := range segs {
			fields := make([]interface{}, len(seg.fields))
			for j, f := range seg.fields {
				fields[j] = Plain(f)
			}
			instances[i] = fields
		}
		out[name] = instances
	}
	return out
}
