package conversion

import (
	"fmt"
	"strings"

	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// UnknownGroup is the message group used when MSH-9 is missing.
const UnknownGroup = "UNKNOWN"

// MessageType is the (group, event) pair carried by MSH-9, e.g. ADT/A01.
type MessageType struct {
	Group string
	Event string
}

// ParseMessageType reads a message type from MSH-9. Both the component form
// (["ADT","A01"]) and the unsplit scalar form ("ADT^A01") are accepted.
func ParseMessageType(v hl7v2.Value) MessageType {
	comps, err := hl7v2.Components(v)
	if err != nil || len(comps) == 0 {
		return MessageType{Group: UnknownGroup}
	}
	if len(comps) == 1 {
		comps = strings.Split(comps[0], "^")
	}

	mt := MessageType{Group: strings.ToUpper(strings.TrimSpace(comps[0]))}
	if len(comps) > 1 {
		mt.Event = strings.ToUpper(strings.TrimSpace(comps[1]))
	}
	if mt.Group == "" {
		mt.Group = UnknownGroup
	}
	return mt
}

// messageTypeOf resolves the type of msg. EVN-1 supplies the trigger event when
// MSH-9 carries only the group.
func messageTypeOf(msg *hl7v2.ParsedMessage) MessageType {
	msh, ok := msg.Segment("MSH")
	if !ok {
		return MessageType{Group: UnknownGroup}
	}
	mt := ParseMessageType(msh.Field(9))
	if mt.Event == "" {
		if evn, ok := msg.Segment("EVN"); ok {
			mt.Event = strings.ToUpper(evn.Component(1, 1))
		}
	}
	return mt
}

func (t MessageType) String() string {
	if t.Event == "" {
		return t.Group
	}
	return t.Group + "^" + t.Event
}

// Family selects the workflow handler for a message.
type Family int

const (
	FamilyGeneric Family = iota
	FamilyADT
	FamilySIU
	FamilyORM
	FamilyORU
)

func (f Family) String() string {
	switch f {
	case FamilyGeneric:
		return "generic"
	case FamilyADT:
		return "ADT"
	case FamilySIU:
		return "SIU"
	case FamilyORM:
		return "ORM"
	case FamilyORU:
		return "ORU"
	default:
		return fmt.Sprintf("Family(%d)", int(f))
	}
}

// Family maps the message type to its handler family. Events outside the
// supported set fall back to FamilyGeneric.
func (t MessageType) Family() Family {
	switch t.Group {
	case "ADT":
		switch t.Event {
		case "A01", "A02", "A03", "A04", "A08":
			return FamilyADT
		}
	case "SIU":
		switch t.Event {
		case "S12", "S13", "S14", "S15":
			return FamilySIU
		}
	case "ORM":
		if t.Event == "O01" {
			return FamilyORM
		}
	case "ORU":
		if t.Event == "R01" {
			return FamilyORU
		}
	}
	return FamilyGeneric
}

// ConversionFault is a handler failure contained by the dispatcher.
type ConversionFault struct {
	Type MessageType
	Err  error
}

func (f *ConversionFault) Error() string {
	return fmt.Sprintf("%s conversion failed: %v", f.Type, f.Err)
}

func (f *ConversionFault) Unwrap() error {
	return f.Err
}
