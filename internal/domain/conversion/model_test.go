package conversion

import (
	"testing"

	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		name  string
		value hl7v2.Value
		want  MessageType
	}{
		{"scalar", hl7v2.Scalar("ADT^A01"), MessageType{"ADT", "A01"}},
		{"components", hl7v2.Repeated{hl7v2.Scalar("ORU"), hl7v2.Scalar("R01"), hl7v2.Scalar("ORU_R01")}, MessageType{"ORU", "R01"}},
		{"group only", hl7v2.Scalar("ADT"), MessageType{"ADT", ""}},
		{"lower case", hl7v2.Scalar("siu^s12"), MessageType{"SIU", "S12"}},
		{"absent", hl7v2.Absent{}, MessageType{Group: UnknownGroup}},
		{"nil", nil, MessageType{Group: UnknownGroup}},
		{"empty group", hl7v2.Repeated{hl7v2.Absent{}, hl7v2.Scalar("A01")}, MessageType{UnknownGroup, "A01"}},
		{"malformed", hl7v2.Repeated{hl7v2.Repeated{hl7v2.Scalar("ADT"), hl7v2.Repeated{hl7v2.Scalar("x")}}}, MessageType{Group: UnknownGroup}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseMessageType(tt.value); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestMessageType_String(t *testing.T) {
	if got := (MessageType{"ADT", "A01"}).String(); got != "ADT^A01" {
		t.Errorf("unexpected %q", got)
	}
	if got := (MessageType{Group: UnknownGroup}).String(); got != "UNKNOWN" {
		t.Errorf("unexpected %q", got)
	}
}

func TestMessageType_Family(t *testing.T) {
	tests := []struct {
		mt   MessageType
		want Family
	}{
		{MessageType{"ADT", "A01"}, FamilyADT},
		{MessageType{"ADT", "A08"}, FamilyADT},
		{MessageType{"ADT", "A05"}, FamilyGeneric},
		{MessageType{"SIU", "S15"}, FamilySIU},
		{MessageType{"SIU", "S17"}, FamilyGeneric},
		{MessageType{"ORM", "O01"}, FamilyORM},
		{MessageType{"ORU", "R01"}, FamilyORU},
		{MessageType{"ORU", "R30"}, FamilyGeneric},
		{MessageType{Group: UnknownGroup}, FamilyGeneric},
	}
	for _, tt := range tests {
		if got := tt.mt.Family(); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.mt, tt.want, got)
		}
	}
}

func TestMessageTypeOf_EVNFallback(t *testing.T) {
	msg := parse(t, message("MSH|^~\\&|SIH|CHU|DPI|CHU|20250618120000||ADT|MSG1|P|2.5", "EVN|A03|20250618115500"))
	if got := messageTypeOf(msg); got != (MessageType{"ADT", "A03"}) {
		t.Errorf("expected ADT^A03, got %s", got)
	}

	if got := messageTypeOf(hl7v2.NewParsedMessage()); got.Group != UnknownGroup {
		t.Errorf("expected UNKNOWN without MSH, got %s", got)
	}
}

func TestFamily_String(t *testing.T) {
	if FamilyADT.String() != "ADT" || FamilyGeneric.String() != "generic" || Family(42).String() != "Family(42)" {
		t.Error("unexpected family names")
	}
}
