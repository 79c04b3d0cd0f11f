package hl7v2

import (
	"testing"
)

// =========== Sample Messages ===========

const sampleADT = "MSH|^~\\&|SIH|CHU_NANTES|DPI|CHU_NANTES|20250618120000||ADT^A01^ADT_A01|MSG00001|P|2.5\rEVN|A01|20250618115500\rPID|1||123456^^^CHU^PI~123456789012345^^^ASIP-SANTE-INS-NIR&1.2.250.1.213.1.4.8&ISO^INS||DUPONT^JEAN^PIERRE||19800515|M|||12 rue de la Paix^^NANTES^^44000^FRA||0240000000|0250000000\rPV1|1|I|CARDIO^101^A||PRE001||10001^MARTIN^Paul|||CAR||||||||I|VN12345"

const sampleORU = "MSH|^~\\&|LABO|CHU|DPI|CHU|20250618150000||ORU^R01|MSG00002|P|2.5\rPID|1||123456^^^CHU^PI||DUPONT^JEAN||19800515|M\rOBR|1|ORD001|LAB001|85025^NFS^LN|||20250618140000\rOBX|1|NM|718-7^Hemoglobine^LN||13.5|g/dL|12.0-17.5|N|||F\rOBX|2|NM|4544-3^Hematocrite^LN||40.1|%|36.0-53.0|N|||F"

// =========== Parser Tests ===========

func TestParse_ADT_A01(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.Type != "ADT^A01^ADT_A01" {
		t.Errorf("expected Type 'ADT^A01^ADT_A01', got %q", msg.Type)
	}
	if msg.ControlID != "MSG00001" {
		t.Errorf("expected ControlID 'MSG00001', got %q", msg.ControlID)
	}
	if msg.Version != "2.5" {
		t.Errorf("expected Version '2.5', got %q", msg.Version)
	}
	if msg.SendingApp != "SIH" || msg.SendingFac != "CHU_NANTES" {
		t.Errorf("unexpected sender %q/%q", msg.SendingApp, msg.SendingFac)
	}
	if msg.ReceivingApp != "DPI" || msg.ReceivingFac != "CHU_NANTES" {
		t.Errorf("unexpected receiver %q/%q", msg.ReceivingApp, msg.ReceivingFac)
	}
	if msg.Timestamp.Year() != 2025 || msg.Timestamp.Month() != 6 || msg.Timestamp.Day() != 18 {
		t.Errorf("unexpected timestamp: %v", msg.Timestamp)
	}
}

func TestParse_MSHFieldIndexing(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msh := msg.GetSegment("MSH")
	if msh == nil {
		t.Fatal("expected MSH segment")
	}
	if got := msh.GetField(1); got != "|" {
		t.Errorf("expected MSH-1 '|', got %q", got)
	}
	if got := msh.GetField(2); got != "^~\\&" {
		t.Errorf("expected MSH-2 encoding characters, got %q", got)
	}
	if got := msh.GetComponent(9, 2); got != "A01" {
		t.Errorf("expected MSH-9.2 'A01', got %q", got)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse([]byte{})
	if err == nil {
		t.Error("expected error for empty input")
	}
}

func TestParse_NilInput(t *testing.T) {
	_, err := Parse(nil)
	if err == nil {
		t.Error("expected error for nil input")
	}
}

func TestParse_NoMSH(t *testing.T) {
	_, err := Parse([]byte("PID|1||123456\rPV1|1|I"))
	if err == nil {
		t.Error("expected error for message without MSH")
	}
}

func TestParse_Repetitions(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pid := msg.GetSegment("PID")
	if pid == nil {
		t.Fatal("expected PID segment")
	}

	field := pid.Fields[2]
	if len(field.Repeats) != 2 {
		t.Fatalf("expected 2 repetitions, got %d", len(field.Repeats))
	}
	if field.Repeats[1][0] != "123456789012345" {
		t.Errorf("expected second repetition '123456789012345', got %v", field.Repeats[1])
	}
}

func TestParse_LineEndings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"carriage return", "MSH|^~\\&|A|B|||20250618||ADT^A01|1|P|2.5\rPID|1||X"},
		{"windows", "MSH|^~\\&|A|B|||20250618||ADT^A01|1|P|2.5\r\nPID|1||X\r\n"},
		{"unix", "MSH|^~\\&|A|B|||20250618||ADT^A01|1|P|2.5\nPID|1||X\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Parse([]byte(tt.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(msg.Segments) != 2 {
				t.Errorf("expected 2 segments, got %d", len(msg.Segments))
			}
		})
	}
}

func TestMessage_GetSegments(t *testing.T) {
	msg, err := Parse([]byte(sampleORU))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if obx := msg.GetSegments("OBX"); len(obx) != 2 {
		t.Errorf("expected 2 OBX segments, got %d", len(obx))
	}
	if zzz := msg.GetSegments("ZZZ"); len(zzz) != 0 {
		t.Errorf("expected 0 ZZZ segments, got %d", len(zzz))
	}
}

func TestSegment_GetComponent(t *testing.T) {
	msg, err := Parse([]byte(sampleADT))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pid := msg.GetSegment("PID")
	if pid == nil {
		t.Fatal("expected PID segment")
	}

	if comp := pid.GetComponent(3, 1); comp != "123456" {
		t.Errorf("expected PID-3.1 '123456', got %q", comp)
	}
	if comp := pid.GetComponent(3, 5); comp != "PI" {
		t.Errorf("expected PID-3.5 'PI', got %q", comp)
	}
	if comp := pid.GetComponent(3, 99); comp != "" {
		t.Errorf("expected empty string for out-of-range component, got %q", comp)
	}
	if comp := pid.GetComponent(99, 1); comp != "" {
		t.Errorf("expected empty string for out-of-range field, got %q", comp)
	}
}
