package conversion

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

var fixedNow = time.Date(2025, 6, 18, 10, 30, 0, 0, time.UTC)

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	cat, err := frcore.Load()
	if err != nil {
		t.Fatalf("frcore.Load: %v", err)
	}
	c := NewConverter(cat, zerolog.Nop())
	c.now = func() time.Time { return fixedNow }
	return c
}

// segment builds a segment line from 1-indexed fields.
func segment(name string, fields map[int]string) string {
	last := 0
	for i := range fields {
		if i > last {
			last = i
		}
	}
	parts := make([]string, last+1)
	parts[0] = name
	for i, v := range fields {
		parts[i] = v
	}
	return strings.Join(parts, "|")
}

func mshLine(msgType string) string {
	return `MSH|^~\&|SIH|CHU_NANTES^1.2.250.1.71.4.2.2.100^ISO|DPI|CHU_NANTES|20250618120000||` + msgType + `|MSG00001|P|2.5`
}

func message(lines ...string) string {
	return strings.Join(lines, "\r")
}

func parse(t *testing.T, raw string) *hl7v2.ParsedMessage {
	t.Helper()
	msg, err := hl7v2.ParseMessage([]byte(raw))
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	return msg
}

var (
	adtPID = segment("PID", map[int]string{
		1:  "1",
		3:  "123456^^^CHU^PI~123456789012345",
		5:  "DUPONT^JEAN^PIERRE",
		7:  "19800515",
		8:  "M",
		11: "12 rue de la Paix^^NANTES^^44000^FRA",
		13: "0240000000",
		14: "0250000000",
		23: "NANTES",
		35: "VALI",
	})
	adtPD1 = segment("PD1", map[int]string{4: "10003^DURAND^Claire"})
	adtPV1 = segment("PV1", map[int]string{
		1:  "1",
		2:  "I",
		3:  "CARDIO^101^A",
		5:  "PRE001",
		7:  "10001^MARTIN^Paul",
		8:  "10002^BERNARD^Luc",
		17: "10001^MARTIN^Paul",
		19: "VN12345",
		44: "20250618100000",
	})
	adtNK1 = segment("NK1", map[int]string{
		1: "1",
		2: "DUPONT^MARIE",
		3: "MTH",
		4: "12 rue de la Paix^^NANTES^^44000^FRA",
		5: "^PRN^PH^^^^^^^^^0612345678",
	})
	adtNK1NoName = segment("NK1", map[int]string{1: "2", 3: "FTH"})
	adtIN1       = segment("IN1", map[int]string{1: "1", 2: "AMO001", 36: "180054400012345"})
)

func sampleADTA01() string {
	return message(
		mshLine("ADT^A01^ADT_A01"),
		"EVN|A01|20250618115500",
		adtPID,
		adtPD1,
		adtPV1,
		adtNK1,
		adtNK1NoName,
		adtIN1,
	)
}

func resourceTypes(b *fhir.Bundle) []string {
	out := make([]string, len(b.Entry))
	for i, e := range b.Entry {
		out[i] = e.Resource.GetResourceType()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func firstOfType[T fhir.Resource](t *testing.T, b *fhir.Bundle, resourceType string) T {
	t.Helper()
	rs := b.ResourcesOfType(resourceType)
	if len(rs) == 0 {
		t.Fatalf("no %s in bundle: %v", resourceType, resourceTypes(b))
	}
	r, ok := rs[0].(T)
	if !ok {
		t.Fatalf("%s has unexpected type %T", resourceType, rs[0])
	}
	return r
}

// danglingReferences lists the urn:uuid: references of b that match no
// entry fullUrl.
func danglingReferences(t *testing.T, b *fhir.Bundle) []string {
	t.Helper()
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	var doc struct {
		Entry []struct {
			FullURL  string          `json:"fullUrl"`
			Resource json.RawMessage `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal bundle: %v", err)
	}

	known := make(map[string]bool, len(doc.Entry))
	for _, e := range doc.Entry {
		known[e.FullURL] = true
	}
	seen := make(map[string]bool)
	for _, e := range doc.Entry {
		var res interface{}
		if err := json.Unmarshal(e.Resource, &res); err != nil {
			t.Fatalf("unmarshal %s: %v", e.FullURL, err)
		}
		collectReferences(res, seen)
	}

	var out []string
	for ref := range seen {
		if strings.HasPrefix(ref, fhir.URNPrefix) && !known[ref] {
			out = append(out, ref)
		}
	}
	sort.Strings(out)
	return out
}

func collectReferences(v interface{}, into map[string]bool) {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, child := range val {
			if s, ok := child.(string); ok && k == "reference" {
				into[s] = true
				continue
			}
			collectReferences(child, into)
		}
	case []interface{}:
		for _, child := range val {
			collectReferences(child, into)
		}
	}
}
