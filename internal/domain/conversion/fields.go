package conversion

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// unknownValue fills mandatory address parts the message does not carry.
const unknownValue = "UNK"

const defaultCountry = "FRA"

const practitionerIDPrefix = "practitioner-"

var (
	insPattern     = regexp.MustCompile(`^\d{15}$`)
	oidPattern     = regexp.MustCompile(`^[0-2](\.\d+)+$`)
	numericPattern = regexp.MustCompile(`^\+?[\d .()-]*\d[\d .()-]*$`)

	// 64 minus the length of practitionerIDPrefix.
	practitionerIDPattern = regexp.MustCompile(`^[A-Za-z0-9\-.]{1,51}$`)
)

func newID() string {
	return uuid.New().String()
}

// practitionerID derives the Practitioner id from its XCN identifier. A FHIR
// id is [A-Za-z0-9-.]{1,64}; identifiers that would break that rule are
// replaced by a name-based UUID of themselves, so the id stays deterministic.
func practitionerID(identifier string) string {
	if !practitionerIDPattern.MatchString(identifier) {
		identifier = uuid.NewSHA1(uuid.NameSpaceOID, []byte(identifier)).String()
	}
	return practitionerIDPrefix + identifier
}

// practitionerRef points at the deterministic Practitioner built from identifier.
func practitionerRef(identifier, display string) *fhir.Reference {
	return &fhir.Reference{
		Reference: fhir.URN(practitionerID(identifier)),
		Type:      fhir.TypePractitioner,
		Display:   display,
	}
}

// leaves lists the non-empty scalars of v in wire order.
func leaves(v hl7v2.Value) []string {
	switch val := v.(type) {
	case nil, hl7v2.Absent:
		return nil
	case hl7v2.Scalar:
		if val == "" {
			return nil
		}
		return []string{string(val)}
	case hl7v2.Repeated:
		var out []string
		for _, item := range val {
			out = append(out, leaves(item)...)
		}
		return out
	default:
		return nil
	}
}

// scalarTelecom flattens a phone field to one string, whatever its nesting.
// The first numeric-looking part wins, then the first non-empty part.
func scalarTelecom(v hl7v2.Value) string {
	parts := leaves(v)
	for _, p := range parts {
		if numericPattern.MatchString(strings.TrimSpace(p)) {
			return strings.TrimSpace(p)
		}
	}
	if len(parts) > 0 {
		return strings.TrimSpace(parts[0])
	}
	return ""
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// buildAddress maps an XAD field (street^other^city^state^zip^country). Missing
// parts become UNK and the country defaults to FRA. Absent input yields nil.
func buildAddress(v hl7v2.Value) (*fhir.Address, error) {
	if hl7v2.IsAbsent(v) {
		return nil, nil
	}
	comps, err := hl7v2.Components(v)
	if err != nil {
		return nil, err
	}
	comp := func(i int) string {
		if i < len(comps) {
			return strings.TrimSpace(comps[i])
		}
		return ""
	}

	addr := &fhir.Address{
		Use:        "home",
		City:       orDefault(comp(2), unknownValue),
		PostalCode: orDefault(comp(4), unknownValue),
		Country:    orDefault(comp(5), defaultCountry),
	}
	addr.Line = append(addr.Line, orDefault(comp(0), unknownValue))
	if other := comp(1); other != "" {
		addr.Line = append(addr.Line, other)
	}
	return addr, nil
}

// buildName maps an XPN field: family first, every other non-empty component
// is a given name.
func buildName(v hl7v2.Value) (*fhir.HumanName, error) {
	comps, err := hl7v2.Components(v)
	if err != nil {
		return nil, err
	}
	return nameFromParts(comps), nil
}

func nameFromParts(parts []string) *fhir.HumanName {
	if len(parts) == 0 || strings.TrimSpace(parts[0]) == "" {
		return nil
	}
	name := &fhir.HumanName{Family: strings.TrimSpace(parts[0])}
	for _, c := range parts[1:] {
		if c = strings.TrimSpace(c); c != "" {
			name.Given = append(name.Given, c)
		}
	}
	return name
}

// hdEndpoint turns an HD field (namespace^universal id^id type) into an
// endpoint URI, or "" when it carries no OID.
func hdEndpoint(v hl7v2.Value) string {
	comps, err := hl7v2.Components(v)
	if err != nil {
		return ""
	}
	for _, idx := range []int{1, 0} {
		if idx < len(comps) {
			if id := strings.TrimSpace(comps[idx]); oidPattern.MatchString(id) {
				return "urn:oid:" + id
			}
		}
	}
	return ""
}

// codedText builds a CodeableConcept from a CE/CWE field: code^text^system.
func codedText(v hl7v2.Value) *fhir.CodeableConcept {
	code := hl7v2.Component(v, 1)
	text := hl7v2.Component(v, 2)
	if code == "" && text == "" {
		return nil
	}
	cc := &fhir.CodeableConcept{Text: text}
	if code != "" {
		cc.Coding = []fhir.Coding{{System: codingSystem(hl7v2.Component(v, 3)), Code: code, Display: text}}
	}
	if cc.Text == "" {
		cc.Text = code
	}
	return cc
}

func codingSystem(hl7 string) string {
	switch strings.ToUpper(hl7) {
	case "LN":
		return "http://loinc.org"
	case "SCT":
		return "http://snomed.info/sct"
	default:
		return ""
	}
}
