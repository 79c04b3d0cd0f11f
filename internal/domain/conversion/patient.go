package conversion

import (
	"fmt"
	"strings"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

const (
	reliabilityValidated    = "VALI"
	reliabilityUndetermined = "UNDI"
)

// buildPatient maps PID, plus the primary care provider from PD1 when given.
func buildPatient(pid hl7v2.ParsedSegment, pd1 *hl7v2.ParsedSegment, cat *frcore.Catalog) (*fhir.Patient, error) {
	p := &fhir.Patient{
		Base: fhir.Base{ResourceType: fhir.TypePatient, ID: newID()},
	}
	p.AddProfile(cat.Profile(fhir.TypePatient))

	if err := addPatientIdentifiers(p, pid.Field(3), cat); err != nil {
		return nil, fmt.Errorf("PID-3: %w", err)
	}

	name, err := buildName(pid.Field(5))
	if err != nil {
		return nil, fmt.Errorf("PID-5: %w", err)
	}
	if name != nil {
		name.Use = "official"
		if len(name.Given) > 0 {
			name.Extension = append(name.Extension, fhir.Extension{
				URL:         frcore.ExtBirthListGivenName,
				ValueString: strings.Join(name.Given, " "),
			})
		}
		p.Name = append(p.Name, *name)
	}

	if v := scalarTelecom(pid.Field(13)); v != "" {
		p.Telecom = append(p.Telecom, fhir.ContactPoint{System: "phone", Value: v, Use: "home"})
	}
	if v := scalarTelecom(pid.Field(14)); v != "" {
		p.Telecom = append(p.Telecom, fhir.ContactPoint{System: "phone", Value: v, Use: "work"})
	}

	p.Gender = mapGender(pid.Component(8, 1))
	p.BirthDate = hl7v2.FormatDate(pid.Component(7, 1))

	addr, err := buildAddress(pid.Field(11))
	if err != nil {
		return nil, fmt.Errorf("PID-11: %w", err)
	}
	if addr != nil {
		p.Address = append(p.Address, *addr)
	}

	if place := birthPlace(pid.Component(23, 1), addr); place != nil {
		p.Extension = append(p.Extension, fhir.Extension{URL: frcore.ExtBirthPlace, ValueAddress: place})
	}
	p.Extension = append(p.Extension, identityReliability(pid.Component(35, 1), cat))

	if pd1 != nil {
		if id := strings.TrimSpace(pd1.Component(4, 1)); id != "" {
			display := strings.TrimSpace(pd1.Component(4, 3) + " " + pd1.Component(4, 2))
			p.GeneralPractitioner = append(p.GeneralPractitioner, *practitionerRef(id, display))
		}
	}

	return p, nil
}

// addPatientIdentifiers slices PID-3. A CX with an assigning authority (four
// components or more) is the internal PI identifier; a 15-digit value is also
// emitted as INS-NIR and turns on the INS profile.
func addPatientIdentifiers(p *fhir.Patient, v hl7v2.Value, cat *frcore.Catalog) error {
	pi := cat.MustSlice(fhir.TypePatient, frcore.SlicePI)
	ins := cat.MustSlice(fhir.TypePatient, frcore.SliceINSNIR)

	for _, rep := range hl7v2.Repetitions(v) {
		comps, err := hl7v2.RepetitionComponents(rep)
		if err != nil {
			return err
		}
		if len(comps) == 0 {
			continue
		}
		value := strings.TrimSpace(comps[0])
		if value == "" {
			continue
		}

		if len(comps) >= 4 {
			p.Identifier = append(p.Identifier, sliceIdentifier(pi, value))
		}
		if insPattern.MatchString(value) {
			p.Identifier = append(p.Identifier, sliceIdentifier(ins, value))
			p.AddProfile(frcore.ProfilePatientINS)
		}
	}
	return nil
}

func sliceIdentifier(s frcore.Slice, value string) fhir.Identifier {
	id := fhir.Identifier{Use: s.Use, System: s.System, Value: value}
	if s.TypeCode != "" {
		id.Type = fhir.Concept(s.TypeSystem, s.TypeCode, "")
	}
	return id
}

func mapGender(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "M":
		return "male"
	case "F":
		return "female"
	default:
		return "unknown"
	}
}

// birthPlace prefers PID-23 and otherwise reuses the patient's address.
func birthPlace(place string, addr *fhir.Address) *fhir.Address {
	place = strings.TrimSpace(place)
	switch {
	case place != "":
		country := defaultCountry
		if addr != nil {
			country = addr.Country
		}
		return &fhir.Address{City: place, Country: country}
	case addr != nil:
		return &fhir.Address{City: addr.City, PostalCode: addr.PostalCode, Country: addr.Country}
	default:
		return nil
	}
}

func identityReliability(status string, cat *frcore.Catalog) fhir.Extension {
	code := reliabilityUndetermined
	if strings.TrimSpace(status) == reliabilityValidated {
		code = reliabilityValidated
	}
	coding := &fhir.Coding{System: frcore.CodeSystemIdentityReliability, Code: code}
	if vs, ok := cat.ValueSet(frcore.ValueSetIdentityReliability); ok {
		coding.Display, _ = vs.Display(frcore.CodeSystemIdentityReliability, code)
	}
	return fhir.Extension{URL: frcore.ExtIdentityReliability, ValueCoding: coding}
}
