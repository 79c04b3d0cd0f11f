package conversion

import (
	"fmt"
	"strings"
	"time"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

const (
	classInpatient  = "IMP"
	classEmergency  = "EMER"
	classAmbulatory = "AMB"

	// Placeholder origin and destination: "8" is Domicile in both
	// TRE_R213-ModeEntree and TRE_R214-ModeSortie.
	modeDomicile = "8"
)

// participantFields maps PV1 doctor fields to their participation type.
var participantFields = []struct {
	field   int
	code    string
	display string
}{
	{7, "ATND", "attender"},
	{8, "REF", "referrer"},
	{9, "CON", "consultant"},
	{17, "ADM", "admitter"},
}

// boundCoding builds a coding and fills its display from the bound ValueSet.
func boundCoding(cat *frcore.Catalog, valueSet, system, code string) fhir.Coding {
	c := fhir.Coding{System: system, Code: code}
	if vs, ok := cat.ValueSet(valueSet); ok {
		c.Display, _ = vs.Display(system, code)
	}
	return c
}

func mapEncounterClass(pv12 string) string {
	switch strings.ToUpper(strings.TrimSpace(pv12)) {
	case "I":
		return classInpatient
	case "E":
		return classEmergency
	default:
		return classAmbulatory
	}
}

// encounterInput gathers what the Encounter links to.
type encounterInput struct {
	pv1      hl7v2.ParsedSegment
	evn      *hl7v2.ParsedSegment
	patient  *fhir.Reference
	location *fhir.Location
	now      time.Time
}

// buildEncounter maps PV1 (period start falls back to EVN-2).
func buildEncounter(in encounterInput, cat *frcore.Catalog) (*fhir.Encounter, error) {
	pv1 := in.pv1
	enc := &fhir.Encounter{
		Base:    fhir.Base{ResourceType: fhir.TypeEncounter, ID: newID()},
		Status:  "finished",
		Subject: in.patient,
	}
	enc.AddProfile(cat.Profile(fhir.TypeEncounter))

	class := mapEncounterClass(pv1.Component(2, 1))
	classCoding := boundCoding(cat, frcore.ValueSetEncounterClass, frcore.CodeSystemActCode, class)
	enc.Class = &classCoding
	enc.Extension = append(enc.Extension, fhir.Extension{
		URL:                  frcore.ExtModePriseEnCharge,
		ValueCodeableConcept: &fhir.CodeableConcept{Coding: []fhir.Coding{classCoding}},
	})

	start := hl7v2.FormatDateTimeWithTimezone(pv1.Component(44, 1))
	if start == "" && in.evn != nil {
		start = hl7v2.FormatDateTimeWithTimezone(in.evn.Component(2, 1))
	}
	if start != "" {
		enc.Period = &fhir.Period{Start: start}
	}

	if vn := strings.TrimSpace(pv1.Component(19, 1)); vn != "" {
		enc.Identifier = append(enc.Identifier, sliceIdentifier(cat.MustSlice(fhir.TypeEncounter, frcore.SliceVN), vn))
	}

	for _, pf := range participantFields {
		comps, err := hl7v2.Components(pv1.Field(pf.field))
		if err != nil {
			return nil, fmt.Errorf("PV1-%d: %w", pf.field, err)
		}
		if len(comps) == 0 || strings.TrimSpace(comps[0]) == "" {
			continue
		}
		enc.Participant = append(enc.Participant, fhir.EncounterParticipant{
			Type:       []fhir.CodeableConcept{*fhir.Concept(frcore.CodeSystemParticipationType, pf.code, pf.display)},
			Individual: practitionerRef(strings.TrimSpace(comps[0]), ""),
		})
	}

	if in.location != nil {
		enc.Location = append(enc.Location, fhir.EncounterLocation{Location: *fhir.ReferenceTo(in.location)})
	}

	if class == classInpatient {
		enc.Hospitalization = buildHospitalization(pv1, cat)
		enc.Extension = append(enc.Extension, fhir.Extension{
			URL:           frcore.ExtEstimatedDischargeDate,
			ValueDateTime: estimatedDischarge(start, in.now),
		})
	}

	return enc, nil
}

func buildHospitalization(pv1 hl7v2.ParsedSegment, cat *frcore.Catalog) *fhir.EncounterHospitalization {
	h := &fhir.EncounterHospitalization{}
	if id := strings.TrimSpace(pv1.Component(5, 1)); id != "" {
		slice := cat.MustSlice(fhir.TypeEncounter, frcore.SlicePreAdmission)
		h.PreAdmissionIdentifier = &fhir.Identifier{System: slice.System, Value: id}
	}
	admit := boundCoding(cat, frcore.ValueSetModeEntree, frcore.CodeSystemModeEntree, modeDomicile)
	h.AdmitSource = &fhir.CodeableConcept{Coding: []fhir.Coding{admit}}
	discharge := boundCoding(cat, frcore.ValueSetModeSortie, frcore.CodeSystemModeSortie, modeDomicile)
	h.DischargeDisposition = &fhir.CodeableConcept{Coding: []fhir.Coding{discharge}}
	return h
}

// estimatedDischarge is one day after the stay starts, or after now when the
// start is unknown.
func estimatedDischarge(start string, now time.Time) string {
	base := now.In(hl7v2.FrenchOffset)
	if start != "" {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			base = t
		}
	}
	return base.AddDate(0, 0, 1).Format(time.RFC3339)
}

// buildLocation maps PV1-3; the raw value is both the name and the identifier.
func buildLocation(v hl7v2.Value, cat *frcore.Catalog) *fhir.Location {
	raw := strings.TrimSpace(hl7v2.Text(hl7v2.First(v)))
	if raw == "" {
		return nil
	}
	loc := &fhir.Location{
		Base:       fhir.Base{ResourceType: fhir.TypeLocation, ID: newID()},
		Identifier: []fhir.Identifier{{Value: raw}},
		Status:     "active",
		Name:       raw,
	}
	loc.AddProfile(cat.Profile(fhir.TypeLocation))
	return loc
}

// buildPractitioner maps an XCN field (id^family^given). The id is
// deterministic so every reference built from the same identifier resolves to
// it. ok is false when the field has no identifier.
func buildPractitioner(v hl7v2.Value, cat *frcore.Catalog) (p *fhir.Practitioner, ok bool, err error) {
	comps, err := hl7v2.Components(v)
	if err != nil {
		return nil, false, err
	}
	if len(comps) == 0 || strings.TrimSpace(comps[0]) == "" {
		return nil, false, nil
	}
	identifier := strings.TrimSpace(comps[0])

	p = &fhir.Practitioner{
		Base:       fhir.Base{ResourceType: fhir.TypePractitioner, ID: practitionerID(identifier)},
		Identifier: []fhir.Identifier{sliceIdentifier(cat.MustSlice(fhir.TypePractitioner, frcore.SliceIDNPS), identifier)},
	}
	p.AddProfile(cat.Profile(fhir.TypePractitioner))

	if len(comps) > 1 {
		if name := nameFromParts(comps[1:]); name != nil {
			p.Name = append(p.Name, *name)
		}
	}
	return p, true, nil
}
