package conversion

import (
	"fmt"
	"time"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// run carries the state of one conversion through a family handler. Each step
// appends to out and skips silently when its segments are missing.
type run struct {
	catalog       *frcore.Catalog
	msg           *hl7v2.ParsedMessage
	out           *assembler
	now           time.Time
	patient       *fhir.Reference
	practitioners map[string]bool
}

func (r *run) optional(name string) *hl7v2.ParsedSegment {
	seg, ok := r.msg.Segment(name)
	if !ok {
		return nil
	}
	return &seg
}

// adt: Patient, Encounter, Location, Practitioners, PractitionerRoles,
// RelatedPersons, Coverage.
func (r *run) adt() error {
	if err := r.addPatient(); err != nil {
		return err
	}

	if pv1, ok := r.msg.Segment("PV1"); ok {
		loc := buildLocation(pv1.Field(3), r.catalog)
		enc, err := buildEncounter(encounterInput{
			pv1:      pv1,
			evn:      r.optional("EVN"),
			patient:  r.patient,
			location: loc,
			now:      r.now,
		}, r.catalog)
		if err != nil {
			return err
		}
		r.out.add(enc)
		if loc != nil {
			r.out.add(loc)
		}
		for _, f := range participantFields {
			if err := r.addPractitioner(pv1.Field(f.field), fmt.Sprintf("PV1-%d", f.field)); err != nil {
				return err
			}
		}
	}

	for i, rol := range r.msg.Segments("ROL") {
		if err := r.addPractitioner(rol.Field(4), fmt.Sprintf("ROL[%d]-4", i+1)); err != nil {
			return err
		}
		r.out.addStub(buildPractitionerRole(rol, r.catalog))
	}

	for i, nk1 := range r.msg.Segments("NK1") {
		rp, ok, err := buildRelatedPerson(nk1, r.patient, r.catalog)
		if err != nil {
			return fmt.Errorf("NK1[%d]: %w", i+1, err)
		}
		if ok {
			r.out.add(rp)
		}
	}

	if in1, ok := r.msg.Segment("IN1"); ok {
		r.out.add(buildCoverage(in1, r.optional("IN2"), r.patient, r.catalog)...)
	}
	return nil
}

// siu: Patient, Appointment, then the AIP practitioners and AIL locations.
// AIS service lines have no resource of their own.
func (r *run) siu() error {
	if err := r.addPatient(); err != nil {
		return err
	}

	if sch, ok := r.msg.Segment("SCH"); ok {
		r.out.addStub(buildAppointment(sch, r.optional("NTE"), r.patient))
	}

	for i, aip := range r.msg.Segments("AIP") {
		if err := r.addPractitioner(aip.Field(3), fmt.Sprintf("AIP[%d]-3", i+1)); err != nil {
			return err
		}
	}

	for _, ail := range r.msg.Segments("AIL") {
		if loc := buildLocation(ail.Field(3), r.catalog); loc != nil {
			r.out.add(loc)
		}
	}
	return nil
}

// orm: Patient, ServiceRequest, ordering provider, DiagnosticReport.
func (r *run) orm() error {
	if err := r.addPatient(); err != nil {
		return err
	}

	obr, hasOBR := r.msg.Segment("OBR")
	if hasOBR && r.msg.Has("ORC") {
		r.out.addStub(buildServiceRequest(obr, r.patient))
	}
	if hasOBR {
		if err := r.addPractitioner(obr.Field(16), "OBR-16"); err != nil {
			return err
		}
	}
	if hasOBR && r.msg.Has("OBX") {
		r.out.addStub(buildDiagnosticReport(obr, r.patient))
	}
	return nil
}

// oru: Patient, DiagnosticReport, one Observation per OBX, ordering provider.
func (r *run) oru() error {
	if err := r.addPatient(); err != nil {
		return err
	}

	obr, hasOBR := r.msg.Segment("OBR")
	obxs := r.msg.Segments("OBX")
	if hasOBR && len(obxs) > 0 {
		r.out.addStub(buildDiagnosticReport(obr, r.patient))
	}
	for _, obx := range obxs {
		r.out.addStub(buildObservation(obx, r.patient))
	}
	if hasOBR {
		if err := r.addPractitioner(obr.Field(16), "OBR-16"); err != nil {
			return err
		}
	}
	return nil
}

// generic converts what every message is likely to carry: the patient.
func (r *run) generic() error {
	return r.addPatient()
}

func (r *run) addPatient() error {
	pid, ok := r.msg.Segment("PID")
	if !ok {
		return nil
	}
	pd1 := r.optional("PD1")
	p, err := buildPatient(pid, pd1, r.catalog)
	if err != nil {
		return err
	}
	r.out.add(p)
	r.patient = fhir.ReferenceTo(p)

	// The general practitioner is emitted with the patient so its reference
	// resolves whatever the message family.
	if pd1 != nil {
		return r.addPractitioner(pd1.Field(4), "PD1-4")
	}
	return nil
}

// addPractitioner appends the Practitioner of an XCN field once per
// identifier, since its id is derived from the identifier.
func (r *run) addPractitioner(v hl7v2.Value, source string) error {
	p, ok, err := buildPractitioner(v, r.catalog)
	if err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	if !ok || r.practitioners[p.ID] {
		return nil
	}
	r.practitioners[p.ID] = true
	r.out.add(p)
	return nil
}
