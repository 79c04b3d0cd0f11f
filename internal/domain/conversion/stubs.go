package conversion

import (
	"strings"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// The builders below produce placeholders: status plus the few links needed to
// keep the Bundle navigable. Their entries are tagged fhir.Stub.

func buildAppointment(sch hl7v2.ParsedSegment, nte *hl7v2.ParsedSegment, patient *fhir.Reference) *fhir.Appointment {
	a := &fhir.Appointment{
		Base:   fhir.Base{ResourceType: fhir.TypeAppointment, ID: newID()},
		Status: "booked",
	}
	if nte != nil {
		a.Comment = strings.TrimSpace(nte.Text(3))
	}
	if a.Comment == "" {
		a.Comment = strings.TrimSpace(sch.Component(7, 2))
	}
	if patient != nil {
		a.Participant = append(a.Participant, fhir.AppointmentParticipant{Actor: patient, Status: "accepted"})
	}
	return a
}

func buildServiceRequest(obr hl7v2.ParsedSegment, patient *fhir.Reference) *fhir.ServiceRequest {
	return &fhir.ServiceRequest{
		Base:    fhir.Base{ResourceType: fhir.TypeServiceRequest, ID: newID()},
		Status:  "active",
		Intent:  "order",
		Code:    codedText(obr.Field(4)),
		Subject: patient,
	}
}

func buildDiagnosticReport(obr hl7v2.ParsedSegment, patient *fhir.Reference) *fhir.DiagnosticReport {
	return &fhir.DiagnosticReport{
		Base:    fhir.Base{ResourceType: fhir.TypeDiagnosticReport, ID: newID()},
		Status:  "final",
		Code:    codedText(obr.Field(4)),
		Subject: patient,
	}
}

func buildObservation(obx hl7v2.ParsedSegment, patient *fhir.Reference) *fhir.Observation {
	return &fhir.Observation{
		Base:    fhir.Base{ResourceType: fhir.TypeObservation, ID: newID()},
		Status:  "final",
		Code:    codedText(obx.Field(3)),
		Subject: patient,
	}
}

// buildPractitionerRole maps ROL-4 (the role person) to a role placeholder.
func buildPractitionerRole(rol hl7v2.ParsedSegment, cat *frcore.Catalog) *fhir.PractitionerRole {
	role := &fhir.PractitionerRole{
		Base: fhir.Base{ResourceType: fhir.TypePractitionerRole, ID: newID()},
	}
	role.AddProfile(cat.Profile(fhir.TypePractitionerRole))
	if id := strings.TrimSpace(rol.Component(4, 1)); id != "" {
		role.Practitioner = practitionerRef(id, "")
	}
	if cc := codedText(rol.Field(3)); cc != nil {
		role.Code = append(role.Code, *cc)
	}
	return role
}
