package conversion

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// assembler owns the Bundle envelope while a conversion runs. Entries can only
// be appended, so an entry never moves once a handler has added it.
type assembler struct {
	bundle *fhir.Bundle
}

func newAssembler(now time.Time) *assembler {
	ts := hl7v2.FormatInstant(now)
	return &assembler{
		bundle: &fhir.Bundle{
			ResourceType: "Bundle",
			ID:           uuid.New().String(),
			Meta:         &fhir.Meta{LastUpdated: ts},
			Type:         fhir.BundleTypeMessage,
			Timestamp:    ts,
		},
	}
}

func (a *assembler) add(resources ...fhir.Resource) {
	for _, r := range resources {
		a.bundle.Entry = append(a.bundle.Entry, fhir.NewEntry(r))
	}
}

// addStub appends a placeholder resource, tagged so callers can tell it apart
// from a full mapping.
func (a *assembler) addStub(r fhir.Resource) {
	a.bundle.Entry = append(a.bundle.Entry, fhir.NewStubEntry(r))
}

func (a *assembler) len() int {
	return len(a.bundle.Entry)
}

// finish hands the Bundle over. The assembler must not be used afterwards.
func (a *assembler) finish() *fhir.Bundle {
	b := a.bundle
	a.bundle = nil
	return b
}
