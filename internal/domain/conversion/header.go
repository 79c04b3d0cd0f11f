package conversion

import (
	"time"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// buildMessageHeader maps MSH (and the EVN event when MSH-9 has none). The
// trigger event is carried both as eventUri and as a v2-0003 eventCoding. It only
// reads through tolerant accessors, so it cannot fail: the header entry always
// exists.
func buildMessageHeader(msh hl7v2.ParsedSegment, mt MessageType, cat *frcore.Catalog, now time.Time) *fhir.MessageHeader {
	m := cat.Messaging()

	event := mt.Event
	if event == "" {
		event = mt.Group
	}

	header := &fhir.MessageHeader{
		Base:     fhir.Base{ResourceType: fhir.TypeMessageHeader, ID: newID()},
		EventURI: cat.EventURI(event),
		Destination: []fhir.MessageDestination{{
			Name:     msh.Component(5, 1),
			Endpoint: orDefault(hdEndpoint(msh.Field(6)), m.DestinationFallback),
		}},
		Source: &fhir.MessageSource{
			Name:     msh.Component(3, 1),
			Software: m.SourceSoftware,
			Endpoint: orDefault(hdEndpoint(msh.Field(4)), m.SourceFallback),
		},
	}
	if mt.Event != "" {
		header.EventCoding = &fhir.Coding{System: frcore.CodeSystemV2EventType, Code: mt.Event}
	}
	header.AddProfile(cat.Profile(fhir.TypeMessageHeader))

	lastUpdated := hl7v2.FormatDateTimeWithTimezone(msh.Component(7, 1))
	if lastUpdated == "" {
		lastUpdated = hl7v2.FormatInstant(now)
	}
	header.Meta.LastUpdated = lastUpdated
	return header
}
