package conversion

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/frbridge/internal/domain/frcore"
	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// Converter turns parsed HL7v2 messages into FR-Core message Bundles. It holds
// no per-call state and is safe for concurrent use.
type Converter struct {
	catalog *frcore.Catalog
	logger  zerolog.Logger
	now     func() time.Time
}

// NewConverter creates a converter bound to a loaded catalog.
func NewConverter(catalog *frcore.Catalog, logger zerolog.Logger) *Converter {
	return &Converter{
		catalog: catalog,
		logger:  logger.With().Str("component", "conversion").Logger(),
		now:     time.Now,
	}
}

// Convert never fails. The MessageHeader is always the first entry; a handler
// failure leaves the entries built so far in place and appends an
// OperationOutcome describing it.
func (c *Converter) Convert(msg *hl7v2.ParsedMessage) *fhir.Bundle {
	now := c.now()
	mt := messageTypeOf(msg)
	out := newAssembler(now)

	msh, _ := msg.Segment("MSH")
	header := buildMessageHeader(msh, mt, c.catalog, now)
	out.add(header)

	if fault := c.dispatch(out, msg, mt, now); fault != nil {
		c.logger.Warn().
			Str("type", mt.String()).
			Str("control_id", msh.Component(10, 1)).
			Err(fault.Err).
			Msg("conversion fault contained")
		out.add(fhir.ErrorOutcome(fault.Error()))
	}

	b := out.finish()
	if len(b.Entry) > 1 {
		if first := b.Entry[1].Resource; first.GetResourceType() != fhir.TypeOperationOutcome {
			header.Focus = append(header.Focus, *fhir.ReferenceTo(first))
		}
	}
	return b
}

// dispatch runs the family handler for mt. A returned error or a panic becomes
// a ConversionFault; nothing escapes.
func (c *Converter) dispatch(out *assembler, msg *hl7v2.ParsedMessage, mt MessageType, now time.Time) (fault *ConversionFault) {
	defer func() {
		if rec := recover(); rec != nil {
			fault = &ConversionFault{Type: mt, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	r := &run{
		catalog:       c.catalog,
		msg:           msg,
		out:           out,
		now:           now,
		practitioners: make(map[string]bool),
	}

	family := mt.Family()
	c.logger.Debug().Str("type", mt.String()).Str("family", family.String()).Msg("dispatching message")

	var err error
	switch family {
	case FamilyADT:
		err = r.adt()
	case FamilySIU:
		err = r.siu()
	case FamilyORM:
		err = r.orm()
	case FamilyORU:
		err = r.oru()
	case FamilyGeneric:
		err = r.generic()
	default:
		err = fmt.Errorf("unsupported family %s", family)
	}
	if err != nil {
		return &ConversionFault{Type: mt, Err: err}
	}
	return nil
}
