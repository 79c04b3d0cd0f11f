package conversion

import (
	"github.com/rs/zerolog"

	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// BundleConverter is the conversion entry point; *Converter implements it.
type BundleConverter interface {
	Convert(msg *hl7v2.ParsedMessage) *fhir.Bundle
}

// MLLPHandler adapts a converter to the MLLP listener. The message is
// acknowledged AA when its Bundle carries no OperationOutcome and AE, with the
// outcome text, otherwise. sink, when non-nil, receives every Bundle.
func MLLPHandler(conv BundleConverter, sink func(*fhir.Bundle), logger zerolog.Logger) hl7v2.MessageHandler {
	return func(msg *hl7v2.Message) (hl7v2.AckCode, string) {
		b := conv.Convert(hl7v2.FromMessage(msg))
		if sink != nil {
			sink(b)
		}

		if len(b.Outcomes()) > 0 {
			text := b.OutcomeText()
			logger.Warn().Str("control_id", msg.ControlID).Str("bundle_id", b.ID).Str("outcome", text).Msg("message converted with errors")
			return hl7v2.AckError, text
		}
		logger.Debug().Str("control_id", msg.ControlID).Str("bundle_id", b.ID).Int("entries", len(b.Entry)).Msg("message converted")
		return hl7v2.AckAccept, ""
	}
}
