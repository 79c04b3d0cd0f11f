package conformance

import (
	"fmt"
	"regexp"

	"github.com/ehr/frbridge/internal/platform/fhir"
)

// ValidationResult is the verdict of one validation pass. Valid is true when
// Errors is empty; warnings never invalidate a Bundle.
type ValidationResult struct {
	ResourcesSeen      int      `json:"resourcesSeen"`
	ResourcesValidated int      `json:"resourcesValidated"`
	Errors             []string `json:"errors"`
	Warnings           []string `json:"warnings"`
	Valid              bool     `json:"valid"`
}

func newResult() *ValidationResult {
	return &ValidationResult{Errors: []string{}, Warnings: []string{}}
}

func (r *ValidationResult) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) finish() *ValidationResult {
	r.Valid = len(r.Errors) == 0
	return r
}

// Summary returns a one-line description, suitable for logs and CLI output.
func (r *ValidationResult) Summary() string {
	verdict := "valid"
	if !r.Valid {
		verdict = "invalid"
	}
	return fmt.Sprintf("%s: %d/%d resources validated, %d errors, %d warnings",
		verdict, r.ResourcesValidated, r.ResourcesSeen, len(r.Errors), len(r.Warnings))
}

var entryPattern = regexp.MustCompile(`entry\[(\d+)\]`)

// ToOperationOutcome converts the result into an OperationOutcome. Entry
// findings are located at Bundle.entry[n]; Bundle-level findings are
// structure issues. A clean result yields a single informational issue.
func (r *ValidationResult) ToOperationOutcome() *fhir.OperationOutcome {
	b := fhir.NewOutcomeBuilder()
	for _, e := range r.Errors {
		addFinding(b, fhir.IssueSeverityError, e)
	}
	for _, w := range r.Warnings {
		addFinding(b, fhir.IssueSeverityWarning, w)
	}
	if len(r.Errors) == 0 && len(r.Warnings) == 0 {
		b.AddIssue(fhir.IssueSeverityInformation, fhir.IssueTypeInformational, r.Summary())
	}
	return b.Build()
}

func addFinding(b *fhir.OutcomeBuilder, severity, msg string) {
	m := entryPattern.FindStringSubmatch(msg)
	if m == nil {
		b.AddIssue(severity, fhir.IssueTypeStructure, msg)
		return
	}
	b.AddIssueWithLocation(severity, fhir.IssueTypeInvalid, msg, "Bundle.entry["+m[1]+"]")
}
