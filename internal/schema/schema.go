// Package schema defines the structured answer contract between the
// generation provider and the rest of the pipeline. The intent label set
// is closed: any value outside it is rejected at the decode boundary.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/campushelp/faq-bot/internal/pkg/errors"
)

// Intent is a closed enumeration of FAQ intent labels.
type Intent string

// All known intent labels.
const (
	IntentPlacement      Intent = "Placement"
	IntentInternational  Intent = "International"
	IntentTransport      Intent = "Transport"
	IntentExamination    Intent = "Examination"
	IntentLibrary        Intent = "Library"
	IntentMigration      Intent = "Migration"
	IntentContact        Intent = "Contact"
	IntentEntryTest      Intent = "Entry_Test"
	IntentDepartments    Intent = "Departments"
	IntentHostel         Intent = "Hostel"
	IntentMeritList      Intent = "Merit_List"
	IntentFeeStructure   Intent = "Fee_Structure"
	IntentScholarship    Intent = "Scholarship"
	IntentEligibility    Intent = "Eligibility"
	IntentAdmissionDates Intent = "Admission_Dates"
)

// Intents lists every valid label in declaration order.
var Intents = []Intent{
	IntentPlacement,
	IntentInternational,
	IntentTransport,
	IntentExamination,
	IntentLibrary,
	IntentMigration,
	IntentContact,
	IntentEntryTest,
	IntentDepartments,
	IntentHostel,
	IntentMeritList,
	IntentFeeStructure,
	IntentScholarship,
	IntentEligibility,
	IntentAdmissionDates,
}

var intentSet = func() map[Intent]bool {
	m := make(map[Intent]bool, len(Intents))
	for _, i := range Intents {
		m[i] = true
	}
	return m
}()

// Valid reports whether the intent is a member of the closed label set.
func (i Intent) Valid() bool {
	return intentSet[i]
}

// String returns the label as a plain string.
func (i Intent) String() string {
	return string(i)
}

// ParseIntent validates a raw label against the closed set.
func ParseIntent(s string) (Intent, error) {
	intent := Intent(s)
	if !intent.Valid() {
		return "", errors.SchemaValidationError(fmt.Sprintf("unknown intent label %q", s))
	}
	return intent, nil
}

// UnmarshalJSON rejects any label outside the closed set.
func (i *Intent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errors.SchemaValidationError("intent must be a string")
	}
	intent, err := ParseIntent(s)
	if err != nil {
		return err
	}
	*i = intent
	return nil
}

// Answer is the validated structured output of the generator.
type Answer struct {
	Intent Intent `json:"intent"`
	Answer string `json:"answer"`
}

// Validate checks the closed-set and required-field constraints.
func (a Answer) Validate() error {
	if !a.Intent.Valid() {
		return errors.SchemaValidationError(fmt.Sprintf("unknown intent label %q", a.Intent))
	}
	if a.Answer == "" {
		return errors.SchemaValidationError("answer field is missing or empty")
	}
	return nil
}

// DecodeAnswer strictly decodes a structured generation reply.
// Unknown fields, unknown intent labels, and a missing answer all fail
// with a schema validation error rather than being coerced.
func DecodeAnswer(raw []byte) (Answer, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var a Answer
	if err := dec.Decode(&a); err != nil {
		if errors.IsSchemaValidation(err) {
			return Answer{}, err
		}
		return Answer{}, errors.SchemaValidationError(fmt.Sprintf("malformed structured answer: %v", err))
	}
	if dec.More() {
		return Answer{}, errors.SchemaValidationError("trailing data after structured answer")
	}
	if err := a.Validate(); err != nil {
		return Answer{}, err
	}
	return a, nil
}

// ResponseFormat builds the structured-output response_format object
// sent with generation requests. The provider enforces the schema
// server-side; DecodeAnswer re-validates at the boundary regardless.
func ResponseFormat() map[string]any {
	labels := make([]string, len(Intents))
	for i, intent := range Intents {
		labels[i] = string(intent)
	}

	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name":   "faq_answer",
			"strict": true,
			"schema": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"intent", "answer"},
				"properties": map[string]any{
					"intent": map[string]any{
						"type": "string",
						"enum": labels,
					},
					"answer": map[string]any{
						"type": "string",
					},
				},
			},
		},
	}
}
