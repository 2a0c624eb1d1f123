package emr

import (
	"strings"

	"osraclinic.com/workbench/internal/docproc"
)

// appendField merges extracted text into an existing form field: appended on
// a new line when the field already has content, set directly when it is
// empty. Empty additions leave the field untouched.
func appendField(existing, addition string) string {
	if addition == "" {
		return existing
	}
	if existing == "" {
		return addition
	}
	return existing + "\n" + addition
}

// formatMedications renders an ACR medication list as one "<name>: <dosage>"
// line per drug.
func formatMedications(found []docproc.Medication) string {
	lines := make([]string, 0, len(found))
	for _, med := range found {
		lines = append(lines, med.Medication+": "+med.Dosage)
	}
	return strings.Join(lines, "\n")
}

// applyExtraction merges NLP-extracted fields into the form. The extracted
// history is free text while the stored chronic history is split across three
// fields; it lands in the diseases field (see DESIGN.md). Returns false when
// nothing was extracted.
func applyExtraction(form *Form, extracted docproc.Extraction) bool {
	if extracted.Empty() {
		return false
	}

	form.Diagnosis = appendField(form.Diagnosis, extracted.Diagnosis)
	form.Notes = appendField(form.Notes, extracted.Notes)
	form.Diseases = appendField(form.Diseases, extracted.History)
	return true
}
