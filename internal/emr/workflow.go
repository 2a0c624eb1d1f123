package emr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"osraclinic.com/workbench/internal/clinicapi"
	"osraclinic.com/workbench/internal/docproc"
	"osraclinic.com/workbench/internal/metrics"
)

// State is the workflow's position in its lifecycle.
type State string

const (
	StateNoPatientSelected State = "no_patient_selected"
	StatePatientLoaded     State = "patient_loaded"
	StateSaving            State = "saving"
)

// Validation failures caught before any network call.
var (
	ErrNoPatientSelected = errors.New("no patient selected")
	ErrNoFileAttached    = errors.New("choose a file first")
	ErrEmptyText         = errors.New("enter text first")
	ErrProcessing        = errors.New("another operation is in progress")
	ErrUnknownField      = errors.New("unknown form field")
)

// Form is the editable clinical data for the selected patient: the chronic
// history fields that live on the patient, the encounter fields that become a
// new medical record on save, and the free-text NLP input.
type Form struct {
	// Chronic history (patient-level, persists across encounters)
	Diseases    string `json:"diseases"`
	Allergies   string `json:"allergies"`
	Medications string `json:"medications"`

	// Encounter fields (one clinical visit)
	Diagnosis     string `json:"diagnosis"`
	Prescription  string `json:"prescription"`
	Notes         string `json:"notes"`
	DentalIssues  string `json:"dental_issues"`
	TreatmentPlan string `json:"treatment_plan"`

	// NLP input buffer, overwritten wholesale by OCR
	NLPInput string `json:"nlp_input"`
}

// PatientService is the patient half of an EMR save.
type PatientService interface {
	UpdatePatientChronic(ctx context.Context, id int, update clinicapi.ChronicUpdate) error
}

// RecordService loads prior encounters and creates new ones.
type RecordService interface {
	ListMedicalRecords(ctx context.Context, filter clinicapi.RecordFilter) ([]clinicapi.MedicalRecord, error)
	CreateMedicalRecord(ctx context.Context, record clinicapi.MedicalRecord) (*clinicapi.MedicalRecord, error)
}

// Extractor is the document-processing side: OCR, ACR, NLP.
type Extractor interface {
	OCR(ctx context.Context, file docproc.File) (*docproc.OCRResult, error)
	ACR(ctx context.Context, file docproc.File) (*docproc.ACRResult, error)
	NLP(ctx context.Context, text string) (*docproc.NLPResult, error)
}

// Workflow drives EMR composition for one dentist: pick a patient, edit
// clinical fields, enrich them through document extraction, persist. All
// methods are safe for concurrent use; long during-call work runs without
// the lock and a selection generation counter discards stale loads.
type Workflow struct {
	patients  PatientService
	records   RecordService
	extractor Extractor
	notifier  Notifier

	mu       sync.Mutex
	state    State
	patient  *clinicapi.Patient
	form     Form
	attached *docproc.File
	gen      uint64
	busy     bool
}

// NewWorkflow creates a workflow in the NoPatientSelected state. A nil
// notifier falls back to log-only notifications.
func NewWorkflow(patients PatientService, records RecordService, extractor Extractor, notifier Notifier) *Workflow {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Workflow{
		patients:  patients,
		records:   records,
		extractor: extractor,
		notifier:  notifier,
		state:     StateNoPatientSelected,
	}
}

// State returns the current workflow state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Patient returns a copy of the selected patient, nil when none.
func (w *Workflow) Patient() *clinicapi.Patient {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.patient == nil {
		return nil
	}
	copied := *w.patient
	return &copied
}

// Form returns a snapshot of the editable fields.
func (w *Workflow) Form() Form {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// SelectPatient loads a patient into the form. Chronic fields come straight
// from the patient object; encounter fields come from the most recent medical
// record, or stay blank when none exists. Fields of a previously selected
// patient never survive into the new selection.
func (w *Workflow) SelectPatient(ctx context.Context, patient clinicapi.Patient) error {
	w.mu.Lock()
	w.gen++
	generation := w.gen

	copied := patient
	w.patient = &copied
	w.attached = nil
	w.form = Form{
		Diseases:    patient.Diseases,
		Allergies:   patient.Allergies,
		Medications: patient.Medications,
	}
	w.state = StatePatientLoaded
	w.mu.Unlock()

	records, err := w.records.ListMedicalRecords(ctx, clinicapi.RecordFilter{PatientID: patient.ID})
	if err != nil {
		// Selection stands; the encounter fields just stay blank.
		log.Error().
			Err(err).
			Int("patient_id", patient.ID).
			Msg("Failed to fetch medical records for patient")
		metrics.RecordWorkflowOp("select_patient", "records_fetch_failed")
		return nil
	}

	latest := latestRecord(records)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.gen != generation {
		// A newer selection happened while this load was in flight.
		log.Debug().
			Int("patient_id", patient.ID).
			Msg("Discarding stale record load")
		metrics.RecordWorkflowOp("select_patient", "stale_discarded")
		return nil
	}

	if latest != nil {
		w.form.Diagnosis = latest.Diagnosis
		w.form.Prescription = latest.PrescribedDrugs
		w.form.Notes = latest.TreatmentNotes
		w.form.DentalIssues = latest.DentalIssues
		w.form.TreatmentPlan = latest.TreatmentPlan
	}

	log.Info().
		Int("patient_id", patient.ID).
		Bool("has_history", latest != nil).
		Msg("Patient selected")
	metrics.RecordWorkflowOp("select_patient", "success")
	return nil
}

// latestRecord picks the most recent record by record date. The backend's
// response ordering is not trusted.
func latestRecord(records []clinicapi.MedicalRecord) *clinicapi.MedicalRecord {
	if len(records) == 0 {
		return nil
	}
	sorted := make([]clinicapi.MedicalRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordDate.After(sorted[j].RecordDate)
	})
	return &sorted[0]
}

// Reset returns the workflow to NoPatientSelected and blanks everything.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	w.patient = nil
	w.attached = nil
	w.form = Form{}
	w.state = StateNoPatientSelected
}

// Attach stages a file for OCR/ACR.
func (w *Workflow) Attach(file docproc.File) {
	w.mu.Lock()
	defer w.mu.Unlock()
	copied := file
	w.attached = &copied
}

// ClearAttachment drops the staged file.
func (w *Workflow) ClearAttachment() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attached = nil
}

// SetField updates one editable form field by its wire name.
func (w *Workflow) SetField(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch name {
	case "diseases":
		w.form.Diseases = value
	case "allergies":
		w.form.Allergies = value
	case "medications":
		w.form.Medications = value
	case "diagnosis":
		w.form.Diagnosis = value
	case "prescription":
		w.form.Prescription = value
	case "notes":
		w.form.Notes = value
	case "dental_issues":
		w.form.DentalIssues = value
	case "treatment_plan":
		w.form.TreatmentPlan = value
	case "nlp_input":
		w.form.NLPInput = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return nil
}

// beginCall takes the single in-flight slot; trigger operations are disabled
// while an extraction or save is running.
func (w *Workflow) beginCall() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrProcessing
	}
	w.busy = true
	return nil
}

func (w *Workflow) endCall() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}

// attachedFile returns the staged file, ErrNoFileAttached when none.
func (w *Workflow) attachedFile() (docproc.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.attached == nil {
		return docproc.File{}, ErrNoFileAttached
	}
	return *w.attached, nil
}

// RunOCR uploads the attached file and overwrites the NLP input with the
// recognized text (full replace, not append).
func (w *Workflow) RunOCR(ctx context.Context) error {
	file, err := w.attachedFile()
	if err != nil {
		w.notifier.Error("Please choose a file first.")
		return err
	}

	if err := w.beginCall(); err != nil {
		return err
	}
	defer w.endCall()

	result, err := w.extractor.OCR(ctx, file)
	if err != nil {
		w.notifier.Error("OCR failed: " + err.Error())
		metrics.RecordWorkflowOp("ocr", "error")
		return err
	}

	w.mu.Lock()
	w.form.NLPInput = result.Text
	w.mu.Unlock()

	w.notifier.Success("Text extracted from document.")
	metrics.RecordWorkflowOp("ocr", "success")
	return nil
}

// RunACR uploads the attached file and appends the extracted medications to
// the prescription field, one "<name>: <dosage>" line per drug.
func (w *Workflow) RunACR(ctx context.Context) error {
	file, err := w.attachedFile()
	if err != nil {
		w.notifier.Error("Please choose a file first.")
		return err
	}

	if err := w.beginCall(); err != nil {
		return err
	}
	defer w.endCall()

	result, err := w.extractor.ACR(ctx, file)
	if err != nil {
		w.notifier.Error("Medication extraction failed: " + err.Error())
		metrics.RecordWorkflowOp("acr", "error")
		return err
	}

	if len(result.Found) == 0 {
		w.notifier.Info("No medications found in the document.")
		metrics.RecordWorkflowOp("acr", "empty")
		return nil
	}

	w.mu.Lock()
	w.form.Prescription = appendField(w.form.Prescription, formatMedications(result.Found))
	w.mu.Unlock()

	w.notifier.Success(fmt.Sprintf("Added %d medication(s) to the prescription.", len(result.Found)))
	metrics.RecordWorkflowOp("acr", "success")
	return nil
}

// RunNLP submits the NLP input text and merges any extracted fields into the
// form by the append-if-present law.
func (w *Workflow) RunNLP(ctx context.Context) error {
	w.mu.Lock()
	text := strings.TrimSpace(w.form.NLPInput)
	w.mu.Unlock()

	if text == "" {
		w.notifier.Error("Please enter text first.")
		return ErrEmptyText
	}

	if err := w.beginCall(); err != nil {
		return err
	}
	defer w.endCall()

	result, err := w.extractor.NLP(ctx, text)
	if err != nil {
		w.notifier.Error("NLP processing failed: " + err.Error())
		metrics.RecordWorkflowOp("nlp", "error")
		return err
	}

	w.mu.Lock()
	applied := applyExtraction(&w.form, result.Extracted)
	w.mu.Unlock()

	if !applied {
		w.notifier.Info("No clinical entities found in the text.")
		metrics.RecordWorkflowOp("nlp", "empty")
		return nil
	}

	w.notifier.Success("Extracted fields merged into the record.")
	metrics.RecordWorkflowOp("nlp", "success")
	return nil
}

// Save persists the form in two sequential writes: the patient's chronic
// fields first, then a new medical record. The writes are not atomic; a
// failure after the first leaves a partially persisted state, and the error
// names the step that failed.
func (w *Workflow) Save(ctx context.Context) error {
	w.mu.Lock()
	if w.patient == nil {
		w.mu.Unlock()
		w.notifier.Error("Please select a patient first.")
		return ErrNoPatientSelected
	}
	if w.busy {
		w.mu.Unlock()
		return ErrProcessing
	}
	w.busy = true
	w.state = StateSaving
	generation := w.gen
	patientID := w.patient.ID
	form := w.form
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.busy = false
		// A reset or new selection during the writes owns the state now.
		if w.gen == generation {
			w.state = StatePatientLoaded
		}
		w.mu.Unlock()
	}()

	chronic := clinicapi.ChronicUpdate{
		Diseases:    form.Diseases,
		Allergies:   form.Allergies,
		Medications: form.Medications,
	}
	if err := w.patients.UpdatePatientChronic(ctx, patientID, chronic); err != nil {
		w.notifier.Error("Failed to save the record: " + err.Error())
		metrics.RecordSave("patient_update_failed")
		return fmt.Errorf("update patient chronic fields: %w", err)
	}

	record := clinicapi.MedicalRecord{
		Patient:         patientID,
		Diagnosis:       form.Diagnosis,
		PrescribedDrugs: form.Prescription,
		TreatmentNotes:  form.Notes,
		DentalIssues:    form.DentalIssues,
		TreatmentPlan:   form.TreatmentPlan,
	}
	if _, err := w.records.CreateMedicalRecord(ctx, record); err != nil {
		// The chronic update above already landed; there is no rollback.
		w.notifier.Error("Failed to save the record: " + err.Error())
		metrics.RecordSave("record_create_failed")
		return fmt.Errorf("create medical record: %w", err)
	}

	w.mu.Lock()
	// The write-back targets the patient this save snapshotted; skip it when
	// a reset or new selection happened while the writes were in flight.
	if w.gen == generation && w.patient != nil {
		w.patient.Diseases = form.Diseases
		w.patient.Allergies = form.Allergies
		w.patient.Medications = form.Medications
	}
	w.mu.Unlock()

	log.Info().
		Int("patient_id", patientID).
		Msg("EMR saved")
	w.notifier.Success("Record saved successfully.")
	metrics.RecordSave("success")
	return nil
}
