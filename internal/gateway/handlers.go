package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"osraclinic.com/workbench/internal/clinicapi"
	"osraclinic.com/workbench/internal/docproc"
	"osraclinic.com/workbench/internal/emr"
	"osraclinic.com/workbench/internal/ontology"
	"osraclinic.com/workbench/internal/session"
)

// maxUploadBytes caps attached documents at 16 MiB.
const maxUploadBytes = 16 << 20

// Gateway binds the session store, EMR workflow, and upstream clients to an
// HTTP surface.
type Gateway struct {
	clinic   *clinicapi.Client
	diseases *ontology.Client
	sessions *session.Store
	workflow *emr.Workflow
	notices  *noticeCollector

	// opMu pairs each workflow operation with its notice drain, so concurrent
	// requests cannot pick up one another's alerts.
	opMu sync.Mutex

	tokenSecret []byte
	tokenTTL    time.Duration
}

// New wires a gateway. The returned notifier must be installed on the
// workflow so operation alerts reach HTTP responses.
func New(clinic *clinicapi.Client, diseases *ontology.Client, sessions *session.Store, patients emr.PatientService, records emr.RecordService, extractor emr.Extractor, tokenSecret string, tokenTTL time.Duration) *Gateway {
	notices := &noticeCollector{}
	return &Gateway{
		clinic:      clinic,
		diseases:    diseases,
		sessions:    sessions,
		workflow:    emr.NewWorkflow(patients, records, extractor, notices),
		notices:     notices,
		tokenSecret: []byte(tokenSecret),
		tokenTTL:    tokenTTL,
	}
}

// Workflow exposes the underlying workflow, mainly for tests.
func (g *Gateway) Workflow() *emr.Workflow {
	return g.workflow
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForWorkflowError maps workflow failures onto HTTP statuses:
// validation failures were caught before any network call, busy means the
// single in-flight slot is taken, everything else came from upstream.
func statusForWorkflowError(err error) int {
	switch {
	case errors.Is(err, emr.ErrNoPatientSelected),
		errors.Is(err, emr.ErrNoFileAttached),
		errors.Is(err, emr.ErrEmptyText),
		errors.Is(err, emr.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, emr.ErrProcessing):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// workflowResponse is every workflow route's response shape.
type workflowResponse struct {
	State   emr.State `json:"state"`
	Form    emr.Form  `json:"form"`
	Notices []Notice  `json:"notices,omitempty"`
	Error   string    `json:"error,omitempty"`
}

func (g *Gateway) respondWorkflow(w http.ResponseWriter, op func() error) {
	g.opMu.Lock()
	opErr := op()
	resp := workflowResponse{
		State:   g.workflow.State(),
		Form:    g.workflow.Form(),
		Notices: g.notices.drain(),
	}
	g.opMu.Unlock()

	status := http.StatusOK
	if opErr != nil {
		status = statusForWorkflowError(opErr)
		resp.Error = opErr.Error()
	}
	writeJSON(w, status, resp)
}

func noOp() error { return nil }

// loginRequest is the login payload.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler authenticates against the clinic backend, stores the session,
// and returns a signed session token.
func (g *Gateway) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := g.clinic.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn().Err(err).Msg("Login failed")
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	g.sessions.Set(r.Context(), session.Session{
		Role:   session.Role(result.Role),
		UserID: result.ID,
	})

	token, err := g.issueToken(session.Role(result.Role), result.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sign session token")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"role":  result.Role,
		"id":    result.ID,
	})
}

// SignupPatientHandler registers a new patient account.
func (g *Gateway) SignupPatientHandler(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	created, err := g.clinic.SignupPatient(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// SignupDentistHandler registers a new dentist account.
func (g *Gateway) SignupDentistHandler(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	created, err := g.clinic.SignupDentist(r.Context(), payload)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// LogoutHandler clears the stored session.
func (g *Gateway) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	g.sessions.Clear(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// SessionHandler returns the current session, 404 when nobody is logged in.
func (g *Gateway) SessionHandler(w http.ResponseWriter, r *http.Request) {
	current := g.sessions.Get(r.Context())
	if current == nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// ListPatientsHandler proxies the patient list for the selection UI.
func (g *Gateway) ListPatientsHandler(w http.ResponseWriter, r *http.Request) {
	patients, err := g.clinic.ListPatients(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// selectPatientRequest names the patient to load.
type selectPatientRequest struct {
	PatientID int `json:"patient_id"`
}

// SelectPatientHandler loads a patient into the workflow.
func (g *Gateway) SelectPatientHandler(w http.ResponseWriter, r *http.Request) {
	var req selectPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.PatientID == 0 {
		writeError(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	patient, err := g.clinic.GetPatient(r.Context(), req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	g.respondWorkflow(w, func() error {
		return g.workflow.SelectPatient(r.Context(), *patient)
	})
}

// ResetHandler returns the workflow to its initial state ("change patient").
func (g *Gateway) ResetHandler(w http.ResponseWriter, r *http.Request) {
	g.respondWorkflow(w, func() error {
		g.workflow.Reset()
		return nil
	})
}

// FormHandler returns the current form state.
func (g *Gateway) FormHandler(w http.ResponseWriter, r *http.Request) {
	g.respondWorkflow(w, noOp)
}

// UpdateFormHandler applies field edits from a {"field": "value"} map.
func (g *Gateway) UpdateFormHandler(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	g.respondWorkflow(w, func() error {
		for name, value := range fields {
			if err := g.workflow.SetField(name, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// AttachHandler stages an uploaded file for OCR/ACR.
func (g *Gateway) AttachHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	g.workflow.Attach(docproc.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})

	log.Info().
		Str("file", header.Filename).
		Int("bytes", len(data)).
		Msg("File attached for extraction")
	g.respondWorkflow(w, noOp)
}

// OCRHandler runs OCR over the attached file.
func (g *Gateway) OCRHandler(w http.ResponseWriter, r *http.Request) {
	g.respondWorkflow(w, func() error {
		return g.workflow.RunOCR(r.Context())
	})
}

// ACRHandler runs medication extraction over the attached file.
func (g *Gateway) ACRHandler(w http.ResponseWriter, r *http.Request) {
	g.respondWorkflow(w, func() error {
		return g.workflow.RunACR(r.Context())
	})
}

// nlpRequest optionally overrides the NLP input buffer.
type nlpRequest struct {
	Text string `json:"text"`
}

// NLPHandler runs entity extraction over the NLP input text.
func (g *Gateway) NLPHandler(w http.ResponseWriter, r *http.Request) {
	var req nlpRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
	}

	g.respondWorkflow(w, func() error {
		if req.Text != "" {
			if err := g.workflow.SetField("nlp_input", req.Text); err != nil {
				return err
			}
		}
		return g.workflow.RunNLP(r.Context())
	})
}

// SaveHandler persists the form: patient chronic update, then new record.
func (g *Gateway) SaveHandler(w http.ResponseWriter, r *http.Request) {
	g.respondWorkflow(w, func() error {
		return g.workflow.Save(r.Context())
	})
}

// DiseaseSearchHandler proxies the disease-ontology search.
func (g *Gateway) DiseaseSearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results, err := g.diseases.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if results == nil {
		results = []ontology.Disease{}
	}
	writeJSON(w, http.StatusOK, results)
}

// RecordsHandler lists a patient's medical records.
func (g *Gateway) RecordsHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	patientID, err := strconv.Atoi(vars["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	records, err := g.clinic.ListMedicalRecords(r.Context(), clinicapi.RecordFilter{PatientID: patientID})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// ListDentistsHandler proxies the dentist list.
func (g *Gateway) ListDentistsHandler(w http.ResponseWriter, r *http.Request) {
	dentists, err := g.clinic.ListDentists(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dentists)
}

// ListAppointmentsHandler proxies the appointment list, filtered by the
// optional patient and dentist query parameters.
func (g *Gateway) ListAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	var filter clinicapi.AppointmentFilter
	if v := r.URL.Query().Get("patient"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid patient id")
			return
		}
		filter.PatientID = id
	}
	if v := r.URL.Query().Get("dentist"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid dentist id")
			return
		}
		filter.DentistID = id
	}

	appointments, err := g.clinic.ListAppointments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, appointments)
}

// ListTreatmentsHandler proxies the treatment catalog.
func (g *Gateway) ListTreatmentsHandler(w http.ResponseWriter, r *http.Request) {
	treatments, err := g.clinic.ListTreatments(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, treatments)
}

// ListDrugsHandler proxies the drug catalog.
func (g *Gateway) ListDrugsHandler(w http.ResponseWriter, r *http.Request) {
	drugs, err := g.clinic.ListDrugs(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, drugs)
}

// ListInvoicesHandler proxies the invoice list.
func (g *Gateway) ListInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	invoices, err := g.clinic.ListInvoices(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

// HealthHandler reports liveness.
func (g *Gateway) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}
