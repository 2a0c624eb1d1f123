package gateway

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"osraclinic.com/workbench/internal/metrics"
)

// Routes builds the full HTTP router: metrics middleware wraps everything,
// auth middleware guards everything except the skip list.
func (g *Gateway) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", g.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(
		metrics.GetRegistry(),
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)).Methods(http.MethodGet)

	r.HandleFunc("/auth/login", g.LoginHandler).Methods(http.MethodPost)
	r.HandleFunc("/signup/patient", g.SignupPatientHandler).Methods(http.MethodPost)
	r.HandleFunc("/signup/dentist", g.SignupDentistHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", g.LogoutHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/session", g.SessionHandler).Methods(http.MethodGet)

	r.HandleFunc("/patients", g.ListPatientsHandler).Methods(http.MethodGet)
	r.HandleFunc("/patients/{id:[0-9]+}/records", g.RecordsHandler).Methods(http.MethodGet)
	r.HandleFunc("/dentists", g.ListDentistsHandler).Methods(http.MethodGet)
	r.HandleFunc("/appointments", g.ListAppointmentsHandler).Methods(http.MethodGet)
	r.HandleFunc("/treatments", g.ListTreatmentsHandler).Methods(http.MethodGet)
	r.HandleFunc("/drugs", g.ListDrugsHandler).Methods(http.MethodGet)
	r.HandleFunc("/invoices", g.ListInvoicesHandler).Methods(http.MethodGet)

	r.HandleFunc("/emr/patient", g.SelectPatientHandler).Methods(http.MethodPost)
	r.HandleFunc("/emr/reset", g.ResetHandler).Methods(http.MethodPost)
	r.HandleFunc("/emr/form", g.FormHandler).Methods(http.MethodGet)
	r.HandleFunc("/emr/form", g.UpdateFormHandler).Methods(http.MethodPatch)
	r.HandleFunc("/emr/attachment", g.AttachHandler).Methods(http.MethodPost)
	r.HandleFunc("/emr/ocr", g.OCRHandler).Methods(http.MethodPost)
	r.HandleFunc("/emr/acr", g.ACRHandler).Methods(http.MethodPost)
	r.HandleFunc("/emr/nlp", g.NLPHandler).Methods(http.MethodPost)
	r.HandleFunc("/emr/save", g.SaveHandler).Methods(http.MethodPost)

	r.HandleFunc("/diseases/search", g.DiseaseSearchHandler).Methods(http.MethodGet)

	r.Use(g.AuthMiddleware)

	return metrics.Middleware(r)
}
