package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"osraclinic.com/workbench/internal/clinicapi"
	"osraclinic.com/workbench/internal/docproc"
	"osraclinic.com/workbench/internal/ontology"
	"osraclinic.com/workbench/internal/session"
)

// fakeClinicBackend serves the clinic API endpoints the gateway proxies.
func fakeClinicBackend(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		var req clinicapi.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "Invalid credentials"}`))
			return
		}
		w.Write([]byte(`{"role": "dentist", "id": 12}`))
	})
	mux.HandleFunc("/patients/7/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7, "first_name": "Lina", "last_name": "Haddad", "diseases": "Asthma", "allergies": "Penicillin", "medications": "Salbutamol"}`))
	})
	mux.HandleFunc("/patients/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 7, "first_name": "Lina", "last_name": "Haddad"}]`))
	})
	mux.HandleFunc("/medicalrecords/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	return httptest.NewServer(mux)
}

// testExtractor returns canned extraction results.
type testExtractor struct {
	ocrText string
}

func (e *testExtractor) OCR(ctx context.Context, file docproc.File) (*docproc.OCRResult, error) {
	return &docproc.OCRResult{Text: e.ocrText}, nil
}

func (e *testExtractor) ACR(ctx context.Context, file docproc.File) (*docproc.ACRResult, error) {
	return &docproc.ACRResult{}, nil
}

func (e *testExtractor) NLP(ctx context.Context, text string) (*docproc.NLPResult, error) {
	return &docproc.NLPResult{}, nil
}

func newTestGateway(t *testing.T, backendURL string) *Gateway {
	clinic := clinicapi.NewClient(backendURL, 5*time.Second)
	diseases := ontology.NewClient(backendURL, 5*time.Second)
	sessions := session.NewStore(nil)
	return New(clinic, diseases, sessions, clinic, clinic, &testExtractor{ocrText: "scanned"}, "test-secret", time.Hour)
}

func TestAuthMiddlewarePaths(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	dentistToken, err := gw.issueToken(session.RoleDentist, 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	patientToken, err := gw.issueToken(session.RolePatient, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
	}{
		{
			name:           "Health endpoint skips auth",
			method:         "GET",
			path:           "/health",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Metrics endpoint skips auth",
			method:         "GET",
			path:           "/metrics",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Patients without token rejected",
			method:         "GET",
			path:           "/patients",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Patients with garbage token rejected",
			method:         "GET",
			path:           "/patients",
			token:          "not-a-token",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Patients with valid token allowed",
			method:         "GET",
			path:           "/patients",
			token:          dentistToken,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "EMR form requires dentist role",
			method:         "GET",
			path:           "/emr/form",
			token:          patientToken,
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "EMR form allowed for dentists",
			method:         "GET",
			path:           "/emr/form",
			token:          dentistToken,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d (body %s)", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestLoginIssuesToken(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	body := bytes.NewBufferString(`{"email": "doc@osra.clinic", "password": "secret"}`)
	req := httptest.NewRequest("POST", "/auth/login", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("Expected a token in the response")
	}
	if resp["role"] != "dentist" {
		t.Errorf("Expected dentist role, got %v", resp["role"])
	}

	claims, err := gw.validateToken(token)
	if err != nil {
		t.Fatalf("Issued token failed validation: %v", err)
	}
	if claims.Role != "dentist" || claims.UserID != 12 {
		t.Errorf("Unexpected claims: %+v", claims)
	}

	stored := gw.sessions.Get(context.Background())
	if stored == nil || stored.UserID != 12 {
		t.Errorf("Expected session stored, got %+v", stored)
	}
}

func TestLoginFailureSurfacesBackendMessage(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	body := bytes.NewBufferString(`{"email": "doc@osra.clinic", "password": "wrong"}`)
	req := httptest.NewRequest("POST", "/auth/login", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}

	var resp map[string]string
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp["error"] != "Invalid credentials" {
		t.Errorf("Expected backend message verbatim, got %q", resp["error"])
	}
}

func TestSelectPatientRoute(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	token, err := gw.issueToken(session.RoleDentist, 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	body := bytes.NewBufferString(`{"patient_id": 7}`)
	req := httptest.NewRequest("POST", "/emr/patient", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp workflowResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Form.Diseases != "Asthma" {
		t.Errorf("Expected chronic fields loaded, got %+v", resp.Form)
	}
	if resp.State != "patient_loaded" {
		t.Errorf("Expected patient_loaded state, got %q", resp.State)
	}
}

func TestOCRWithoutAttachmentReturnsValidationError(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	token, err := gw.issueToken(session.RoleDentist, 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	req := httptest.NewRequest("POST", "/emr/ocr", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}

	var resp workflowResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if len(resp.Notices) == 0 || resp.Notices[0].Message != "Please choose a file first." {
		t.Errorf("Expected the file-first notice, got %+v", resp.Notices)
	}
}

func TestAttachThenOCRFillsNLPInput(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	token, err := gw.issueToken(session.RoleDentist, 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Upload a file
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "scan.pdf")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	part.Write([]byte("pdf bytes"))
	writer.Close()

	req := httptest.NewRequest("POST", "/emr/attachment", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on attach, got %d (body %s)", rr.Code, rr.Body.String())
	}

	// Run OCR
	req = httptest.NewRequest("POST", "/emr/ocr", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on OCR, got %d (body %s)", rr.Code, rr.Body.String())
	}

	var resp workflowResponse
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Form.NLPInput != "scanned" {
		t.Errorf("Expected OCR text in the input buffer, got %q", resp.Form.NLPInput)
	}
}

func TestConcurrentRequestsKeepTheirOwnNotices(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	token, err := gw.issueToken(session.RoleDentist, 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Every request triggers the same validation notice; each response must
	// carry exactly its own, never a sibling's.
	const requests = 20
	results := make(chan workflowResponse, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest("POST", "/emr/ocr", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			var resp workflowResponse
			json.Unmarshal(rr.Body.Bytes(), &resp)
			results <- resp
		}()
	}
	wg.Wait()
	close(results)

	for resp := range results {
		if len(resp.Notices) != 1 {
			t.Errorf("Expected exactly one notice per response, got %d: %+v", len(resp.Notices), resp.Notices)
			continue
		}
		if resp.Notices[0].Message != "Please choose a file first." {
			t.Errorf("Unexpected notice: %+v", resp.Notices[0])
		}
	}
}

func TestUpdateFormUnknownFieldRejected(t *testing.T) {
	backend := fakeClinicBackend(t)
	defer backend.Close()
	gw := newTestGateway(t, backend.URL)
	router := gw.Routes()

	token, err := gw.issueToken(session.RoleDentist, 12)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	body := bytes.NewBufferString(`{"favorite_color": "blue"}`)
	req := httptest.NewRequest("PATCH", "/emr/form", body)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown field, got %d", rr.Code)
	}
}
