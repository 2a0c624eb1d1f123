package docproc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOCRUploadsMultipartFile(t *testing.T) {
	var gotPath string
	var gotFileName string
	var gotFileData string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Expected file part: %v", err)
		}
		defer file.Close()
		gotFileName = header.Filename
		buf := new(strings.Builder)
		if _, err := io.Copy(buf, file); err != nil {
			t.Errorf("Failed to read file part: %v", err)
		}
		gotFileData = buf.String()

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "Patient complains of toothache"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.OCR(context.Background(), File{
		Name:        "referral.pdf",
		ContentType: "application/pdf",
		Data:        []byte("pdf bytes"),
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotPath != "/api/process/ocr/" {
		t.Errorf("Expected path /api/process/ocr/, got %s", gotPath)
	}
	if gotFileName != "referral.pdf" {
		t.Errorf("Expected filename referral.pdf, got %s", gotFileName)
	}
	if gotFileData != "pdf bytes" {
		t.Errorf("Expected file contents forwarded, got %q", gotFileData)
	}
	if result.Text != "Patient complains of toothache" {
		t.Errorf("Unexpected OCR text: %q", result.Text)
	}
}

func TestACRDecodesMedicationList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/process/acr/" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"found": [{"medication": "Amoxicillin", "dosage": "500mg"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.ACR(context.Background(), File{Name: "rx.jpg", Data: []byte("jpg")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(result.Found) != 1 || result.Found[0].Medication != "Amoxicillin" || result.Found[0].Dosage != "500mg" {
		t.Errorf("Unexpected medications: %+v", result.Found)
	}
}

func TestNLPSendsTextAsJSON(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/process/nlp/" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %s", ct)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"extracted": {"diagnosis": "Pulpitis", "history": "Diabetic"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	result, err := client.NLP(context.Background(), "tooth pain, patient is diabetic")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if gotBody["text"] != "tooth pain, patient is diabetic" {
		t.Errorf("Expected text forwarded, got %q", gotBody["text"])
	}
	if result.Extracted.Diagnosis != "Pulpitis" || result.Extracted.History != "Diabetic" {
		t.Errorf("Unexpected extraction: %+v", result.Extracted)
	}
	if result.Extracted.Empty() {
		t.Errorf("Expected non-empty extraction")
	}
}

func TestErrorMessageSurfacedVerbatim(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{
			name:     "message key",
			body:     `{"message": "Unsupported file format"}`,
			expected: "Unsupported file format",
		},
		{
			name:     "detail key",
			body:     `{"detail": "OCR engine unavailable"}`,
			expected: "OCR engine unavailable",
		},
		{
			name:     "opaque body falls back to status",
			body:     `oops`,
			expected: "processing service returned status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL, 5*time.Second)
			_, err := client.NLP(context.Background(), "some text")
			if err == nil {
				t.Fatalf("Expected error")
			}
			if err.Error() != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, err.Error())
			}
		})
	}
}
