package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

// mockService implements ServiceInterface for testing
type mockService struct {
	listPatientsFunc  func(ctx context.Context) ([]PatientResponse, error)
	getPatientFunc    func(ctx context.Context, id string) (*PatientResponse, error)
	createPatientFunc func(ctx context.Context, req PatientRequest) (*PatientResponse, error)
	updatePatientFunc func(ctx context.Context, id string, req PatientRequest) (*PatientResponse, error)
	deletePatientFunc func(ctx context.Context, id string) error
}

func (m *mockService) ListPatients(ctx context.Context) ([]PatientResponse, error) {
	if m.listPatientsFunc != nil {
		return m.listPatientsFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) GetPatient(ctx context.Context, id string) (*PatientResponse, error) {
	if m.getPatientFunc != nil {
		return m.getPatientFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) CreatePatient(ctx context.Context, req PatientRequest) (*PatientResponse, error) {
	if m.createPatientFunc != nil {
		return m.createPatientFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) UpdatePatient(ctx context.Context, id string, req PatientRequest) (*PatientResponse, error) {
	if m.updatePatientFunc != nil {
		return m.updatePatientFunc(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockService) DeletePatient(ctx context.Context, id string) error {
	if m.deletePatientFunc != nil {
		return m.deletePatientFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestHandlerCreatePatient_Success(t *testing.T) {
	handler := NewHandler(&mockService{
		createPatientFunc: func(ctx context.Context, req PatientRequest) (*PatientResponse, error) {
			return &PatientResponse{ID: "p-1", Name: req.Name, Email: req.Email}, nil
		},
	}, nil)

	body, _ := json.Marshal(aliceRequest())
	req := httptest.NewRequest(http.MethodPost, "/patients", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	handler.CreatePatient(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rr.Code)
	}
	resp := decodeBody(t, rr)
	if resp["id"] != "p-1" || resp["name"] != "Alice" {
		t.Errorf("Unexpected response: %v", resp)
	}
}

func TestHandlerCreatePatient_InvalidJSON(t *testing.T) {
	handler := NewHandler(&mockService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/patients", bytes.NewBufferString("{invalid"))
	rr := httptest.NewRecorder()

	handler.CreatePatient(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rr.Code)
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	testCases := []struct {
		name         string
		err          error
		expectedCode int
		expectedBody map[string]string
	}{
		{
			name: "validation",
			err: &ValidationError{Fields: []FieldError{
				{Field: "email", Message: "Email should be Valid"},
				{Field: "name", Message: "Name is Required"},
			}},
			expectedCode: http.StatusBadRequest,
			expectedBody: map[string]string{"email": "Email should be Valid", "name": "Name is Required"},
		},
		{
			name:         "email conflict",
			err:          newConflict("alice@x.com"),
			expectedCode: http.StatusBadRequest,
			expectedBody: map[string]string{"EmailAlreadyExists": "A patient is already registered with this Email alice@x.com"},
		},
		{
			name:         "not found",
			err:          newNotFound("p-404"),
			expectedCode: http.StatusBadRequest,
			expectedBody: map[string]string{"message": "Patient Not Found"},
		},
		{
			name:         "billing dependency",
			err:          &DependencyError{Dependency: "billing", Err: errors.New("unavailable")},
			expectedCode: http.StatusBadGateway,
			expectedBody: map[string]string{"message": "billing unavailable"},
		},
		{
			name:         "unexpected",
			err:          errors.New("disk on fire"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: map[string]string{"message": "internal server error"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler(&mockService{
				getPatientFunc: func(ctx context.Context, id string) (*PatientResponse, error) {
					return nil, tc.err
				},
			}, nil)

			req := httptest.NewRequest(http.MethodGet, "/patients/p-1", nil)
			req = mux.SetURLVars(req, map[string]string{"id": "p-1"})
			rr := httptest.NewRecorder()

			handler.GetPatient(rr, req)

			if rr.Code != tc.expectedCode {
				t.Errorf("Expected status %d, got %d", tc.expectedCode, rr.Code)
			}
			body := decodeBody(t, rr)
			if len(body) != len(tc.expectedBody) {
				t.Fatalf("Expected body %v, got %v", tc.expectedBody, body)
			}
			for k, v := range tc.expectedBody {
				if body[k] != v {
					t.Errorf("Expected %s=%q, got %q", k, v, body[k])
				}
			}
		})
	}
}

func TestHandlerUpdatePatient_PassesPathID(t *testing.T) {
	var gotID string
	handler := NewHandler(&mockService{
		updatePatientFunc: func(ctx context.Context, id string, req PatientRequest) (*PatientResponse, error) {
			gotID = id
			return &PatientResponse{ID: id, Name: req.Name}, nil
		},
	}, nil)

	body, _ := json.Marshal(aliceRequest())
	req := httptest.NewRequest(http.MethodPut, "/patients/abc", bytes.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	rr := httptest.NewRecorder()

	handler.UpdatePatient(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if gotID != "abc" {
		t.Errorf("Expected id 'abc', got '%s'", gotID)
	}
}

func TestHandlerDeletePatient(t *testing.T) {
	handler := NewHandler(&mockService{
		deletePatientFunc: func(ctx context.Context, id string) error {
			return nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/patients/abc", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})
	rr := httptest.NewRecorder()

	handler.DeletePatient(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
}

func TestHandlerListPatients_Empty(t *testing.T) {
	handler := NewHandler(&mockService{
		listPatientsFunc: func(ctx context.Context) ([]PatientResponse, error) {
			return []PatientResponse{}, nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rr := httptest.NewRecorder()

	handler.ListPatients(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "[]" {
		t.Errorf("Expected empty JSON array, got %s", got)
	}
}
