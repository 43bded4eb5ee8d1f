package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/portfolioweb/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}

func TestWriteAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    *model.APIError
		status int
	}{
		{"profile not found", model.NewProfileNotFoundError("madjid"), http.StatusNotFound},
		{"validation", model.NewValidationError("name is required"), http.StatusBadRequest},
		{"invalid body", model.NewInvalidRequestBodyError(), http.StatusBadRequest},
		{"federated account", model.NewFederatedAccountError(), http.StatusBadRequest},
		{"username taken", model.NewUsernameTakenError("madjid"), http.StatusConflict},
		{"email taken", model.NewEmailTakenError(), http.StatusConflict},
		{"invalid credentials", model.NewInvalidCredentialsError(), http.StatusUnauthorized},
		{"unauthorized", model.NewUnauthorizedError(), http.StatusUnauthorized},
		{"cv generation", model.NewCVGenerationFailedError(), http.StatusInternalServerError},
		{"unknown code", &model.APIError{Code: "SOMETHING_ELSE"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteAPIError(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			want := ErrorResponseBody{
				Code:     tt.err.Code,
				Message:  tt.err.Message,
				Category: tt.err.Category,
				Action:   tt.err.Action,
			}
			if diff := cmp.Diff(want, decodeErrorBody(t, w)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteErrorResponse_ExplicitStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     "RATE_LIMITED",
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if body := decodeErrorBody(t, w); body.Code != "RATE_LIMITED" {
		t.Errorf("code = %q, want RATE_LIMITED", body.Code)
	}
}

// 内部エラーの詳細はレスポンスに含めない
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	body := decodeErrorBody(t, w)
	if body.Code != "INTERNAL_ERROR" || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
	if body.Message == "" || body.Action == "" {
		t.Error("message and action must be set")
	}
}

func TestStatusForCode_Unknown(t *testing.T) {
	if got := StatusForCode(""); got != http.StatusInternalServerError {
		t.Errorf("StatusForCode(\"\") = %d, want 500", got)
	}
}
