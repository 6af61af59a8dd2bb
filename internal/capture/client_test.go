package capture

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCaptureByOAB_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/consultas/oab" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["oab"] != "123456SP" || req["tribunalSigla"] != "TJSP" || req["tenantId"] != "tenant-1" {
			t.Errorf("unexpected request body: %v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"processos": [
				{"numeroProcesso": "1000001-11.2024.8.26.0100", "vara": "1ª Vara Cível"},
				{"numeroProcesso": "1000002-22.2024.8.26.0100"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{})

	result, err := client.CaptureByOAB(context.Background(), "123456SP", "TJSP", "tenant-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	success, ok := result.(CaptureSuccess)
	if !ok {
		t.Fatalf("expected CaptureSuccess, got %T", result)
	}
	if len(success.Processos) != 2 {
		t.Fatalf("expected 2 processos, got %d", len(success.Processos))
	}
	if success.Processos[0].Vara != "1ª Vara Cível" {
		t.Errorf("unexpected vara: %s", success.Processos[0].Vara)
	}
}

func TestCaptureByOAB_SingleProcessoField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "processo": {"numeroProcesso": "1000001-11.2024.8.26.0100"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{})

	result, err := client.CaptureByOAB(context.Background(), "123456SP", "TJSP", "tenant-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	success, ok := result.(CaptureSuccess)
	if !ok {
		t.Fatalf("expected CaptureSuccess, got %T", result)
	}
	if len(success.Processos) != 1 {
		t.Fatalf("expected singular processo promoted to list, got %d", len(success.Processos))
	}
}

func TestCaptureByOAB_CaptchaRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": false,
			"captchaRequired": true,
			"captcha": {"id": "captcha-9", "imageDataUrl": "data:image/png;base64,abc"},
			"error": "Captcha obrigatório"
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{})

	result, err := client.CaptureByOAB(context.Background(), "123456SP", "TJSP", "tenant-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	captcha, ok := result.(CaptureCaptcha)
	if !ok {
		t.Fatalf("expected CaptureCaptcha, got %T", result)
	}
	if captcha.Challenge.ID != "captcha-9" {
		t.Errorf("unexpected challenge id: %s", captcha.Challenge.ID)
	}
	if captcha.Reason != "Captcha obrigatório" {
		t.Errorf("unexpected reason: %s", captcha.Reason)
	}
}

func TestCaptureByOAB_CaptchaFlagWithoutChallengeIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "captchaRequired": true, "error": "Sessão expirada"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{})

	result, err := client.CaptureByOAB(context.Background(), "123456SP", "TJSP", "tenant-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	failure, ok := result.(CaptureFailure)
	if !ok {
		t.Fatalf("expected CaptureFailure, got %T", result)
	}
	if failure.Message != "Sessão expirada" {
		t.Errorf("unexpected message: %s", failure.Message)
	}
}

func TestCaptureByOAB_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error": "Portal indisponível"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{})

	result, err := client.CaptureByOAB(context.Background(), "123456SP", "TJSP", "tenant-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	failure, ok := result.(CaptureFailure)
	if !ok {
		t.Fatalf("expected CaptureFailure, got %T", result)
	}
	if failure.Message != "Portal indisponível" {
		t.Errorf("unexpected message: %s", failure.Message)
	}
}

func TestCaptureByOAB_Non200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{})

	_, err := client.CaptureByOAB(context.Background(), "123456SP", "TJSP", "tenant-1")
	if err == nil {
		t.Fatal("expected error for non-200 response, got nil")
	}
}

func TestResolveCaptcha_RequestBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/captchas/resolver" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var req map[string]string
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req["captchaId"] != "captcha-9" || req["captchaText"] != "XK4P" {
			t.Errorf("unexpected request body: %v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "processos": [{"numeroProcesso": "1000001-11.2024.8.26.0100"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, Credentials{})

	result, err := client.ResolveCaptcha(context.Background(), "captcha-9", "XK4P")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := result.(CaptureSuccess); !ok {
		t.Fatalf("expected CaptureSuccess, got %T", result)
	}
}
