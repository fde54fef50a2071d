package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/policyforge/policyforge/internal/generation"
	"github.com/policyforge/policyforge/internal/policy"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	gen, err := NewGenerator(ScriptedClient{})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	srv, err := NewServer("127.0.0.1:0", gen)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoute(t *testing.T) {
	router := testServer(t).Router()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSubmitIntentRoute(t *testing.T) {
	router := testServer(t).Router()
	rec := postJSON(t, router, generation.PathSubmitIntent, fullIntentRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var enriched generation.EnrichedIntent
	if err := json.Unmarshal(rec.Body.Bytes(), &enriched); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(enriched.Intent, "Platform Type: social media") {
		t.Errorf("intent = %q", enriched.Intent)
	}
}

func TestSubmitIntentRejectsIncompleteForm(t *testing.T) {
	router := testServer(t).Router()
	req := fullIntentRequest()
	req.UserBehavior = ""
	rec := postJSON(t, router, generation.PathSubmitIntent, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var envelope struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if !strings.Contains(envelope.Detail, "user_behavior") {
		t.Errorf("detail = %q", envelope.Detail)
	}
}

func TestInitialPolicyRoute(t *testing.T) {
	router := testServer(t).Router()
	rec := postJSON(t, router, generation.PathInitialPolicy, map[string]string{"intent": "Platform Type: forum"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Machine json.RawMessage `json:"machine"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	doc, err := policy.Decode(policy.VariantMachine, envelope.Machine)
	if err != nil {
		t.Fatalf("decode machine: %v", err)
	}
	if doc.Name() != "Scripted Harassment Policy" {
		t.Errorf("name = %q", doc.Name())
	}
}

func TestGenerateExamplesRoute(t *testing.T) {
	router := testServer(t).Router()
	rec := postJSON(t, router, generation.PathGenerateExamples, map[string]json.RawMessage{
		"policy": json.RawMessage(scriptedMachinePolicy),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Examples []policy.GeneratedExample `json:"examples"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Examples) != 8 {
		t.Fatalf("examples = %d, want 8", len(envelope.Examples))
	}
}

func TestRefineRoute(t *testing.T) {
	router := testServer(t).Router()
	rec := postJSON(t, router, generation.PathRefinePolicy, map[string]any{
		"machine": json.RawMessage(scriptedMachinePolicy),
		"reviewed_examples": []policy.ExampleRecord{
			{Text: "example", Label: policy.LabelBorderline},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDerivedRouteReturnsAllThreeDocuments(t *testing.T) {
	router := testServer(t).Router()
	rec := postJSON(t, router, generation.PathDerivedPolicies, map[string]json.RawMessage{
		"machine": json.RawMessage(scriptedMachinePolicy),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Public    json.RawMessage `json:"public"`
		Moderator json.RawMessage `json:"moderator"`
		Machine   json.RawMessage `json:"machine"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, err := policy.Decode(policy.VariantPublic, envelope.Public); err != nil {
		t.Errorf("public: %v", err)
	}
	moderator, err := policy.Decode(policy.VariantModerator, envelope.Moderator)
	if err != nil {
		t.Fatalf("moderator: %v", err)
	}
	if moderator.Severity() != "high" {
		t.Errorf("severity = %q", moderator.Severity())
	}
	if len(envelope.Machine) == 0 {
		t.Errorf("machine policy should be echoed back")
	}
}

func TestMalformedBodyReturnsBadRequest(t *testing.T) {
	router := testServer(t).Router()
	req := httptest.NewRequest(http.MethodPost, generation.PathInitialPolicy, strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv := testServer(t)
	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := srv.Addr()
	if addr == "" {
		t.Fatalf("Addr is empty after Start")
	}
	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
