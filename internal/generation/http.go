package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/policyforge/policyforge/internal/policy"
)

// Route paths exposed by the generation backend.
const (
	PathSubmitIntent     = "/api/intent/submit"
	PathInitialPolicy    = "/api/policy/generate/initial"
	PathGenerateExamples = "/api/examples/generate"
	PathRefinePolicy     = "/api/policy/refine"
	PathDerivedPolicies  = "/api/policy/generate/derived"
)

const (
	defaultTimeout  = 120 * time.Second
	defaultRetries  = 2
	defaultBackoff  = 500 * time.Millisecond
	maxResponseSize = 4 << 20
)

// HTTPClient implements Client against the backend's REST routes.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	retries int
	backoff time.Duration
	sleep   func(context.Context, time.Duration) error
}

// HTTPOption customizes the HTTP adapter.
type HTTPOption func(*HTTPClient)

// WithHTTPClient swaps the underlying http.Client (tests, custom transport).
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithTimeout caps each backend request, retries included per attempt.
// Exceeding it surfaces as a *Error like any other transport failure.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithRetries sets how many additional attempts are made after a
// transport-level failure. Non-2xx responses are never retried; the user
// retries those by re-invoking the stage action.
func WithRetries(retries int, backoff time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if retries >= 0 {
			c.retries = retries
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// NewHTTPClient builds the adapter for a backend base URL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("generation: backend base URL is required")
	}
	client := &HTTPClient{
		baseURL: trimmed,
		client:  &http.Client{},
		timeout: defaultTimeout,
		retries: defaultRetries,
		backoff: defaultBackoff,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// SubmitIntent implements Client.
func (c *HTTPClient) SubmitIntent(ctx context.Context, req IntentRequest) (EnrichedIntent, error) {
	var enriched EnrichedIntent
	if err := c.post(ctx, "submit intent", PathSubmitIntent, req, &enriched); err != nil {
		return EnrichedIntent{}, err
	}
	if strings.TrimSpace(enriched.Intent) == "" {
		return EnrichedIntent{}, failf("submit intent", nil, "backend returned an empty intent payload")
	}
	return enriched, nil
}

type generateRequest struct {
	Intent string `json:"intent"`
}

type machinePolicyEnvelope struct {
	Machine json.RawMessage `json:"machine"`
}

// GenerateInitialPolicy implements Client.
func (c *HTTPClient) GenerateInitialPolicy(ctx context.Context, intent EnrichedIntent) (policy.Document, error) {
	const op = "generate initial policy"
	var envelope machinePolicyEnvelope
	if err := c.post(ctx, op, PathInitialPolicy, generateRequest{Intent: intent.Intent}, &envelope); err != nil {
		return policy.Document{}, err
	}
	return decodeMachine(op, envelope)
}

type exampleRequest struct {
	Policy policy.Document `json:"policy"`
}

type exampleEnvelope struct {
	Examples []policy.GeneratedExample `json:"examples"`
}

// GenerateExamples implements Client. The returned set replaces any prior
// set wholesale; merging is the orchestrator's explicit non-behavior.
func (c *HTTPClient) GenerateExamples(ctx context.Context, machine policy.Document) (policy.ExampleSet, error) {
	const op = "generate examples"
	var envelope exampleEnvelope
	if err := c.post(ctx, op, PathGenerateExamples, exampleRequest{Policy: machine}, &envelope); err != nil {
		return policy.ExampleSet{}, err
	}
	if len(envelope.Examples) == 0 {
		return policy.ExampleSet{}, failf(op, nil, "backend returned no examples")
	}
	return policy.FromGenerated(envelope.Examples), nil
}

type refineRequest struct {
	Machine          policy.Document        `json:"machine"`
	ReviewedExamples []policy.ExampleRecord `json:"reviewed_examples"`
}

// RefinePolicy implements Client. The response is a full replacement
// document, not a diff.
func (c *HTTPClient) RefinePolicy(ctx context.Context, machine policy.Document, reviewed policy.ExampleSet) (policy.Document, error) {
	const op = "refine policy"
	req := refineRequest{Machine: machine, ReviewedExamples: reviewed.Records()}
	var envelope machinePolicyEnvelope
	if err := c.post(ctx, op, PathRefinePolicy, req, &envelope); err != nil {
		return policy.Document{}, err
	}
	return decodeMachine(op, envelope)
}

type derivedEnvelope struct {
	Public    json.RawMessage `json:"public"`
	Moderator json.RawMessage `json:"moderator"`
}

// GenerateDerivedPolicies implements Client.
func (c *HTTPClient) GenerateDerivedPolicies(ctx context.Context, machine policy.Document) (DerivedPolicies, error) {
	const op = "generate derived policies"
	var envelope derivedEnvelope
	if err := c.post(ctx, op, PathDerivedPolicies, machinePolicyEnvelope{Machine: mustRaw(machine)}, &envelope); err != nil {
		return DerivedPolicies{}, err
	}
	public, err := policy.Decode(policy.VariantPublic, envelope.Public)
	if err != nil {
		return DerivedPolicies{}, failf(op, err, "backend returned an unusable public policy: %v", err)
	}
	moderator, err := policy.Decode(policy.VariantModerator, envelope.Moderator)
	if err != nil {
		return DerivedPolicies{}, failf(op, err, "backend returned an unusable moderator policy: %v", err)
	}
	return DerivedPolicies{Public: public, Moderator: moderator}, nil
}

func decodeMachine(op string, envelope machinePolicyEnvelope) (policy.Document, error) {
	if len(envelope.Machine) == 0 {
		return policy.Document{}, failf(op, nil, "backend response is missing the machine policy")
	}
	doc, err := policy.Decode(policy.VariantMachine, envelope.Machine)
	if err != nil {
		return policy.Document{}, failf(op, err, "backend returned an unusable machine policy: %v", err)
	}
	return doc, nil
}

func mustRaw(doc policy.Document) json.RawMessage {
	data, err := json.Marshal(doc)
	if err != nil {
		// Document marshaling is infallible for well-formed documents.
		return json.RawMessage("{}")
	}
	return json.RawMessage(data)
}

func (c *HTTPClient) post(ctx context.Context, op, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return failf(op, err, "encode request: %v", err)
	}
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
				return failf(op, err, "backend unreachable: %v", lastErr)
			}
		}
		retry, err := c.attempt(ctx, op, path, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return lastErr
}

// attempt performs one request. The first result reports whether the failure
// is transport-level and therefore worth retrying.
func (c *HTTPClient) attempt(ctx context.Context, op, path string, payload []byte, out any) (bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return false, failf(op, err, "build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, failf(op, ctx.Err(), "request canceled")
		}
		return true, failf(op, err, "backend unreachable: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return true, failf(op, err, "read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, failf(op, nil, "backend responded %d: %s", resp.StatusCode, errorDetail(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, failf(op, err, "decode response: %v", err)
	}
	return false, nil
}

// errorDetail pulls the backend's error message out of its JSON envelope,
// falling back to a trimmed raw body.
func errorDetail(body []byte) string {
	var envelope struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != "" {
			return envelope.Error
		}
		if envelope.Detail != "" {
			return envelope.Detail
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return "no detail"
	}
	return text
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
