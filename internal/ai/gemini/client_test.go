package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu    sync.Mutex
	calls []modelsCallRecord
	queue []fakeModelsResponse
}

type modelsCallRecord struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type fakeModelsResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeModelsResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, modelsCallRecord{model: model, contents: contents, config: config})
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func testRequest() Request {
	return Request{
		Data:        []byte("%PDF-1.4"),
		MIMEType:    "application/pdf",
		Prompt:      "extract",
		Schema:      metricsSchema(),
		Temperature: 0,
	}
}

func TestGeneratorSendsDocumentInline(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse(`{"ok": true}`), nil)

	g := &Generator{models: models, model: "gemini-test", maxRetries: 1, logger: zap.NewNop()}

	output, err := g.GenerateJSON(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != `{"ok": true}` {
		t.Fatalf("unexpected output: %q", output)
	}

	call := models.calls[0]
	if call.model != "gemini-test" {
		t.Fatalf("unexpected model: %q", call.model)
	}
	if len(call.contents) != 1 || len(call.contents[0].Parts) != 2 {
		t.Fatalf("expected one content with two parts, got %+v", call.contents)
	}
	inline := call.contents[0].Parts[0].InlineData
	if inline == nil || inline.MIMEType != "application/pdf" || string(inline.Data) != "%PDF-1.4" {
		t.Fatalf("unexpected inline data: %+v", inline)
	}
	if got := call.contents[0].Parts[1].Text; got != "extract" {
		t.Fatalf("unexpected prompt part: %q", got)
	}
	if call.config.ResponseMIMEType != "application/json" {
		t.Fatalf("unexpected response mime type: %q", call.config.ResponseMIMEType)
	}
	if call.config.Temperature == nil || *call.config.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", call.config.Temperature)
	}
	if call.config.ResponseSchema == nil {
		t.Fatalf("expected response schema to be set")
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models.enqueue(nil, tempErr)
	models.enqueue(textResponse("retry ok"), nil)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	output, err := g.GenerateJSON(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 2, logger: zap.NewNop()}

	_, err := g.GenerateJSON(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateJSON(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, logger: zap.NewNop()}

	if _, err := g.GenerateJSON(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error")
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorStopsOnCancelledContext(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusServiceUnavailable})
	models.enqueue(textResponse("late"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := &Generator{models: models, model: "gemini-pro", maxRetries: 3, baseDelay: time.Hour, logger: zap.NewNop()}

	_, err := g.GenerateJSON(ctx, testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorRejectsEmptyInput(t *testing.T) {
	g := &Generator{models: &fakeModels{}, model: "gemini-pro", maxRetries: 1, logger: zap.NewNop()}

	if _, err := g.GenerateJSON(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatal("expected error for empty document")
	}
	if _, err := g.GenerateJSON(context.Background(), Request{Data: []byte("x"), Prompt: "  "}); err == nil {
		t.Fatal("expected error for empty prompt")
	}

	var nilGen *Generator
	if _, err := nilGen.GenerateJSON(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error for nil generator")
	}
	if nilGen.Model() != "" {
		t.Fatal("expected empty model for nil generator")
	}
}

func TestResponseTextSkipsThoughtsAndEmptyParts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				nil,
				{Text: "  "},
				{Text: `{"a":1}`},
			}}},
		},
	}

	got, err := responseText(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"a":1}` {
		t.Fatalf("unexpected text: %q", got)
	}

	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		retry bool
		delay time.Duration
	}{
		{name: "server error backs off", err: genai.APIError{Code: 503}, retry: true, delay: 4 * time.Second},
		{name: "short quota hint", err: genai.APIError{Code: 429, Message: "Please retry in 2.5s."}, retry: true, delay: 2500 * time.Millisecond},
		{name: "millisecond hint", err: genai.APIError{Code: 429, Message: "retry after 300ms"}, retry: true, delay: 300 * time.Millisecond},
		{name: "long quota hint", err: genai.APIError{Code: 429, Message: "retry after 60 seconds"}, retry: false},
		{name: "quota without hint", err: genai.APIError{Code: 429}, retry: true, delay: 4 * time.Second},
		{name: "client error", err: genai.APIError{Code: 403}, retry: false},
		{name: "pointer api error", err: &genai.APIError{Code: 500}, retry: true, delay: 4 * time.Second},
		{name: "plain error", err: errors.New("dial tcp"), retry: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, retry := retryDelay(tt.err, 3, time.Second)
			if retry != tt.retry {
				t.Fatalf("expected retry=%v, got %v", tt.retry, retry)
			}
			if retry && delay != tt.delay {
				t.Fatalf("expected delay %v, got %v", tt.delay, delay)
			}
		})
	}
}
