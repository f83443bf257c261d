package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockReport is the canned analysis the mock returns by default.
const MockReport = `*Composition:* Paracetamol 500mg
*Uses:* Relief of mild to moderate pain, Reduction of fever
*Available Tablet Names:* Crocin, Dolo 650, Calpol
*How to Use:* Take one tablet every 4 to 6 hours with water.
Do not exceed 4 grams per day.
*Side Effects:* Nausea, Rash, Liver damage at high doses
*Cost:* Approximately $2 for a strip of 10 tablets
*Safety with Alcohol:* Avoid alcohol; combined use increases liver toxicity risk.
*Pregnancy Safety:* Generally considered safe at recommended doses.
*Breastfeeding Safety:* Safe for nursing mothers at normal doses.
*Driving Safety:* No known effect on driving ability; considered safe.
*General Safety Advice:* Consult a doctor if symptoms persist beyond 3 days.`

// MockClient is an LLMClient for testing and offline runs.
type MockClient struct {
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	Err          error
	ResponseText string
	// Respond, when set, overrides ResponseText per request.
	Respond func(req *ChatRequest) string

	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      10 * time.Millisecond,
		ResponseText: MockReport,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat returns the configured response after Latency.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, *req)
	c.mu.Unlock()

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}

	fail := func(err error) (*ChatResult, error) {
		result.ErrorType = "mock_failure"
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}
	switch {
	case c.Err != nil:
		return fail(c.Err)
	case c.ShouldFail:
		return fail(fmt.Errorf("mock client configured to fail"))
	case c.FailAfter > 0 && int(count) > c.FailAfter:
		return fail(fmt.Errorf("mock client failed after %d requests", c.FailAfter))
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		result.ErrorType = "context_cancelled"
		result.ErrorMessage = ctx.Err().Error()
		result.ExecutionTime = time.Since(start)
		return result, ctx.Err()
	}

	text := c.ResponseText
	if c.Respond != nil {
		text = c.Respond(req)
	}

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.Success = true
	result.Content = text
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(text) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns copies of the requests received so far.
func (c *MockClient) Requests() []ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatRequest(nil), c.requests...)
}

// Reset clears the request counter and history.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

var _ LLMClient = (*MockClient)(nil)
