package providers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.Register("analysis", mock, 30)

		client, err := r.Get("analysis")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
		if r.Limiter("analysis") == nil {
			t.Error("expected a limiter")
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := NewRegistry().Get("nope")
		if !errors.Is(err, ErrNotConfigured) {
			t.Errorf("expected ErrNotConfigured, got %v", err)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.Register("m", NewMockClient(), 60)
				_, _ = r.Get("m")
				_ = r.List()
			}()
		}
		wg.Wait()
		if !r.Has("m") {
			t.Error("expected m to be registered")
		}
	})
}

func TestRegistry_Reload(t *testing.T) {
	cfg := RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
		"vision":  {Type: "openrouter", Model: "google/gemini-2.5-flash", APIKey: "k1", RateLimit: 60, Enabled: true},
		"backup":  {Type: "openai", APIKey: "k2", Enabled: true},
		"offline": {Type: "mock", Enabled: true},
		"nokey":   {Type: "openrouter", Enabled: true},
		"off":     {Type: "mock", Enabled: false},
		"weird":   {Type: "carrier-pigeon", APIKey: "x", Enabled: true},
	}}

	r := NewRegistryFromConfig(cfg)
	got := r.List()
	want := []string{"backup", "offline", "vision"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}

	vision, _ := r.Get("vision")
	limiter := r.Limiter("vision")

	// Unchanged config keeps the same client and limiter.
	r.Reload(cfg)
	same, _ := r.Get("vision")
	if same != vision || r.Limiter("vision") != limiter {
		t.Error("unchanged provider was rebuilt")
	}

	// Changed model rebuilds; removed provider disappears.
	cfg.LLMProviders["vision"] = LLMProviderConfig{Type: "openrouter", Model: "openai/gpt-4o", APIKey: "k1", Enabled: true}
	delete(cfg.LLMProviders, "backup")
	r.Reload(cfg)

	updated, _ := r.Get("vision")
	if updated == vision {
		t.Error("changed provider was not rebuilt")
	}
	if or, ok := updated.(*OpenRouterClient); !ok || or.Model() != "openai/gpt-4o" {
		t.Errorf("unexpected client after reload: %#v", updated)
	}
	if r.Has("backup") {
		t.Error("removed provider still registered")
	}
}

func TestMockClient(t *testing.T) {
	c := NewMockClient()
	c.Latency = 0
	c.Respond = func(req *ChatRequest) string { return "echo: " + req.Messages[0].Content }

	result, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if result.Content != "echo: hi" || c.RequestCount() != 1 || len(c.Requests()) != 1 {
		t.Errorf("unexpected mock state: %+v", result)
	}

	c.FailAfter = 1
	if _, err := c.Chat(context.Background(), &ChatRequest{Messages: []Message{{Content: "again"}}}); err == nil {
		t.Error("expected failure after first request")
	}

	c.Reset()
	c.FailAfter = 0
	c.Latency = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Chat(ctx, &ChatRequest{Messages: []Message{{Content: "x"}}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst then empty", func(t *testing.T) {
		rl := NewRateLimiter(3)
		for i := 0; i < 3; i++ {
			if !rl.TryConsume() {
				t.Fatalf("token %d should be available", i)
			}
		}
		if rl.TryConsume() {
			t.Error("bucket should be empty")
		}
		status := rl.Status()
		if status.TotalConsumed != 3 || status.TokensLimit != 3 {
			t.Errorf("unexpected status: %+v", status)
		}
		if status.TimeUntilToken <= 0 {
			t.Error("expected positive time until next token")
		}
	})

	t.Run("wait honors context", func(t *testing.T) {
		rl := NewRateLimiter(1)
		if err := rl.Wait(context.Background()); err != nil {
			t.Fatalf("first Wait() error = %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("record 429 drains", func(t *testing.T) {
		rl := NewRateLimiter(100)
		rl.Record429(time.Second)
		if rl.TryConsume() {
			t.Error("expected drained bucket")
		}
		status := rl.Status()
		if status.Last429Time.IsZero() || status.PausedUntil.IsZero() {
			t.Errorf("unexpected status: %+v", status)
		}
		if status.TimeUntilToken <= 500*time.Millisecond {
			t.Errorf("TimeUntilToken = %s, want the Retry-After pause", status.TimeUntilToken)
		}
	})

	t.Run("429 without retry-after keeps tokens", func(t *testing.T) {
		rl := NewRateLimiter(10)
		rl.Record429(0)
		if !rl.TryConsume() {
			t.Error("bucket drained without Retry-After")
		}
	})
}
