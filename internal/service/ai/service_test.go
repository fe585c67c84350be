package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"readmegen/internal/config"
)

type fakeChatModel struct {
	reply    string
	err      error
	panicMsg string
	calls    int
	lastIn   []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.lastIn = input
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not used")
}

func TestGenerateSuccess(t *testing.T) {
	fake := &fakeChatModel{reply: "# X\n\nbody"}
	svc := NewServiceWithModel(fake, "gemini", "gemini-2.0-flash")

	res := svc.Generate(context.Background(), "prompt text")
	if !res.OK() || res.Text != "# X\n\nbody" {
		t.Fatalf("unexpected result %+v", res)
	}
	if fake.calls != 1 || len(fake.lastIn) != 1 {
		t.Fatalf("expected one call with one message, got %d calls", fake.calls)
	}
	if fake.lastIn[0].Role != schema.User || fake.lastIn[0].Content != "prompt text" {
		t.Fatalf("prompt not sent as user message: %+v", fake.lastIn[0])
	}
}

func TestGenerateFailureNoRetry(t *testing.T) {
	cause := errors.New("quota exceeded")
	fake := &fakeChatModel{err: cause}
	svc := NewServiceWithModel(fake, "gemini", "m")

	res := svc.Generate(context.Background(), "p")
	if res.OK() || res.Text != "" {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !errors.Is(res.Err, cause) || res.Err.Message != "quota exceeded" {
		t.Fatalf("failure does not carry cause: %+v", res.Err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", fake.calls)
	}
}

func TestGenerateEmptyAndPanic(t *testing.T) {
	res := NewServiceWithModel(&fakeChatModel{reply: ""}, "openai", "m").Generate(context.Background(), "p")
	if res.OK() || !errors.Is(res.Err, errEmptyResponse) {
		t.Fatalf("expected empty response failure, got %+v", res)
	}

	// whitespace is still a reply
	res = NewServiceWithModel(&fakeChatModel{reply: "\n  "}, "openai", "m").Generate(context.Background(), "p")
	if !res.OK() || res.Text != "\n  " {
		t.Fatalf("expected whitespace reply kept, got %+v", res)
	}

	res = NewServiceWithModel(&fakeChatModel{panicMsg: "boom"}, "claude", "m").Generate(context.Background(), "p")
	if res.OK() || !strings.Contains(res.Err.Message, "boom") {
		t.Fatalf("expected panic converted to failure, got %+v", res)
	}
}

func TestNewServiceRequiresToken(t *testing.T) {
	_, err := NewService(context.Background(), "gemini", "", " ", config.ProviderConfig{Model: "gemini-2.0-flash"})
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}
	if _, err := NewService(context.Background(), "mystery", "", "tok", config.ProviderConfig{}); err == nil {
		t.Fatalf("expected invalid provider error")
	}
}
