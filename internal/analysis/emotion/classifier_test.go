package emotion

import (
	"context"
	"errors"
	"testing"

	"github.com/ewjiang/mindbridge/internal/ai"
)

type fakeBackend struct {
	labels []ai.Label
	err    error
	calls  int
}

func (f *fakeBackend) Classify(ctx context.Context, text string) ([]ai.Label, error) {
	_ = ctx
	_ = text
	f.calls++
	return f.labels, f.err
}

func TestClassify_EmptyInput(t *testing.T) {
	f := &fakeBackend{labels: []ai.Label{{Name: "joy", Score: 0.9}}}
	c := NewClassifier(f)

	for _, text := range []string{"", "   ", "\n\t"} {
		res := c.Classify(context.Background(), text)
		if res.Emotion != "neutral" || res.Confidence != 0.0 {
			t.Fatalf("empty input %q: got %+v", text, res)
		}
	}
	if f.calls != 0 {
		t.Fatalf("backend should not be called for empty input, got %d calls", f.calls)
	}
}

func TestClassify_BackendTopLabel(t *testing.T) {
	f := &fakeBackend{labels: []ai.Label{
		{Name: "SADNESS", Score: 0.91237},
		{Name: "fear", Score: 0.05},
	}}
	c := NewClassifier(f)

	res := c.Classify(context.Background(), "everything went wrong today")
	if res.Emotion != "sadness" {
		t.Fatalf("expected sadness, got %q", res.Emotion)
	}
	if res.Confidence != 0.9124 {
		t.Fatalf("expected rounded confidence 0.9124, got %v", res.Confidence)
	}
}

func TestClassify_NilBackendUsesFallback(t *testing.T) {
	c := NewClassifier(nil)
	res := c.Classify(context.Background(), "I'm so happy today, everything is great!")
	if res.Emotion != "joy" || res.Confidence != 0.6 {
		t.Fatalf("expected joy/0.6, got %+v", res)
	}
}

func TestClassify_BackendErrorFallsBackPerCall(t *testing.T) {
	f := &fakeBackend{err: errors.New("boom")}
	c := NewClassifier(f)

	res := c.Classify(context.Background(), "I feel sad")
	if res.Emotion != "sadness" {
		t.Fatalf("expected fallback sadness, got %+v", res)
	}
	// transient errors do not disable the backend
	c.Classify(context.Background(), "I feel sad")
	if f.calls != 2 {
		t.Fatalf("expected backend retried on next call, got %d calls", f.calls)
	}
}

func TestClassify_DisabledBackendIsPermanent(t *testing.T) {
	f := &fakeBackend{err: ai.ErrDisabled}
	c := NewClassifier(f)

	res := c.Classify(context.Background(), "I feel sad")
	if res.Emotion != "sadness" {
		t.Fatalf("expected fallback sadness, got %+v", res)
	}
	c.Classify(context.Background(), "I feel sad")
	c.Classify(context.Background(), "I feel sad")
	if f.calls != 1 {
		t.Fatalf("expected backend called once before disable, got %d calls", f.calls)
	}
}

func TestClassify_EmptyLabelsFallsBack(t *testing.T) {
	f := &fakeBackend{}
	c := NewClassifier(f)
	res := c.Classify(context.Background(), "I am terrified of tomorrow")
	if res.Emotion != "fear" {
		t.Fatalf("expected fallback fear, got %+v", res)
	}
}

func TestFallbackKeywords(t *testing.T) {
	c := NewClassifier(nil)
	cases := []struct {
		text string
		want string
		conf float64
	}{
		{"I'm so happy today", "joy", 0.6},
		{"I've been crying all night", "sadness", 0.6},
		{"this makes me furious", "anger", 0.6},
		{"I'm terrified of the exam", "fear", 0.6},
		{"wow, I did not see that coming", "surprise", 0.6},
		{"that was revolting", "disgust", 0.6},
		{"the weather report said rain", "neutral", 0.5},
	}
	for _, tc := range cases {
		res := c.Classify(context.Background(), tc.text)
		if res.Emotion != tc.want || res.Confidence != tc.conf {
			t.Errorf("%q: expected %s/%v, got %+v", tc.text, tc.want, tc.conf, res)
		}
	}
}

func TestSeverity(t *testing.T) {
	cases := map[string]int{
		"joy":      0,
		"surprise": 1,
		"neutral":  2,
		"anger":    3,
		"disgust":  3,
		"fear":     4,
		"sadness":  5,
		"SADNESS":  5,
		"unknown":  2,
	}
	for emotion, want := range cases {
		if got := Severity(emotion); got != want {
			t.Errorf("Severity(%q) = %d, want %d", emotion, got, want)
		}
	}
}
