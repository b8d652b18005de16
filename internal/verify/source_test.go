package verify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceScorer_ClampsAndDefaults(t *testing.T) {
	tests := []struct {
		raw         string
		want        float64
		usedDefault bool
	}{
		{"4.5", 4.5, false},
		{"9.7", 5.0, false},
		{"-3", 1.0, false},
		{"very reliable", 2.5, true},
		{"", 2.5, true},
	}

	for _, tt := range tests {
		s := NewSourceScorer(NewLLMRater(llm.NewMockProvider(tt.raw)), SourceScorerOptions{})
		a, err := s.Assess(context.Background(), "nasa.gov")
		require.NoError(t, err)
		assert.Equal(t, tt.want, a.Score, "raw %q", tt.raw)
		assert.Equal(t, tt.usedDefault, a.UsedDefault, "raw %q", tt.raw)
	}
}

func TestSourceScorer_Assessment(t *testing.T) {
	s := NewSourceScorer(NewLLMRater(llm.NewMockProvider("5")), SourceScorerOptions{})

	a, err := s.Assess(context.Background(), "nasa.gov")
	require.NoError(t, err)
	assert.Equal(t, "Source credibility: 5.0/5", a.Explanation)
	assert.Equal(t, []string{"Domain reputation"}, a.ContributingFactors)
	assert.True(t, a.IsTrusted)

	s = NewSourceScorer(NewLLMRater(llm.NewMockProvider("3.9")), SourceScorerOptions{})
	a, err = s.Assess(context.Background(), "blog.example")
	require.NoError(t, err)
	assert.False(t, a.IsTrusted)
}

func TestSourceScorer_TransportFailureUsesDefault(t *testing.T) {
	p := llm.NewMockProvider("5")
	p.Err = errors.New("rate limited")

	score, err := NewSourceScorer(NewLLMRater(p), SourceScorerOptions{DefaultScore: 3}).Score(context.Background(), "nasa.gov")
	require.NoError(t, err)
	assert.Equal(t, 3.0, score)
}

func TestSourceScorer_PromptCarriesSourceType(t *testing.T) {
	p := llm.NewMockProvider("4")
	_, err := NewSourceScorer(NewLLMRater(p), SourceScorerOptions{}).Score(context.Background(), "bbc.com")
	require.NoError(t, err)

	calls := p.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Source type: Web")
	assert.Contains(t, calls[0].Prompt, "bbc.com")
}

type countingRater struct {
	calls atomic.Int32
	delay time.Duration
}

func (r *countingRater) Rate(ctx context.Context, sourceType, domain string) (string, error) {
	r.calls.Add(1)
	time.Sleep(r.delay)
	return "4", nil
}

func TestSourceScorer_CachesPerDomain(t *testing.T) {
	r := &countingRater{}
	s := NewSourceScorer(r, SourceScorerOptions{CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := s.Score(context.Background(), "nasa.gov")
		require.NoError(t, err)
	}
	_, err := s.Score(context.Background(), "NASA.gov")
	require.NoError(t, err)
	_, err = s.Score(context.Background(), "bbc.com")
	require.NoError(t, err)

	assert.Equal(t, int32(2), r.calls.Load())
}

func TestSourceScorer_CollapsesConcurrentLookups(t *testing.T) {
	r := &countingRater{delay: 50 * time.Millisecond}
	s := NewSourceScorer(r, SourceScorerOptions{CacheTTL: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Score(context.Background(), "reuters.com")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), r.calls.Load())
}

// gatedRater blocks every rating until release is closed
type gatedRater struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gatedRater) Rate(ctx context.Context, sourceType, domain string) (string, error) {
	r.once.Do(func() { close(r.entered) })
	select {
	case <-r.release:
		return "5", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSourceScorer_CancelledCallerDoesNotFailOthers(t *testing.T) {
	r := &gatedRater{entered: make(chan struct{}), release: make(chan struct{})}
	s := NewSourceScorer(r, SourceScorerOptions{CacheTTL: time.Minute})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.Assess(ctxA, "nasa.gov")
		errA <- err
	}()
	<-r.entered

	type outcome struct {
		a   model.SourceAssessment
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		a, err := s.Assess(context.Background(), "nasa.gov")
		doneB <- outcome{a, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(r.release)
	select {
	case b := <-doneB:
		require.NoError(t, b.err)
		assert.Equal(t, 5.0, b.a.Score)
		assert.False(t, b.a.UsedDefault)
	case <-time.After(5 * time.Second):
		t.Fatal("second lookup never finished")
	}
}

func TestSourceScorer_CancelledBeforeLookup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSourceScorer(&countingRater{}, SourceScorerOptions{}).Score(ctx, "nasa.gov")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifierRater(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[{"label":"LABEL_4","score":0.5},{"label":"LABEL_3","score":0.5}]]`))
	}))
	defer server.Close()

	rater := NewClassifierRater(ClassifierOptions{URL: server.URL, Token: "secret"})
	text, err := rater.Rate(context.Background(), "Web", "nasa.gov")
	require.NoError(t, err)
	assert.Equal(t, "4.5000", text)
	assert.Equal(t, "Bearer secret", gotAuth)

	score, err := NewSourceScorer(rater, SourceScorerOptions{}).Score(context.Background(), "nasa.gov")
	require.NoError(t, err)
	assert.Equal(t, 4.5, score)
}

func TestClassifierRater_ErrorStatusUsesDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rater := NewClassifierRater(ClassifierOptions{URL: server.URL})
	_, err := rater.Rate(context.Background(), "Web", "nasa.gov")
	assert.Error(t, err)

	score, err := NewSourceScorer(rater, SourceScorerOptions{}).Score(context.Background(), "nasa.gov")
	require.NoError(t, err)
	assert.Equal(t, DefaultSourceScore, score)
}

func TestExpectedRating(t *testing.T) {
	got, err := ExpectedRating([]Classification{{"1", 0.25}, {"5", 0.75}, {"junk", 0.9}})
	require.NoError(t, err)
	assert.Equal(t, 4.0, got)

	_, err = ExpectedRating([]Classification{{"positive", 1}})
	assert.Error(t, err)
}

func TestNewRater(t *testing.T) {
	r, err := NewRater(model.SourceConfig{Backend: model.SourceBackendLLM}, model.HTTPConfig{}, llm.NewMockProvider("4"))
	require.NoError(t, err)
	assert.IsType(t, &LLMRater{}, r)

	r, err = NewRater(model.SourceConfig{Backend: model.SourceBackendClassifier, ClassifierURL: "http://localhost:9/score"}, model.HTTPConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ClassifierRater{}, r)

	_, err = NewRater(model.SourceConfig{Backend: model.SourceBackendClassifier}, model.HTTPConfig{}, nil)
	assert.Error(t, err)
	_, err = NewRater(model.SourceConfig{Backend: "oracle"}, model.HTTPConfig{}, nil)
	assert.Error(t, err)
}
