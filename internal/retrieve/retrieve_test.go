package retrieve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/util"
	"github.com/ppiankov/claimcheck/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weaviate/weaviate/entities/models"
)

type stubRetriever struct {
	name  string
	items []model.EvidenceItem
	err   error
	calls atomic.Int32
}

func (s *stubRetriever) Name() string { return s.name }

func (s *stubRetriever) Retrieve(ctx context.Context, claim string) ([]model.EvidenceItem, error) {
	s.calls.Add(1)
	return s.items, s.err
}

func TestSerpAPI_Retrieve(t *testing.T) {
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "google", r.URL.Query().Get("engine"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"organic_results":[
			{"title":"Artemis I","link":"https://www.nasa.gov/artemis-1","snippet":"Artemis I launched in 2022"},
			{"title":"Video","link":"https://www.youtube.com/watch?v=x","snippet":"fake video"}
		]}`)
	}))
	defer server.Close()

	s := NewSerpAPI(model.SerpAPIConfig{APIKey: "test-key", Endpoint: server.URL, Engine: "google", NumResults: 10}, model.HTTPConfig{Timeout: 5 * time.Second})
	items, err := s.Retrieve(context.Background(), "NASA launched Artemis I in 2022.")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Contains(t, query, "q=NASA+launched+Artemis+I+in+2022.")
	assert.Equal(t, "nasa.gov", items[0].SourceDomain)
	assert.Equal(t, "Artemis I", items[0].Title)
	assert.Equal(t, model.OriginWeb, items[0].Origin)
	assert.Equal(t, "youtube.com", items[1].SourceDomain)
}

func TestSerpAPI_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "nothing":
			_, _ = fmt.Fprint(w, `{"error":"Google hasn't returned any results for this query."}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = fmt.Fprint(w, `{"error":"Invalid API key."}`)
		}
	}))
	defer server.Close()

	s := NewSerpAPI(model.SerpAPIConfig{APIKey: "k", Endpoint: server.URL}, model.HTTPConfig{})

	items, err := s.Retrieve(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.Retrieve(context.Background(), "anything")
	assert.ErrorContains(t, err, "Invalid API key")

	_, err = NewSerpAPI(model.SerpAPIConfig{Endpoint: server.URL}, model.HTTPConfig{}).Retrieve(context.Background(), "x")
	assert.ErrorContains(t, err, "api key not set")
}

func TestParseKnowledgeResults(t *testing.T) {
	resp := &models.GraphQLResponse{
		Data: map[string]models.JSONObject{
			"Get": map[string]interface{}{
				"NewsArticle": []interface{}{
					map[string]interface{}{"content": " Artemis I launched. ", "url": "https://www.nasa.gov/a", "source": "NASA"},
					map[string]interface{}{"content": "From archive", "source": "https://bbc.com/b"},
					"malformed",
					map[string]interface{}{"content": "third", "url": "https://c.example/c"},
					map[string]interface{}{"content": "fourth", "url": "https://d.example/d"},
				},
			},
		},
	}

	items, err := parseKnowledgeResults(resp, "NewsArticle", 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Artemis I launched.", items[0].Snippet)
	assert.Equal(t, "nasa.gov", items[0].SourceDomain)
	assert.Equal(t, "bbc.com", items[1].SourceDomain)
	assert.Equal(t, model.OriginKnowledgeBase, items[2].Origin)

	items, err = parseKnowledgeResults(&models.GraphQLResponse{Data: map[string]models.JSONObject{}}, "NewsArticle", 3)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = parseKnowledgeResults(&models.GraphQLResponse{Errors: []*models.GraphQLError{{Message: "class not found"}}}, "NewsArticle", 3)
	assert.ErrorContains(t, err, "class not found")
}

func TestMulti_ConcatenatesInOrder(t *testing.T) {
	a := &stubRetriever{name: "web", items: []model.EvidenceItem{model.NewEvidenceItem("https://a.example", "a", model.OriginWeb)}}
	b := &stubRetriever{name: "kb", items: []model.EvidenceItem{model.NewEvidenceItem("https://b.example", "b", model.OriginKnowledgeBase)}}

	items, err := NewMulti(nil, a, b).Retrieve(context.Background(), "claim")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.example", items[0].SourceDomain)
	assert.Equal(t, "b.example", items[1].SourceDomain)
}

func TestMulti_SkipsFailingSource(t *testing.T) {
	bad := &stubRetriever{name: "web", err: errors.New("quota exceeded")}
	good := &stubRetriever{name: "kb"}

	items, err := NewMulti(nil, bad, good).Retrieve(context.Background(), "claim")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestMulti_AllFail(t *testing.T) {
	_, err := NewMulti(nil,
		&stubRetriever{name: "web", err: errors.New("quota exceeded")},
		&stubRetriever{name: "kb", err: errors.New("connection refused")},
	).Retrieve(context.Background(), "claim")
	assert.ErrorContains(t, err, "quota exceeded")
	assert.ErrorContains(t, err, "connection refused")

	_, err = NewMulti(nil).Retrieve(context.Background(), "claim")
	assert.Error(t, err)
}

func TestCached(t *testing.T) {
	inner := &stubRetriever{name: "web", items: []model.EvidenceItem{model.NewEvidenceItem("https://a.example/x", "a", model.OriginWeb)}}
	c := NewCached(inner, cache.NewLayeredCache(time.Minute, "", 0), time.Minute)

	for i := 0; i < 3; i++ {
		items, err := c.Retrieve(context.Background(), "Some Claim")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "a.example", items[0].SourceDomain)
	}
	_, _ = c.Retrieve(context.Background(), "  some claim ")

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, "web", c.Name())
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	inner := &stubRetriever{name: "web", err: errors.New("down")}
	c := NewCached(inner, cache.NewLayeredCache(time.Minute, "", 0), time.Minute)

	_, err := c.Retrieve(context.Background(), "claim")
	assert.Error(t, err)
	_, err = c.Retrieve(context.Background(), "claim")
	assert.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestEnricher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
		case "/article":
			w.Header().Set("Content-Type", "text/html")
			_, _ = fmt.Fprint(w, `<html><head><script>x()</script></head><body><nav>Menu</nav><p>Artemis I launched in 2022 from Kennedy Space Center.</p></body></html>`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "claimcheck-test", 1<<20, "", "", "")
	robots := util.NewRobotsChecker("claimcheck-test", 5*time.Second)
	e := NewEnricher(fetcher, robots, worker.NewLimiter(100, 10), 500, nil)

	in := []model.EvidenceItem{
		model.NewEvidenceItem(server.URL+"/article", "", model.OriginWeb),
		model.NewEvidenceItem(server.URL+"/private/page", "", model.OriginWeb),
		model.NewEvidenceItem(server.URL+"/other", "already here", model.OriginWeb),
	}

	out, n := e.Enrich(context.Background(), in)
	require.Len(t, out, 3)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Artemis I launched in 2022 from Kennedy Space Center.", out[0].Snippet)
	assert.Empty(t, out[1].Snippet)
	assert.Equal(t, "already here", out[2].Snippet)
	assert.Empty(t, in[0].Snippet, "input must not be modified")
}
