package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpilot/internal/config"
	"formpilot/internal/fill"
	"formpilot/internal/pattern"
	"formpilot/internal/profile"
)

func newStore(t *testing.T) *pattern.Store {
	t.Helper()
	s, err := pattern.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPushSendsOnlyShareableIntents(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Observe(ctx, pattern.Observation{
		QuestionText: "Gender", Intent: profile.IntentGender,
		CanonicalValue: "Male", Variant: "Man", Confidence: 0.9,
	}))
	require.NoError(t, store.Observe(ctx, pattern.Observation{
		QuestionText: "Expected salary", Intent: profile.IntentExpectedSalary,
		CanonicalValue: "100000", Variant: "100k", Confidence: 0.9,
	}))

	var pushed struct {
		Patterns []pattern.LearnedPattern `json:"patterns"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&pushed))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(config.ExchangeConfig{BaseURL: server.URL, Timeout: "5s"}, store)
	n, err := client.Push(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pushed.Patterns, 1)
	assert.Equal(t, profile.IntentGender, pushed.Patterns[0].Intent,
		"salary is a free-text personal value and must stay local")
}

func TestPullMergesWithLocalSemantics(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// Local store already knows one variant.
	require.NoError(t, store.Observe(ctx, pattern.Observation{
		QuestionText: "Gender", Intent: profile.IntentGender,
		CanonicalValue: "Male", Variant: "Man", Confidence: 0.9,
	}))

	remote := []pattern.LearnedPattern{
		{
			QuestionPattern: "gender",
			Intent:          profile.IntentGender,
			Confidence:      0.92,
			Source:          pattern.SourceAI,
			AnswerMappings: []pattern.AnswerMapping{
				{CanonicalValue: "Male", Variants: []string{"Man", "male"}},
			},
		},
		{
			QuestionPattern: "expected salary",
			Intent:          profile.IntentExpectedSalary, // not shareable: must be rejected on ingest
			Confidence:      0.9,
			Source:          pattern.SourceAI,
			AnswerMappings: []pattern.AnswerMapping{
				{CanonicalValue: "100000", Variants: []string{"100k"}},
			},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"patterns": remote})
	}))
	defer server.Close()

	client := NewClient(config.ExchangeConfig{BaseURL: server.URL, Timeout: "5s"}, store)
	merged, err := client.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, merged)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "non-shareable remote pattern must not be stored")
	require.Len(t, all[0].AnswerMappings, 1)
	assert.ElementsMatch(t, []string{"Man", "male"}, all[0].AnswerMappings[0].Variants,
		"duplicate variant merges away, new variant unions in")
}

func TestPullIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	remote := []pattern.LearnedPattern{{
		QuestionPattern: "gender",
		Intent:          profile.IntentGender,
		Confidence:      0.9,
		Source:          pattern.SourceAI,
		AnswerMappings:  []pattern.AnswerMapping{{CanonicalValue: "Male", Variants: []string{"Man"}}},
	}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"patterns": remote})
	}))
	defer server.Close()

	client := NewClient(config.ExchangeConfig{BaseURL: server.URL, Timeout: "5s"}, store)
	_, err := client.Pull(ctx)
	require.NoError(t, err)
	_, err = client.Pull(ctx)
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{"Man"}, all[0].AnswerMappings[0].Variants)
}

func TestPushWithoutURL(t *testing.T) {
	client := NewClient(config.ExchangeConfig{}, newStore(t))
	_, err := client.Push(context.Background())
	assert.Error(t, err)
}

func TestTelemetrySinkPostsEvent(t *testing.T) {
	var got fill.FailureEvent
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewTelemetrySink(server.URL)
	sink.ReportFailure(context.Background(), fill.FailureEvent{
		RunID: "run-9",
		URL:   "https://jobs.example.com/apply",
		Code:  fill.ReasonNoDOMMatch,
		Field: "First Name",
	})
	assert.Equal(t, "run-9", got.RunID)
	assert.Equal(t, fill.ReasonNoDOMMatch, got.Code)
}
