package autofill

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formpilot/internal/profile"
	"formpilot/internal/scan"
)

func profileStore(t *testing.T) *profile.Store {
	t.Helper()
	s, err := profile.NewStore(filepath.Join(t.TempDir(), "profile.json"))
	require.NoError(t, err)
	return s
}

func TestRunRequiresProfile(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, profileStore(t), nil, nil)
	_, err := r.Run(context.Background(), "https://jobs.example.com/apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profile")
}

func TestRunRequiresCompleteProfile(t *testing.T) {
	store := profileStore(t)
	p := profile.NewCanonicalProfile()
	p.Personal.FirstName = "Asha"
	require.NoError(t, store.Save(p))

	r := NewRunner(nil, nil, nil, nil, store, nil, nil)
	_, err := r.Run(context.Background(), "https://jobs.example.com/apply")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete")
	assert.Contains(t, err.Error(), "personal.email")
}

func TestSingleActiveRun(t *testing.T) {
	r := NewRunner(nil, nil, nil, nil, profileStore(t), nil, nil)
	require.True(t, r.acquire())
	defer r.release()

	_, err := r.Run(context.Background(), "https://jobs.example.com/apply")
	assert.ErrorIs(t, err, ErrRunActive)

	_, err = r.Scan(context.Background(), "https://jobs.example.com/apply")
	assert.ErrorIs(t, err, ErrRunActive)
}

func TestScanURLPrefersCache(t *testing.T) {
	cache := scan.NewCache(5 * time.Minute)
	cached := []scan.Question{{Text: "First Name", FieldType: scan.FieldText, Locator: "#first"}}
	cache.Put("https://jobs.example.com/apply", cached)

	r := NewRunner(nil, nil, nil, cache, profileStore(t), nil, nil)
	questions, err := r.scanURL(context.Background(), "https://jobs.example.com/apply", func(context.Context) ([]scan.Question, error) {
		t.Fatal("live scan must not run on a cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, cached, questions)
}
