package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), ".formpilot", "profile.json"))
	require.NoError(t, err)
	return s
}

func TestStoreLoadMissingFile(t *testing.T) {
	s := tempStore(t)
	p, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, p, "no saved profile yields nil, not an error")
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	s := tempStore(t)

	in := completeProfile()
	in.EEO.Gender = "Male"
	require.NoError(t, s.Save(in))

	out, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "Asha", out.Personal.FirstName)
	assert.Equal(t, "Male", out.EEO.Gender)
	assert.Equal(t, SchemaVersion, out.SchemaVersion)
	assert.False(t, out.UpdatedAt.IsZero())
}

func TestStoreLoadReturnsCopy(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(completeProfile()))

	first, err := s.Load()
	require.NoError(t, err)
	first.Personal.FirstName = "mutated"

	second, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "Asha", second.Personal.FirstName)
}

func TestStoreRejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schemaVersion": 99}`), 0o600))

	s, err := NewStore(path)
	require.NoError(t, err)
	_, err = s.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema version")
}

func TestStoreUpgradesUnversionedProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"personal":{"firstName":"Asha"}}`), 0o600))

	s, err := NewStore(path)
	require.NoError(t, err)
	p, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.SchemaVersion, "version 0 files are treated as version 1")
	assert.Equal(t, "Asha", p.Personal.FirstName)
}

func TestStoreRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewStore(path)
	require.NoError(t, err)
	_, err = s.Load()
	assert.Error(t, err)
}

func TestNewStoreRequiresPath(t *testing.T) {
	_, err := NewStore("")
	assert.Error(t, err)
}

func TestStoreWatchInvalidatesCacheOnExternalEdit(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Save(completeProfile()))
	require.NoError(t, s.Watch())
	t.Cleanup(func() { s.Close() })

	// Prime the cache.
	p, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, "Asha", p.Personal.FirstName)

	// Another process (the onboarding UI) rewrites the file.
	edited := completeProfile()
	edited.Personal.FirstName = "Meera"
	data, err := json.MarshalIndent(edited, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.path, data, 0o600))

	assert.Eventually(t, func() bool {
		p, err := s.Load()
		return err == nil && p != nil && p.Personal.FirstName == "Meera"
	}, 3*time.Second, 25*time.Millisecond, "external edit must invalidate the cached profile")
}

func TestStoreWatchIsIdempotent(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Watch())
	require.NoError(t, s.Watch())
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
