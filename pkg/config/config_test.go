package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	err := os.WriteFile(path, []byte(`current-profile: office
profiles:
  - id: 7b9c27b5-9d9a-4b7c-a7a8-52c831a5c2a8
    name: office
    url: astrovpn://eyJuYW1lIjoiT2ZmaWNlIn0=
    added-at: 2024-03-01T10:00:00Z
    last-used-at: 2024-04-01T08:30:00Z
  - id: 0a41c0bb-0d2f-4a52-93c3-19e71fa0960b
    name: home
    url: astrovpn://eyJuYW1lIjoiSG9tZSJ9
    added-at: 2024-03-02T11:00:00Z
`), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "office", cfg.CurrentProfile)
	require.Len(t, cfg.Profiles, 2)

	p := cfg.Profiles[0]
	require.Equal(t, "7b9c27b5-9d9a-4b7c-a7a8-52c831a5c2a8", p.ID)
	require.Equal(t, "office", p.Name)
	require.Equal(t, "astrovpn://eyJuYW1lIjoiT2ZmaWNlIn0=", p.URL)
	require.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), p.AddedAt.UTC())
	require.Equal(t, time.Date(2024, 4, 1, 8, 30, 0, 0, time.UTC), p.LastUsedAt.UTC())

	require.True(t, cfg.Profiles[1].LastUsedAt.IsZero())
}

func TestReadConfig_MissingDefaultIsEmpty(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg, err := ReadConfig("")
	require.NoError(t, err)
	require.Empty(t, cfg.Profiles)
	require.Empty(t, cfg.CurrentProfile)
}

func TestReadConfig_ExplicitPathMustExist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent")
	_, err := ReadConfig(path)
	require.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	err := os.WriteFile(path, []byte("profiles: []\n"), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	cfg.Profiles = append(cfg.Profiles, &StoredProfile{
		ID:      "27e74deb-9f34-4a45-a475-1d232ca7a474",
		Name:    "office",
		URL:     "astrovpn://eyJuYW1lIjoiT2ZmaWNlIn0=",
		AddedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	cfg.CurrentProfile = "office"
	require.NoError(t, cfg.Write())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "office", got.CurrentProfile)
	require.Len(t, got.Profiles, 1)
	require.Equal(t, "office", got.Profiles[0].Name)
	require.True(t, got.Profiles[0].LastUsedAt.IsZero())
}

func TestHasProfile(t *testing.T) {
	cfg := Config{
		Profiles: []*StoredProfile{
			{Name: "a"},
			{Name: "b"},
		},
	}
	require.True(t, cfg.HasProfile("a"))
	require.True(t, cfg.HasProfile("b"))
	require.False(t, cfg.HasProfile("c"))
}

func TestFindProfile(t *testing.T) {
	office := &StoredProfile{Name: "office"}
	cfg := Config{Profiles: []*StoredProfile{office}}

	require.Same(t, office, cfg.FindProfile("office"))
	require.Nil(t, cfg.FindProfile("home"))
}

func TestActiveProfile(t *testing.T) {
	cfg := Config{
		CurrentProfile: "prod",
		Profiles: []*StoredProfile{
			{Name: "dev", URL: "astrovpn://ZGV2"},
			{Name: "prod", URL: "astrovpn://cHJvZA=="},
		},
	}

	p := cfg.ActiveProfile()
	require.NotNil(t, p)
	require.Equal(t, "prod", p.Name)

	// ProfileOverride takes precedence.
	cfg.ProfileOverride = "dev"
	p = cfg.ActiveProfile()
	require.NotNil(t, p)
	require.Equal(t, "dev", p.Name)
}

func TestActiveProfile_NotFound(t *testing.T) {
	cfg := Config{
		CurrentProfile: "missing",
		Profiles:       []*StoredProfile{{Name: "other"}},
	}
	require.Nil(t, cfg.ActiveProfile())
}

func TestActiveProfile_ReturnsCopy(t *testing.T) {
	cfg := Config{
		CurrentProfile: "office",
		Profiles:       []*StoredProfile{{Name: "office"}},
	}

	p := cfg.ActiveProfile()
	p.Name = "mutated"
	require.Equal(t, "office", cfg.Profiles[0].Name)
}

func TestSetCurrentProfile_Unknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	err := os.WriteFile(path, []byte("profiles: []\n"), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.Error(t, cfg.SetCurrentProfile("nope"))
}

func TestSetCurrentProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	err := os.WriteFile(path, []byte(`profiles:
  - name: office
    url: astrovpn://eyJuYW1lIjoiT2ZmaWNlIn0=
`), 0644)
	require.NoError(t, err)

	cfg, err := ReadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.SetCurrentProfile("office"))

	got, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "office", got.CurrentProfile)
}
