package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astral-step/astrovpn/pkg/profile"
)

func mustURL(t *testing.T, p profile.Profile) string {
	t.Helper()
	url, err := profile.EncodeURL(p)
	require.NoError(t, err)
	return url
}

func backupURL(t *testing.T) string {
	return mustURL(t, profile.Profile{
		Name:          "Backup",
		Server:        "10.8.0.2",
		DomainService: "panel.example.com:8000",
		KeyURL:        "https://panel.example.com/api/keys/backup",
	})
}

func TestProfileAdd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := runCmd(t, nil, "profile", "add", officeURL)
	require.Equal(t, "Added profile \"Office\".\n", out)

	out = runCmd(t, nil, "profile", "ls")
	require.Contains(t, out, "NAME")
	require.Contains(t, out, "Office")
	require.Contains(t, out, "10.8.0.1")
}

func TestProfileAdd_NameFlag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out := runCmd(t, nil, "profile", "add", "--name", "work", officeURL)
	require.Equal(t, "Added profile \"work\".\n", out)

	out = runCmd(t, nil, "profile", "url", "work")
	require.Equal(t, officeURL+"\n", out)
}

func TestProfileAdd_Duplicate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	runCmd(t, nil, "profile", "add", officeURL)
	_, err := runCmdAllowFail(t, nil, "profile", "add", officeURL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "exists already")
}

func TestProfileAdd_RejectsInvalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		url  string
	}{
		{"not a url", "definitely not a url"},
		{"missing key_url", mustURL(t, profile.Profile{Name: "X", Server: "10.0.0.1", DomainService: "panel.example.com:8000"})},
		{"bad domain service", mustURL(t, profile.Profile{Name: "X", Server: "10.0.0.1", DomainService: "::", KeyURL: "https://panel.example.com/k"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCmdAllowFail(t, nil, "profile", "add", tt.url)
			require.Error(t, err)
			require.Contains(t, err.Error(), "refusing to add profile")
		})
	}
}

func TestProfileLs_MarksCurrent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	runCmd(t, nil, "profile", "add", officeURL)
	runCmd(t, nil, "profile", "add", backupURL(t))
	runCmd(t, nil, "profile", "use", "Office")

	out := runCmd(t, nil, "profile", "ls")
	require.Contains(t, out, "* Office")
	require.Contains(t, out, "  Backup")

	out = runCmd(t, nil, "profile", "ls", "--no-headers")
	require.NotContains(t, out, "NAME")
}

func TestProfilesAlias(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	runCmd(t, nil, "profile", "add", officeURL)

	out := runCmd(t, nil, "profiles")
	require.Contains(t, out, "Office")
}

func TestProfileDescribe(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	runCmd(t, nil, "profile", "add", officeURL)

	out := runCmd(t, nil, "profile", "describe", "Office")
	require.Contains(t, out, "ID:")
	require.Contains(t, out, "Name:")
	require.Contains(t, out, "Office")
	require.Contains(t, out, `"key_url"`)

	// show is an alias
	aliasOut := runCmd(t, nil, "profile", "show", "Office")
	require.Contains(t, aliasOut, "Office")

	_, err := runCmdAllowFail(t, nil, "profile", "describe", "nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not exist")
}

func TestProfileUseAndCurrent(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	runCmd(t, nil, "profile", "add", officeURL)

	out := runCmd(t, nil, "profile", "current")
	require.Equal(t, "\n", out)

	out = runCmd(t, nil, "profile", "use", "Office")
	require.Equal(t, "Switched to profile \"Office\".\n", out)

	out = runCmd(t, nil, "profile", "current")
	require.Equal(t, "Office\n", out)

	_, err := runCmdAllowFail(t, nil, "profile", "use", "nope")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestProfileRm(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	runCmd(t, nil, "profile", "add", officeURL)
	runCmd(t, nil, "profile", "add", backupURL(t))
	runCmd(t, nil, "profile", "use", "Office")

	out := runCmd(t, nil, "profile", "rm", "Backup")
	require.Equal(t, "Removed profile.\n", out)

	// The current profile needs --force.
	_, err := runCmdAllowFail(t, nil, "profile", "rm", "Office")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--force")

	runCmd(t, nil, "profile", "rm", "--force", "Office")

	out = runCmd(t, nil, "profile", "current")
	require.Equal(t, "\n", out)

	_, err = runCmdAllowFail(t, nil, "profile", "rm", "Office")
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not delete profile")
}

func TestProfileImport(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	propsPath := filepath.Join(t.TempDir(), "profiles.properties")
	props := fmt.Sprintf(`# AstroVPN desktop profiles
profile.office=%s
profile.backup=%s
profile.broken=astrovpn://!!!!
home=/sdcard/astrovpn
update.check.interval=86400
`, officeURL, backupURL(t))
	require.NoError(t, os.WriteFile(propsPath, []byte(props), 0644))

	out, err := runCmdAllowFail(t, nil, "profile", "import", "--file", propsPath)
	require.NoError(t, err)
	require.Contains(t, out, "Importing profiles from "+propsPath)
	require.Contains(t, out, "skipping broken")
	require.Contains(t, out, "Imported 2 profile(s).")

	// The first import becomes the current profile.
	out = runCmd(t, nil, "profile", "current")
	require.Equal(t, "office\n", out)

	out = runCmd(t, nil, "profile", "ls")
	require.Contains(t, out, "office")
	require.Contains(t, out, "backup")
}

func TestProfileImport_SkipsExisting(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	runCmd(t, nil, "profile", "add", "--name", "office", officeURL)

	propsPath := filepath.Join(t.TempDir(), "profiles.properties")
	props := fmt.Sprintf("profile.office=%s\n", officeURL)
	require.NoError(t, os.WriteFile(propsPath, []byte(props), 0644))

	out, err := runCmdAllowFail(t, nil, "profile", "import", "--file", propsPath)
	require.NoError(t, err)
	require.Contains(t, out, "skipping office: profile exists already")
	require.Contains(t, out, "Imported 0 profile(s).")
}

func TestProfileImport_MissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := runCmdAllowFail(t, nil, "profile", "import", "--file", filepath.Join(t.TempDir(), "nope.properties"))
	require.Error(t, err)
}
