package config

import (
	"errors"
	"path/filepath"
	"strings"

	"os"

	"github.com/magiconair/properties"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/astral-step/astrovpn/pkg/profile"
)

// Default desktop client profiles file path
var defaultLegacySubpath = filepath.Join(".astrovpn", "profiles.properties")

// LegacyProfile is one entry of a desktop client profiles.properties
// file: a name key mapped to an astrovpn:// URL.
type LegacyProfile struct {
	Name string
	URL  string
}

func TryFindLegacyProfilesFile() (string, error) {
	homedir, err := homedir.Dir()
	if err != nil {

		return "", err
	}

	absoluteDefaultPath := filepath.Join(homedir, defaultLegacySubpath)

	_, err = os.Stat(absoluteDefaultPath)
	if err == nil {

		return absoluteDefaultPath, nil
	}
	return "", os.ErrNotExist
}

// ParseLegacyProfiles reads a profiles.properties file. Every entry
// whose value is an astrovpn:// URL becomes a profile named after its
// key (an optional "profile." key prefix is dropped); anything else in
// the file is ignored.
func ParseLegacyProfiles(path string) ([]LegacyProfile, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return nil, err
	}

	var found []LegacyProfile
	for _, key := range p.Keys() {
		value, ok := p.Get(key)
		if !ok || !strings.HasPrefix(value, profile.Scheme) {
			continue
		}
		found = append(found, LegacyProfile{
			Name: strings.TrimPrefix(key, "profile."),
			URL:  value,
		})
	}

	if len(found) == 0 {
		return nil, errors.New("invalid or unsupported profiles file")
	}

	return found, nil
}
