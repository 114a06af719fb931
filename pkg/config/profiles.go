package config

import (
	"os"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

type ProfileName = string
type SettingName = string
type SettingValue = string

// ProfileSettings keeps the file's key order so listing profiles shows
// them the way the user wrote them.
type ProfileSettings = *orderedmap.OrderedMap[SettingName, SettingValue]
type Profiles = *orderedmap.OrderedMap[ProfileName, ProfileSettings]

// LoadProfiles reads the profiles YAML (profile -> setting -> value). A
// missing file yields an empty profile set.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return orderedmap.New[ProfileName, ProfileSettings](), nil
		}
		return nil, errors.Wrap(err, "config: read profiles file")
	}
	profiles := orderedmap.New[ProfileName, ProfileSettings]()
	if err := yaml.Unmarshal(data, profiles); err != nil {
		return nil, errors.Wrap(err, "config: decode profiles file")
	}
	return profiles, nil
}

// ProfileNames returns profile names in file order.
func ProfileNames(p Profiles) []string {
	if p == nil {
		return nil
	}
	names := make([]string, 0, p.Len())
	for pair := p.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// ApplyProfile overlays a named profile's settings onto cfg. Unknown
// setting names are rejected so typos in the profiles file do not pass
// silently.
func ApplyProfile(cfg *Config, profiles Profiles, name string) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if name == "" {
		return nil
	}
	if profiles == nil {
		return errors.Errorf("config: profile %q not found", name)
	}
	settings, ok := profiles.Get(name)
	if !ok || settings == nil {
		return errors.Errorf("config: profile %q not found", name)
	}
	for pair := settings.Oldest(); pair != nil; pair = pair.Next() {
		switch pair.Key {
		case "base_url":
			cfg.BaseURL = pair.Value
		case "workspace_id":
			cfg.WorkspaceID = pair.Value
		case "token":
			cfg.Token = pair.Value
		case "token_file":
			cfg.TokenFile = pair.Value
		case "log_level":
			cfg.LogLevel = pair.Value
		default:
			return errors.Errorf("config: profile %q has unknown setting %q", name, pair.Key)
		}
	}
	return nil
}
