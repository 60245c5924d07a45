package cloudprofile

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// LoadCustom reads a cloud profile from an INI file with sections
// [ENDPOINTS] (Resource_Manager, AD, AD_Graph_ResourceId, MS_Graph,
// Management) and [SUFFIXES], overriding the built-in national clouds for
// sovereign or air-gapped deployments.
func LoadCustom(path string) (Profile, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return Profile{}, fmt.Errorf("loading cloud profile file %s: %w", path, err)
	}

	endpoints, err := cfg.GetSection("ENDPOINTS")
	if err != nil {
		return Profile{}, fmt.Errorf("cloud profile file %s has no [ENDPOINTS] section: %w", path, err)
	}

	profile := Profile{
		Name:             "custom",
		ResourceManager:  endpoints.Key("Resource_Manager").String(),
		ActiveDirectory:  endpoints.Key("AD").String(),
		AADGraphResource: endpoints.Key("AD_Graph_ResourceId").String(),
		MicrosoftGraph:   endpoints.Key("MS_Graph").String(),
		Management:       endpoints.Key("Management").String(),
	}

	if profile.ResourceManager == "" || profile.ActiveDirectory == "" {
		return Profile{}, fmt.Errorf("cloud profile file %s must set Resource_Manager and AD under [ENDPOINTS]", path)
	}

	if suffixes, err := cfg.GetSection("SUFFIXES"); err == nil {
		profile.SuffixStorage = suffixes.Key("Storage").String()
		profile.SuffixKeyVaultDNS = suffixes.Key("KeyVaultDNS").String()
	}

	return profile, nil
}
