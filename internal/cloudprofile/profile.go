// Package cloudprofile resolves the Azure national cloud (or a
// custom-configured cloud) to the set of endpoints the collector and
// credential provider need.
package cloudprofile

import "fmt"

// Profile is the set of endpoints a collection run authenticates against
// and enumerates.
type Profile struct {
	Name              string
	ActiveDirectory   string
	MicrosoftGraph    string
	AADGraphResource  string
	ResourceManager   string
	Management        string
	SuffixStorage     string
	SuffixKeyVaultDNS string
}

// builtins mirrors the national-cloud endpoint table the original
// collector keeps as a static map.
var builtins = map[string]Profile{
	"PUBLIC": {
		Name:             "PUBLIC",
		ActiveDirectory:  "https://login.microsoftonline.com",
		MicrosoftGraph:   "https://graph.microsoft.com",
		AADGraphResource: "https://graph.windows.net",
		ResourceManager:  "https://management.azure.com",
		Management:       "https://management.core.windows.net",
	},
	"GERMAN": {
		Name:             "GERMAN",
		ActiveDirectory:  "https://login.microsoftonline.de",
		MicrosoftGraph:   "https://graph.microsoft.de",
		AADGraphResource: "https://graph.cloudapi.de",
		ResourceManager:  "https://management.microsoftazure.de",
		Management:       "https://management.core.cloudapi.de",
	},
	"CHINA": {
		Name:             "CHINA",
		ActiveDirectory:  "https://login.chinacloudapi.cn",
		MicrosoftGraph:   "https://microsoftgraph.chinacloudapi.cn",
		AADGraphResource: "https://graph.chinacloudapi.cn",
		ResourceManager:  "https://management.chinacloudapi.cn",
		Management:       "https://management.core.chinacloudapi.cn",
	},
	"USGOV": {
		Name:             "USGOV",
		ActiveDirectory:  "https://login.microsoftonline.us",
		MicrosoftGraph:   "https://graph.microsoft.us",
		AADGraphResource: "https://graph.windows.net",
		ResourceManager:  "https://management.usgovcloudapi.net",
		Management:       "https://management.core.usgovcloudapi.net",
	},
}

// Resolve returns the built-in profile for one of PUBLIC, GERMAN, CHINA,
// or USGOV (case-sensitive, matching the CLI's --cloud values).
func Resolve(name string) (Profile, error) {
	profile, ok := builtins[name]
	if !ok {
		return Profile{}, fmt.Errorf("unknown cloud profile %q", name)
	}
	return profile, nil
}
