// Package arm walks the ARM hierarchy: tenants, subscriptions, resource
// providers, resource groups, and resources, negotiating per-type
// api-version support, plus classic management certificate enumeration.
package arm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

const defaultAPIVersion = "2018-02-14"

// unsupportedVersionRe extracts the server-suggested api-versions from
// ARM's "No registered resource provider found for location" error
// message.
var unsupportedVersionRe = regexp.MustCompile(`The supported api-versions are '([^']*)'`)

// ErrNoVersionRemains indicates every server-suggested api-version has
// already been tried for this resource.
var ErrNoVersionRemains = errors.New("no api version remains to try")

// negotiateVersion inspects err for ARM's unsupported-api-version
// message. If present, it returns the latest api-version from the
// server's suggested list that is not already in tried. If the message
// doesn't match, ok is false. If it matches but every suggested version
// has already been tried, it returns ErrNoVersionRemains.
func negotiateVersion(err error, tried map[string]bool) (version string, ok bool, negotiateErr error) {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return "", false, nil
	}

	message := respErr.Error()
	if !strings.Contains(message, "No registered resource provider found for location") {
		return "", false, nil
	}

	match := unsupportedVersionRe.FindStringSubmatch(message)
	if match == nil {
		return "", false, nil
	}

	candidates := strings.Split(match[1], ", ")
	for i := len(candidates) - 1; i >= 0; i-- {
		v := strings.TrimSpace(candidates[i])
		if v == "" || tried[v] {
			continue
		}
		return v, true, nil
	}

	return "", true, ErrNoVersionRemains
}
