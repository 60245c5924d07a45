package aad

// Class names, matching the per-class sqlite files named in the archive
// layout and the keys of the resourceFor map below.
const (
	ClassUser             = "User"
	ClassGroup            = "Group"
	ClassServicePrincipal = "ServicePrincipal"
	ClassApplication      = "Application"
	ClassDirectoryRole    = "DirectoryRole"
)

// resourceFor maps a class name to its Microsoft Graph resource segment.
var resourceFor = map[string]string{
	ClassUser:             "users",
	ClassGroup:            "groups",
	ClassServicePrincipal: "servicePrincipals",
	ClassApplication:      "applications",
	ClassDirectoryRole:    "directoryRoles",
}

// AllClasses returns the four enumerated classes plus DirectoryRole, in
// the order a full (non-backfill) AAD scan enumerates them.
func AllClasses() []string {
	return []string{ClassUser, ClassGroup, ClassServicePrincipal, ClassApplication, ClassDirectoryRole}
}

// odataTypeClass maps a Graph @odata.type suffix (lowercased) to its
// class name, used when dispatching back-filled directoryObjects.
func odataTypeClass(odataType string) (string, bool) {
	switch odataType {
	case "user":
		return ClassUser, true
	case "group":
		return ClassGroup, true
	case "serviceprincipal":
		return ClassServicePrincipal, true
	default:
		return "", false
	}
}
