package entity

import "strings"

// Schema documents the declared shape of one ARM type or AAD class: the
// required top-level fields, the dotted paths lifted out of "properties"
// into first-class node attributes, and whether it emits type-specific
// edges beyond the default resource-group Contains edge. Only the fields
// used for validation/documentation are modeled explicitly; everything
// else flows through canonicalizeProperties' generic primitive-lifting
// pass and the catch-all "raw" property, per the open-world-JSON design
// note.
type Schema struct {
	Required       []string
	PropertyPaths  []string
	HasCustomEdges bool
}

// armSchemas documents the ARM types named explicitly in §4H. Types not
// listed still derive correctly through DeriveARM's generic path; this
// registry documents the declared shapes and is not consulted during
// derivation.
var armSchemas = map[string]Schema{
	"microsoft.compute/virtualmachines": {
		Required:       []string{"id", "name", "type"},
		PropertyPaths:  []string{"storageProfile.imageReference.sku", "storageProfile.osDisk", "networkProfile.networkInterfaces"},
		HasCustomEdges: true,
	},
	"microsoft.keyvault/vaults": {
		Required:       []string{"id", "name", "type"},
		PropertyPaths:  []string{"vaultUri", "accessPolicies"},
		HasCustomEdges: true,
	},
	"microsoft.network/networkinterfaces": {
		Required:       []string{"id", "name", "type"},
		PropertyPaths:  []string{"ipConfigurations", "virtualMachine", "networkSecurityGroup"},
		HasCustomEdges: true,
	},
	"microsoft.network/publicipaddresses": {
		Required: []string{"id", "name", "type"},
	},
	"microsoft.compute/disks": {
		Required:       []string{"id", "name", "type"},
		PropertyPaths:  []string{"managedBy"},
		HasCustomEdges: true,
	},
	"subscription": {
		Required:       []string{"id", "subscriptionId"},
		PropertyPaths:  []string{"tenantId", "managedByTenants"},
		HasCustomEdges: true,
	},
}

// aadSchemas documents the five AAD classes.
var aadSchemas = map[string]Schema{
	"User":             {Required: []string{"id"}},
	"Group":            {Required: []string{"id"}, PropertyPaths: []string{"members", "owners"}, HasCustomEdges: true},
	"ServicePrincipal": {Required: []string{"id"}, PropertyPaths: []string{"owners"}, HasCustomEdges: true},
	"Application":      {Required: []string{"id"}, PropertyPaths: []string{"owners"}, HasCustomEdges: true},
	"DirectoryRole":    {Required: []string{"id"}, PropertyPaths: []string{"members"}, HasCustomEdges: true},
}

// LookupARM returns the declared schema for an ARM type, if any is
// registered.
func LookupARM(armType string) (Schema, bool) {
	s, ok := armSchemas[strings.ToLower(armType)]
	return s, ok
}

// LookupAAD returns the declared schema for an AAD class, if any is
// registered.
func LookupAAD(class string) (Schema, bool) {
	s, ok := aadSchemas[class]
	return s, ok
}
