package entity

import "strings"

// deriveTypeSpecific implements §4H's non-exhaustive type-specific edge
// rules. Types not named here derive no edges beyond the default
// resource-group Contains edge and managed-identity Is edge already
// handled by DeriveARM.
func deriveTypeSpecific(armType string, id string, raw map[string]any) []Relationship {
	switch strings.ToLower(armType) {
	case "microsoft.keyvault/vaults":
		return deriveKeyVault(id, raw)
	case "microsoft.network/networkinterfaces":
		return deriveNetworkInterface(id, raw)
	case "microsoft.network/publicipaddresses":
		return derivePublicIP(id, raw)
	case "microsoft.compute/virtualmachines":
		return deriveVirtualMachine(id, raw)
	case "subscription":
		return deriveSubscription(id, raw)
	case "microsoft.compute/disks":
		return deriveDisk(id, raw)
	default:
		return nil
	}
}

func properties(raw map[string]any) map[string]any {
	props, _ := raw["properties"].(map[string]any)
	return props
}

// deriveKeyVault emits one (objectId) -HasAccessPolicies-> (vault) edge
// per accessPolicies[i], with permissions as edge properties.
func deriveKeyVault(vaultID string, raw map[string]any) []Relationship {
	props := properties(raw)
	policies, _ := props["accessPolicies"].([]any)

	rels := make([]Relationship, 0, len(policies))
	for _, p := range policies {
		policy, ok := p.(map[string]any)
		if !ok {
			continue
		}
		objectID := lowerID(stringField(policy, "objectId"))
		if objectID == "" {
			continue
		}
		permissions, _ := policy["permissions"].(map[string]any)
		rels = append(rels, Relationship{
			SourceID:          objectID,
			SourceFamilyLabel: FamilyAADObject,
			TargetID:          vaultID,
			TargetFamilyLabel: FamilyARMResource,
			RelationName:      RelHasAccessPolicies,
			Properties:        permissions,
		})
	}
	return rels
}

// deriveNetworkInterface emits (nic) -AttachedTo-> (vm) and
// (nic) -AssociatedTo-> (nsg) when the properties reference them.
func deriveNetworkInterface(nicID string, raw map[string]any) []Relationship {
	props := properties(raw)
	var rels []Relationship

	if vm, ok := refID(props, "virtualMachine"); ok {
		rels = append(rels, Relationship{
			SourceID:          nicID,
			SourceFamilyLabel: FamilyARMResource,
			TargetID:          vm,
			TargetFamilyLabel: FamilyARMResource,
			RelationName:      RelAttachedTo,
		})
	}

	if nsg, ok := refID(props, "networkSecurityGroup"); ok {
		rels = append(rels, Relationship{
			SourceID:          nicID,
			SourceFamilyLabel: FamilyARMResource,
			TargetID:          nsg,
			TargetFamilyLabel: FamilyARMResource,
			RelationName:      RelAssociatedTo,
		})
	}

	if configs, ok := props["ipConfigurations"].([]any); ok {
		for _, c := range configs {
			cfg, ok := c.(map[string]any)
			if !ok {
				continue
			}
			cfgID := lowerID(stringField(cfg, "id"))
			cfgProps, _ := cfg["properties"].(map[string]any)
			if pip, ok := refID(cfgProps, "publicIPAddress"); ok && cfgID != "" {
				rels = append(rels, Relationship{
					SourceID:          cfgID,
					SourceFamilyLabel: FamilyARMResource,
					TargetID:          pip,
					TargetFamilyLabel: FamilyARMResource,
					RelationName:      RelExposes,
				})
			}
		}
	}

	return rels
}

// derivePublicIP is folded into deriveNetworkInterface (the edge is
// sourced from the NIC's ipConfiguration); nothing further to derive
// from the public IP resource itself.
func derivePublicIP(string, map[string]any) []Relationship {
	return nil
}

// deriveVirtualMachine emits (osDisk) -AttachedTo-> (vm) and one edge per
// attached network interface.
func deriveVirtualMachine(vmID string, raw map[string]any) []Relationship {
	props := properties(raw)
	var rels []Relationship

	storageProfile, _ := props["storageProfile"].(map[string]any)
	if osDisk, ok := refID(storageProfile, "osDisk"); ok {
		rels = append(rels, Relationship{
			SourceID:          osDisk,
			SourceFamilyLabel: FamilyARMResource,
			TargetID:          vmID,
			TargetFamilyLabel: FamilyARMResource,
			RelationName:      RelAttachedTo,
		})
	}

	networkProfile, _ := props["networkProfile"].(map[string]any)
	if nics, ok := networkProfile["networkInterfaces"].([]any); ok {
		for _, n := range nics {
			nic, ok := n.(map[string]any)
			if !ok {
				continue
			}
			nicID := lowerID(stringField(nic, "id"))
			if nicID == "" {
				continue
			}
			rels = append(rels, Relationship{
				SourceID:          nicID,
				SourceFamilyLabel: FamilyARMResource,
				TargetID:          vmID,
				TargetFamilyLabel: FamilyARMResource,
				RelationName:      RelAttachedTo,
			})
		}
	}

	return rels
}

// deriveSubscription emits (/tenants/{tenantId}) -Contains-> (sub), plus
// a Manages edge for each managed_by_tenants entry; DeriveARM adds the
// synthesized Tenant node for each Manages source.
func deriveSubscription(subID string, raw map[string]any) []Relationship {
	tenantID := lowerID(stringField(raw, "tenantId", "tenant_id"))
	var rels []Relationship
	if tenantID != "" {
		rels = append(rels, Relationship{
			SourceID:          "/tenants/" + tenantID,
			SourceFamilyLabel: FamilyARMResource,
			TargetID:          subID,
			TargetFamilyLabel: FamilyARMResource,
			RelationName:      RelContains,
		})
	}

	managedBy, _ := raw["managedByTenants"].([]any)
	for _, m := range managedBy {
		entry, ok := m.(map[string]any)
		if !ok {
			continue
		}
		managingTenant := lowerID(stringField(entry, "tenantId"))
		if managingTenant == "" {
			continue
		}
		rels = append(rels, Relationship{
			SourceID:          "/tenants/" + managingTenant,
			SourceFamilyLabel: FamilyARMResource,
			TargetID:          subID,
			TargetFamilyLabel: FamilyARMResource,
			RelationName:      RelManages,
		})
	}

	return rels
}

// deriveDisk emits (disk) -AttachedTo-> (owner) from disk.managedBy.
func deriveDisk(diskID string, raw map[string]any) []Relationship {
	managedBy := lowerID(stringField(raw, "managedBy"))
	if managedBy == "" {
		return nil
	}
	return []Relationship{{
		SourceID:          diskID,
		SourceFamilyLabel: FamilyARMResource,
		TargetID:          managedBy,
		TargetFamilyLabel: FamilyARMResource,
		RelationName:      RelAttachedTo,
	}}
}

// refID extracts a nested {"id": "..."} reference's resource ID.
func refID(props map[string]any, key string) (string, bool) {
	ref, ok := props[key].(map[string]any)
	if !ok {
		return "", false
	}
	id := stringField(ref, "id")
	if id == "" {
		return "", false
	}
	return lowerID(id), true
}
