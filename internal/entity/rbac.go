package entity

// DeriveRBAC turns one RBAC assignment record into a single edge
// (principal_id) -<roleName-without-spaces>-> (scope); RBAC records
// create no node of their own. The role definition fields are carried as
// edge properties.
func DeriveRBAC(principalID, scope, roleName, roleType, description string, permissions []map[string]any) Result {
	relation := stripWhitespace(roleName)
	if relation == "" {
		relation = RelHasRole
	}

	props := map[string]any{
		"roleType":    roleType,
		"description": description,
	}
	if len(permissions) > 0 {
		var actions, notActions []any
		for _, p := range permissions {
			if a, ok := p["actions"]; ok {
				actions = append(actions, a)
			}
			if na, ok := p["notActions"]; ok {
				notActions = append(notActions, na)
			}
		}
		props["actions"] = actions
		props["notActions"] = notActions
	}

	return Result{
		Relationships: []Relationship{{
			SourceID:          lowerID(principalID),
			SourceFamilyLabel: FamilyAADObject,
			TargetID:          lowerID(scope),
			TargetFamilyLabel: FamilyARMResource,
			RelationName:      relation,
			Properties:        props,
		}},
	}
}
