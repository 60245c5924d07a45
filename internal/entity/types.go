// Package entity reconstructs typed graph nodes and derives the
// relationships implicit in AAD and ARM records, per a schema keyed by
// ARM resource type or AAD class.
package entity

import "strings"

// Family labels. Every node carries exactly one, plus a more specific
// class label.
const (
	FamilyAADObject   = "AADObject"
	FamilyARMResource = "ARMResource"
)

// The closed relation-name vocabulary, plus RBAC role names (derived,
// not listed here).
const (
	RelContains          = "Contains"
	RelMemberOf          = "MemberOf"
	RelOwns              = "Owns"
	RelHasAccessPolicies = "HasAccessPolicies"
	RelAttachedTo        = "AttachedTo"
	RelAssociatedTo      = "AssociatedTo"
	RelExposes           = "Exposes"
	RelHasConfig         = "HasConfig"
	RelIs                = "Is"
	RelManages           = "Manages"
	RelTrusts            = "Trusts"
	RelAuthenticates     = "Authenticates"
	RelConnectedTo       = "ConnectedTo"
	RelRepresentedBy     = "RepresentedBy"
	RelHasRbac           = "HasRbac"
	RelHasRole           = "HasRole"
)

// Node is a graph node: a class label (most specific type), a family
// label, a unique id within that family, and a flat property bag.
type Node struct {
	ID          string
	ClassLabel  string
	FamilyLabel string
	Properties  map[string]any
}

// Relationship is a graph edge. Properties are optional edge attributes.
type Relationship struct {
	SourceID          string
	SourceFamilyLabel string
	TargetID          string
	TargetFamilyLabel string
	RelationName      string
	Properties        map[string]any
}

// Result is everything one Record's derivation produced: the primary
// node (absent for RBAC records, which are edge-only) plus any number of
// relationships and synthesized auxiliary nodes (e.g. managed identities).
type Result struct {
	Nodes         []Node
	Relationships []Relationship
}

func lowerID(id string) string {
	return strings.ToLower(id)
}
