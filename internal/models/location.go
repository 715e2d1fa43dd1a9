package models

import "strings"

// LocationRef identifies an airport or city. SkyID and EntityID together are
// the identity; DisplayName and Code are presentation only.
type LocationRef struct {
	SkyID       string `json:"sky_id"`
	EntityID    string `json:"entity_id"`
	DisplayName string `json:"display_name,omitempty"`
	Code        string `json:"code,omitempty"`
}

func (l LocationRef) IsZero() bool {
	return l.SkyID == "" && l.EntityID == ""
}

// SameAs compares identity fields only.
func (l LocationRef) SameAs(other LocationRef) bool {
	return l.SkyID == other.SkyID && l.EntityID == other.EntityID
}

// Airport is a location lookup result with its presentation metadata.
type Airport struct {
	SkyID         string `json:"sky_id"`
	EntityID      string `json:"entity_id"`
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle,omitempty"`
	EntityType    string `json:"entity_type,omitempty"`
	LocalizedName string `json:"localized_name,omitempty"`
}

// Ref converts a lookup result into the reference stored on a search.
func (a Airport) Ref() LocationRef {
	code := a.SkyID
	if fields := strings.Fields(a.LocalizedName); len(fields) > 0 {
		code = fields[0]
	}
	return LocationRef{
		SkyID:       a.SkyID,
		EntityID:    a.EntityID,
		DisplayName: a.Title,
		Code:        code,
	}
}
