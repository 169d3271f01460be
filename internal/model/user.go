package model

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/iyhunko/mechanic-matching/internal/geo"
)

// Role is a named capability tag held by a user.
type Role string

const (
	// RoleClient requests services for their vehicles.
	RoleClient Role = "cliente"
	// RoleMechanic accepts and performs service requests.
	RoleMechanic Role = "mecanico"
	// RoleAdmin manages users and verifies mechanics.
	RoleAdmin Role = "administrador"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleMechanic, RoleAdmin:
		return true
	}
	return false
}

// RoleSet is the set of roles held by a user.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Has reports whether the set contains r.
func (s RoleSet) Has(r Role) bool {
	_, ok := s[r]
	return ok
}

// HasAny reports whether the set contains at least one of roles.
func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Add inserts r into the set.
func (s RoleSet) Add(r Role) {
	s[r] = struct{}{}
}

// Remove deletes r from the set.
func (s RoleSet) Remove(r Role) {
	delete(s, r)
}

// Slice returns the roles sorted by name.
func (s RoleSet) Slice() []Role {
	roles := make([]Role, 0, len(s))
	for r := range s {
		roles = append(roles, r)
	}
	slices.Sort(roles)
	return roles
}

// Strings returns the sorted role names.
func (s RoleSet) Strings() []string {
	roles := s.Slice()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s RoleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

// User is an identity with a role set and an optional stored location.
type User struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	PasswordHash       string
	Phone              string
	Address            string
	City               string
	State              string
	PostalCode         string
	Latitude           *float64
	Longitude          *float64
	LastLocationUpdate *time.Time
	IsActive           bool
	Roles              RoleSet
	UpdatedAt          time.Time
	CreatedAt          time.Time
}

// InitMeta initializes the user metadata including ID and timestamps.
func (u *User) InitMeta() {
	u.ID = uuid.New()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Roles == nil {
		u.Roles = NewRoleSet()
	}
}

// HasRole reports whether the user holds r.
func (u *User) HasRole(r Role) bool {
	return u.Roles.Has(r)
}

// IsAdmin reports whether the user holds the administrator role.
func (u *User) IsAdmin() bool {
	return u.Roles.Has(RoleAdmin)
}

// Location returns the stored coordinates, if any.
func (u *User) Location() (geo.Point, bool) {
	if u.Latitude == nil || u.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Latitude: *u.Latitude, Longitude: *u.Longitude}, true
}

// SetLocation stores p as the user's location.
func (u *User) SetLocation(p geo.Point, at time.Time) {
	lat, lon := p.Latitude, p.Longitude
	u.Latitude = &lat
	u.Longitude = &lon
	u.LastLocationUpdate = &at
}
