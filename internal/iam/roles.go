package iam

// Role is a named authorisation tier with a stable bit position. Role sets
// travel through the database and token claims as the bitwise OR of their
// member values.
type Role uint64

// Role bit values. Bit positions are part of the stored data format and must
// never be reassigned.
const (
	// RoleUser is a rider: rent bikes, report damages, manage own profile.
	RoleUser Role = 1 << 0

	// RoleTechnician services bikes and stations: maintenance, damage
	// resolution, dock diagnostics.
	RoleTechnician Role = 1 << 1

	// RoleManager operates the fleet: stations, pricing, rebalancing,
	// rental oversight.
	RoleManager Role = 1 << 2

	// RoleAdmin administers the platform: tenants, identities, roles.
	RoleAdmin Role = 1 << 3
)

// roleNames maps each role bit to its canonical claim name. This is the
// single source of truth for the role vocabulary.
var roleNames = map[Role]string{
	RoleUser:       "USER",
	RoleTechnician: "TECHNICIAN",
	RoleManager:    "MANAGER",
	RoleAdmin:      "ADMIN",
}

// orderedRoles fixes the decode iteration order (ascending bit position) so
// DecodeRoles output is deterministic.
var orderedRoles = []Role{RoleUser, RoleTechnician, RoleManager, RoleAdmin}

// Name returns the canonical claim name for a single role, or "" if the
// value is not a defined role.
func (r Role) Name() string {
	return roleNames[r]
}

// RoleFromName returns the role bit for a canonical name. The second return
// is false for unknown names.
func RoleFromName(name string) (Role, bool) {
	for role, n := range roleNames {
		if n == name {
			return role, true
		}
	}
	return 0, false
}

// EncodeRoles packs a set of canonical role names into a bitmask. Unknown
// names are dropped, mirroring DecodeRoles' treatment of unknown bits.
// An empty set encodes to zero.
func EncodeRoles(names []string) uint64 {
	var mask uint64
	for _, name := range names {
		if role, ok := RoleFromName(name); ok {
			mask |= uint64(role)
		}
	}
	return mask
}

// DecodeRoles expands a bitmask into the canonical names of every defined
// role whose bit is set. Bits outside the defined roles are dropped without
// error (a newer writer may know roles this binary does not) and never
// produce a name. DecodeRoles(0) returns an empty set.
//
// DecodeRoles(EncodeRoles(s)) == s for any s of known names;
// EncodeRoles(DecodeRoles(m)) may be a subset of m. The asymmetry is
// intentional.
func DecodeRoles(mask uint64) []string {
	names := make([]string, 0, len(orderedRoles))
	for _, role := range orderedRoles {
		if mask&uint64(role) != 0 {
			names = append(names, roleNames[role])
		}
	}
	return names
}

// HasRole reports whether the mask contains the given role's bit.
func HasRole(mask uint64, role Role) bool {
	return mask&uint64(role) != 0
}
