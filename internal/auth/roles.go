package auth

import (
	"strings"

	"storefront/internal/models"
)

var roleRank = map[models.Role]int{
	models.RoleUser:        1,
	models.RoleAdmin:       2,
	models.RoleMasterAdmin: 3,
}

// Rank places a role on the user < admin < master_admin lattice. Unknown
// roles rank below every known role.
func Rank(r models.Role) int {
	return roleRank[r]
}

// AtLeast reports whether r grants at least the privileges of min.
func AtLeast(r, min models.Role) bool {
	rank := Rank(r)
	return rank > 0 && rank >= Rank(min)
}

// IsAdminLevel is true for admin and master_admin.
func IsAdminLevel(r models.Role) bool {
	return AtLeast(r, models.RoleAdmin)
}

// ParseRole accepts the persisted spelling of a role only.
func ParseRole(s string) (models.Role, bool) {
	r := models.Role(strings.TrimSpace(s))
	if _, ok := roleRank[r]; !ok {
		return "", false
	}
	return r, true
}
