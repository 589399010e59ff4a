// Package identity defines the caller read model supplied by the external
// identity provider. The engine consumes it for authorization gating only.
package identity

// Role is a caller's role as asserted by the identity provider.
type Role string

const (
	RoleResearcher Role = "researcher"
	RoleReviewer   Role = "reviewer"
	RoleEditor     Role = "editor"
	RoleAdmin      Role = "admin"
)

// Caller identifies an authenticated caller.
type Caller struct {
	ID   string
	Role Role
}

// IsEditor reports whether the caller may perform editorial operations
// (assignment, decisions).
func (c Caller) IsEditor() bool {
	return c.Role == RoleEditor || c.Role == RoleAdmin
}

// IsAdmin reports whether the caller has administrative override.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Owns reports whether the caller owns the entity created by ownerID.
func (c Caller) Owns(ownerID string) bool {
	return c.ID != "" && c.ID == ownerID
}

// CanEditPaper reports whether the caller may mutate a paper owned by ownerID.
func (c Caller) CanEditPaper(ownerID string) bool {
	return c.Owns(ownerID) || c.IsAdmin()
}
