package auth

import "github.com/dmitrijs2005/supportchat/internal/server/models"

// CanAccess decides whether the bearer of id may read or write a resource
// owned by ownerID. Unowned resources are open to everyone, including
// callers without a token. Owned resources require the owner or an admin.
func CanAccess(id *Identity, ownerID *string) bool {
	if ownerID == nil {
		return true
	}
	if id == nil {
		return false
	}
	return id.UserID == *ownerID || id.Role == models.RoleAdmin
}
