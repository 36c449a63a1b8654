package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// Claims is the access token body. Client tokens carry a company, supplier
// tokens a supplier; admins may carry neither.
type Claims struct {
	UserID     uuid.UUID        `json:"user_id"`
	Role       enums.MemberRole `json:"role"`
	CompanyID  *int64           `json:"company_id,omitempty"`
	SupplierID *int64           `json:"supplier_id,omitempty"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims pass.
func (c Claims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("user id is required")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("invalid member role %q", c.Role)
	}
	switch {
	case c.Role == enums.MemberRoleClient && !positive(c.CompanyID):
		return errors.New("client tokens require a company id")
	case c.Role == enums.MemberRoleSupplier && !positive(c.SupplierID):
		return errors.New("supplier tokens require a supplier id")
	}
	return nil
}

// Actor flattens the claims into what request handlers need.
func (c Claims) Actor() Actor {
	a := Actor{UserID: c.UserID, Role: c.Role, SessionID: c.ID}
	if positive(c.CompanyID) {
		a.CompanyID = *c.CompanyID
	}
	if positive(c.SupplierID) {
		a.SupplierID = *c.SupplierID
	}
	return a
}

func positive(id *int64) bool { return id != nil && *id > 0 }
