package cart

import (
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
)

// Owner identifies one cart: a user acting for a company.
type Owner struct {
	CompanyID int64
	UserID    uuid.UUID
}

func (o Owner) validate() error {
	if o.CompanyID <= 0 {
		return pkgerrors.New(pkgerrors.CodeForbidden, "company context required")
	}
	if o.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	return nil
}
