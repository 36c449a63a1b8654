package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/procurement-backend/pkg/enums"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID     uuid.UUID
	Role       enums.MemberRole
	CompanyID  int64
	SupplierID int64
	SessionID  string
}

func (a Actor) Authenticated() bool { return a.UserID != uuid.Nil }

func (a Actor) Company() (int64, bool) { return a.CompanyID, a.CompanyID > 0 }

func (a Actor) Supplier() (int64, bool) { return a.SupplierID, a.SupplierID > 0 }

// LogFields omits tenant ids the actor does not have.
func (a Actor) LogFields() map[string]any {
	fields := map[string]any{"user_id": a.UserID.String(), "actor_role": a.Role.String()}
	if id, ok := a.Company(); ok {
		fields["company_id"] = id
	}
	if id, ok := a.Supplier(); ok {
		fields["supplier_id"] = id
	}
	return fields
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the zero Actor for unauthenticated requests.
func ActorFrom(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey{}).(Actor)
	return a
}
