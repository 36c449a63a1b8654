package enums

// MemberRole identifies which side of the marketplace a user acts for.
type MemberRole string

const (
	MemberRoleClient   MemberRole = "client"
	MemberRoleSupplier MemberRole = "supplier"
	MemberRoleAdmin    MemberRole = "admin"
)

var memberRoles = newValueSet("member role",
	MemberRoleClient,
	MemberRoleSupplier,
	MemberRoleAdmin,
)

func (m MemberRole) String() string { return string(m) }

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool { return memberRoles.has(m) }

func ParseMemberRole(value string) (MemberRole, error) {
	return memberRoles.parse(value)
}
