package enums

// GroupState tracks a supplier group through checkout submission. NotifiedOk
// and Failed are terminal.
type GroupState string

const (
	GroupStateGrouped          GroupState = "grouped"
	GroupStateAddressResolving GroupState = "address_resolving"
	GroupStateContactResolving GroupState = "contact_resolving"
	GroupStateIDGenerating     GroupState = "id_generating"
	GroupStateHeaderPersisted  GroupState = "header_persisted"
	GroupStateLinesPersisted   GroupState = "lines_persisted"
	GroupStateNotifiedOk       GroupState = "notified_ok"
	GroupStateFailed           GroupState = "failed"
)

func (g GroupState) String() string { return string(g) }

// IsTerminal reports whether no further transitions are possible.
func (g GroupState) IsTerminal() bool {
	return g == GroupStateNotifiedOk || g == GroupStateFailed
}

// Succeeded reports whether the group ended with a persisted purchase order.
func (g GroupState) Succeeded() bool {
	return g == GroupStateNotifiedOk
}
