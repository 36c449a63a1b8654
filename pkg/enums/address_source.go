package enums

// AddressSource records which source a resolved address came from.
type AddressSource string

const (
	AddressSourceCustom           AddressSource = "custom"
	AddressSourceDeliveryLocation AddressSource = "delivery_location"
	AddressSourcePickupLocation   AddressSource = "pickup_location"
)

var addressSources = newValueSet("address source",
	AddressSourceCustom,
	AddressSourceDeliveryLocation,
	AddressSourcePickupLocation,
)

func (a AddressSource) String() string { return string(a) }

// IsValid reports whether the value is a known AddressSource.
func (a AddressSource) IsValid() bool { return addressSources.has(a) }

func ParseAddressSource(value string) (AddressSource, error) {
	return addressSources.parse(value)
}
