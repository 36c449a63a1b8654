package enums

// DeliveryMethod is how a supplier group reaches the buyer.
type DeliveryMethod string

const (
	DeliveryMethodShipping DeliveryMethod = "shipping"
	DeliveryMethodPickup   DeliveryMethod = "pickup"
)

var deliveryMethods = newValueSet("delivery method",
	DeliveryMethodShipping,
	DeliveryMethodPickup,
)

func (d DeliveryMethod) String() string { return string(d) }

// IsValid reports whether the value is a known DeliveryMethod.
func (d DeliveryMethod) IsValid() bool { return deliveryMethods.has(d) }

func ParseDeliveryMethod(value string) (DeliveryMethod, error) {
	return deliveryMethods.parse(value)
}
