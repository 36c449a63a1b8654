package types

import "strings"

// PostalAddress is the address shape shared by saved delivery locations,
// supplier pickup locations, custom checkout addresses and purchase order
// headers.
type PostalAddress struct {
	LocationName  string `json:"location_name" gorm:"column:location_name"`
	StreetAddress string `json:"street_address" gorm:"column:street_address"`
	PostalCode    string `json:"postal_code" gorm:"column:postal_code"`
	Town          string `json:"town" gorm:"column:town"`
	Country       string `json:"country" gorm:"column:country"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (a PostalAddress) Trimmed() PostalAddress {
	return PostalAddress{
		LocationName:  strings.TrimSpace(a.LocationName),
		StreetAddress: strings.TrimSpace(a.StreetAddress),
		PostalCode:    strings.TrimSpace(a.PostalCode),
		Town:          strings.TrimSpace(a.Town),
		Country:       strings.TrimSpace(a.Country),
	}
}

// IsComplete reports whether the four deliverable fields are all present.
// LocationName is a label and is not required.
func (a PostalAddress) IsComplete() bool {
	t := a.Trimmed()
	return t.StreetAddress != "" && t.PostalCode != "" && t.Town != "" && t.Country != ""
}

// IsEmpty reports whether no field carries a value.
func (a PostalAddress) IsEmpty() bool {
	return a.Trimmed() == PostalAddress{}
}

// MissingFields lists the deliverable fields that are blank.
func (a PostalAddress) MissingFields() []string {
	t := a.Trimmed()
	missing := []string{}
	if t.StreetAddress == "" {
		missing = append(missing, "street_address")
	}
	if t.PostalCode == "" {
		missing = append(missing, "postal_code")
	}
	if t.Town == "" {
		missing = append(missing, "town")
	}
	if t.Country == "" {
		missing = append(missing, "country")
	}
	return missing
}
