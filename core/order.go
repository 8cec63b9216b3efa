package core

import "strings"

type (
	ShippingAddress struct {
		Name       string `json:"name"`
		Address    string `json:"address"`
		City       string `json:"city"`
		PostalCode string `json:"postalCode"`
		Country    string `json:"country"`
		Phone      string `json:"phone"`
	}

	// OrderMetadata accompanies the exported images of a custom garment order.
	OrderMetadata struct {
		Color           string                  `json:"color"`
		Designs         map[View][]DesignRecord `json:"designs"`
		Quantity        int                     `json:"quantity"`
		UnitPrice       int                     `json:"price"`
		TotalPrice      int                     `json:"totalPrice"`
		ShippingAddress ShippingAddress         `json:"shippingAddress"`
	}
)

// Missing returns the JSON names of the empty address fields in form order.
func (a ShippingAddress) Missing() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"address", a.Address},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
		{"phone", a.Phone},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
