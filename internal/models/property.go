// internal/models/property.go
package models

import "time"

// Property is a listing returned by the property search handler.
type Property struct {
	ID           string   `json:"id"`
	MLSNumber    string   `json:"mls_number,omitempty"`
	Address      string   `json:"address"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	ZipCode      string   `json:"zip_code,omitempty"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	Price        float64  `json:"price"`
	Bedrooms     int      `json:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms"`
	SquareFeet   int      `json:"square_footage,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Status       string   `json:"status,omitempty"`
	DaysOnMarket int      `json:"days_on_market,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// ComplianceRecord is a regulation snippet returned by the compliance search
// handler.
type ComplianceRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Category      string    `json:"category,omitempty"`
	Jurisdiction  string    `json:"jurisdiction,omitempty"`
	Summary       string    `json:"summary"`
	Citation      string    `json:"citation,omitempty"`
	EffectiveDate time.Time `json:"effective_date,omitempty"`
	Score         float64   `json:"score,omitempty"`
}

// Lead is a CRM record created by the crm_action handler.
type Lead struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Name      string            `json:"name,omitempty"`
	Email     string            `json:"email,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	Source    string            `json:"source"`
	Status    string            `json:"status"`
	Notes     string            `json:"notes,omitempty"`
	Entities  ExtractedEntities `json:"entities"`
	CreatedAt time.Time         `json:"created_at"`
}
