package models

// Contact is a candidate CRM contact returned by GET /api/search_contacts.
type Contact struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	Address    string  `json:"address,omitempty"`
	City       string  `json:"city,omitempty"`
	State      string  `json:"state,omitempty"`
	Zip        string  `json:"zip,omitempty"`
	Confidence float64 `json:"confidence"`
}

type ContactSearchResponse struct {
	Contacts []Contact `json:"contacts"`
	Error    string    `json:"error,omitempty"`
}
