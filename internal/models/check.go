package models

// Check mirrors the upstream check record returned by GET/PUT /api/check/{id}.
type Check struct {
	ID                 int      `json:"id"`
	BatchID            int      `json:"batch_id"`
	PageNumber         int      `json:"page_number"`
	Amount             *float64 `json:"amount"`
	CheckDate          *string  `json:"check_date"`
	CheckNumber        *string  `json:"check_number"`
	Name               *string  `json:"name"`
	AddressLine1       *string  `json:"address_line1"`
	AddressLine2       *string  `json:"address_line2"`
	City               *string  `json:"city"`
	State              *string  `json:"state"`
	ZipCode            *string  `json:"zip_code"`
	HubspotContactID   *string  `json:"hubspot_contact_id"`
	HubspotContactName *string  `json:"hubspot_contact_name"`
	MatchConfidence    float64  `json:"match_confidence"`
	IsMoneyOrder       bool     `json:"is_money_order"`
	NeedsReview        bool     `json:"needs_review"`
	HubspotDealID      *string  `json:"hubspot_deal_id"`
	CheckImagePath     *string  `json:"check_image_path"`
	BuckslipImagePath  *string  `json:"buckslip_image_path"`
}

// EditableFields are the check fields a reviewer may autosave.
var EditableFields = map[string]bool{
	"amount":        true,
	"check_date":    true,
	"check_number":  true,
	"name":          true,
	"address_line1": true,
	"address_line2": true,
	"city":          true,
	"state":         true,
	"zip_code":      true,
}

// Str dereferences an optional upstream string.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
