package models

// Batch mirrors an entry of GET /api/batches.
type Batch struct {
	ID             int      `json:"id"`
	Filename       string   `json:"filename"`
	AppealCode     string   `json:"appeal_code"`
	UploadDate     *string  `json:"upload_date"`
	Status         string   `json:"status"`
	TotalChecks    int      `json:"total_checks"`
	ExpectedAmount *float64 `json:"expected_amount"`
	SubmittedDate  *string  `json:"submitted_date"`
}

// AppealCodes lists the appeal codes the upstream service accepts on upload.
var AppealCodes = map[string]string{
	"035": "Bank Check",
	"020": "General Mail",
}

const DefaultAppealCode = "020"

// ProcessingStatus is one server-sent event of GET /api/status/{batchId}.
type ProcessingStatus struct {
	Status      string `json:"status"`
	CurrentPage int    `json:"current_page,omitempty"`
	TotalPages  int    `json:"total_pages,omitempty"`
	ChecksFound int    `json:"checks_found,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Terminal reports whether no further status events follow.
func (s ProcessingStatus) Terminal() bool {
	return s.Status == "complete" || s.Status == "error"
}

// SubmitResponse is the body of POST /api/submit/{batchId}.
type SubmitResponse struct {
	Success      bool     `json:"success"`
	DealsCreated int      `json:"deals_created"`
	Errors       []string `json:"errors,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// UploadResponse is the body of POST /upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	BatchID  int    `json:"batch_id,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Error    string `json:"error,omitempty"`
}
