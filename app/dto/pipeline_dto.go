package dto

// UploadListRequest carries the form fields accompanying a contact list upload
type UploadListRequest struct {
	TenantID uint   `json:"tenant_id" form:"tenant_id" validate:"required"`
	Mode     string `json:"mode" form:"mode" validate:"omitempty,oneof=append match-append"`
}

// ParseStatsResponse reports parse-level counters for an uploaded file
type ParseStatsResponse struct {
	RowsTotal     int `json:"rows_total"`
	RowsDropped   int `json:"rows_dropped"`
	InvalidEmails int `json:"invalid_emails"`
}

// UploadListResponse summarizes one reconciliation run over an uploaded file
type UploadListResponse struct {
	Message      string             `json:"message"`
	SourceFile   string             `json:"source_file"`
	Mode         string             `json:"mode"`
	Total        int                `json:"total"`
	Created      int                `json:"created"`
	Updated      int                `json:"updated"`
	Skipped      int                `json:"skipped"`
	NoIdentifier int                `json:"no_identifier"`
	Errors       []string           `json:"errors,omitempty"`
	Stats        ParseStatsResponse `json:"stats"`
}

// HealthResponse reports service liveness
type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
	Version     string `json:"version"`
}
