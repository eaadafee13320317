package reports

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProcessingStatusPending = "pending"
	ProcessingStatusSuccess = "success"
	ProcessingStatusFailure = "failure"
)

type Report struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID  string    `gorm:"column:external_id;not null;uniqueIndex" json:"external_id"`
	ClientID    string    `gorm:"column:client_id;not null;index" json:"client_id"`
	ReportName  string    `gorm:"column:report_name;not null" json:"report_name"`
	ContentType string    `gorm:"column:content_type" json:"content_type"`
	StorageKey  string    `gorm:"column:storage_key;not null" json:"storage_key"`
	StorageURI  string    `gorm:"column:storage_uri" json:"storage_uri"`

	ProcessingStatus string `gorm:"column:processing_status;not null;default:'pending';index" json:"processing_status"`

	LastExtractedAt       *time.Time     `gorm:"column:last_extracted_at;index" json:"last_extracted_at,omitempty"`
	LastError             string         `gorm:"column:last_error" json:"last_error,omitempty"`
	ExtractionDiagnostics datatypes.JSON `gorm:"column:extraction_diagnostics" json:"extraction_diagnostics,omitempty"`

	UploadedAt time.Time      `gorm:"column:uploaded_at;not null;index" json:"uploaded_at"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Report) TableName() string { return "report" }

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.UploadedAt.IsZero() {
		r.UploadedAt = time.Now().UTC()
	}
	if r.ProcessingStatus == "" {
		r.ProcessingStatus = ProcessingStatusPending
	}
	return nil
}

// ExtractionDiagnostics is the JSON shape stored on Report after each pass.
type ExtractionDiagnostics struct {
	Candidates int    `json:"candidates"`
	Validated  int    `json:"validated"`
	Inserted   int    `json:"inserted"`
	Reopened   int    `json:"reopened"`
	Rehomed    int    `json:"rehomed"`
	Conflicts  int    `json:"conflicts"`
	FastPath   bool   `json:"fast_path"`
	MirrorOK   bool   `json:"mirror_ok"`
	ErrorKind  string `json:"error_kind,omitempty"`
}
