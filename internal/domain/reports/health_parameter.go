package reports

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ParameterStatusPending  = "pending"
	ParameterStatusApproved = "approved"
	ParameterStatusRejected = "rejected"
)

// HealthParameter is one recognized measurement. NormalizedName is the
// identity key: at most one non-rejected row per key exists system-wide,
// enforced by a partial unique index (see db.EnsureParameterIndexes).
//
// Rows are never soft-deleted; a deleted_at column would keep tombstones
// inside the unique index.
type HealthParameter struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID uuid.UUID `gorm:"type:uuid;not null;index" json:"report_id"`
	Report   *Report   `gorm:"constraint:OnDelete:CASCADE;foreignKey:ReportID;references:ID" json:"-"`

	ParameterName  string  `gorm:"column:parameter_name;not null" json:"parameter_name"`
	NormalizedName string  `gorm:"column:normalized_name;not null;index" json:"normalized_name"`
	Value          string  `gorm:"column:value;not null" json:"value"`
	Unit           string  `gorm:"column:unit" json:"unit,omitempty"`
	ReferenceRange *string `gorm:"column:reference_range" json:"reference_range,omitempty"`
	Method         *string `gorm:"column:method" json:"method,omitempty"`

	Status          string    `gorm:"column:status;not null;default:'pending';index" json:"status"`
	ActionTimestamp time.Time `gorm:"column:action_timestamp;not null" json:"action_timestamp"`
	ApprovedBy      *string   `gorm:"column:approved_by" json:"approved_by,omitempty"`
	Remarks         *string   `gorm:"column:remarks" json:"remarks,omitempty"`
	MapToExisting   *string   `gorm:"column:map_to_existing" json:"map_to_existing,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (HealthParameter) TableName() string { return "health_parameter" }

func (p *HealthParameter) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ParameterStatusPending
	}
	if p.ActionTimestamp.IsZero() {
		p.ActionTimestamp = time.Now().UTC()
	}
	return nil
}

func (p *HealthParameter) IsRejected() bool { return p != nil && p.Status == ParameterStatusRejected }
