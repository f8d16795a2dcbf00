package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransferType string

const (
	TransferTypeLocalCopy TransferType = "local_copy"
	TransferTypeDownload  TransferType = "download"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusRunning   TransferStatus = "running"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s TransferStatus) Terminal() bool {
	return s == TransferStatusCompleted || s == TransferStatusFailed
}

type Transfer struct {
	Id            string            `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	Name          string            `json:"name" gorm:"column:name"`
	TransferType  TransferType      `json:"transfer_type" gorm:"column:transfer_type"`
	Status        TransferStatus    `json:"status" gorm:"column:status;default:pending"`
	Source        string            `json:"source" gorm:"column:source"`
	StoragePoolID string            `json:"storage_pool_id" gorm:"column:storage_pool_id;type:varchar(36);index"`
	ObjectType    StorageObjectType `json:"object_type" gorm:"column:object_type"`

	StorageObjectID  *string `json:"storage_object_id,omitempty" gorm:"column:storage_object_id;type:varchar(36)"`
	TotalBytes       *int64  `json:"total_bytes,omitempty" gorm:"column:total_bytes"`
	TransferredBytes int64   `json:"transferred_bytes" gorm:"column:transferred_bytes"`
	ErrorMessage     *string `json:"error_message,omitempty" gorm:"column:error_message"`

	CreatedAt   time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
	StartedAt   *time.Time `json:"started_at,omitempty" gorm:"column:started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
}

func (Transfer) TableName() string {
	return "transfers"
}

func (t *Transfer) BeforeCreate(tx *gorm.DB) error {
	if t.Id == "" {
		t.Id = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TransferStatusPending
	}
	return nil
}
