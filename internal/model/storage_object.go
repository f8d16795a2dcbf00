package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StorageObjectType string

const (
	StorageObjectTypeKernel   StorageObjectType = "kernel"
	StorageObjectTypeInitrd   StorageObjectType = "initrd"
	StorageObjectTypeIso      StorageObjectType = "iso"
	StorageObjectTypeDisk     StorageObjectType = "disk"
	StorageObjectTypeSnapshot StorageObjectType = "snapshot"
	StorageObjectTypeOciImage StorageObjectType = "oci_image"
)

func ValidStorageObjectType(s string) bool {
	switch StorageObjectType(s) {
	case StorageObjectTypeKernel, StorageObjectTypeInitrd, StorageObjectTypeIso,
		StorageObjectTypeDisk, StorageObjectTypeSnapshot, StorageObjectTypeOciImage:
		return true
	}
	return false
}

// StorageObject is an immutable artifact inside a pool, produced by a
// completed transfer or registered explicitly.
type StorageObject struct {
	Id            string            `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	Name          string            `json:"name" gorm:"column:name"`
	StoragePoolID string            `json:"storage_pool_id" gorm:"column:storage_pool_id;type:varchar(36);index"`
	ObjectType    StorageObjectType `json:"object_type" gorm:"column:object_type"`
	SizeBytes     int64             `json:"size_bytes" gorm:"column:size_bytes"`
	Config        JSONMap           `json:"config" gorm:"column:config;type:text"`
	ParentID      *string           `json:"parent_id,omitempty" gorm:"column:parent_id;type:varchar(36)"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (StorageObject) TableName() string {
	return "storage_objects"
}

func (o *StorageObject) BeforeCreate(tx *gorm.DB) error {
	if o.Id == "" {
		o.Id = uuid.NewString()
	}
	return nil
}

// Path returns the artifact location within its pool.
func (o *StorageObject) Path() (string, bool) {
	return o.Config.StringValue("path")
}
