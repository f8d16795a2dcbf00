package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StoragePoolType string

const (
	StoragePoolTypeLocal StoragePoolType = "local"
	StoragePoolTypeNfs   StoragePoolType = "nfs"
)

func ValidStoragePoolType(s string) bool {
	switch StoragePoolType(s) {
	case StoragePoolTypeLocal, StoragePoolTypeNfs:
		return true
	}
	return false
}

type StoragePoolStatus string

const (
	StoragePoolStatusActive   StoragePoolStatus = "active"
	StoragePoolStatusInactive StoragePoolStatus = "inactive"
	StoragePoolStatusError    StoragePoolStatus = "error"
)

type StoragePool struct {
	Id       string            `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	Name     string            `json:"name" gorm:"column:name;uniqueIndex"`
	PoolType StoragePoolType   `json:"pool_type" gorm:"column:pool_type"`
	Status   StoragePoolStatus `json:"status" gorm:"column:status;default:active"`
	HostID   *string           `json:"host_id,omitempty" gorm:"column:host_id;type:varchar(36);index"`
	Config   JSONMap           `json:"config" gorm:"column:config;type:text"`

	CapacityBytes  *int64 `json:"capacity_bytes,omitempty" gorm:"column:capacity_bytes"`
	AllocatedBytes *int64 `json:"allocated_bytes,omitempty" gorm:"column:allocated_bytes"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (StoragePool) TableName() string {
	return "storage_pools"
}

func (p *StoragePool) BeforeCreate(tx *gorm.DB) error {
	if p.Id == "" {
		p.Id = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StoragePoolStatusActive
	}
	return nil
}

// Path returns the filesystem location the pool materializes objects under.
func (p *StoragePool) Path() (string, bool) {
	return p.Config.StringValue("path")
}
