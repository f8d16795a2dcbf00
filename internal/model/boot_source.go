package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BootSource bundles kernel/initrd storage objects with kernel parameters.
// Immutable after creation.
type BootSource struct {
	Id            string  `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	Name          string  `json:"name" gorm:"column:name;uniqueIndex"`
	Description   *string `json:"description,omitempty" gorm:"column:description"`
	KernelImageID string  `json:"kernel_image_id" gorm:"column:kernel_image_id;type:varchar(36)"`
	KernelParams  *string `json:"kernel_params,omitempty" gorm:"column:kernel_params"`
	InitrdImageID *string `json:"initrd_image_id,omitempty" gorm:"column:initrd_image_id;type:varchar(36)"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (BootSource) TableName() string {
	return "boot_sources"
}

func (b *BootSource) BeforeCreate(tx *gorm.DB) error {
	if b.Id == "" {
		b.Id = uuid.NewString()
	}
	return nil
}
