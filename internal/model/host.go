package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HostStatus string

const (
	HostStatusUnknown            HostStatus = "unknown"
	HostStatusDown               HostStatus = "down"
	HostStatusInstalling         HostStatus = "installing"
	HostStatusInstallationFailed HostStatus = "installation_failed"
	HostStatusInitializing       HostStatus = "initializing"
	HostStatusUp                 HostStatus = "up"
)

// ValidHostStatus reports whether s is a known host status value.
func ValidHostStatus(s string) bool {
	switch HostStatus(s) {
	case HostStatusUnknown, HostStatusDown, HostStatusInstalling,
		HostStatusInstallationFailed, HostStatusInitializing, HostStatusUp:
		return true
	}
	return false
}

type Host struct {
	Id       string     `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	Name     string     `json:"name" gorm:"column:name;uniqueIndex"`
	Address  string     `json:"address" gorm:"column:address;uniqueIndex:idx_host_endpoint"`
	Port     int        `json:"port" gorm:"column:port;uniqueIndex:idx_host_endpoint"`
	Status   HostStatus `json:"status" gorm:"column:status;default:unknown"`
	HostUser string     `json:"host_user" gorm:"column:host_user"`
	Password string     `json:"-" gorm:"column:password"`

	CloudHypervisorVersion *string `json:"cloud_hypervisor_version,omitempty" gorm:"column:cloud_hypervisor_version"`
	KernelVersion          *string `json:"kernel_version,omitempty" gorm:"column:kernel_version"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Host) TableName() string {
	return "hosts"
}

func (h *Host) BeforeCreate(tx *gorm.DB) error {
	if h.Id == "" {
		h.Id = uuid.NewString()
	}
	if h.Status == "" {
		h.Status = HostStatusUnknown
	}
	return nil
}
