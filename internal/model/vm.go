package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Hypervisor string

const (
	HypervisorCloudHv Hypervisor = "cloud_hv"
)

type VmStatus string

const (
	VmStatusUnknown  VmStatus = "unknown"
	VmStatusCreated  VmStatus = "created"
	VmStatusRunning  VmStatus = "running"
	VmStatusPaused   VmStatus = "paused"
	VmStatusShutdown VmStatus = "shutdown"
)

type Vm struct {
	Id     string   `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	Name   string   `json:"name" gorm:"column:name;uniqueIndex"`
	HostID *string  `json:"host_id,omitempty" gorm:"column:host_id;type:varchar(36);index"`
	Status VmStatus `json:"status" gorm:"column:status;default:created"`

	Hypervisor   Hypervisor `json:"hypervisor" gorm:"column:hypervisor;default:cloud_hv"`
	BootSourceID *string    `json:"boot_source_id,omitempty" gorm:"column:boot_source_id;type:varchar(36)"`
	Description  *string    `json:"description,omitempty" gorm:"column:description"`

	BootVcpus   int     `json:"boot_vcpus" gorm:"column:boot_vcpus"`
	MaxVcpus    int     `json:"max_vcpus" gorm:"column:max_vcpus"`
	CPUTopology JSONMap `json:"cpu_topology,omitempty" gorm:"column:cpu_topology;type:text"`
	KvmHyperv   bool    `json:"kvm_hyperv" gorm:"column:kvm_hyperv"`

	MemorySize         int64  `json:"memory_size" gorm:"column:memory_size"`
	MemoryHotplugSize  *int64 `json:"memory_hotplug_size,omitempty" gorm:"column:memory_hotplug_size"`
	MemoryMergeable    bool   `json:"memory_mergeable" gorm:"column:memory_mergeable"`
	MemoryShared       bool   `json:"memory_shared" gorm:"column:memory_shared"`
	MemoryHugepages    bool   `json:"memory_hugepages" gorm:"column:memory_hugepages"`
	MemoryHugepageSize *int64 `json:"memory_hugepage_size,omitempty" gorm:"column:memory_hugepage_size"`
	MemoryPrefault     bool   `json:"memory_prefault" gorm:"column:memory_prefault"`
	MemoryThp          bool   `json:"memory_thp" gorm:"column:memory_thp"`

	Config JSONMap `json:"config" gorm:"column:config;type:text"`

	NetworkInterfaces []NetworkInterface `json:"network_interfaces,omitempty" gorm:"foreignKey:VmID"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Vm) TableName() string {
	return "vms"
}

func (v *Vm) BeforeCreate(tx *gorm.DB) error {
	if v.Id == "" {
		v.Id = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = VmStatusCreated
	}
	if v.Hypervisor == "" {
		v.Hypervisor = HypervisorCloudHv
	}
	return nil
}

type NetworkInterfaceType string

const (
	NetworkInterfaceTypeTap       NetworkInterfaceType = "tap"
	NetworkInterfaceTypeMacvtap   NetworkInterfaceType = "macvtap"
	NetworkInterfaceTypeVhostUser NetworkInterfaceType = "vhost_user"
)

func ValidNetworkInterfaceType(s string) bool {
	switch NetworkInterfaceType(s) {
	case NetworkInterfaceTypeTap, NetworkInterfaceTypeMacvtap, NetworkInterfaceTypeVhostUser:
		return true
	}
	return false
}

// NetworkInterface is owned exclusively by its VM and removed with it.
type NetworkInterface struct {
	Id            string               `json:"id" gorm:"column:id;primaryKey;type:varchar(36)"`
	VmID          string               `json:"vm_id" gorm:"column:vm_id;type:varchar(36);index"`
	DeviceID      string               `json:"device_id" gorm:"column:device_id"`
	InterfaceType NetworkInterfaceType `json:"interface_type" gorm:"column:interface_type;default:tap"`

	MacAddress *string `json:"mac_address,omitempty" gorm:"column:mac_address"`
	TapDevice  *string `json:"tap_device,omitempty" gorm:"column:tap_device"`
	IPAddress  *string `json:"ip_address,omitempty" gorm:"column:ip_address"`
	Mask       *string `json:"mask,omitempty" gorm:"column:mask"`
	MTU        *int    `json:"mtu,omitempty" gorm:"column:mtu"`

	NumQueues *int `json:"num_queues,omitempty" gorm:"column:num_queues"`
	QueueSize *int `json:"queue_size,omitempty" gorm:"column:queue_size"`
	Offload   bool `json:"offload" gorm:"column:offload"`
	Iommu     bool `json:"iommu" gorm:"column:iommu"`

	RateLimiter JSONMap `json:"rate_limiter,omitempty" gorm:"column:rate_limiter;type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (NetworkInterface) TableName() string {
	return "network_interfaces"
}

func (n *NetworkInterface) BeforeCreate(tx *gorm.DB) error {
	if n.Id == "" {
		n.Id = uuid.NewString()
	}
	if n.InterfaceType == "" {
		n.InterfaceType = NetworkInterfaceTypeTap
	}
	return nil
}
