package v1

// TokenBucket bounds a rate-limited resource (bandwidth or operations).
type TokenBucket struct {
	Size         int64  `json:"size"`
	RefillTime   int64  `json:"refill_time"`
	OneTimeBurst *int64 `json:"one_time_burst,omitempty"`
}

// RateLimiterConfig pairs bandwidth and ops token buckets for a network
// interface.
type RateLimiterConfig struct {
	Bandwidth *TokenBucket `json:"bandwidth,omitempty"`
	Ops       *TokenBucket `json:"ops,omitempty"`
}

// NewVmNetwork declares a network interface to attach at VM create time.
type NewVmNetwork struct {
	// Unique device id within the VM (e.g. "net0").
	ID string `json:"id" binding:"required" example:"net0"`
	// Interface backend. Defaults to tap.
	InterfaceType *string `json:"interface_type,omitempty" example:"tap"`
	// Guest MAC address.
	Mac *string `json:"mac,omitempty"`
	// Pre-created TAP device name.
	Tap *string `json:"tap,omitempty"`
	// IPv4 or IPv6 address.
	IP *string `json:"ip,omitempty"`
	// Network mask.
	Mask *string `json:"mask,omitempty"`
	MTU  *int    `json:"mtu,omitempty"`

	NumQueues *int  `json:"num_queues,omitempty"`
	QueueSize *int  `json:"queue_size,omitempty"`
	Offload   *bool `json:"offload,omitempty"`
	Iommu     *bool `json:"iommu,omitempty"`

	RateLimiter *RateLimiterConfig `json:"rate_limiter,omitempty"`
}

// NewVm is the VM creation request.
type NewVm struct {
	Name       string `json:"name" binding:"required" example:"vm-001"`
	Hypervisor string `json:"hypervisor" example:"cloud_hv"`

	BootVcpus   int                    `json:"boot_vcpus" binding:"required,min=1" example:"1"`
	MaxVcpus    int                    `json:"max_vcpus" binding:"required,min=1" example:"1"`
	CPUTopology map[string]interface{} `json:"cpu_topology,omitempty"`
	KvmHyperv   *bool                  `json:"kvm_hyperv,omitempty"`

	MemorySize         int64  `json:"memory_size" binding:"required,min=1" example:"268435456"`
	MemoryHotplugSize  *int64 `json:"memory_hotplug_size,omitempty"`
	MemoryMergeable    *bool  `json:"memory_mergeable,omitempty"`
	MemoryShared       *bool  `json:"memory_shared,omitempty"`
	MemoryHugepages    *bool  `json:"memory_hugepages,omitempty"`
	MemoryHugepageSize *int64 `json:"memory_hugepage_size,omitempty"`
	MemoryPrefault     *bool  `json:"memory_prefault,omitempty"`
	MemoryThp          *bool  `json:"memory_thp,omitempty"`

	BootSourceID *string `json:"boot_source_id,omitempty"`
	Description  *string `json:"description,omitempty"`

	Networks []NewVmNetwork         `json:"networks,omitempty"`
	Config   map[string]interface{} `json:"config,omitempty"`
}

// CreateVmResponse is returned by POST /vms: the new VM id plus the id of
// the job tracking its placement.
type CreateVmResponse struct {
	VmID  string `json:"vm_id"`
	JobID string `json:"job_id"`
}
