package v1

// NewStoragePool is the pool creation request.
type NewStoragePool struct {
	Name          string                 `json:"name" binding:"required" example:"local-pool"`
	PoolType      string                 `json:"pool_type" binding:"required" example:"local"`
	HostID        *string                `json:"host_id,omitempty"`
	Config        map[string]interface{} `json:"config"`
	CapacityBytes *int64                 `json:"capacity_bytes,omitempty"`
}

// NewStorageObject registers an artifact that already exists inside a pool.
type NewStorageObject struct {
	Name          string                 `json:"name" binding:"required" example:"vmlinux"`
	StoragePoolID string                 `json:"storage_pool_id" binding:"required"`
	ObjectType    string                 `json:"object_type" binding:"required" example:"kernel"`
	SizeBytes     int64                  `json:"size_bytes"`
	Config        map[string]interface{} `json:"config"`
	ParentID      *string                `json:"parent_id,omitempty"`
}

// NewTransfer submits an asynchronous copy/download into a pool.
type NewTransfer struct {
	Name       string `json:"name" binding:"required" example:"kernel-upload"`
	Source     string `json:"source" binding:"required" example:"/srv/images/vmlinux"`
	ObjectType string `json:"object_type" binding:"required" example:"kernel"`
}

// NewBootSource bundles kernel/initrd storage objects with boot parameters.
type NewBootSource struct {
	Name          string  `json:"name" binding:"required" example:"ubuntu-22.04"`
	Description   *string `json:"description,omitempty"`
	KernelImageID string  `json:"kernel_image_id" binding:"required"`
	KernelParams  *string `json:"kernel_params,omitempty" example:"console=ttyS0 root=/dev/vda1"`
	InitrdImageID *string `json:"initrd_image_id,omitempty"`
}
