package v1

import "strings"

// NewHost is the host registration request.
type NewHost struct {
	Name     string `json:"name" binding:"required" example:"node1"`
	Address  string `json:"address" binding:"required" example:"192.168.1.10"`
	Port     int    `json:"port" binding:"required,min=1,max=65535" example:"50051"`
	HostUser string `json:"host_user" binding:"required" example:"root"`
	Password string `json:"password" example:"secret"`
}

// UpdateHostRequest patches a host's status.
type UpdateHostRequest struct {
	Status string `json:"status" binding:"required" example:"down"`
}

// DeployHostRequest provisions a registered host with the node-agent image.
type DeployHostRequest struct {
	// Fully-qualified bootc image reference to deploy on the host.
	Image string `json:"image" example:"quay.io/qarax/node:latest"`
	// SSH port used to reach the host. Defaults to 22.
	SSHPort *int `json:"ssh_port,omitempty" example:"22"`
	// SSH user override. Defaults to the host's registered host_user.
	SSHUser *string `json:"ssh_user,omitempty" example:"root"`
	// Optional SSH password override for this deployment request.
	SSHPassword *string `json:"ssh_password,omitempty"`
	// Optional SSH private key path on the control-plane host.
	SSHPrivateKeyPath *string `json:"ssh_private_key_path,omitempty"`
	// Install bootc before switching image. Defaults to true.
	InstallBootc *bool `json:"install_bootc,omitempty"`
	// Reboot after bootc switch. Defaults to true.
	Reboot *bool `json:"reboot,omitempty"`
}

func (r *DeployHostRequest) Validate() error {
	if strings.TrimSpace(r.Image) == "" {
		return Unprocessablef("image is required")
	}
	if r.SSHPassword != nil && r.SSHPrivateKeyPath != nil {
		return Unprocessablef("provide either ssh_password or ssh_private_key_path, but not both")
	}
	if r.SSHUser != nil && strings.TrimSpace(*r.SSHUser) == "" {
		return Unprocessablef("ssh_user cannot be empty")
	}
	if r.SSHPrivateKeyPath != nil && strings.TrimSpace(*r.SSHPrivateKeyPath) == "" {
		return Unprocessablef("ssh_private_key_path cannot be empty")
	}
	if r.SSHPort != nil && *r.SSHPort <= 0 {
		return Unprocessablef("ssh_port must be greater than 0")
	}
	return nil
}

func (r *DeployHostRequest) Port() int {
	if r.SSHPort != nil {
		return *r.SSHPort
	}
	return 22
}

func (r *DeployHostRequest) ShouldInstallBootc() bool {
	if r.InstallBootc != nil {
		return *r.InstallBootc
	}
	return true
}

func (r *DeployHostRequest) ShouldReboot() bool {
	if r.Reboot != nil {
		return *r.Reboot
	}
	return true
}
