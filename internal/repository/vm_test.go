package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bennyz/qarax/internal/model"
)

func TestVmRepository_CreateWithInterfaces(t *testing.T) {
	repo := newTestRepository(t)
	vms := NewVmRepository(repo)
	ctx := context.Background()

	vm := &model.Vm{
		Name:       "web-1",
		BootVcpus:  2,
		MaxVcpus:   4,
		MemorySize: 1 << 30,
		NetworkInterfaces: []model.NetworkInterface{
			{DeviceID: "eth0", MacAddress: strPtr("52:54:00:11:22:33")},
			{DeviceID: "eth1"},
		},
	}
	require.NoError(t, vms.Create(ctx, vm))
	require.NotEmpty(t, vm.Id)
	require.Equal(t, model.VmStatusCreated, vm.Status)
	require.Equal(t, model.HypervisorCloudHv, vm.Hypervisor)

	got, err := vms.GetByID(ctx, vm.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.NetworkInterfaces, 2)
}

func TestVmRepository_UpdateStatusFrom(t *testing.T) {
	repo := newTestRepository(t)
	vms := NewVmRepository(repo)
	ctx := context.Background()

	vm := &model.Vm{Name: "vm-1", BootVcpus: 1, MaxVcpus: 1, MemorySize: 1 << 28}
	require.NoError(t, vms.Create(ctx, vm))

	err := vms.UpdateStatusFrom(ctx, vm.Id, []model.VmStatus{model.VmStatusCreated, model.VmStatusShutdown}, model.VmStatusRunning)
	require.NoError(t, err)

	// already running: the same transition must fail
	err = vms.UpdateStatusFrom(ctx, vm.Id, []model.VmStatus{model.VmStatusCreated, model.VmStatusShutdown}, model.VmStatusRunning)
	require.ErrorIs(t, err, ErrStaleTransition)

	got, err := vms.GetByID(ctx, vm.Id)
	require.NoError(t, err)
	require.Equal(t, model.VmStatusRunning, got.Status)
}

func TestVmRepository_DeleteRemovesInterfaces(t *testing.T) {
	repo := newTestRepository(t)
	vms := NewVmRepository(repo)
	ctx := context.Background()

	vm := &model.Vm{
		Name: "doomed", BootVcpus: 1, MaxVcpus: 1, MemorySize: 1 << 28,
		NetworkInterfaces: []model.NetworkInterface{{DeviceID: "eth0"}},
	}
	require.NoError(t, vms.Create(ctx, vm))
	require.NoError(t, vms.Delete(ctx, vm.Id))

	got, err := vms.GetByID(ctx, vm.Id)
	require.NoError(t, err)
	require.Nil(t, got)

	var count int64
	require.NoError(t, repo.DB(ctx).Model(&model.NetworkInterface{}).Where("vm_id = ?", vm.Id).Count(&count).Error)
	require.Zero(t, count)
}

func TestVmRepository_CountByHostAndListAssigned(t *testing.T) {
	repo := newTestRepository(t)
	vms := NewVmRepository(repo)
	ctx := context.Background()

	hostA, hostB := "host-a", "host-b"
	require.NoError(t, vms.Create(ctx, &model.Vm{Name: "a1", HostID: &hostA, BootVcpus: 1, MaxVcpus: 1, MemorySize: 1}))
	require.NoError(t, vms.Create(ctx, &model.Vm{Name: "a2", HostID: &hostA, BootVcpus: 1, MaxVcpus: 1, MemorySize: 1}))
	require.NoError(t, vms.Create(ctx, &model.Vm{Name: "b1", HostID: &hostB, BootVcpus: 1, MaxVcpus: 1, MemorySize: 1}))
	require.NoError(t, vms.Create(ctx, &model.Vm{Name: "unassigned", BootVcpus: 1, MaxVcpus: 1, MemorySize: 1}))

	count, err := vms.CountByHost(ctx, hostA)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	assigned, err := vms.ListAssigned(ctx)
	require.NoError(t, err)
	require.Len(t, assigned, 3)
}

func strPtr(s string) *string { return &s }
