package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bennyz/qarax/internal/model"
)

func TestHostRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	hosts := NewHostRepository(repo)
	ctx := context.Background()

	host := &model.Host{Name: "node-1", Address: "192.168.1.10", Port: 50051, HostUser: "root"}
	require.NoError(t, hosts.Create(ctx, host))
	require.NotEmpty(t, host.Id)
	require.Equal(t, model.HostStatusUnknown, host.Status)

	byID, err := hosts.GetByID(ctx, host.Id)
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, "node-1", byID.Name)

	byEndpoint, err := hosts.GetByEndpoint(ctx, "192.168.1.10", 50051)
	require.NoError(t, err)
	require.NotNil(t, byEndpoint)
	require.Equal(t, host.Id, byEndpoint.Id)

	missing, err := hosts.GetByID(ctx, "no-such-id")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestHostRepository_EndpointUnique(t *testing.T) {
	repo := newTestRepository(t)
	hosts := NewHostRepository(repo)
	ctx := context.Background()

	require.NoError(t, hosts.Create(ctx, &model.Host{Name: "a", Address: "10.0.0.1", Port: 50051}))
	err := hosts.Create(ctx, &model.Host{Name: "b", Address: "10.0.0.1", Port: 50051})
	require.Error(t, err)
}

func TestHostRepository_NameUnique(t *testing.T) {
	repo := newTestRepository(t)
	hosts := NewHostRepository(repo)
	ctx := context.Background()

	require.NoError(t, hosts.Create(ctx, &model.Host{Name: "dup", Address: "10.0.0.1", Port: 50051}))
	err := hosts.Create(ctx, &model.Host{Name: "dup", Address: "10.0.0.2", Port: 50051})
	require.Error(t, err)
}

func TestHostRepository_ListByStatusOrdered(t *testing.T) {
	repo := newTestRepository(t)
	hosts := NewHostRepository(repo)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	for i, name := range []string{"first", "second", "third"} {
		host := &model.Host{
			Name:      name,
			Address:   "10.0.0.1",
			Port:      50051 + i,
			Status:    model.HostStatusUp,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, hosts.Create(ctx, host))
	}
	require.NoError(t, hosts.Create(ctx, &model.Host{
		Name: "down-one", Address: "10.0.0.2", Port: 50051, Status: model.HostStatusDown,
	}))

	up, err := hosts.ListByStatus(ctx, model.HostStatusUp)
	require.NoError(t, err)
	require.Len(t, up, 3)
	require.Equal(t, "first", up[0].Name)
	require.Equal(t, "second", up[1].Name)
	require.Equal(t, "third", up[2].Name)
}

func TestHostRepository_UpdateStatusAndVersions(t *testing.T) {
	repo := newTestRepository(t)
	hosts := NewHostRepository(repo)
	ctx := context.Background()

	host := &model.Host{Name: "n", Address: "10.0.0.1", Port: 50051}
	require.NoError(t, hosts.Create(ctx, host))

	require.NoError(t, hosts.UpdateStatus(ctx, host.Id, model.HostStatusUp))
	require.NoError(t, hosts.UpdateVersions(ctx, host.Id, "v39.0", "6.8.0"))

	got, err := hosts.GetByID(ctx, host.Id)
	require.NoError(t, err)
	require.Equal(t, model.HostStatusUp, got.Status)
	require.NotNil(t, got.CloudHypervisorVersion)
	require.Equal(t, "v39.0", *got.CloudHypervisorVersion)
	require.NotNil(t, got.KernelVersion)
	require.Equal(t, "6.8.0", *got.KernelVersion)
}

func TestHostRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	hosts := NewHostRepository(repo)
	ctx := context.Background()

	host := &model.Host{Name: "gone", Address: "10.0.0.1", Port: 50051}
	require.NoError(t, hosts.Create(ctx, host))
	require.NoError(t, hosts.Delete(ctx, host.Id))

	got, err := hosts.GetByID(ctx, host.Id)
	require.NoError(t, err)
	require.Nil(t, got)
}
