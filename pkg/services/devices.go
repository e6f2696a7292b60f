package services

import "context"

// DeviceRegistry is the external collaborator that answers device ownership
// questions. The engine never looks devices up itself; the surrounding
// dashboard owns that registry.
type DeviceRegistry interface {
	OwnsDevice(ctx context.Context, ownerID, deviceID string) (bool, error)
}

// DeviceRegistryFunc adapts a function to the DeviceRegistry interface.
type DeviceRegistryFunc func(ctx context.Context, ownerID, deviceID string) (bool, error)

func (f DeviceRegistryFunc) OwnsDevice(ctx context.Context, ownerID, deviceID string) (bool, error) {
	return f(ctx, ownerID, deviceID)
}

// AllowAllDevices is for deployments where ownership is already enforced
// upstream by the dashboard's auth layer.
func AllowAllDevices() DeviceRegistry {
	return DeviceRegistryFunc(func(context.Context, string, string) (bool, error) {
		return true, nil
	})
}
