package device

import (
	"context"
	"fmt"

	"foxglove-bridge/internal/client"

	"github.com/sirupsen/logrus"
)

// Device is the resolved identity for the device this bridge runs on.
// The metadata is fetched exactly once at construction and is immutable
// afterwards, so a Device can be shared freely across goroutines.
type Device struct {
	info   client.DeviceInfo
	api    *client.Client
	logger *logrus.Logger
}

// Resolve exchanges the client's configured device token for device
// metadata. It fails with client.ErrNoToken before any network call when
// no token was configured.
func Resolve(ctx context.Context, api *client.Client, logger *logrus.Logger) (*Device, error) {
	if api == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if !api.HasDeviceToken() {
		return nil, client.ErrNoToken
	}

	info, err := api.FetchDeviceInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve device identity: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"device_id":   info.ID,
		"device_name": info.Name,
		"project_id":  info.ProjectID,
	}).Info("Device identity resolved")

	return &Device{
		info:   *info,
		api:    api,
		logger: logger,
	}, nil
}

// ID returns the platform-assigned device id.
func (d *Device) ID() string {
	return d.info.ID
}

// Name returns the device display name.
func (d *Device) Name() string {
	return d.info.Name
}

// ProjectID returns the id of the project the device belongs to.
func (d *Device) ProjectID() string {
	return d.info.ProjectID
}

// RetainRecordingsSeconds returns the recording retention setting, or
// false if the platform did not report one.
func (d *Device) RetainRecordingsSeconds() (int64, bool) {
	if d.info.RetainRecordingsSeconds == nil {
		return 0, false
	}
	return *d.info.RetainRecordingsSeconds, true
}

// Info returns a copy of the full device metadata record.
func (d *Device) Info() client.DeviceInfo {
	return d.info
}

// AuthorizeSession requests a new remote visualization session for this
// device. Each call performs a network request; use a credentials.Provider
// for caching.
func (d *Device) AuthorizeSession(ctx context.Context) (*client.SessionAuthorization, error) {
	authz, err := d.api.AuthorizeRemoteViz(ctx, d.ID())
	if err != nil {
		return nil, fmt.Errorf("session authorization failed: %w", err)
	}
	return authz, nil
}
