package client

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	deviceInfoPath        = "/internal/platform/v1/device-info"
	remoteSessionsPathFmt = "/internal/platform/v1/devices/%s/remote-sessions"
)

// DeviceInfo contains the device metadata resolved from a device token.
type DeviceInfo struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	ProjectID               string `json:"projectId"`
	RetainRecordingsSeconds *int64 `json:"retainRecordingsSeconds,omitempty"`
}

// SessionAuthorization is a short-lived token/url pair authorizing a
// remote visualization connection.
type SessionAuthorization struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// FetchDeviceInfo resolves the configured device token into device
// metadata.
func (c *Client) FetchDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	if !c.HasDeviceToken() {
		return nil, ErrNoToken
	}

	resp, err := c.Get(deviceInfoPath).WithDeviceToken(c.deviceToken).Send(ctx)
	if err != nil {
		return nil, err
	}

	var info DeviceInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, &ParseError{Err: err}
	}

	c.logger.WithField("device_id", info.ID).Debug("Device info fetched")
	return &info, nil
}

// AuthorizeRemoteViz requests a new remote visualization session for the
// given device. The device id is percent-encoded for the path segment.
func (c *Client) AuthorizeRemoteViz(ctx context.Context, deviceID string) (*SessionAuthorization, error) {
	if !c.HasDeviceToken() {
		return nil, ErrNoToken
	}

	path := fmt.Sprintf(remoteSessionsPathFmt, EncodePathSegment(deviceID))
	resp, err := c.Post(path).WithDeviceToken(c.deviceToken).Send(ctx)
	if err != nil {
		return nil, err
	}

	var authz SessionAuthorization
	if err := json.Unmarshal(resp.Body, &authz); err != nil {
		return nil, &ParseError{Err: err}
	}

	c.logger.WithField("device_id", deviceID).Debug("Remote visualization session authorized")
	return &authz, nil
}
