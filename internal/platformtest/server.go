// Package platformtest provides a mock platform API server for tests.
package platformtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"
)

// Platform is a configurable stand-in for the platform API. It serves the
// device-info and remote-sessions endpoints, checks the device token, and
// counts calls so tests can assert how often the network was hit.
type Platform struct {
	DeviceID                string
	DeviceName              string
	ProjectID               string
	RetainRecordingsSeconds *int64

	SessionToken string
	SessionURL   string

	// ExpectedToken, when non-empty, is the only device token accepted.
	ExpectedToken string

	deviceInfoCalls atomic.Int64
	authorizeCalls  atomic.Int64

	pathMu            sync.Mutex
	lastAuthorizePath string
}

// New returns a platform mock with a default device and session.
func New() *Platform {
	return &Platform{
		DeviceID:      "dev_1",
		DeviceName:    "Test Device",
		ProjectID:     "prj_1",
		SessionToken:  "abc",
		SessionURL:    "wss://x",
		ExpectedToken: "secret-token",
	}
}

// Server starts an httptest server routing the platform endpoints.
// Callers own the returned server and must Close it.
func (p *Platform) Server() *httptest.Server {
	r := mux.NewRouter()
	// Match on the escaped path so percent-encoded device ids (including
	// encoded slashes) stay a single path segment.
	r.UseEncodedPath()
	r.HandleFunc("/internal/platform/v1/device-info", p.handleDeviceInfo).Methods(http.MethodGet)
	r.HandleFunc("/internal/platform/v1/devices/{deviceId}/remote-sessions", p.handleAuthorize).Methods(http.MethodPost)
	return httptest.NewServer(r)
}

// DeviceInfoCalls returns how many device-info requests were served.
func (p *Platform) DeviceInfoCalls() int64 {
	return p.deviceInfoCalls.Load()
}

// AuthorizeCalls returns how many remote-session requests were served.
func (p *Platform) AuthorizeCalls() int64 {
	return p.authorizeCalls.Load()
}

// LastAuthorizePath returns the escaped request path of the most recent
// remote-session request, for asserting percent-encoding.
func (p *Platform) LastAuthorizePath() string {
	p.pathMu.Lock()
	defer p.pathMu.Unlock()
	return p.lastAuthorizePath
}

func (p *Platform) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	if p.ExpectedToken == "" {
		return true
	}
	if r.Header.Get("Authorization") != "DeviceToken "+p.ExpectedToken {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "bad token",
			"code":  "UNAUTHENTICATED",
		})
		return false
	}
	return true
}

func (p *Platform) handleDeviceInfo(w http.ResponseWriter, r *http.Request) {
	p.deviceInfoCalls.Add(1)
	if !p.checkAuth(w, r) {
		return
	}

	body := map[string]interface{}{
		"id":        p.DeviceID,
		"name":      p.DeviceName,
		"projectId": p.ProjectID,
	}
	if p.RetainRecordingsSeconds != nil {
		body["retainRecordingsSeconds"] = *p.RetainRecordingsSeconds
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (p *Platform) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	p.authorizeCalls.Add(1)
	p.pathMu.Lock()
	p.lastAuthorizePath = r.URL.EscapedPath()
	p.pathMu.Unlock()

	if !p.checkAuth(w, r) {
		return
	}

	// The route matches the escaped path, so the variable still carries
	// its percent-encoding. Only a correctly encoded id matches.
	deviceID, err := url.PathUnescape(mux.Vars(r)["deviceId"])
	if err != nil || deviceID != p.DeviceID {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": "device not found",
			"code":  "NOT_FOUND",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token": p.SessionToken,
		"url":   p.SessionURL,
	})
}
