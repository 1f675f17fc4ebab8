package events

// DeviceConnected is published when a device's live subscription opens.
type DeviceConnected struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

// DeviceDisconnected is published when a device's live subscription
// closes, whether gracefully or by the slow-consumer policy.
type DeviceDisconnected struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
}

// DeviceDeleted is published after a device is removed; the broadcaster
// drops any live subscription still held under the revoked token.
type DeviceDeleted struct {
	DeviceID string `json:"device_id"`
}
