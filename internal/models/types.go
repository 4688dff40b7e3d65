package models

import "time"

// Home is the root of one account location's device tree.
type Home struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Device is a feeder/camera belonging to exactly one Home.
type Device struct {
	ID         string `json:"id"`
	HomeID     string `json:"home_id"`
	Name       string `json:"name"`
	ProductCtn string `json:"product_ctn"`
	ExternalID string `json:"external_id"`
}

// Meal is a scheduled feeding record for a Home.
type Meal struct {
	ID            string `json:"id"`
	HomeID        string `json:"home_id"`
	Name          string `json:"name"`
	FeedTime      string `json:"feed_time"`
	PortionAmount int    `json:"portion_amount"`
	RepeatDays    []int  `json:"repeat_days"`
	Enabled       bool   `json:"enabled"`
}

// Event is one historical record belonging to a Home and an EventType.
type Event struct {
	ID        string            `json:"id"`
	HomeID    string            `json:"home_id"`
	Type      EventType         `json:"type"`
	ClusterID string            `json:"cluster_id"`
	Source    string            `json:"source"`
	Time      time.Time         `json:"time"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TuyaStatus is the datapoint map reported by the local device backend.
type TuyaStatus map[string]any

// StatusUnavailable is the marker attached when no local backend is
// configured or the device did not answer. It is a non-nil empty map so
// consumers never have to distinguish null from missing.
var StatusUnavailable = TuyaStatus{}

// DeviceSettings holds one device's configuration as returned by the cloud,
// augmented with the local status captured during the same snapshot build.
type DeviceSettings struct {
	Values     map[string]any `json:"values"`
	TuyaStatus TuyaStatus     `json:"tuya_status"`
}

// HomeBaseData is the home-scoped block of the snapshot that is not tied to
// any single device.
type HomeBaseData struct {
	TuyaStatus TuyaStatus `json:"tuya_status"`
}
