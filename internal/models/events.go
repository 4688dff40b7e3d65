package models

import "fmt"

// EventType is one category of historical event. The set is fixed reference
// data, not owned by any home or device.
type EventType string

const (
	EventTypeMotionDetected       EventType = "motion_detected"
	EventTypeMealDispensed        EventType = "meal_dispensed"
	EventTypeMealUpcoming         EventType = "meal_upcoming"
	EventTypeFoodLevelLow         EventType = "food_level_low"
	EventTypeFilterReplacementDue EventType = "filter_replacement_due"
	EventTypeDeviceOffline        EventType = "device_offline"
)

// EventTypes returns the fixed enumeration in its canonical order. Builders
// iterate this slice, so event buckets always appear in the same order.
func EventTypes() []EventType {
	return []EventType{
		EventTypeMotionDetected,
		EventTypeMealDispensed,
		EventTypeMealUpcoming,
		EventTypeFoodLevelLow,
		EventTypeFilterReplacementDue,
		EventTypeDeviceOffline,
	}
}

func (t EventType) String() string { return string(t) }

// EventKey is the composite key used for per-home, per-type event buckets.
func EventKey(homeID string, t EventType) string {
	return fmt.Sprintf("%s_%s", homeID, t)
}
