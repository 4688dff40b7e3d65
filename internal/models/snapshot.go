package models

import "time"

// Snapshot is the aggregate published after one successful refresh. It is
// immutable once published and replaced wholesale; readers hold a reference
// and never observe a mixture of old and new data.
type Snapshot struct {
	Homes      []Home                    `json:"homes"`
	Devices    []Device                  `json:"devices"`
	Meals      []Meal                    `json:"meals"`
	Events     map[string][]Event        `json:"events_by_home_and_type"`
	EventTypes []EventType               `json:"event_types"`
	Settings   map[string]DeviceSettings `json:"settings"`
	BaseData   map[string]HomeBaseData   `json:"base_data"`

	// Generation increments on every successful publish. Consumers can use
	// it to invalidate anything derived from a previous snapshot.
	Generation uint64    `json:"generation"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// EventsFor returns the event bucket for one (home, type) pair. The second
// return reports whether the pair was visited during the build at all; a
// visited pair with no events yields an empty, non-nil slice.
func (s *Snapshot) EventsFor(homeID string, t EventType) ([]Event, bool) {
	events, ok := s.Events[EventKey(homeID, t)]
	return events, ok
}
