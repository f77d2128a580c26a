package models

// Screen identifiers.
const (
	ScreenLeft    = "left"
	ScreenCenter  = "center"
	ScreenRight   = "right"
	ScreenUnknown = "unknown"
)

// TrackedScreens are the screens that carry totals.
var TrackedScreens = []string{ScreenLeft, ScreenCenter, ScreenRight}

// ScreenTotals holds the derived counters of one screen.
type ScreenTotals struct {
	Views         int     `json:"views"`
	VideoPlays    int     `json:"videoPlays"`
	TotalDuration float64 `json:"totalDuration"`
}

// AnalyticsStore is the root object persisted under the storage key.
type AnalyticsStore struct {
	Events      []Event                  `json:"events"`
	Sessions    []any                    `json:"sessions"`
	Totals      map[string]*ScreenTotals `json:"totals"`
	LastUpdated string                   `json:"lastUpdated"`
}

// NewAnalyticsStore returns an empty store with zeroed totals.
func NewAnalyticsStore(lastUpdated string) *AnalyticsStore {
	s := &AnalyticsStore{LastUpdated: lastUpdated}
	s.Normalize()
	return s
}

// Normalize fills in whatever a decoded store is missing so callers can
// index Totals for every tracked screen.
func (s *AnalyticsStore) Normalize() {
	if s.Events == nil {
		s.Events = []Event{}
	}
	if s.Sessions == nil {
		s.Sessions = []any{}
	}
	if s.Totals == nil {
		s.Totals = make(map[string]*ScreenTotals, len(TrackedScreens))
	}
	for _, screen := range TrackedScreens {
		if s.Totals[screen] == nil {
			s.Totals[screen] = &ScreenTotals{}
		}
	}
}
