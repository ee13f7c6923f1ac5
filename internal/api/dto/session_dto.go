package dto

// MeResponse describes the caller's session.
type MeResponse struct {
	User    *StaffResponse `json:"user"`
	Loading bool           `json:"loading"`
	Phase   string         `json:"phase"`
}

// AccessResponse answers a single path check.
type AccessResponse struct {
	Path    string `json:"path"`
	Allowed bool   `json:"allowed"`
}

// NavSection is one dashboard destination.
type NavSection struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// DashboardResponse lists what the caller can reach.
type DashboardResponse struct {
	User     StaffResponse `json:"user"`
	Sections []NavSection  `json:"sections"`
}

// DecisionEvent is streamed to clients watching a path.
type DecisionEvent struct {
	Path    string `json:"path"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}
