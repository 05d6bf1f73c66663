package model

import "time"

// LevelEvent records one power level transition of a device.
type LevelEvent struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Instance  string    `json:"instance"`
	Device    Device    `json:"device"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	APM       int       `json:"apm"`
	Spindown  int       `json:"spindown"`
	ReadLoad  float64   `json:"read_load"`
	WriteLoad float64   `json:"write_load"`
	Error     string    `json:"error,omitempty"`
}

// Direction returns "promote" for deeper power saving, "demote" otherwise.
func (e LevelEvent) Direction() string {
	if e.To > e.From {
		return "promote"
	}
	return "demote"
}
