package model

import "time"

// PowerSetting is one hdparm setting pair: the APM level (-B) and the
// standby timeout (-S).
type PowerSetting struct {
	APM      int `json:"apm"`
	Spindown int `json:"spindown"`
}

// PowerProfile is the ordered table of power levels. Index 0 disables power
// saving; the last index is the most aggressive.
type PowerProfile []PowerSetting

// Levels returns the number of power levels in the profile.
func (p PowerProfile) Levels() int { return len(p) }

// At returns the setting for level, clamped into the table.
func (p PowerProfile) At(level int) PowerSetting {
	if len(p) == 0 {
		return PowerSetting{}
	}
	if level < 0 {
		level = 0
	}
	if level >= len(p) {
		level = len(p) - 1
	}
	return p[level]
}

// DefaultPowerProfile returns the 12-level table used for ATA/SCSI disks.
func DefaultPowerProfile() PowerProfile {
	apm := []int{255, 225, 195, 165, 145, 125, 105, 85, 70, 55, 30, 20}
	spindown := []int{0, 250, 230, 210, 190, 170, 150, 130, 110, 90, 70, 60}
	p := make(PowerProfile, len(apm))
	for i := range apm {
		p[i] = PowerSetting{APM: apm[i], Spindown: spindown[i]}
	}
	return p
}

// ElevatorRecord remembers the IO scheduler a device had before an override
// was applied. An empty SavedScheduler means no override is active.
type ElevatorRecord struct {
	Device         Device    `json:"device"`
	SavedScheduler string    `json:"saved_scheduler"`
	Applied        string    `json:"applied,omitempty"`
	AppliedAt      time.Time `json:"applied_at,omitempty"`
}

// Active reports whether the record holds a value to restore.
func (r ElevatorRecord) Active() bool { return r.SavedScheduler != "" }
