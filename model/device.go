package model

// Device identifies a managed block device by its kernel name (sda, sdb).
type Device string

// LoadSampleWidth is the number of counters in a LoadSample.
const LoadSampleWidth = 11

// Field indices of a LoadSample, in /proc/diskstats order.
const (
	FieldReadsCompleted = iota
	FieldReadsMerged
	FieldSectorsRead
	FieldReadTimeMs
	FieldWritesCompleted
	FieldWritesMerged
	FieldSectorsWritten
	FieldWriteTimeMs
	FieldIOsInProgress
	FieldIOTimeMs
	FieldWeightedIOMs
)

// Fields whose per-tick deltas drive the idle detection.
const (
	ReadLoadField  = FieldReadsCompleted
	WriteLoadField = FieldWritesCompleted
)

// LoadSample holds one reading of a device's cumulative IO counters.
// A well-formed sample has exactly LoadSampleWidth entries.
type LoadSample []uint64
