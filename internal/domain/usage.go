package domain

import "time"

// UsageLog is the metadata kept about one processed request. Image and
// document bytes are never part of it.
type UsageLog struct {
	RequestID       string
	Tool            string
	Tier            string
	Status          int
	Files           int
	InputBytes      int64
	OutputBytes     int64
	PixelsProcessed int64
	ComputeTimeMS   int64
	CreatedAt       time.Time
}
