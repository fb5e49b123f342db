package models

import "time"

// PublishedJob asks for the "video published" mail of one video.
type PublishedJob struct {
	VideoID    int64     `json:"video_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	// Attempts counts failed deliveries so far.
	Attempts int `json:"attempts,omitempty"`
}
