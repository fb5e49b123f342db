package models

import "fmt"

type VideoStatus int

const (
	VideoStatusPending    VideoStatus = 1
	VideoStatusInProgress VideoStatus = 2
	VideoStatusEdited     VideoStatus = 3
	VideoStatusCoded      VideoStatus = 4
	VideoStatusPublished  VideoStatus = 5
	VideoStatusDone       VideoStatus = 6
)

var videoStatusNames = map[VideoStatus]string{
	VideoStatusPending:    "pending",
	VideoStatusInProgress: "in_progress",
	VideoStatusEdited:     "edited",
	VideoStatusCoded:      "coded",
	VideoStatusPublished:  "published",
	VideoStatusDone:       "done",
}

func (s VideoStatus) Valid() bool {
	_, ok := videoStatusNames[s]
	return ok
}

func (s VideoStatus) String() string {
	if name, ok := videoStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("video_status(%d)", int(s))
}

type Video struct {
	ID             int64          `json:"id" db:"id"`
	RequestID      int64          `json:"request_id" db:"request_id"`
	Title          string         `json:"title" db:"title" validate:"required,max=200"`
	Status         VideoStatus    `json:"status" db:"status"`
	EditorID       *int64         `json:"editor_id,omitempty" db:"editor_id"`
	AdditionalData map[string]any `json:"additional_data" db:"additional_data"`
}
