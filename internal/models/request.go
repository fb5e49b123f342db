package models

import (
	"fmt"
	"time"
)

type RequestStatus int

const (
	RequestStatusRequested RequestStatus = 1
	RequestStatusAccepted  RequestStatus = 2
	RequestStatusRecorded  RequestStatus = 3
	RequestStatusUploaded  RequestStatus = 4
	RequestStatusEdited    RequestStatus = 5
	RequestStatusArchived  RequestStatus = 6
	RequestStatusDenied    RequestStatus = 7
	RequestStatusCanceled  RequestStatus = 8
	RequestStatusFailed    RequestStatus = 9
	RequestStatusDone      RequestStatus = 10
)

var requestStatusNames = map[RequestStatus]string{
	RequestStatusRequested: "requested",
	RequestStatusAccepted:  "accepted",
	RequestStatusRecorded:  "recorded",
	RequestStatusUploaded:  "uploaded",
	RequestStatusEdited:    "edited",
	RequestStatusArchived:  "archived",
	RequestStatusDenied:    "denied",
	RequestStatusCanceled:  "canceled",
	RequestStatusFailed:    "failed",
	RequestStatusDone:      "done",
}

// Position on the production line. Denied, canceled and failed are side
// branches and have no position.
var requestStatusRank = map[RequestStatus]int{
	RequestStatusRequested: 0,
	RequestStatusAccepted:  1,
	RequestStatusRecorded:  2,
	RequestStatusUploaded:  3,
	RequestStatusEdited:    4,
	RequestStatusArchived:  5,
	RequestStatusDone:      6,
}

func (s RequestStatus) Valid() bool {
	_, ok := requestStatusNames[s]
	return ok
}

func (s RequestStatus) String() string {
	if name, ok := requestStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("request_status(%d)", int(s))
}

// InProduction reports whether s is on the line between accepted and done.
func (s RequestStatus) InProduction() bool {
	rank, ok := requestStatusRank[s]
	return ok && rank >= requestStatusRank[RequestStatusAccepted]
}

// AtLeast compares production-line positions. Side branches are never at
// least anything.
func (s RequestStatus) AtLeast(other RequestStatus) bool {
	rank, ok := requestStatusRank[s]
	if !ok {
		return false
	}
	otherRank, ok := requestStatusRank[other]
	return ok && rank >= otherRank
}

type Request struct {
	ID             int64          `json:"id" db:"id"`
	Title          string         `json:"title" db:"title" validate:"required,max=200"`
	Created        time.Time      `json:"created" db:"created"`
	StartDatetime  time.Time      `json:"start_datetime" db:"start_datetime" validate:"required"`
	EndDatetime    time.Time      `json:"end_datetime" db:"end_datetime" validate:"required"`
	Deadline       *time.Time     `json:"deadline,omitempty" db:"deadline"`
	Place          string         `json:"place" db:"place" validate:"required,max=150"`
	Type           string         `json:"type" db:"type" validate:"required,max=50"`
	Status         RequestStatus  `json:"status" db:"status"`
	ResponsibleID  *int64         `json:"responsible_id,omitempty" db:"responsible_id"`
	RequesterID    int64          `json:"requester_id" db:"requester_id"`
	RequestedByID  *int64         `json:"requested_by_id,omitempty" db:"requested_by_id"`
	AdditionalData map[string]any `json:"additional_data" db:"additional_data"`
}

// CheckSchedule enforces start <= end and a deadline strictly after the
// day the request ends.
func (r *Request) CheckSchedule() error {
	if r.StartDatetime.After(r.EndDatetime) {
		return fmt.Errorf("start_datetime must not be after end_datetime")
	}
	if r.Deadline != nil {
		endY, endM, endD := r.EndDatetime.Date()
		endDate := time.Date(endY, endM, endD, 0, 0, 0, 0, time.UTC)
		dY, dM, dD := r.Deadline.Date()
		deadline := time.Date(dY, dM, dD, 0, 0, 0, 0, time.UTC)
		if !deadline.After(endDate) {
			return fmt.Errorf("deadline must be later than the end date")
		}
	}
	return nil
}
