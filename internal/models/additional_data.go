package models

// Keys of the additional_data documents that code refers to by name.
const (
	KeyStatusByAdmin   = "status_by_admin"
	KeyAccepted        = "accepted"
	KeyCanceled        = "canceled"
	KeyFailed          = "failed"
	KeyCalendarID      = "calendar_id"
	KeyRequester       = "requester"
	KeyPublishing      = "publishing"
	KeyEmailSentToUser = "email_sent_to_user"
	KeyAdminID         = "admin_id"
	KeyAdminName       = "admin_name"
	KeyStatus          = "status"
)

type StatusOverride struct {
	Status    int    `json:"status" validate:"gte=0"`
	AdminID   int64  `json:"admin_id,omitempty"`
	AdminName string `json:"admin_name,omitempty" validate:"max=300"`
}

type RecordingInfo struct {
	Path           string `json:"path,omitempty" validate:"max=1000"`
	CopiedToGDrive bool   `json:"copied_to_gdrive,omitempty"`
	Removed        bool   `json:"removed,omitempty"`
}

type RequesterContact struct {
	FirstName   string `json:"first_name,omitempty" validate:"max=150"`
	LastName    string `json:"last_name,omitempty" validate:"max=150"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"max=30"`
}

// RequestData is the typed view of a request's additional_data.
type RequestData struct {
	StatusByAdmin *StatusOverride   `json:"status_by_admin,omitempty"`
	Accepted      *bool             `json:"accepted,omitempty"`
	Canceled      *bool             `json:"canceled,omitempty"`
	Failed        *bool             `json:"failed,omitempty"`
	Recording     *RecordingInfo    `json:"recording,omitempty"`
	CalendarID    string            `json:"calendar_id,omitempty" validate:"max=1024"`
	Requester     *RequesterContact `json:"requester,omitempty"`
	External      map[string]any    `json:"external,omitempty"`
}

func (d RequestData) OverrideStatus() (RequestStatus, bool) {
	if d.StatusByAdmin == nil || d.StatusByAdmin.Status == 0 {
		return 0, false
	}
	return RequestStatus(d.StatusByAdmin.Status), true
}

type CodingInfo struct {
	Website bool `json:"website,omitempty"`
}

type PublishingInfo struct {
	Website         string `json:"website,omitempty" validate:"omitempty,url"`
	EmailSentToUser bool   `json:"email_sent_to_user,omitempty"`
}

type ArchivingInfo struct {
	HQArchive bool `json:"hq_archive,omitempty"`
}

// VideoData is the typed view of a video's additional_data.
type VideoData struct {
	StatusByAdmin *StatusOverride `json:"status_by_admin,omitempty"`
	EditingDone   bool            `json:"editing_done,omitempty"`
	Length        *float64        `json:"length,omitempty" validate:"omitempty,gte=0"`
	Coding        *CodingInfo     `json:"coding,omitempty"`
	Publishing    *PublishingInfo `json:"publishing,omitempty"`
	Archiving     *ArchivingInfo  `json:"archiving,omitempty"`
	Aired         []string        `json:"aired,omitempty" validate:"omitempty,dive,datetime=2006-01-02"`
}

func (d VideoData) OverrideStatus() (VideoStatus, bool) {
	if d.StatusByAdmin == nil || d.StatusByAdmin.Status == 0 {
		return 0, false
	}
	return VideoStatus(d.StatusByAdmin.Status), true
}

func (d VideoData) PublishedURL() string {
	if d.Publishing == nil {
		return ""
	}
	return d.Publishing.Website
}

func (d VideoData) EmailSent() bool {
	return d.Publishing != nil && d.Publishing.EmailSentToUser
}
