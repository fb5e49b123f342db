// Package workflow derives request and video statuses from their
// additional_data documents and relational state, and propagates a change
// on one side of a request/video pair to the other.
package workflow

import (
	"crewflow/internal/models"
	"time"
)

// RequestInput is everything the request status depends on.
type RequestInput struct {
	Data        models.RequestData
	EndDatetime time.Time
	Videos      []VideoInput
}

// VideoInput is everything a video status depends on except its parent's
// status.
type VideoInput struct {
	ID        int64
	Stored    models.VideoStatus
	Data      models.VideoData
	HasEditor bool
}

type RequestOutcome struct {
	Status models.RequestStatus
	// Videos is filled when the request reached the uploaded stage and its
	// videos were re-derived against it.
	Videos []VideoOutcome
	// Steps names the rules that fired, in order.
	Steps []string
}

type VideoOutcome struct {
	ID       int64
	Previous models.VideoStatus
	Status   models.VideoStatus
	// Notify is set when the video has just been published and the
	// requester has not been mailed about it yet.
	Notify bool
	Steps  []string
}

type requestPass struct {
	status models.RequestStatus
	in     RequestInput
	now    time.Time
	videos []VideoOutcome
	steps  []string
}

type requestRule struct {
	name  string
	when  func(p *requestPass) bool
	apply func(p *requestPass)
}

// Evaluated in order against the same pass. Every rule is gated on the
// current status rather than on the previous rule firing, so one pass can
// walk several stages.
var requestRules = []requestRule{
	{
		name: "accepted",
		when: func(p *requestPass) bool { return p.in.Data.Accepted != nil },
		apply: func(p *requestPass) {
			if *p.in.Data.Accepted {
				p.status = models.RequestStatusAccepted
			} else {
				p.status = models.RequestStatusDenied
			}
		},
	},
	{
		name: "canceled",
		when: func(p *requestPass) bool {
			return p.status.InProduction() && isTrue(p.in.Data.Canceled)
		},
		apply: func(p *requestPass) { p.status = models.RequestStatusCanceled },
	},
	{
		name: "failed",
		when: func(p *requestPass) bool {
			return p.status.InProduction() && isTrue(p.in.Data.Failed)
		},
		apply: func(p *requestPass) { p.status = models.RequestStatusFailed },
	},
	{
		name: "recorded",
		when: func(p *requestPass) bool {
			return p.status.InProduction() && p.in.EndDatetime.Before(p.now)
		},
		apply: func(p *requestPass) { p.status = models.RequestStatusRecorded },
	},
	{
		name: "uploaded",
		when: func(p *requestPass) bool {
			return p.status.InProduction() && p.in.Data.Recording != nil && p.in.Data.Recording.Path != ""
		},
		apply: func(p *requestPass) {
			p.status = models.RequestStatusUploaded
			p.videos = make([]VideoOutcome, 0, len(p.in.Videos))
			for _, video := range p.in.Videos {
				p.videos = append(p.videos, DeriveVideo(video, p.status))
			}
		},
	},
	{
		name: "edited",
		when: func(p *requestPass) bool {
			return p.status == models.RequestStatusUploaded &&
				len(p.videos) > 0 &&
				allVideos(p.videos, func(s models.VideoStatus) bool { return s >= models.VideoStatusEdited })
		},
		apply: func(p *requestPass) { p.status = models.RequestStatusEdited },
	},
	{
		name: "archived",
		when: func(p *requestPass) bool {
			return p.status == models.RequestStatusEdited &&
				allVideos(p.videos, func(s models.VideoStatus) bool { return s == models.VideoStatusDone }) &&
				p.in.Data.Recording.CopiedToGDrive
		},
		apply: func(p *requestPass) { p.status = models.RequestStatusArchived },
	},
	{
		name: "done",
		when: func(p *requestPass) bool {
			return p.status == models.RequestStatusArchived && p.in.Data.Recording.Removed
		},
		apply: func(p *requestPass) { p.status = models.RequestStatusDone },
	},
}

// DeriveRequest computes a request's status from scratch. An admin override
// wins over everything else and leaves the videos alone. Otherwise the
// chain starts from requested; reaching the uploaded stage re-derives every
// video against it and the later stages look at those fresh statuses.
func DeriveRequest(in RequestInput, now time.Time) RequestOutcome {
	if status, ok := in.Data.OverrideStatus(); ok {
		return RequestOutcome{Status: status, Steps: []string{"status_by_admin"}}
	}

	pass := &requestPass{status: models.RequestStatusRequested, in: in, now: now}
	for _, rule := range requestRules {
		if rule.when(pass) {
			rule.apply(pass)
			pass.steps = append(pass.steps, rule.name)
		}
	}
	return RequestOutcome{Status: pass.status, Videos: pass.videos, Steps: pass.steps}
}

type videoPass struct {
	status models.VideoStatus
	in     VideoInput
	parent models.RequestStatus
	notify bool
	steps  []string
}

type videoRule struct {
	name  string
	when  func(p *videoPass) bool
	apply func(p *videoPass)
}

var videoRules = []videoRule{
	{
		name: "in_progress",
		when: func(p *videoPass) bool {
			return p.parent.AtLeast(models.RequestStatusUploaded) && p.in.HasEditor
		},
		apply: func(p *videoPass) { p.status = models.VideoStatusInProgress },
	},
	{
		name: "edited",
		when: func(p *videoPass) bool {
			return p.status == models.VideoStatusInProgress && p.in.Data.EditingDone
		},
		apply: func(p *videoPass) { p.status = models.VideoStatusEdited },
	},
	{
		name: "coded",
		when: func(p *videoPass) bool {
			return p.status == models.VideoStatusEdited && p.in.Data.Coding != nil && p.in.Data.Coding.Website
		},
		apply: func(p *videoPass) { p.status = models.VideoStatusCoded },
	},
	{
		name: "published",
		when: func(p *videoPass) bool {
			return p.status == models.VideoStatusCoded && p.in.Data.PublishedURL() != ""
		},
		apply: func(p *videoPass) {
			p.status = models.VideoStatusPublished
			if p.in.Stored < models.VideoStatusPublished && !p.in.Data.EmailSent() {
				p.notify = true
			}
		},
	},
	{
		name: "done",
		when: func(p *videoPass) bool {
			return p.status == models.VideoStatusPublished && p.in.Data.Archiving != nil && p.in.Data.Archiving.HQArchive
		},
		apply: func(p *videoPass) { p.status = models.VideoStatusDone },
	},
}

// DeriveVideo computes a video's status from scratch given its parent's
// status.
func DeriveVideo(in VideoInput, parent models.RequestStatus) VideoOutcome {
	outcome := VideoOutcome{ID: in.ID, Previous: in.Stored}
	if status, ok := in.Data.OverrideStatus(); ok {
		outcome.Status = status
		outcome.Steps = []string{"status_by_admin"}
		return outcome
	}

	pass := &videoPass{status: models.VideoStatusPending, in: in, parent: parent}
	for _, rule := range videoRules {
		if rule.when(pass) {
			rule.apply(pass)
			pass.steps = append(pass.steps, rule.name)
		}
	}
	outcome.Status = pass.status
	outcome.Notify = pass.notify
	outcome.Steps = pass.steps
	return outcome
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

func allVideos(videos []VideoOutcome, ok func(models.VideoStatus) bool) bool {
	for _, video := range videos {
		if !ok(video.Status) {
			return false
		}
	}
	return true
}
