package repository

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/models"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory keeps users, requests and videos in process. Every read and write
// copies the record so callers never share state with the store.
type Memory struct {
	mu       sync.RWMutex
	nextID   int64
	users    map[int64]models.User
	requests map[int64]models.Request
	videos   map[int64]models.Video
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[int64]models.User),
		requests: make(map[int64]models.Request),
		videos:   make(map[int64]models.Video),
	}
}

func (m *Memory) Users() UserRepository       { return memoryUsers{m} }
func (m *Memory) Requests() RequestRepository { return memoryRequests{m} }
func (m *Memory) Videos() VideoRepository     { return memoryVideos{m} }

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

type memoryUsers struct{ m *Memory }

func (r memoryUsers) Create(_ context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	user.ID = r.m.id()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	user, ok := r.m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r memoryUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var found *models.User
	for _, user := range r.m.users {
		if !strings.EqualFold(user.Email, email) {
			continue
		}
		if found == nil || user.ID < found.ID {
			u := user
			found = &u
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

type memoryRequests struct{ m *Memory }

func (r memoryRequests) Create(_ context.Context, request *models.Request) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	request.ID = r.m.id()
	request.Created = time.Now()
	r.m.requests[request.ID] = copyRequest(*request)
	return nil
}

func (r memoryRequests) GetByID(_ context.Context, id int64) (*models.Request, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	request, ok := r.m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	request = copyRequest(request)
	return &request, nil
}

func (r memoryRequests) Update(_ context.Context, request *models.Request) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.requests[request.ID]
	if !ok {
		return ErrNotFound
	}
	updated := copyRequest(*request)
	// status and provenance are not written by Update
	updated.Status = stored.Status
	updated.Created = stored.Created
	updated.RequesterID = stored.RequesterID
	updated.RequestedByID = stored.RequestedByID
	r.m.requests[request.ID] = updated
	return nil
}

func (r memoryRequests) UpdateStatus(_ context.Context, id int64, status models.RequestStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	request, ok := r.m.requests[id]
	if !ok {
		return ErrNotFound
	}
	request.Status = status
	r.m.requests[id] = request
	return nil
}

func (r memoryRequests) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.requests[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.requests, id)
	for videoID, video := range r.m.videos {
		if video.RequestID == id {
			delete(r.m.videos, videoID)
		}
	}
	return nil
}

type memoryVideos struct{ m *Memory }

func (r memoryVideos) Create(_ context.Context, video *models.Video) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.requests[video.RequestID]; !ok {
		return ErrNotFound
	}
	video.ID = r.m.id()
	r.m.videos[video.ID] = copyVideo(*video)
	return nil
}

func (r memoryVideos) GetByID(_ context.Context, id int64) (*models.Video, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	video, ok := r.m.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	video = copyVideo(video)
	return &video, nil
}

func (r memoryVideos) ListByRequest(_ context.Context, requestID int64) ([]models.Video, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var videos []models.Video
	for _, video := range r.m.videos {
		if video.RequestID == requestID {
			videos = append(videos, copyVideo(video))
		}
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].ID < videos[j].ID })
	return videos, nil
}

func (r memoryVideos) Update(_ context.Context, video *models.Video) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.videos[video.ID]
	if !ok {
		return ErrNotFound
	}
	updated := copyVideo(*video)
	updated.Status = stored.Status
	updated.RequestID = stored.RequestID
	r.m.videos[video.ID] = updated
	return nil
}

func (r memoryVideos) UpdateStatus(_ context.Context, id int64, status models.VideoStatus) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	video, ok := r.m.videos[id]
	if !ok {
		return ErrNotFound
	}
	video.Status = status
	r.m.videos[id] = video
	return nil
}

func (r memoryVideos) MergeAdditionalData(_ context.Context, id int64, patch map[string]any) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	video, ok := r.m.videos[id]
	if !ok {
		return ErrNotFound
	}
	video.AdditionalData = additionaldata.DeepMerge(additionaldata.Clone(video.AdditionalData), additionaldata.Clone(patch))
	r.m.videos[id] = video
	return nil
}

func copyRequest(request models.Request) models.Request {
	request.AdditionalData = additionaldata.Clone(request.AdditionalData)
	if request.Deadline != nil {
		deadline := *request.Deadline
		request.Deadline = &deadline
	}
	request.ResponsibleID = copyID(request.ResponsibleID)
	request.RequestedByID = copyID(request.RequestedByID)
	return request
}

func copyVideo(video models.Video) models.Video {
	video.AdditionalData = additionaldata.Clone(video.AdditionalData)
	video.EditorID = copyID(video.EditorID)
	return video
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
