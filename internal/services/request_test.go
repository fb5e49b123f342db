package services

import (
	"context"
	"crewflow/internal/additionaldata"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestInput() CreateRequestInput {
	return CreateRequestInput{
		Title:         "Graduation",
		StartDatetime: fixtureNow.Add(24 * time.Hour),
		EndDatetime:   fixtureNow.Add(26 * time.Hour),
		Place:         "Aula",
		Type:          "ceremony",
	}
}

func contact(email string) *RequesterContact {
	return &RequesterContact{
		Email:     email,
		FirstName: "Jane",
		LastName:  "Doe",
		Mobile:    "+36301234567",
	}
}

func TestRequestService_CreateAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("requires requester details", func(t *testing.T) {
		_, err := f.requests.Create(ctx, nil, requestInput())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("creates an inactive requester", func(t *testing.T) {
		input := requestInput()
		input.Requester = contact("Jane.Doe@Example.com")

		request, err := f.requests.Create(ctx, nil, input)
		require.NoError(t, err)

		assert.Equal(t, models.RequestStatusRequested, request.Status)
		assert.Nil(t, request.RequestedByID)
		assert.NotContains(t, request.AdditionalData, models.KeyRequester)

		requester, err := f.store.Users().GetByID(ctx, request.RequesterID)
		require.NoError(t, err)
		assert.False(t, requester.IsActive)
		assert.False(t, requester.HasUsablePassword())
		assert.Equal(t, "jane.doe@example.com", requester.Username)
		assert.Equal(t, "+36301234567", requester.Profile.PhoneNumber)
	})

	t.Run("rejects incomplete contact details", func(t *testing.T) {
		input := requestInput()
		input.Requester = &RequesterContact{Email: "not-an-email", FirstName: "Jane"}

		_, err := f.requests.Create(ctx, nil, input)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestRequestService_CreateForExistingRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := requestInput()
	input.Requester = contact("GUEST@example.com")
	input.AdditionalData = map[string]any{
		models.KeyRequester: map[string]any{"first_name": "Mallory"},
	}

	request, err := f.requests.Create(ctx, f.staff, input)
	require.NoError(t, err)

	assert.Equal(t, f.guest.ID, request.RequesterID)
	require.NotNil(t, request.RequestedByID)
	assert.Equal(t, f.staff.ID, *request.RequestedByID)

	// submitted details are kept next to the account, the patch cannot forge them
	assert.Equal(t, map[string]any{
		"first_name":   "Jane",
		"last_name":    "Doe",
		"phone_number": "+36301234567",
	}, request.AdditionalData[models.KeyRequester])
}

func TestRequestService_CreateRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*CreateRequestInput)
		wantErr error
	}{
		{
			name:    "missing title",
			mutate:  func(in *CreateRequestInput) { in.Title = "" },
			wantErr: ErrInvalidInput,
		},
		{
			name: "start after end",
			mutate: func(in *CreateRequestInput) {
				in.StartDatetime = in.EndDatetime.Add(time.Minute)
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "deadline on the end date",
			mutate: func(in *CreateRequestInput) {
				deadline := in.EndDatetime
				in.Deadline = &deadline
			},
			wantErr: ErrInvalidInput,
		},
		{
			name: "unknown additional_data key",
			mutate: func(in *CreateRequestInput) {
				in.AdditionalData = map[string]any{"colour": "red"}
			},
			wantErr: additionaldata.ErrInvalidDocument,
		},
		{
			name: "override outside the enum",
			mutate: func(in *CreateRequestInput) {
				in.AdditionalData = map[string]any{
					models.KeyStatusByAdmin: map[string]any{models.KeyStatus: 42},
				}
			},
			wantErr: additionaldata.ErrInvalidDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := requestInput()
			tt.mutate(&input)
			_, err := f.requests.Create(ctx, f.admin, input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequestService_CreateDerivesStatus(t *testing.T) {
	f := newFixture(t)

	request := f.createRequest(t, map[string]any{models.KeyAccepted: true})

	assert.Equal(t, models.RequestStatusRecorded, request.Status)
}

func TestRequestService_UpdateAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.createRequest(t, nil)

	title := "Renamed"
	_, err := f.requests.Update(ctx, nil, request.ID, UpdateRequestInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.requests.Update(ctx, f.guest, request.ID, UpdateRequestInput{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.requests.Update(ctx, f.staff, 9999, UpdateRequestInput{Title: &title})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	updated, err := f.requests.Update(ctx, f.staff, request.ID, UpdateRequestInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
}

func TestRequestService_UpdateStripsAdminKeysForStaff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.createRequest(t, nil)

	updated, err := f.requests.Update(ctx, f.staff, request.ID, UpdateRequestInput{
		AdditionalData: map[string]any{
			models.KeyAccepted:   true,
			models.KeyCalendarID: "evt-1",
			"recording":          map[string]any{"path": "/mnt/raw/concert"},
		},
	})
	require.NoError(t, err)

	assert.NotContains(t, updated.AdditionalData, models.KeyAccepted)
	assert.NotContains(t, updated.AdditionalData, models.KeyCalendarID)
	assert.Equal(t, map[string]any{"path": "/mnt/raw/concert"}, updated.AdditionalData["recording"])
	assert.Equal(t, models.RequestStatusRequested, updated.Status)
}

func TestRequestService_UpdateMergesAndDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.createRequest(t, map[string]any{
		models.KeyAccepted: true,
		"recording":        map[string]any{"path": "/mnt/raw/concert"},
	})
	require.Equal(t, models.RequestStatusUploaded, request.Status)

	updated, err := f.requests.Update(ctx, f.admin, request.ID, UpdateRequestInput{
		AdditionalData: map[string]any{
			"recording":        map[string]any{"copied_to_gdrive": true},
			models.KeyAccepted: nil,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"path":             "/mnt/raw/concert",
		"copied_to_gdrive": true,
	}, updated.AdditionalData["recording"])
	assert.NotContains(t, updated.AdditionalData, models.KeyAccepted)
	assert.Equal(t, models.RequestStatusRequested, updated.Status)
}

func TestRequestService_AdminOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.createRequest(t, map[string]any{models.KeyAccepted: true})

	override := map[string]any{models.KeyStatus: int(models.RequestStatusFailed)}
	updated, err := f.requests.Update(ctx, f.admin, request.ID, UpdateRequestInput{
		AdditionalData: map[string]any{models.KeyStatusByAdmin: override},
	})
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusFailed, updated.Status)
	stamp, ok := updated.AdditionalData[models.KeyStatusByAdmin].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, f.admin.ID, stamp[models.KeyAdminID])
	assert.Equal(t, f.admin.Name, stamp[models.KeyAdminName])

	// a second admin repeating the same status does not take over the stamp
	other := f.addUser(t, "other-admin@example.com", false, true)
	again, err := f.requests.Update(ctx, other, request.ID, UpdateRequestInput{
		AdditionalData: map[string]any{models.KeyStatusByAdmin: override},
	})
	require.NoError(t, err)
	stamp = again.AdditionalData[models.KeyStatusByAdmin].(map[string]any)
	assert.Equal(t, f.admin.ID, stamp[models.KeyAdminID])

	// clearing the override hands control back to the rules
	cleared, err := f.requests.Update(ctx, f.admin, request.ID, UpdateRequestInput{
		AdditionalData: map[string]any{models.KeyStatusByAdmin: nil},
	})
	require.NoError(t, err)
	assert.NotContains(t, cleared.AdditionalData, models.KeyStatusByAdmin)
	assert.Equal(t, models.RequestStatusRecorded, cleared.Status)
}

func TestRequestService_UpdateScalars(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.createRequest(t, nil)

	missing := int64(9999)
	_, err := f.requests.Update(ctx, f.staff, request.ID, UpdateRequestInput{ResponsibleID: &missing})
	assert.ErrorIs(t, err, ErrInvalidInput)

	deadline := fixtureNow.Add(7 * 24 * time.Hour)
	updated, err := f.requests.Update(ctx, f.staff, request.ID, UpdateRequestInput{
		ResponsibleID: &f.staff.ID,
		Deadline:      &deadline,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ResponsibleID)
	assert.Equal(t, f.staff.ID, *updated.ResponsibleID)
	require.NotNil(t, updated.Deadline)

	updated, err = f.requests.Update(ctx, f.staff, request.ID, UpdateRequestInput{ClearDeadline: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Deadline)
}

func TestRequestService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	request := f.createRequest(t, nil)

	assert.ErrorIs(t, f.requests.Delete(ctx, f.staff, request.ID), ErrForbidden)
	require.NoError(t, f.requests.Delete(ctx, f.admin, request.ID))

	_, err := f.requests.Get(ctx, request.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
