package additionaldata

import (
	"crewflow/internal/models"

	json "github.com/goccy/go-json"
)

// Keys only administrators may write. accepted/canceled/failed and the
// override drive the status derivation; calendar_id belongs to the
// calendar integration.
var adminOnlyKeys = []string{
	models.KeyStatusByAdmin,
	models.KeyAccepted,
	models.KeyCanceled,
	models.KeyFailed,
	models.KeyCalendarID,
}

// Sanitize strips the parts of patch the caller is not allowed to write
// and returns a new patch ready for DeepMerge. existing is the stored
// document of the entity being updated, nil on creation. patch itself is
// left untouched.
//
// Nothing here returns an error: forbidden fields are dropped silently.
func Sanitize(patch map[string]any, caller models.Caller, existing map[string]any) map[string]any {
	out := make(map[string]any, len(patch))
	for key, value := range patch {
		out[key] = value
	}

	// only the system writes these. A null publishing block is kept: it
	// takes email_sent_to_user with it, so the next publish mails again.
	delete(out, models.KeyRequester)
	if publishing, ok := out[models.KeyPublishing].(map[string]any); ok {
		stripped := make(map[string]any, len(publishing))
		for key, value := range publishing {
			if key != models.KeyEmailSentToUser {
				stripped[key] = value
			}
		}
		out[models.KeyPublishing] = stripped
	}

	if !caller.IsAdmin {
		for _, key := range adminOnlyKeys {
			delete(out, key)
		}
		return out
	}

	override, present := out[models.KeyStatusByAdmin]
	if !present {
		return out
	}

	requested, _ := overrideStatus(override)
	current, _ := overrideStatus(existing[models.KeyStatusByAdmin])
	if requested == current {
		// unchanged: keep the admin who actually set it
		delete(out, models.KeyStatusByAdmin)
		return out
	}

	if fields, ok := override.(map[string]any); ok {
		stamped := make(map[string]any, len(fields)+2)
		for key, value := range fields {
			stamped[key] = value
		}
		stamped[models.KeyAdminID] = caller.ID
		stamped[models.KeyAdminName] = caller.Name
		out[models.KeyStatusByAdmin] = stamped
	}

	return out
}

// overrideStatus reads status_by_admin.status. Missing, null and zero all
// come back as 0, false.
func overrideStatus(override any) (int64, bool) {
	fields, ok := override.(map[string]any)
	if !ok {
		return 0, false
	}

	var status int64
	switch v := fields[models.KeyStatus].(type) {
	case float64:
		status = int64(v)
	case int:
		status = int64(v)
	case int64:
		status = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		status = n
	default:
		return 0, false
	}

	if status == 0 {
		return 0, false
	}
	return status, true
}
