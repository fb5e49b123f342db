// Package additionaldata holds the write path of the free-form
// additional_data documents carried by requests and videos: field-level
// sanitizing of client patches, deep merging into the stored document and
// schema checks.
package additionaldata

// DeepMerge applies patch onto original and returns original.
//
// Nested objects are merged key by key so siblings the patch does not
// mention survive at every level. A nil value removes the key. original is
// modified in place; a nil original starts from an empty document.
func DeepMerge(original, patch map[string]any) map[string]any {
	if original == nil {
		original = make(map[string]any, len(patch))
	}

	for key, value := range patch {
		switch v := value.(type) {
		case map[string]any:
			sub, ok := original[key].(map[string]any)
			if !ok {
				sub = make(map[string]any, len(v))
			}
			original[key] = DeepMerge(sub, v)
		case nil:
			delete(original, key)
		default:
			original[key] = v
		}
	}

	return original
}

// Clone returns a deep copy of doc. Nested objects and arrays are copied,
// scalars are shared.
func Clone(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for key, value := range doc {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Clone(v)
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return v
	}
}
