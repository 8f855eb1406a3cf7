package entity

import "encoding/json"

// AccessNoteKey is the metadata key the last access note is stored under.
const AccessNoteKey = "last_access"

// MergeAccessNote stores note under AccessNoteKey when metadata is absent
// or a JSON object. Any other JSON value is returned unchanged.
func MergeAccessNote(metadata json.RawMessage, note string) json.RawMessage {
	doc := map[string]any{}
	if len(metadata) > 0 && string(metadata) != "null" {
		if err := json.Unmarshal(metadata, &doc); err != nil {
			return metadata
		}
	}

	doc[AccessNoteKey] = note

	merged, err := json.Marshal(doc)
	if err != nil {
		return metadata
	}

	return merged
}

// DatabaseInfo describes the backing store for health reporting.
type DatabaseInfo struct {
	Name    string
	Version string
}
