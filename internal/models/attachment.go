package models

import "encoding/json"

// Attachment describes one stored file descriptor. At most one of URL or Data
// carries content: URL means externally hosted, Data means inlined base64.
// Both empty means the payload was too large to keep; name and type survive
// so the portal can still list the file.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
	Data string `json:"data"`
}

// HasContent reports whether the descriptor still carries the file payload.
func (a Attachment) HasContent() bool {
	return a.URL != "" || a.Data != ""
}

// EncodeAttachments serializes descriptors for the record store's files column.
func EncodeAttachments(attachments []Attachment) (string, error) {
	if len(attachments) == 0 {
		return "", nil
	}

	payload, err := json.Marshal(attachments)
	if err != nil {
		return "", err
	}

	return string(payload), nil
}

// DecodeAttachments parses the files column. The store gives no schema
// guarantees, so malformed content yields an empty list rather than an error.
func DecodeAttachments(raw string) []Attachment {
	if raw == "" {
		return nil
	}

	var attachments []Attachment
	if err := json.Unmarshal([]byte(raw), &attachments); err != nil {
		return nil
	}

	return attachments
}
