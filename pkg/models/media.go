package models

import "time"

// UploadResponse is returned by POST /api/uploads. Only Token is stored in
// a node config.
type UploadResponse struct {
	Token      string    `json:"token"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type,omitempty"`
	FileSize   int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
}
