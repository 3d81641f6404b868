package domain

import "time"

// ObjectInfo describes a stored artifact in the object store.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// UploadTicket is a presigned upload URL pair handed to a client so it can
// push an artifact directly to the object store.
type UploadTicket struct {
	UploadURL string `json:"uploadUrl"`
	ObjectURL string `json:"objectUrl"`
}
