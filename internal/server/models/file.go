package models

import "time"

// File type tags assigned by the upload allow-list.
const (
	FileTypeImage   = "image"
	FileTypeArchive = "file"
)

// File describes an uploaded blob. StorageName is generated server-side and
// is the only value ever used to address the physical blob; OriginalName is
// kept for display only.
type File struct {
	ID           int64
	UserID       int64
	UploaderName string
	StorageName  string
	OriginalName string
	FileType     string
	FileSize     int64
	UploadTime   time.Time
}
