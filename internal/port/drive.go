package port

import (
	"context"
	"io"
)

// DriveFile is the subset of Drive file metadata the app relies on.
type DriveFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MimeType    string `json:"mimeType"`
	Size        int64  `json:"size,string"`
	WebViewLink string `json:"webViewLink"`
}

// DriveProvider abstracts the Google Drive API for a single authenticated user.
type DriveProvider interface {
	// CreateFile creates an empty file (e.g. a Google Doc) with the given MIME type.
	CreateFile(ctx context.Context, name, mimeType string) (*DriveFile, error)

	// Upload stores content as a new file.
	Upload(ctx context.Context, name, mimeType string, content io.Reader) (*DriveFile, error)

	// GetFile returns file metadata.
	GetFile(ctx context.Context, fileID string) (*DriveFile, error)

	// ShareWithLink grants "anyone with the link can edit".
	ShareWithLink(ctx context.Context, fileID string) error

	// DeleteFile permanently deletes a file.
	DeleteFile(ctx context.Context, fileID string) error
}
