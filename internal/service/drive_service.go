package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

// GoogleDocMimeType makes Drive create a native Google Doc.
const GoogleDocMimeType = "application/vnd.google-apps.document"

// DriveClientFactory returns a Drive client acting with the user's OAuth token.
type DriveClientFactory func(ctx context.Context, token *domain.TokenPair) port.DriveProvider

// DriveService manages Drive-backed group resources.
type DriveService struct {
	groups    *GroupService
	store     port.GroupStore
	users     port.UserStore
	newClient DriveClientFactory
	now       func() time.Time
}

// NewDriveService creates a new Drive resource service.
func NewDriveService(groups *GroupService, store port.GroupStore, users port.UserStore, factory DriveClientFactory) *DriveService {
	return &DriveService{
		groups:    groups,
		store:     store,
		users:     users,
		newClient: factory,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// client builds a Drive client from the user's stored Google token.
func (s *DriveService) client(ctx context.Context, userID string) (port.DriveProvider, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u.AccessToken == "" && u.RefreshToken == "" {
		return nil, port.ErrNoDriveToken
	}
	return s.newClient(ctx, u.Token()), nil
}

// share grants link access. Failures only cost the share, so they are logged.
func (s *DriveService) share(ctx context.Context, drive port.DriveProvider, fileID string) {
	if err := drive.ShareWithLink(ctx, fileID); err != nil {
		slog.Warn("set link sharing failed", "file_id", fileID, "error", err)
	}
}

// CreateDocument creates a Google Doc and attaches it to the group.
func (s *DriveService) CreateDocument(ctx context.Context, user domain.UserContext, groupID, title string) (*domain.Resource, error) {
	title, err := cleanName(title)
	if err != nil {
		return nil, err
	}
	if _, err := s.groups.RequireMember(ctx, groupID, user.UserID); err != nil {
		return nil, err
	}
	drive, err := s.client(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	created, err := drive.CreateFile(ctx, title, GoogleDocMimeType)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	file, err := drive.GetFile(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("get document details: %w", err)
	}
	s.share(ctx, drive, file.ID)

	res := domain.Resource{
		ID:        file.ID,
		Name:      file.Name,
		URL:       file.WebViewLink,
		Type:      domain.ResourceTypeGoogleDoc,
		CreatedBy: user.UserID,
		CreatedAt: s.now(),
	}
	if err := s.store.AddResource(ctx, groupID, domain.ResourceKindDocuments, res); err != nil {
		return nil, fmt.Errorf("add document to group: %w", err)
	}

	slog.Info("document created", "group_id", groupID, "file_id", file.ID, "user_id", user.UserID)
	return &res, nil
}

// UploadFile stores content in Drive and attaches it to the group.
func (s *DriveService) UploadFile(ctx context.Context, user domain.UserContext, groupID, name, mimeType string, size int64, content io.Reader) (*domain.Resource, error) {
	name, err := cleanFileName(name)
	if err != nil {
		return nil, err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	if _, err := s.groups.RequireMember(ctx, groupID, user.UserID); err != nil {
		return nil, err
	}
	drive, err := s.client(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	uploaded, err := drive.Upload(ctx, name, mimeType, content)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	file, err := drive.GetFile(ctx, uploaded.ID)
	if err != nil {
		return nil, fmt.Errorf("get file details: %w", err)
	}
	s.share(ctx, drive, file.ID)

	res := domain.Resource{
		ID:        file.ID,
		Name:      file.Name,
		URL:       file.WebViewLink,
		MimeType:  file.MimeType,
		Size:      file.Size,
		CreatedBy: user.UserID,
		CreatedAt: s.now(),
	}
	if res.Size == 0 {
		res.Size = size
	}
	if res.MimeType == "" {
		res.MimeType = mimeType
	}
	if err := s.store.AddResource(ctx, groupID, domain.ResourceKindFiles, res); err != nil {
		return nil, fmt.Errorf("add file to group: %w", err)
	}

	slog.Info("file uploaded", "group_id", groupID, "file_id", file.ID, "size", res.Size)
	return &res, nil
}

// DeleteResource detaches the resource from the group, then deletes it from
// Drive. The Drive deletion is best effort: its failure is logged only.
func (s *DriveService) DeleteResource(ctx context.Context, user domain.UserContext, groupID, kind, resourceID string) error {
	if !domain.ValidResourceKind(kind) {
		return fmt.Errorf("%w: unknown resource kind %q", port.ErrInvalidInput, kind)
	}
	if _, err := s.groups.RequireMember(ctx, groupID, user.UserID); err != nil {
		return err
	}
	if _, err := s.store.RemoveResource(ctx, groupID, kind, resourceID); err != nil {
		return err
	}

	drive, err := s.client(ctx, user.UserID)
	if err != nil {
		slog.Warn("drive deletion skipped", "file_id", resourceID, "error", err)
		return nil
	}
	if err := drive.DeleteFile(ctx, resourceID); err != nil {
		slog.Warn("drive deletion failed", "file_id", resourceID, "error", err)
	}
	return nil
}

// SyncNames refreshes resource names from Drive metadata and returns how many
// changed. Resources that cannot be read are skipped.
func (s *DriveService) SyncNames(ctx context.Context, user domain.UserContext, groupID string) (int, error) {
	g, err := s.groups.RequireMember(ctx, groupID, user.UserID)
	if err != nil {
		return 0, err
	}
	drive, err := s.client(ctx, user.UserID)
	if errors.Is(err, port.ErrNoDriveToken) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	renamed := 0
	for _, kind := range []string{domain.ResourceKindDocuments, domain.ResourceKindFiles} {
		for _, res := range g.Resources.Of(kind) {
			file, err := drive.GetFile(ctx, res.ID)
			if err != nil {
				slog.Warn("resource sync skipped", "group_id", groupID, "kind", kind, "file_id", res.ID, "error", err)
				continue
			}
			if file.Name == "" || file.Name == res.Name {
				continue
			}
			if err := s.store.RenameResource(ctx, groupID, kind, res.ID, file.Name); err != nil {
				slog.Warn("resource rename failed", "group_id", groupID, "file_id", res.ID, "error", err)
				continue
			}
			renamed++
		}
	}
	return renamed, nil
}

func cleanFileName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: file name is required", port.ErrInvalidInput)
	}
	return name, nil
}
