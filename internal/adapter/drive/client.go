// Package drive is a minimal Google Drive v3 client covering the calls group
// resources need: create, upload, metadata, link sharing and delete.
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/port"
)

const (
	DefaultAPIBaseURL    = "https://www.googleapis.com/drive/v3"
	DefaultUploadBaseURL = "https://www.googleapis.com/upload/drive/v3"

	fileFields = "id,name,mimeType,size,webViewLink"
)

// Options overrides the Drive endpoints, mostly for tests.
type Options struct {
	APIBaseURL    string
	UploadBaseURL string
}

// Client is a Google Drive API client bound to one user's credentials.
type Client struct {
	httpClient *http.Client
	apiBase    string
	uploadBase string
}

// NewClient creates a client. httpClient must attach the user's OAuth token,
// e.g. one built by oauth2.NewClient.
func NewClient(httpClient *http.Client, opts Options) *Client {
	c := &Client{httpClient: httpClient, apiBase: opts.APIBaseURL, uploadBase: opts.UploadBaseURL}
	if c.apiBase == "" {
		c.apiBase = DefaultAPIBaseURL
	}
	if c.uploadBase == "" {
		c.uploadBase = DefaultUploadBaseURL
	}
	return c
}

// NewFactory returns a constructor producing clients that act with a user's
// stored token. Expired access tokens are refreshed through cfg.
func NewFactory(cfg *oauth2.Config, opts Options) func(ctx context.Context, tok *domain.TokenPair) port.DriveProvider {
	return func(ctx context.Context, tok *domain.TokenPair) port.DriveProvider {
		ts := cfg.TokenSource(ctx, &oauth2.Token{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Expiry:       tok.Expiry,
			TokenType:    tok.TokenType,
		})
		return NewClient(oauth2.NewClient(ctx, ts), opts)
	}
}

// APIError is a non-2xx Drive response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive: API error %d: %s", e.StatusCode, e.Message)
}

// CreateFile creates an empty file of the given MIME type.
func (c *Client) CreateFile(ctx context.Context, name, mimeType string) (*port.DriveFile, error) {
	body, err := json.Marshal(map[string]string{"name": name, "mimeType": mimeType})
	if err != nil {
		return nil, err
	}
	var file port.DriveFile
	err = c.do(ctx, http.MethodPost, c.apiBase+"/files?fields="+fileFields, "application/json", bytes.NewReader(body), &file)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	return &file, nil
}

// Upload stores content as a new file using a multipart upload.
func (c *Client) Upload(ctx context.Context, name, mimeType string, content io.Reader) (*port.DriveFile, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, name, mimeType, content))
	}()

	var file port.DriveFile
	endpoint := c.uploadBase + "/files?uploadType=multipart&fields=" + fileFields
	err := c.do(ctx, http.MethodPost, endpoint, "multipart/related; boundary="+mw.Boundary(), pr, &file)
	// Unblock the writer if the request ended before reading the whole body.
	_ = pr.Close()
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	return &file, nil
}

func writeMultipart(mw *multipart.Writer, name, mimeType string, content io.Reader) error {
	meta, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"application/json; charset=UTF-8"}})
	if err != nil {
		return err
	}
	if err := json.NewEncoder(meta).Encode(map[string]string{"name": name, "mimeType": mimeType}); err != nil {
		return err
	}
	data, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {mimeType}})
	if err != nil {
		return err
	}
	if _, err := io.Copy(data, content); err != nil {
		return err
	}
	return mw.Close()
}

// GetFile returns file metadata.
func (c *Client) GetFile(ctx context.Context, fileID string) (*port.DriveFile, error) {
	var file port.DriveFile
	endpoint := fmt.Sprintf("%s/files/%s?fields=%s", c.apiBase, url.PathEscape(fileID), fileFields)
	if err := c.do(ctx, http.MethodGet, endpoint, "", nil, &file); err != nil {
		return nil, fmt.Errorf("get file %s: %w", fileID, err)
	}
	return &file, nil
}

// ShareWithLink lets anyone with the link edit the file.
func (c *Client) ShareWithLink(ctx context.Context, fileID string) error {
	body, err := json.Marshal(map[string]any{"role": "writer", "type": "anyone", "allowFileDiscovery": false})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/files/%s/permissions", c.apiBase, url.PathEscape(fileID))
	if err := c.do(ctx, http.MethodPost, endpoint, "application/json", bytes.NewReader(body), nil); err != nil {
		return fmt.Errorf("share file %s: %w", fileID, err)
	}
	return nil
}

// DeleteFile permanently deletes a file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	endpoint := fmt.Sprintf("%s/files/%s", c.apiBase, url.PathEscape(fileID))
	if err := c.do(ctx, http.MethodDelete, endpoint, "", nil, nil); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
		var payload struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
			apiErr.Message = payload.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
