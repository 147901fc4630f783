package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
)

// GetFile resolves a file id to a File whose FilePath can be downloaded.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: empty file id", ErrInvalidArgument)
	}
	f, err := Send[File](ctx, c, GetFile{FileID: fileID})
	if err != nil {
		return nil, err
	}
	slog.Debug("file path resolved", "component", "telegram", "operation", "get_file", "file_path", f.FilePath)
	return &f, nil
}

// DownloadFile streams the file at filePath (as returned by GetFile) into w
// and returns the number of bytes written.
func (c *Client) DownloadFile(ctx context.Context, filePath string, w io.Writer) (int64, error) {
	slog.Debug("telegram API download file", "component", "telegram", "operation", "download_file", "file_path", filePath)

	if filePath == "" {
		return 0, fmt.Errorf("%w: empty file path", ErrInvalidArgument)
	}

	// Files live under /file/bot<token>/, next to the method base URL.
	fileURL := c.endpoint + "file/bot" + c.token + "/" + filePath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("telegram: download file: create request: %w", err)
	}

	resp, err := httpDo(c.httpClient, req)
	if err != nil {
		return 0, fmt.Errorf("telegram: download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("telegram: download file: unexpected status %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("telegram: download file: read body: %w", err)
	}

	slog.Debug("file downloaded", "component", "telegram", "operation", "download_file", "size", n)
	return n, nil
}

// Download resolves fileID and streams its content into w. It returns the
// base name of the remote file.
func (c *Client) Download(ctx context.Context, fileID string, w io.Writer) (string, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	if f.FilePath == "" {
		return "", fmt.Errorf("telegram: download: empty file_path for file_id %s", fileID)
	}
	if _, err := c.DownloadFile(ctx, f.FilePath, w); err != nil {
		return "", err
	}
	return path.Base(f.FilePath), nil
}
