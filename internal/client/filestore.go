package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/healthcampaign/project-factory/internal/domain"
)

// FileStoreClient downloads and uploads workbooks.
type FileStoreClient struct {
	c          *Client
	urlPath    string
	uploadPath string
}

// NewFileStoreClient binds the signed-url and upload paths.
func NewFileStoreClient(c *Client, urlPath, uploadPath string) *FileStoreClient {
	return &FileStoreClient{c: c, urlPath: urlPath, uploadPath: uploadPath}
}

// SignedURL resolves a file-store id to a download URL.
func (f *FileStoreClient) SignedURL(ctx context.Context, tenantID, fileStoreID string) (string, error) {
	q := url.Values{}
	q.Set("tenantId", tenantID)
	q.Set("fileStoreIds", fileStoreID)
	var out struct {
		FileStoreIDs []struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"fileStoreIds"`
	}
	if _, err := f.c.GetJSON(ctx, f.urlPath, q, &out); err != nil {
		return "", fmt.Errorf("file url lookup failed: %w", err)
	}
	for _, entry := range out.FileStoreIDs {
		if entry.ID == fileStoreID && entry.URL != "" {
			return entry.URL, nil
		}
	}
	return "", domain.NewAppError(http.StatusBadRequest, domain.CodeFileURLNotFound, "File url not found",
		fmt.Sprintf("no download url for file store id %s", fileStoreID))
}

// Fetch downloads the file behind fileStoreID.
func (f *FileStoreClient) Fetch(ctx context.Context, tenantID, fileStoreID string) ([]byte, error) {
	u, err := f.SignedURL(ctx, tenantID, fileStoreID)
	if err != nil {
		return nil, err
	}
	data, err := f.c.Download(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileStoreID, err)
	}
	return data, nil
}

// Upload stores data and returns the new file-store id.
func (f *FileStoreClient) Upload(ctx context.Context, tenantID, module, fileName string, data []byte) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	_ = w.WriteField("tenantId", tenantID)
	_ = w.WriteField("module", module)
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload body: %w", err)
	}

	var out struct {
		Files []struct {
			FileStoreID string `json:"fileStoreId"`
		} `json:"files"`
	}
	if _, err := f.c.do(ctx, http.MethodPost, f.c.URL(f.uploadPath, nil), &buf, w.FormDataContentType(), &out); err != nil {
		return "", fmt.Errorf("file upload failed: %w", err)
	}
	if len(out.Files) == 0 || out.Files[0].FileStoreID == "" {
		return "", fmt.Errorf("file upload returned no file store id")
	}
	return out.Files[0].FileStoreID, nil
}
