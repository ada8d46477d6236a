package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/tukey-analytics/tukey/internal/types"
)

// UploadPOS uploads a point-of-sale data file as the multipart field "file"
func (c *Client) UploadPOS(ctx context.Context, filename string, file io.Reader) (*types.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, NewClientInternalError(err, "creating upload form")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, NewClientInternalError(err, "reading upload file")
	}
	if err := mw.Close(); err != nil {
		return nil, NewClientInternalError(err, "closing upload form")
	}

	var result types.UploadResult
	err = c.do(ctx, apiRequest{
		op:          "upload pos",
		method:      http.MethodPost,
		path:        "/pos/upload",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
