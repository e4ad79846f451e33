// Package pdfparse talks to the remote PDF parsing service that turns
// PDF bytes into per-page markdown.
package pdfparse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hsn0918/plagiarism/internal/clients/base"
	"github.com/hsn0918/plagiarism/internal/config"
)

// DefaultPollInterval between status checks while a parse is running.
const DefaultPollInterval = 2 * time.Second

// Parser converts a PDF into markdown.
type Parser interface {
	ParsePDF(ctx context.Context, pdfData []byte) (string, error)
}

// Client implements Parser against the upload/status API.
type Client struct {
	http         *base.HTTPClient
	pollInterval time.Duration
}

type uploadResponse struct {
	Code string `json:"code"`
	Data struct {
		UID string `json:"uid"`
	} `json:"data"`
}

// StatusResponse is the parse status payload. Result is set once the
// parse finished.
type StatusResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg,omitempty"`
	Data *struct {
		Progress int    `json:"progress"`
		Status   string `json:"status"`
		Detail   string `json:"detail"`
		Result   *struct {
			Pages []struct {
				PageIdx int    `json:"page_idx"`
				Md      string `json:"md"`
			} `json:"pages"`
		} `json:"result"`
	} `json:"data"`
}

// NewClient creates a parser client from config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		http:         base.NewHTTPClient("pdfparse", cfg.PdfParse),
		pollInterval: DefaultPollInterval,
	}
}

// Upload submits the PDF bytes and returns the parse job uid.
func (c *Client) Upload(ctx context.Context, pdfData []byte) (string, error) {
	var resp uploadResponse
	if err := c.http.PostBytes(ctx, "/api/v2/parse/pdf", "application/pdf", pdfData, &resp); err != nil {
		return "", err
	}
	if resp.Code != "success" || resp.Data.UID == "" {
		return "", fmt.Errorf("pdfparse: upload rejected: %s", resp.Code)
	}
	return resp.Data.UID, nil
}

// GetStatus fetches the current state of a parse job.
func (c *Client) GetStatus(ctx context.Context, uid string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.http.Get(ctx, "/api/v2/parse/status", map[string]string{"uid": uid}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitForParsing polls until the job finishes or ctx is cancelled.
func (c *Client) WaitForParsing(ctx context.Context, uid string) (*StatusResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.GetStatus(ctx, uid)
		if err != nil {
			return nil, err
		}
		if status.Code != "success" {
			return nil, fmt.Errorf("pdfparse: parse failed: %s %s", status.Code, status.Msg)
		}
		if status.Data == nil {
			return nil, fmt.Errorf("pdfparse: status without data for uid %s", uid)
		}

		switch status.Data.Status {
		case "success":
			return status, nil
		case "failed":
			return nil, fmt.Errorf("pdfparse: parse failed: %s", status.Data.Detail)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ParsePDF uploads the PDF, waits for the parse and returns the page
// markdown joined with blank lines in page order.
func (c *Client) ParsePDF(ctx context.Context, pdfData []byte) (string, error) {
	uid, err := c.Upload(ctx, pdfData)
	if err != nil {
		return "", err
	}

	status, err := c.WaitForParsing(ctx, uid)
	if err != nil {
		return "", err
	}
	if status.Data.Result == nil || len(status.Data.Result.Pages) == 0 {
		return "", fmt.Errorf("pdfparse: parse returned no pages for uid %s", uid)
	}

	pages := make([]string, 0, len(status.Data.Result.Pages))
	for _, page := range status.Data.Result.Pages {
		pages = append(pages, page.Md)
	}
	return strings.Join(pages, "\n\n---\n\n"), nil
}
