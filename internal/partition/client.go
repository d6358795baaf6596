package partition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const partitionTimeout = 120 * time.Second

// Client calls the external document-partitioning service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a partitioning client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: partitionTimeout},
	}
}

// rawElement mirrors the service's element JSON.
type rawElement struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Metadata struct {
		PageNumber int    `json:"page_number"`
		TextAsHTML string `json:"text_as_html"`
	} `json:"metadata"`
}

// Partition uploads the document and returns its element list.
func (c *Client) Partition(ctx context.Context, fileName string, content []byte) ([]Element, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("files", fileName)
	if err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if err := mw.WriteField("strategy", "hi_res"); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/general/v0/general", &body)
	if err != nil {
		return nil, fmt.Errorf("create partition request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partition request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("partition service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var raw []rawElement
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode partition response: %w", err)
	}

	elements := make([]Element, 0, len(raw))
	for _, r := range raw {
		el := Element{
			Type:       ElementType(r.Type),
			Text:       r.Text,
			PageNumber: r.Metadata.PageNumber,
		}
		if el.Type == TypeTable {
			el.TableHTML = r.Metadata.TextAsHTML
			if el.TableHTML == "" {
				el.TableHTML = r.Text
			}
		}
		elements = append(elements, el)
	}
	return elements, nil
}
