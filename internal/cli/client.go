package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client calls the dispatcher's admin API.
type Client struct {
	http *resty.Client
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiError struct {
	Error string `json:"error"`
}

func NewClient(server string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(server, "/") + "/api/v1/emails").
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

// Do performs the request and returns the data member of the response.
func (c *Client) Do(ctx context.Context, method, path string, query map[string]string, body any) (*apiEnvelope, error) {
	var (
		out  apiEnvelope
		fail apiError
	)
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&out).
		SetError(&fail)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		if fail.Error != "" {
			return nil, fmt.Errorf("%s (HTTP %d)", fail.Error, resp.StatusCode())
		}
		return nil, fmt.Errorf("unexpected HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return &out, nil
}
