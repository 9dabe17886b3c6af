package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const requestTimeout = 30 * time.Second

// Client is the HTTP client for the remote queueing service.
type Client struct {
	baseURL   string
	endpoint  string
	companyID string
	deviceID  string
	userAgent string
	http      *http.Client
}

// NewClient creates a Client for the given service coordinates.
func NewClient(baseURL, endpoint, companyID, deviceID string) *Client {
	return &Client{
		baseURL:   baseURL,
		endpoint:  endpoint,
		companyID: companyID,
		deviceID:  deviceID,
		userAgent: fmt.Sprintf("callpanel/1.0/%s", deviceID),
		http:      &http.Client{Timeout: requestTimeout},
	}
}

type fetchUsersRequest struct {
	BranchID string `json:"branchId"`
}

type fetchUsersResponse struct {
	Users []User `json:"users"`
}

// FetchUsers retrieves the user records assigned to this device. The
// service answers 201 on success.
func (c *Client) FetchUsers(ctx context.Context) ([]User, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, c.endpoint)

	body, resp, err := c.post(ctx, url, fetchUsersRequest{BranchID: c.deviceID}, "")
	if err != nil {
		return nil, errors.Wrap(err, "fetch users")
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, errors.Errorf("fetch users: service returned status %d", resp.StatusCode)
	}

	var parsed fetchUsersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "fetch users: decode response")
	}
	return parsed.Users, nil
}

// SendSwitchEvent delivers one switch event, authenticated with the user's
// stored access token. 200 and 201 count as success; anything else is an
// error, undifferentiated by status code.
func (c *Client) SendSwitchEvent(ctx context.Context, event SwitchEvent, accessToken string) error {
	url := fmt.Sprintf("%s/api/v1/companies/%s/queues/call-external", c.baseURL, c.companyID)

	_, resp, err := c.post(ctx, url, event, accessToken)
	if err != nil {
		return errors.Wrap(err, "send switch event")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.Errorf("send switch event: service returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload any, bearer string) ([]byte, *http.Response, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, errors.Wrap(err, "encode payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, errors.Wrap(err, "read response")
	}
	return body, resp, nil
}
