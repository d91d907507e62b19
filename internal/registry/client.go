package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the registry daemon over its unix socket. It implements
// the same Registry interface as the in-process Store.
type Client struct {
	http    *http.Client
	baseURL string
}

// Dial prepares a client for the daemon socket. No connection is made
// until the first request.
func Dial(socketPath string) *Client {
	dialer := &net.Dialer{}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}
	return &Client{
		// The host part is ignored by the unix transport but required
		// for URL syntax.
		baseURL: "http://mlagent",
		http: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
	}
}

// do issues one JSON request and decodes the response into out when out
// is non-nil. Error statuses are mapped back to the sentinel errors the
// Store returns.
func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("registry request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
	case http.StatusNotFound:
		return ErrNoEntry
	case http.StatusConflict:
		return ErrActive
	case http.StatusBadRequest:
		return ErrInvalid
	default:
		return fmt.Errorf("registry request %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// Health checks that the daemon is up and answering on the socket.
func (c *Client) Health() error {
	return c.do(http.MethodGet, "/health", nil, nil)
}

func (c *Client) RegisterModel(name, path string, active bool, description string, ctx PackageContext) (uint, error) {
	req := registerRequest{
		Name:        name,
		Path:        path,
		Active:      active,
		Description: description,
		Context:     ctx,
	}
	var resp struct {
		Version uint `json:"version"`
	}
	if err := c.do(http.MethodPost, "/models", req, &resp); err != nil {
		return 0, err
	}
	return resp.Version, nil
}

func (c *Client) UpdateModelDescription(name string, version uint, description string) error {
	path := fmt.Sprintf("/models/%s/%d/description", url.PathEscape(name), version)
	return c.do(http.MethodPatch, path, descriptionRequest{Description: description}, nil)
}

func (c *Client) ActivateModel(name string, version uint) error {
	path := fmt.Sprintf("/models/%s/%d/activate", url.PathEscape(name), version)
	return c.do(http.MethodPost, path, nil, nil)
}

func (c *Client) GetModel(name string, version uint) (Model, error) {
	var m Model
	path := fmt.Sprintf("/models/%s?version=%d", url.PathEscape(name), version)
	err := c.do(http.MethodGet, path, nil, &m)
	return m, err
}

func (c *Client) GetActivatedModel(name string) (Model, error) {
	var m Model
	path := fmt.Sprintf("/models/%s?activated=true", url.PathEscape(name))
	err := c.do(http.MethodGet, path, nil, &m)
	return m, err
}

func (c *Client) GetAllModels(name string) ([]Model, error) {
	var all []Model
	err := c.do(http.MethodGet, "/models/"+url.PathEscape(name), nil, &all)
	return all, err
}

func (c *Client) DeleteModel(name string, version uint, force bool) error {
	path := fmt.Sprintf("/models/%s/%d", url.PathEscape(name), version)
	if force {
		path += "?force=true"
	}
	return c.do(http.MethodDelete, path, nil, nil)
}

func (c *Client) SetPipelineDescription(name, description string) error {
	return c.do(http.MethodPut, "/pipelines/"+url.PathEscape(name), descriptionRequest{Description: description}, nil)
}

func (c *Client) GetPipeline(name string) (Pipeline, error) {
	var p Pipeline
	err := c.do(http.MethodGet, "/pipelines/"+url.PathEscape(name), nil, &p)
	return p, err
}

func (c *Client) DeletePipeline(name string) error {
	return c.do(http.MethodDelete, "/pipelines/"+url.PathEscape(name), nil, nil)
}

func (c *Client) AddResource(name, path, description string, ctx PackageContext) error {
	req := resourceRequest{Name: name, Path: path, Description: description, Context: ctx}
	return c.do(http.MethodPost, "/resources", req, nil)
}

func (c *Client) GetResource(name string) (Resource, error) {
	var r Resource
	err := c.do(http.MethodGet, "/resources/"+url.PathEscape(name), nil, &r)
	return r, err
}

func (c *Client) DeleteResource(name string) error {
	return c.do(http.MethodDelete, "/resources/"+url.PathEscape(name), nil, nil)
}

// Close releases idle connections to the daemon.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
