// Package workflow triggers deployment runs on a Prefect-compatible
// orchestration API.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the orchestration server's REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Trigger starts a run of the deployment named "flow-name/deployment-name"
// and returns the new run's id.
func (c *Client) Trigger(ctx context.Context, deployment string, parameters map[string]any) (string, error) {
	flowName, deployName, ok := strings.Cut(deployment, "/")
	if !ok || flowName == "" || deployName == "" {
		return "", fmt.Errorf("deployment %q must be flow-name/deployment-name", deployment)
	}

	deploymentID, err := c.lookupDeployment(ctx, flowName, deployName)
	if err != nil {
		return "", err
	}
	return c.createRun(ctx, deploymentID, parameters)
}

func (c *Client) lookupDeployment(ctx context.Context, flowName, deployName string) (string, error) {
	url := fmt.Sprintf("%s/deployments/name/%s/%s", c.baseURL, flowName, deployName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("look up deployment %s/%s: %w", flowName, deployName, err)
	}
	return out.ID, nil
}

func (c *Client) createRun(ctx context.Context, deploymentID string, parameters map[string]any) (string, error) {
	payload := map[string]any{}
	if len(parameters) > 0 {
		payload["parameters"] = parameters
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/deployments/%s/create_flow_run", c.baseURL, deploymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &out); err != nil {
		return "", fmt.Errorf("create flow run: %w", err)
	}
	return out.ID, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
