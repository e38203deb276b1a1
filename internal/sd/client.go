package sd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klayza/Fractal/internal/config"
	"github.com/klayza/Fractal/internal/logger"
)

// Client talks to a Stable Diffusion web UI compatible API
// (txt2img / png-info).
type Client struct {
	httpClient *http.Client
	baseURL    string
	enabled    bool
	logger     logger.Logger
}

func NewClient(httpClient *http.Client, cfg config.SDConfig, log logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		enabled:    cfg.Enabled,
		logger:     log,
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// Generate runs txt2img and returns the first image as PNG bytes.
func (c *Client) Generate(ctx context.Context, payload map[string]any) ([]byte, error) {
	var result struct {
		Images []string `json:"images"`
	}
	if err := c.post(ctx, "/sdapi/v1/txt2img", payload, &result); err != nil {
		return nil, err
	}
	if len(result.Images) == 0 {
		return nil, fmt.Errorf("txt2img returned no images")
	}

	// Some backends wrap the payload in a data URI; the base64 then
	// sits after the header comma.
	encoded := result.Images[0]
	if strings.HasPrefix(encoded, "data:") {
		_, encoded, _ = strings.Cut(encoded, ",")
	}
	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode generated image: %w", err)
	}

	if info, err := c.pngInfo(ctx, result.Images[0]); err == nil {
		c.logger.WithField("parameters", info).Debug("Image generated")
	}

	return image, nil
}

func (c *Client) pngInfo(ctx context.Context, imageB64 string) (string, error) {
	var result struct {
		Info string `json:"info"`
	}
	payload := map[string]any{
		"image": "data:image/png;base64," + imageB64,
	}
	if err := c.post(ctx, "/sdapi/v1/png-info", payload, &result); err != nil {
		return "", err
	}
	return result.Info, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sd payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sd request %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read sd response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sd request %s: status %d: %s", path, resp.StatusCode, raw)
	}
	return json.Unmarshal(raw, out)
}
