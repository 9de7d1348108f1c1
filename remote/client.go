// Package remote implements the pipeline collaborators as HTTP clients of
// external model servers.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Paranoid-AF/vctrace"
)

const defaultTimeout = 30 * time.Second

// apiClient posts JSON to one base URL.
type apiClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func newAPIClient(baseURL, apiKey string, timeout time.Duration) *apiClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *apiClient) post(ctx context.Context, path string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error (status %d): %s", path, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w (body: %s)", path, err, string(body))
	}
	return nil
}

// Endpoint configures one remote collaborator.
type Endpoint struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client is a remote model server. One Client can serve as any of the four
// collaborators; the server decides which routes it implements:
//
//	POST /encode        image  → visual embedding
//	POST /latents       embedding + text + seed → latent bundle
//	POST /decode/image  latents + size → RGBA
//	POST /decode/asset  latents → asset bytes
type Client struct {
	api   *apiClient
	model string
}

// NewClient creates a client for ep.
func NewClient(ep Endpoint) *Client {
	return &Client{
		api:   newAPIClient(ep.BaseURL, ep.APIKey, ep.Timeout),
		model: ep.Model,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type latentsJSON struct {
	ImageLatent []float32 `json:"image_latent"`
	AssetLatent []float32 `json:"asset_latent"`
	StyleLatent []float32 `json:"style_latent"`
}

func toLatentsJSON(b vctrace.LatentBundle) latentsJSON {
	return latentsJSON{
		ImageLatent: b.ImageLatent.Values(),
		AssetLatent: b.AssetLatent.Values(),
		StyleLatent: b.StyleLatent.Values(),
	}
}

func (l latentsJSON) bundle() vctrace.LatentBundle {
	return vctrace.LatentBundle{
		ImageLatent: vctrace.VectorOf(l.ImageLatent...),
		AssetLatent: vctrace.VectorOf(l.AssetLatent...),
		StyleLatent: vctrace.VectorOf(l.StyleLatent...),
	}
}

type embeddingJSON struct {
	Global      []float32   `json:"global"`
	PatchTokens [][]float32 `json:"patch_tokens,omitempty"`
}

func toEmbeddingJSON(e vctrace.VisualEmbedding) embeddingJSON {
	out := embeddingJSON{Global: e.Global.Values()}
	for _, p := range e.PatchTokens {
		out.PatchTokens = append(out.PatchTokens, p.Values())
	}
	return out
}

func (e embeddingJSON) embedding() vctrace.VisualEmbedding {
	out := vctrace.VisualEmbedding{Global: vctrace.VectorOf(e.Global...)}
	for _, p := range e.PatchTokens {
		out.PatchTokens = append(out.PatchTokens, vctrace.VectorOf(p...))
	}
	return out
}

type encodeRequest struct {
	Image  []byte `json:"image"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Stride int    `json:"stride,omitempty"`
	Model  string `json:"model,omitempty"`
}

// Encode implements vctrace.Encoder.
func (c *Client) Encode(ctx context.Context, rgb []byte, width, height, stride int) (vctrace.VisualEmbedding, error) {
	var out embeddingJSON
	req := encodeRequest{Image: rgb, Width: width, Height: height, Stride: stride, Model: c.model}
	if err := c.api.post(ctx, "/encode", req, &out); err != nil {
		return vctrace.VisualEmbedding{}, err
	}
	return out.embedding(), nil
}

type latentsRequest struct {
	Embedding  embeddingJSON `json:"embedding"`
	TextVector []float32     `json:"text_vector"`
	Seed       int64         `json:"seed"`
	Model      string        `json:"model,omitempty"`
}

// Generate implements vctrace.LatentGenerator.
func (c *Client) Generate(ctx context.Context, emb vctrace.VisualEmbedding, text vctrace.FixedVector, seed int64) (vctrace.LatentBundle, error) {
	var out latentsJSON
	req := latentsRequest{Embedding: toEmbeddingJSON(emb), TextVector: text.Values(), Seed: seed, Model: c.model}
	if err := c.api.post(ctx, "/latents", req, &out); err != nil {
		return vctrace.LatentBundle{}, err
	}
	return out.bundle(), nil
}

type decodeImageRequest struct {
	Latents latentsJSON `json:"latents"`
	Width   int         `json:"width"`
	Height  int         `json:"height"`
}

type decodeResponse struct {
	Data []byte `json:"data"`
}

// DecodeImage implements vctrace.ImageDecoder.
func (c *Client) DecodeImage(ctx context.Context, latents vctrace.LatentBundle, width, height int) ([]byte, error) {
	var out decodeResponse
	req := decodeImageRequest{Latents: toLatentsJSON(latents), Width: width, Height: height}
	if err := c.api.post(ctx, "/decode/image", req, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

type decodeAssetRequest struct {
	Latents latentsJSON `json:"latents"`
}

// DecodeAsset implements vctrace.AssetDecoder.
func (c *Client) DecodeAsset(ctx context.Context, latents vctrace.LatentBundle) ([]byte, error) {
	var out decodeResponse
	if err := c.api.post(ctx, "/decode/asset", decodeAssetRequest{Latents: toLatentsJSON(latents)}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

var (
	_ vctrace.Encoder         = (*Client)(nil)
	_ vctrace.LatentGenerator = (*Client)(nil)
	_ vctrace.ImageDecoder    = (*Client)(nil)
	_ vctrace.AssetDecoder    = (*Client)(nil)
	_ vctrace.Modeler         = (*Client)(nil)
)
