package vctrace

// Request/response types for the vctraced IPC protocol.
// Messages are JSON-encoded and sent over a Unix domain socket, one per line.

// Action names accepted by the daemon.
const (
	ActionGenerate = "generate"
	ActionPut      = "put"
	ActionGet      = "get"
	ActionSearch   = "search"
	ActionDelete   = "delete"
)

// Request is sent from a client to the daemon.
type Request struct {
	// Action selects the operation (see the Action constants).
	Action string `json:"action"`
	// Generate carries the pipeline inputs for "generate".
	Generate *GenerateRequest `json:"generate,omitempty"`
	// Record is the sidecar document for "put".
	Record *Document `json:"record,omitempty"`
	// RequestID names the trace for "get" and "delete".
	RequestID string `json:"request_id,omitempty"`
	// Vector is the query trace vector for "search".
	Vector []float32 `json:"vector,omitempty"`
	// TopK bounds the number of search matches.
	TopK int `json:"top_k,omitempty"`
}

// GenerateRequest holds the inputs of one pipeline run.
type GenerateRequest struct {
	// RequestID is optional; the daemon assigns a UUID when empty.
	RequestID     string `json:"request_id,omitempty"`
	ParentAssetID string `json:"parent_asset_id,omitempty"`
	// Image is raw RGB bytes (base64 in JSON).
	Image       []byte `json:"image"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
	ImageStride int    `json:"image_stride,omitempty"`
	Prompt      string `json:"prompt"`
	// TextVector overrides the text embedding computed from Prompt.
	TextVector     []float32 `json:"text_vector,omitempty"`
	Seed           int64     `json:"seed"`
	WantImage      bool      `json:"want_image"`
	WantAsset      bool      `json:"want_asset"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	GuidanceScale  float32   `json:"guidance_scale,omitempty"`
	DiffusionSteps int       `json:"diffusion_steps,omitempty"`
}

// Match is one similarity search hit.
type Match struct {
	RequestID string `json:"request_id"`
	// Score is the cosine similarity of the trace vectors.
	Score float32 `json:"score"`
}

// Response is sent from the daemon back to the client.
type Response struct {
	// Action is echoed from the request.
	Action string `json:"action"`
	// Record is the stored or generated trace.
	Record *Document `json:"record,omitempty"`
	// Image is the decoded RGBA buffer, empty when not produced.
	Image []byte `json:"image,omitempty"`
	// Asset is the decoded asset, empty when not produced.
	Asset []byte `json:"asset,omitempty"`
	// Matches is the search result, sorted by score descending.
	Matches []Match `json:"matches,omitempty"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// Error describes a daemon-side error returned to the client.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "not_found", "missing_collaborator").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}
