package vctrace

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResponseErrorOmittedWhenNil(t *testing.T) {
	resp := Response{Action: ActionGet}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("expected no error key, got %s", data)
	}
}

func TestResponseErrorIncluded(t *testing.T) {
	resp := Response{
		Action: ActionGenerate,
		Error: &Error{
			Code:    "missing_collaborator",
			Message: "encoder is not configured",
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	if !strings.Contains(s, `"error"`) {
		t.Error("expected error key in JSON")
	}
	if !strings.Contains(s, `"missing_collaborator"`) {
		t.Error("expected missing_collaborator code")
	}
}

func TestResponseEmptyBuffersOmitted(t *testing.T) {
	resp := Response{Action: ActionGenerate, Image: []byte{}, Asset: nil}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `"image"`) || strings.Contains(string(data), `"asset"`) {
		t.Errorf("expected empty buffers to be omitted, got %s", data)
	}
}

func TestGenerateRequestImageIsBase64(t *testing.T) {
	req := Request{
		Action: ActionGenerate,
		Generate: &GenerateRequest{
			Image:       []byte{0xff, 0x00, 0x7f},
			ImageWidth:  1,
			ImageHeight: 1,
			Prompt:      "a red pixel",
			Seed:        42,
		},
	}
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"image":"/wB/"`) {
		t.Errorf("expected base64 image, got %s", data)
	}

	var decoded Request
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Generate == nil || string(decoded.Generate.Image) != string(req.Generate.Image) {
		t.Errorf("image bytes differ after round trip: %+v", decoded.Generate)
	}
	if decoded.Generate.Seed != 42 {
		t.Errorf("expected seed 42, got %d", decoded.Generate.Seed)
	}
}

func TestDocumentJSONKeys(t *testing.T) {
	doc := ToDocument(NewTraceRecord())
	doc.RequestID = "req-1"
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, key := range []string{`"contract_version":1`, `"request_id":"req-1"`, `"trace_vector":[`, `"style_latent":[`} {
		if !strings.Contains(s, key) {
			t.Errorf("expected %s in JSON", key)
		}
	}
	if strings.Contains(s, `"parent_asset_id"`) {
		t.Error("expected empty parent_asset_id to be omitted")
	}
}
