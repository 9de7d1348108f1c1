package sidecar

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Paranoid-AF/vctrace"
)

func sampleRecord(id string) *vctrace.TraceRecord {
	r := vctrace.NewTraceRecord()
	r.RequestID = id
	r.ParentAssetID = "asset-7"
	r.GeneratorModel = "latent-gen-v2"
	r.EncoderModel = "vision-enc-v1"
	r.TextPrompt = "a low poly fox"
	r.Seed = -42
	r.Width = 512
	r.Height = 384
	r.GuidanceScale = 7.5
	r.DiffusionSteps = 30
	r.VisualInput.PatchTokens = []vctrace.FixedVector{vctrace.VectorOf(0.25, -1), vctrace.VectorOf(3)}
	global := r.VisualInput.Global.Values()
	for i := range global {
		global[i] = float32(i) / 1024
	}
	r.Latents.ImageLatent.Values()[3] = 0.1
	r.Latents.AssetLatent.Values()[383] = -2.5
	r.Latents.StyleLatent.Values()[0] = 1e-7
	r.TraceVector.Values()[127] = 0.3
	return r
}

func assertSameRecord(t *testing.T, got, want *vctrace.TraceRecord) {
	t.Helper()
	if got.RequestID != want.RequestID || got.ParentAssetID != want.ParentAssetID ||
		got.GeneratorModel != want.GeneratorModel || got.EncoderModel != want.EncoderModel ||
		got.TextPrompt != want.TextPrompt {
		t.Errorf("identifying fields differ: got %+v", got)
	}
	if got.Seed != want.Seed || got.Width != want.Width || got.Height != want.Height ||
		got.GuidanceScale != want.GuidanceScale || got.DiffusionSteps != want.DiffusionSteps {
		t.Errorf("parameters differ: got seed=%d %dx%d g=%v steps=%d",
			got.Seed, got.Width, got.Height, got.GuidanceScale, got.DiffusionSteps)
	}
	vectors := []struct {
		name      string
		got, want vctrace.FixedVector
	}{
		{"visual_global", got.VisualInput.Global, want.VisualInput.Global},
		{"image_latent", got.Latents.ImageLatent, want.Latents.ImageLatent},
		{"asset_latent", got.Latents.AssetLatent, want.Latents.AssetLatent},
		{"style_latent", got.Latents.StyleLatent, want.Latents.StyleLatent},
		{"trace_vector", got.TraceVector, want.TraceVector},
	}
	for _, v := range vectors {
		if !slices.Equal(v.got.Values(), v.want.Values()) {
			t.Errorf("%s differs after round trip", v.name)
		}
	}
	if len(got.VisualInput.PatchTokens) != len(want.VisualInput.PatchTokens) {
		t.Fatalf("patch tokens: got %d, want %d", len(got.VisualInput.PatchTokens), len(want.VisualInput.PatchTokens))
	}
	for i := range want.VisualInput.PatchTokens {
		if !slices.Equal(got.VisualInput.PatchTokens[i].Values(), want.VisualInput.PatchTokens[i].Values()) {
			t.Errorf("patch token %d differs", i)
		}
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	want := sampleRecord("req-toml")
	data, err := EncodeTOML(want)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `request_id = "req-toml"`) {
		t.Errorf("expected request_id key in TOML, got:\n%s", data)
	}
	got, err := DecodeTOML(data)
	if err != nil {
		t.Fatal(err)
	}
	assertSameRecord(t, got, want)
	if err := got.CheckContract(); err != nil {
		t.Errorf("decoded record fails contract: %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := sampleRecord("req-json")
	data, err := EncodeJSON(want)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	assertSameRecord(t, got, want)
}

func TestDecodeRejectsOtherContractVersion(t *testing.T) {
	doc := "contract_version = 2\nrequest_id = \"x\"\n"
	if _, err := DecodeTOML([]byte(doc)); !errors.Is(err, vctrace.ErrContractVersion) {
		t.Errorf("expected ErrContractVersion, got %v", err)
	}
	if _, err := DecodeJSON([]byte(`{"contract_version": 0}`)); !errors.Is(err, vctrace.ErrContractVersion) {
		t.Errorf("expected ErrContractVersion, got %v", err)
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := DecodeTOML([]byte("not = [valid")); err == nil {
		t.Error("expected error for invalid TOML")
	}
	if _, err := DecodeJSON([]byte("{not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	want := sampleRecord("req-file")

	for _, name := range []string{"trace.toml", "trace.json", "nested/dir/trace.vctrace", "TRACE.JSON"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := WriteFile(path, want); err != nil {
				t.Fatal(err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if isJSON(path) != strings.HasPrefix(string(data), "{") {
				t.Errorf("format of %s does not match its extension", name)
			}
			got, err := ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			assertSameRecord(t, got, want)
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.toml"))
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
