package main

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	"github.com/Paranoid-AF/vctrace"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

// entry is one logged command. Entries are written as [[entry]] tables so a
// whole session log stays a single valid TOML document.
type entry struct {
	Timestamp time.Time      `toml:"timestamp"`
	Command   string         `toml:"command"`
	Record    *recordSummary `toml:"record,omitempty"`
	Matches   []matchEntry   `toml:"matches,omitempty"`
	Error     *errorEntry    `toml:"error,omitempty"`
}

type recordSummary struct {
	RequestID      string  `toml:"request_id"`
	ParentAssetID  string  `toml:"parent_asset_id,omitempty"`
	TextPrompt     string  `toml:"text_prompt"`
	GeneratorModel string  `toml:"generator_model,omitempty"`
	EncoderModel   string  `toml:"encoder_model,omitempty"`
	Seed           int64   `toml:"seed"`
	Width          int     `toml:"width"`
	Height         int     `toml:"height"`
	TraceNorm      float64 `toml:"trace_norm"`
	ImageBytes     int     `toml:"image_bytes,omitempty"`
	AssetBytes     int     `toml:"asset_bytes,omitempty"`
	ImagePath      string  `toml:"image_path,omitempty"`
	AssetPath      string  `toml:"asset_path,omitempty"`
}

type matchEntry struct {
	RequestID string  `toml:"request_id"`
	Score     float32 `toml:"score"`
}

type errorEntry struct {
	Code    string `toml:"code"`
	Message string `toml:"message"`
}

type entryLog struct {
	Entry []entry `toml:"entry"`
}

// newEntry summarizes resp for the session log.
func newEntry(command string, resp *vctrace.Response) entry {
	e := entry{Timestamp: time.Now().UTC().Truncate(time.Second), Command: command}
	if resp == nil {
		return e
	}
	if resp.Error != nil {
		e.Error = &errorEntry{Code: resp.Error.Code, Message: resp.Error.Message}
		return e
	}
	if d := resp.Record; d != nil {
		e.Record = &recordSummary{
			RequestID:      d.RequestID,
			ParentAssetID:  d.ParentAssetID,
			TextPrompt:     d.TextPrompt,
			GeneratorModel: d.GeneratorModel,
			EncoderModel:   d.EncoderModel,
			Seed:           d.Seed,
			Width:          d.Width,
			Height:         d.Height,
			TraceNorm:      vctrace.VectorOf(d.TraceVector...).Norm(),
			ImageBytes:     len(resp.Image),
			AssetBytes:     len(resp.Asset),
		}
	}
	for _, m := range resp.Matches {
		e.Matches = append(e.Matches, matchEntry{RequestID: m.RequestID, Score: m.Score})
	}
	return e
}

// writeEntry appends e to w as a TOML [[entry]] table.
func writeEntry(w io.Writer, e entry) error {
	return toml.NewEncoder(w).Encode(entryLog{Entry: []entry{e}})
}
