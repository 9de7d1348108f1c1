package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Paranoid-AF/vctrace"
	"github.com/Paranoid-AF/vctrace/sidecar"
)

var errQuit = errors.New("quit")

// command is one parsed REPL line.
type command struct {
	name string
	args []string
	// rest is the text following the first argument, used as the prompt for gen.
	rest string
}

var commandNames = []string{"gen", "get", "help", "like", "put", "quit", "rm", "save"}

const helpText = `commands:
  gen <image> <prompt...>   run the pipeline on a PNG/JPEG file
  get <id>                  show a stored trace
  like <id> [k]             find traces similar to <id>
  put <file>                store a sidecar file (.toml or .json)
  save <id> <file>          write a stored trace as a sidecar file
  rm <id>                   delete a stored trace
  quit                      exit
`

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, nil
	}
	cmd := command{name: fields[0], args: fields[1:]}
	switch cmd.name {
	case ":quit", ":q":
		cmd.name = "quit"
	}

	need := map[string]int{"gen": 1, "get": 1, "like": 1, "put": 1, "save": 2, "rm": 1}
	if n, ok := need[cmd.name]; ok && len(cmd.args) < n {
		return cmd, fmt.Errorf("%s: expected at least %d argument(s)", cmd.name, n)
	}
	if cmd.name == "gen" {
		trimmed := strings.TrimSpace(line)
		after := strings.TrimSpace(trimmed[len(fields[0]):])
		cmd.rest = strings.TrimSpace(after[len(fields[1]):])
	}
	if !contains(commandNames, cmd.name) {
		return cmd, fmt.Errorf("unknown command %q (try help)", cmd.name)
	}
	return cmd, nil
}

func contains(list []string, s string) bool {
	i := sort.SearchStrings(list, s)
	return i < len(list) && list[i] == s
}

// completeCommand implements term.Terminal's AutoCompleteCallback for command
// names. A unique match is completed with a trailing space; an ambiguous one
// is extended to the longest shared prefix.
func completeCommand(line string, pos int, key rune) (string, int, bool) {
	if key != '\t' || strings.ContainsRune(line[:pos], ' ') {
		return "", 0, false
	}
	prefix := line[:pos]
	var matches []string
	for _, name := range commandNames {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}

	var completed string
	switch len(matches) {
	case 0:
		return "", 0, false
	case 1:
		completed = matches[0] + " "
	default:
		completed = commonPrefix(matches)
		if len(completed) == len(prefix) {
			return "", 0, false
		}
	}
	return completed + line[pos:], len(completed), true
}

func commonPrefix(names []string) string {
	p := names[0]
	for _, n := range names[1:] {
		for !strings.HasPrefix(n, p) {
			p = p[:len(p)-1]
		}
	}
	return p
}

// session runs commands against the daemon.
type session struct {
	client *Client
	tty    io.Writer
	out    io.Writer
	seed   int64
}

// run executes one line. It returns errQuit when the user asks to leave.
func (s *session) run(ctx context.Context, line string) error {
	cmd, err := parseCommand(line)
	if err != nil {
		return err
	}

	var req *vctrace.Request
	switch cmd.name {
	case "":
		return nil
	case "quit":
		return errQuit
	case "help":
		fmt.Fprint(s.tty, helpText)
		return nil
	case "gen":
		img, err := loadRGB(cmd.args[0])
		if err != nil {
			return err
		}
		s.seed++
		req = &vctrace.Request{Action: vctrace.ActionGenerate, Generate: &vctrace.GenerateRequest{
			Image:       img.Pix,
			ImageWidth:  img.Width,
			ImageHeight: img.Height,
			Prompt:      cmd.rest,
			Seed:        s.seed,
			WantImage:   true,
			WantAsset:   true,
			Width:       img.Width,
			Height:      img.Height,
		}}
	case "get", "save":
		req = &vctrace.Request{Action: vctrace.ActionGet, RequestID: cmd.args[0]}
	case "rm":
		req = &vctrace.Request{Action: vctrace.ActionDelete, RequestID: cmd.args[0]}
	case "put":
		r, err := sidecar.ReadFile(cmd.args[0])
		if err != nil {
			return err
		}
		req = &vctrace.Request{Action: vctrace.ActionPut, Record: vctrace.ToDocument(r)}
	case "like":
		return s.like(ctx, line, cmd)
	}

	resp, err := s.client.Do(ctx, req)
	if err != nil {
		return err
	}
	e := newEntry(line, resp)
	if cmd.name == "gen" && resp.Error == nil && resp.Record != nil {
		s.saveOutputs(cmd.args[0], resp, &e)
	}
	if cmd.name == "save" && resp.Error == nil && resp.Record != nil {
		r, err := resp.Record.Record()
		if err != nil {
			return err
		}
		if err := sidecar.WriteFile(cmd.args[1], r); err != nil {
			return err
		}
		fmt.Fprintf(s.tty, "wrote %s\n", cmd.args[1])
	}
	s.report(resp, e)
	return nil
}

// saveOutputs writes the decoded image and asset next to the input image and
// records their paths in e.
func (s *session) saveOutputs(input string, resp *vctrace.Response, e *entry) {
	id := resp.Record.RequestID
	if len(resp.Image) > 0 {
		path := outputPath(input, id, ".png")
		if err := saveRGBA(path, resp.Image, resp.Record.Width, resp.Record.Height); err != nil {
			fmt.Fprintf(s.tty, "image not saved: %v\n", err)
		} else {
			fmt.Fprintf(s.tty, "wrote %s\n", path)
			e.Record.ImagePath = path
		}
	}
	if len(resp.Asset) > 0 {
		path := outputPath(input, id, ".asset")
		if err := os.WriteFile(path, resp.Asset, 0644); err != nil {
			fmt.Fprintf(s.tty, "asset not saved: %v\n", err)
		} else {
			fmt.Fprintf(s.tty, "wrote %s\n", path)
			e.Record.AssetPath = path
		}
	}
}

// like looks up a stored trace and searches with its trace vector.
func (s *session) like(ctx context.Context, line string, cmd command) error {
	topK := 0
	if len(cmd.args) > 1 {
		k, err := strconv.Atoi(cmd.args[1])
		if err != nil || k < 1 {
			return fmt.Errorf("like: invalid k %q", cmd.args[1])
		}
		topK = k
	}

	resp, err := s.client.Do(ctx, &vctrace.Request{Action: vctrace.ActionGet, RequestID: cmd.args[0]})
	if err != nil {
		return err
	}
	if resp.Error != nil || resp.Record == nil {
		s.report(resp, newEntry(line, resp))
		return nil
	}

	resp, err = s.client.Do(ctx, &vctrace.Request{Action: vctrace.ActionSearch, Vector: resp.Record.TraceVector, TopK: topK})
	if err != nil {
		return err
	}
	s.report(resp, newEntry(line, resp))
	return nil
}

// report prints a short summary on the tty and e as a TOML entry on out.
func (s *session) report(resp *vctrace.Response, e entry) {
	switch {
	case resp.Error != nil:
		fmt.Fprintf(s.tty, "error [%s]: %s\n", resp.Error.Code, resp.Error.Message)
	case resp.Action == vctrace.ActionSearch && len(resp.Matches) == 0:
		fmt.Fprintf(s.tty, "(no matches)\n")
	case resp.Action == vctrace.ActionSearch:
		for i, m := range resp.Matches {
			fmt.Fprintf(s.tty, "  %d. [%.3f] %s\n", i+1, m.Score, m.RequestID)
		}
	case resp.Record != nil:
		fmt.Fprintf(s.tty, "%s seed=%d prompt=%q\n", resp.Record.RequestID, resp.Record.Seed, resp.Record.TextPrompt)
	default:
		fmt.Fprintf(s.tty, "ok\n")
	}
	fmt.Fprintf(s.tty, "\n")

	if err := writeEntry(s.out, e); err != nil {
		fmt.Fprintf(s.tty, "write error: %v\n", err)
	}
}
