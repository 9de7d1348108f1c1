package sidecar

import (
	"regexp"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// safeVars are environment variable names that carry nothing sensitive.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "DISPLAY": true, "WAYLAND_DISPLAY": true,
	"COLUMNS": true, "LINES": true, "LC_ALL": true, "LC_CTYPE": true,
}

// specialParams are shell special parameters that should not be redacted.
// Digits also cover prices such as "$5" in prompts.
var specialParams = map[string]bool{
	"?": true, "!": true, "#": true, "@": true, "*": true,
	"-": true, "$": true, "_": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

type edit struct {
	start, end uint
	text       string
}

// RedactPrompt replaces sensitive environment variable references and
// assignment values that leaked into a text prompt. Safe variables (PATH,
// HOME, etc.) and special shell parameters are preserved, and everything
// outside the redacted spans is returned byte for byte.
func RedactPrompt(prompt string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(prompt), "")
	if err != nil {
		return regexRedact(prompt)
	}

	var edits []edit
	syntax.Walk(prog, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.ParamExp:
			if n.Param != nil && !safeVars[n.Param.Value] && !specialParams[n.Param.Value] {
				edits = append(edits, edit{n.Param.Pos().Offset(), n.Param.End().Offset(), "REDACTED"})
			}
		case *syntax.Assign:
			if n.Name != nil && !safeVars[n.Name.Value] && n.Value != nil {
				edits = append(edits, edit{n.Value.Pos().Offset(), n.Value.End().Offset(), "***"})
				return false
			}
		}
		return true
	})
	if len(edits) == 0 {
		return prompt
	}

	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var buf strings.Builder
	buf.Grow(len(prompt))
	var last uint
	for _, e := range edits {
		if e.start < last || e.end > uint(len(prompt)) {
			continue
		}
		buf.WriteString(prompt[last:e.start])
		buf.WriteString(e.text)
		last = e.end
	}
	buf.WriteString(prompt[last:])
	return buf.String()
}

var (
	reBraceVar  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	reSimpleVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	reAssign    = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
)

// regexRedact is the fallback for prompts that are not valid shell,
// e.g. ones with an unbalanced apostrophe.
func regexRedact(prompt string) string {
	// ${VAR} → ${REDACTED}
	prompt = reBraceVar.ReplaceAllStringFunc(prompt, func(m string) string {
		name := reBraceVar.FindStringSubmatch(m)[1]
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "${REDACTED}"
	})

	// $VAR → $REDACTED
	prompt = reSimpleVar.ReplaceAllStringFunc(prompt, func(m string) string {
		name := reSimpleVar.FindStringSubmatch(m)[1]
		if name == "REDACTED" { // already redacted by brace pass
			return m
		}
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "$REDACTED"
	})

	// VAR=value → VAR=***
	prompt = reAssign.ReplaceAllStringFunc(prompt, func(m string) string {
		name := reAssign.FindStringSubmatch(m)[1]
		if safeVars[name] {
			return m
		}
		return name + "=***"
	})

	return prompt
}
