package sidecar

import "testing"

func TestRedactPromptParamExp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple var", "a chair lit by $SECRET", "a chair lit by $REDACTED"},
		{"braced var", "neon sign reading ${API_TOKEN}", "neon sign reading ${REDACTED}"},
		{"safe var HOME", "a map of $HOME", "a map of $HOME"},
		{"safe var USER", "portrait of $USER", "portrait of $USER"},
		{"price", "a lamp that costs $5", "a lamp that costs $5"},
		{"special param $?", "what is $?", "what is $?"},
		{"mixed safe and sensitive", "$AUTH_TOKEN on $PWD/desk", "$REDACTED on $PWD/desk"},
		{"multiple sensitive", "$FOO and $BAR", "$REDACTED and $REDACTED"},
		{"no vars", "low poly red fox", "low poly red fox"},
		{"empty string", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactPrompt(tt.input)
			if got != tt.want {
				t.Errorf("RedactPrompt(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactPromptAssignment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading assignment", "SECRET=hunter2 a blue vase", "SECRET=*** a blue vase"},
		{"export assignment", "export API_KEY=abc123", "export API_KEY=***"},
		{"safe var assignment", "HOME=/home/user a chair", "HOME=/home/user a chair"},
		{"assignment with expansion", "KEY=$OTHER a cube", "KEY=*** a cube"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactPrompt(tt.input)
			if got != tt.want {
				t.Errorf("RedactPrompt(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRedactPromptPreservesLayout(t *testing.T) {
	input := "a  wooden\ttable;  label $SECRET\n# studio light"
	want := "a  wooden\ttable;  label $REDACTED\n# studio light"
	if got := RedactPrompt(input); got != want {
		t.Errorf("RedactPrompt(%q) = %q, want %q", input, got, want)
	}
}

func TestRedactPromptSingleQuotes(t *testing.T) {
	// $VAR inside single quotes is a literal, not an expansion.
	got := RedactPrompt("a sign saying '$SECRET'")
	if got != "a sign saying '$SECRET'" {
		t.Errorf("single-quoted var should be preserved, got %q", got)
	}
}

func TestRedactPromptDoubleQuotes(t *testing.T) {
	got := RedactPrompt(`a sign saying "$SECRET"`)
	want := `a sign saying "$REDACTED"`
	if got != want {
		t.Errorf("RedactPrompt = %q, want %q", got, want)
	}
}

func TestRedactPromptUnparsable(t *testing.T) {
	// The apostrophe leaves an unterminated quote, so the regex path runs.
	got := RedactPrompt("a dog's collar with $SECRET tag")
	want := "a dog's collar with $REDACTED tag"
	if got != want {
		t.Errorf("RedactPrompt = %q, want %q", got, want)
	}
}

func TestRegexRedactFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"brace var", "echo ${SECRET}", "echo ${REDACTED}"},
		{"simple var", "echo $SECRET", "echo $REDACTED"},
		{"safe brace var", "echo ${HOME}", "echo ${HOME}"},
		{"safe simple var", "echo $HOME", "echo $HOME"},
		{"assignment", "SECRET=val", "SECRET=***"},
		{"safe assignment", "HOME=/home/user", "HOME=/home/user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := regexRedact(tt.input)
			if got != tt.want {
				t.Errorf("regexRedact(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
