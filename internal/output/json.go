// Package output is the CLI's response envelope: every rlm subcommand
// prints one JSON object to stdout, success or error, so the host (or a
// human) can parse it uniformly.
package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
)

// recoverableError mirrors models.RecoverableError locally to avoid an
// import cycle between output and models. errors.As works against the
// interface shape directly, so no concrete type is needed here.
type recoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// Response is the standard JSON envelope every command prints.
type Response struct {
	SchemaVersion   string            `json:"schema_version"`
	Success         bool              `json:"success"`
	Data            interface{}       `json:"data,omitempty"`
	Error           string            `json:"error,omitempty"`
	ErrorCode       string            `json:"error_code,omitempty"`
	ErrorContext    map[string]string `json:"error_context,omitempty"`
	SuggestedAction string            `json:"suggested_action,omitempty"`
}

// Config controls where and how a Response is written.
type Config struct {
	Writer io.Writer
	Pretty bool
}

// DefaultConfig writes compact JSON to stdout; set RLM_PRETTY_JSON=1 for
// indented output when a human is reading the terminal directly.
func DefaultConfig() Config {
	pretty := os.Getenv("RLM_PRETTY_JSON") == "1" || os.Getenv("RLM_PRETTY_JSON") == "true"
	return Config{Writer: os.Stdout, Pretty: pretty}
}

// Success wraps a successful payload.
func Success(data interface{}) Response {
	return Response{SchemaVersion: "v1", Success: true, Data: data}
}

// Error wraps a failure, enriching it with taxonomy metadata when the
// error implements recoverableError (see internal/models/errors.go).
func Error(err error) Response {
	resp := Response{SchemaVersion: "v1", Success: false, Error: err.Error()}
	var re recoverableError
	if errors.As(err, &re) {
		resp.ErrorCode = re.ErrorCode()
		resp.ErrorContext = re.Context()
		resp.SuggestedAction = re.SuggestedAction()
	}
	return resp
}

// PrintWith encodes v to cfg.Writer.
func PrintWith(cfg Config, v interface{}) error {
	enc := json.NewEncoder(cfg.Writer)
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Print encodes v to stdout using DefaultConfig.
func Print(v interface{}) error {
	return PrintWith(DefaultConfig(), v)
}

// PrintSuccess prints a success envelope around data.
func PrintSuccess(data interface{}) error {
	return Print(Success(data))
}

// PrintError prints an error envelope around err.
func PrintError(err error) error {
	return Print(Error(err))
}
