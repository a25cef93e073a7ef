package cli

import (
	"encoding/json"
	"io"
)

// jsonOutput is set by --json.
var jsonOutput bool

// Response is the envelope every command prints in --json mode. Scripts
// check ok first, then read data or error.
type Response struct {
	OK       bool       `json:"ok"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Warnings []Warning  `json:"warnings,omitempty"`
	Meta     *Meta      `json:"meta,omitempty"`
}

// ErrorInfo describes a failed command. Code is one of the Err* constants.
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Warning is a non-fatal problem, such as a skipped criterion.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Meta holds counts and timings of a search.
type Meta struct {
	Count       int   `json:"count,omitempty"`
	Total       int   `json:"total,omitempty"`
	QueryTimeMs int64 `json:"query_time_ms,omitempty"`
	Restored    bool  `json:"restored,omitempty"`
}

func writeEnvelope(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}

func outputSuccess(w io.Writer, data any, warnings []Warning, meta *Meta) {
	writeEnvelope(w, Response{OK: true, Data: data, Warnings: warnings, Meta: meta})
}

func outputError(w io.Writer, code, message, suggestion string) {
	writeEnvelope(w, Response{Error: &ErrorInfo{Code: code, Message: message, Suggestion: suggestion}})
}

func isJSONOutput() bool { return jsonOutput }
