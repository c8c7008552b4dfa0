// Package api serves Prometheus metrics and a read-only JSON view of the
// running shell session.
package api

// Response is the standard JSON response envelope.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse summarises the session.
type StatusResponse struct {
	Session       string `json:"session"`
	Uptime        string `json:"uptime"`
	Connected     bool   `json:"connected"`
	Authenticated bool   `json:"authenticated"`
	TLS           bool   `json:"tls"`
	Commands      int    `json:"commands"`
	Errors        int    `json:"errors"`
}

// CurrentInfo is the JSON form of session.Current.
type CurrentInfo struct {
	Command    string   `json:"command,omitempty"`
	Host       string   `json:"host,omitempty"`
	BaseDN     string   `json:"base_dn,omitempty"`
	Filter     string   `json:"filter,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Results    int      `json:"results"`
	LastError  string   `json:"last_error,omitempty"`
}

// SessionInfo is the full session view.
type SessionInfo struct {
	Current  CurrentInfo    `json:"current"`
	History  []string       `json:"history"`
	Frequent []string       `json:"frequent"`
	Counts   map[string]int `json:"counts"`
	Errors   []ErrorInfo    `json:"errors"`
}

// ErrorInfo is one recorded command failure.
type ErrorInfo struct {
	Command string `json:"command"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

// SuggestionsInfo is the JSON form of session.SuggestionSet.
type SuggestionsInfo struct {
	NextCommands []string `json:"next_commands"`
	Examples     []string `json:"examples"`
	Tips         []string `json:"tips"`
	Corrections  []string `json:"corrections"`
}

// ValidateRequest is the body of POST /api/v1/validate.
type ValidateRequest struct {
	Command string `json:"command"`
}

// ValidateInfo is the JSON form of validate.Result.
type ValidateInfo struct {
	Valid             bool     `json:"valid"`
	Error             string   `json:"error,omitempty"`
	SuggestedCommands []string `json:"suggested_commands,omitempty"`
	Command           string   `json:"command,omitempty"`
	Arguments         []string `json:"arguments,omitempty"`
	Syntax            string   `json:"syntax,omitempty"`
	Preview           string   `json:"preview,omitempty"`
	Warning           string   `json:"warning,omitempty"`
	Suggestion        string   `json:"suggestion,omitempty"`
}
