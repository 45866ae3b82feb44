package domain

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Identity describes this client to the gateway during the connect handshake.
// It is passed explicitly to the client constructor; nothing reads it from
// ambient state.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	Mode        string `json:"mode"`
}

// Target is a gateway connection target: where to dial and how to
// authenticate. Targets are supplied by collaborators (config file, target
// store); the client never discovers them on its own.
type Target struct {
	Name      string
	Host      string
	Port      int
	Token     string
	Role      string
	Scopes    []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// URL returns the WebSocket endpoint for the target.
func (t Target) URL() string {
	return fmt.Sprintf("ws://%s/ws", net.JoinHostPort(t.Host, strconv.Itoa(t.Port)))
}

// Validate reports whether the target has everything needed to dial.
func (t Target) Validate() error {
	if t.Host == "" {
		return fmt.Errorf("target %q: host is required", t.Name)
	}
	if t.Port <= 0 || t.Port > 65535 {
		return fmt.Errorf("target %q: invalid port %d", t.Name, t.Port)
	}
	if t.Token == "" {
		return fmt.Errorf("target %q: token is required", t.Name)
	}
	return nil
}

// HealthReport is the gateway's answer to a health call.
type HealthReport struct {
	OK       bool   `json:"ok"`
	Version  string `json:"version,omitempty"`
	UptimeMs int64  `json:"uptimeMs,omitempty"`
}

// Channel is one communication channel managed by the gateway.
type Channel struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// CronJob is a scheduled job registered with the gateway.
type CronJob struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	Message  string `json:"message,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// UsageReport summarizes gateway resource usage over a reporting window.
type UsageReport struct {
	Window    string `json:"window,omitempty"`
	Calls     int64  `json:"calls"`
	Errors    int64  `json:"errors"`
	Tokens    int64  `json:"tokens,omitempty"`
	Sessions  int    `json:"sessions,omitempty"`
	Collected string `json:"collected,omitempty"`
}
