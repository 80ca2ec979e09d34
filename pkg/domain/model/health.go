package model

import "time"

// HealthStatus is served by GET /health
type HealthStatus struct {
	Status   string     `json:"status"`
	Service  string     `json:"service"`
	Version  string     `json:"version"`
	Scanning bool       `json:"scanning"`
	LastScan *time.Time `json:"last_scan,omitempty"`
}
