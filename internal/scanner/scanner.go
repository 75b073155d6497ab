// Package scanner defines the virus-scan collaborator used during
// upload finalization.
package scanner

import (
	"context"

	"github.com/filedepot/filedepot/internal/domain/file"
)

// Result is the outcome of scanning one stored object.
type Result struct {
	Clean      bool   `json:"clean"`
	Infected   bool   `json:"infected"`
	ThreatName string `json:"threat_name,omitempty"`
}

// Scanner checks an assembled object for malware. Implementations must
// treat the key as read-only; deletion of infected artifacts is the
// caller's job.
type Scanner interface {
	ScanObject(ctx context.Context, key file.StorageKey) (Result, error)
}

// Noop reports every object clean. Used when scanning is disabled.
type Noop struct{}

func (Noop) ScanObject(context.Context, file.StorageKey) (Result, error) {
	return Result{Clean: true}, nil
}
