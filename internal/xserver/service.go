// Package xserver provides display hierarchy service backends: the xinput
// exec backend talking to a live X server and an in-memory demo backend for
// tests and X-less machines.
package xserver

import (
	"fmt"
	"os/exec"

	"github.com/devtreehq/devtree/internal/hierarchy"
	"github.com/devtreehq/devtree/internal/logger"
)

// New selects a backend by name. "auto" picks xinput when the binary is on
// PATH; "xinput" and "demo" force their backend.
func New(backend string) (hierarchy.Service, error) {
	switch backend {
	case "", "auto":
		if _, err := exec.LookPath("xinput"); err == nil {
			return newXinputBackend()
		}
		return nil, fmt.Errorf("no usable backend: xinput not found (use --backend demo to try devtree without an X server): %w", hierarchy.ErrServiceUnavailable)
	case "xinput":
		return newXinputBackend()
	case "demo":
		logger.Info("using in-memory demo backend, no real devices will change")
		return NewDemo(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want auto, xinput or demo)", backend)
	}
}
