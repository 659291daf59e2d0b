// Package engine constructs the dual-protocol server. It is the only
// entry point collaborators need; the implementation lives in
// internal/server.
package engine

import (
	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/admission"
	"github.com/luciancaetano/portmux/internal/server"
)

// New creates a server for cfg. A nil cfg uses portmux.DefaultConfig.
//
// Example:
//
//	cfg := portmux.DefaultConfig()
//	cfg.Port = 9000
//	cfg.Admission = engine.DefaultAdmission()
//	srv := engine.New(cfg)
//	srv.Start(ctx)
func New(cfg *portmux.Config) portmux.Server {
	return server.New(cfg)
}

// DefaultAdmission returns the default per-client token bucket admission
// check: 100 messages per second with burst of 200.
func DefaultAdmission() portmux.Admission {
	return admission.New(admission.DefaultConfig())
}

// NoAdmission returns an admission check that always allows.
func NoAdmission() portmux.Admission {
	return admission.New(admission.Disabled())
}
