package codegen

import (
	"bytes"

	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/ir"
)

// Backend is the interface that all code generation backends must implement.
type Backend interface {
	// Generate takes an OLLIR class and a configuration, and produces the target
	// assembly as a byte buffer.
	Generate(cls *ir.Class, cfg *config.Config) (*bytes.Buffer, error)
}
