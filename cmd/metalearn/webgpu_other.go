//go:build !windows

package main

import (
	"io"
	"runtime"

	"github.com/born-ml/metalearn/internal/config"
	"github.com/pkg/errors"
)

func runWebGPU(io.Writer, string, config.Config, *options) error {
	return errors.Errorf("webgpu backend is not supported on %s", runtime.GOOS)
}
