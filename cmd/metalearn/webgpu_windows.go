//go:build windows

package main

import (
	"io"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/webgpu"
	"github.com/born-ml/metalearn/internal/config"
	"github.com/pkg/errors"
)

func runWebGPU(w io.Writer, command string, cfg config.Config, opts *options) error {
	if !webgpu.IsAvailable() {
		return errors.New("WebGPU is not available on this system")
	}
	gpu, err := webgpu.New()
	if err != nil {
		return errors.Wrap(err, "failed to create WebGPU backend")
	}
	defer gpu.Release()

	return execute(w, autodiff.New(gpu), command, cfg, opts)
}
