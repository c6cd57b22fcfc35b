package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/born-ml/born/autodiff"
	"github.com/born-ml/born/backend/cpu"
	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/config"
	"github.com/born-ml/metalearn/internal/layers"
	"github.com/born-ml/metalearn/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const bytesPerParameter = 4 // float32

func runCPU(w io.Writer, command string, cfg config.Config, opts *options) error {
	return execute(w, autodiff.New(cpu.New()), command, cfg, opts)
}

// execute builds the model described by cfg on backend and runs command.
func execute[B tensor.Backend](w io.Writer, backend B, command string, cfg config.Config, opts *options) error {
	start := time.Now()
	model, err := config.Build(cfg, backend)
	if err != nil {
		return err
	}
	klog.V(1).Infof("built %s in %s", cfg.Model, time.Since(start))

	switch command {
	case "summary":
		return summary(w, model, cfg)
	case "forward":
		return forward(w, model, cfg, backend, opts.batch)
	case "init":
		return save(w, model, cfg, opts.out)
	default:
		return errors.Errorf("unknown command %q", command)
	}
}

func summary[B tensor.Backend](w io.Writer, model models.Model[B], cfg config.Config) error {
	params := models.CountParameters[B](model)
	fmt.Fprintf(w, "%s\n\n", model)
	fmt.Fprintf(w, "Input:      %v\n", cfg.InputShape(-1))
	fmt.Fprintf(w, "Tensors:    %d\n", len(model.Parameters()))
	fmt.Fprintf(w, "Parameters: %s (%s)\n", humanize.Comma(int64(params)), humanize.Bytes(uint64(params*bytesPerParameter)))
	return nil
}

func forward[B tensor.Backend](w io.Writer, model models.Model[B], cfg config.Config, backend B, batch int) error {
	if batch < 2 {
		return errors.Errorf("batch must be at least 2 for batch normalization, got %d", batch)
	}

	shape := cfg.InputShape(batch)
	input := layers.Normal(tensor.Zeros[float32](shape, backend), 0, 1)

	start := time.Now()
	output := model.Forward(input)
	elapsed := time.Since(start)
	klog.V(1).Infof("forward %v -> %v in %s", shape, output.Shape(), elapsed)

	fmt.Fprintf(w, "Input:  %v\n", shape)
	fmt.Fprintf(w, "Output: %v\n", output.Shape())
	fmt.Fprintf(w, "Time:   %s\n", elapsed.Round(time.Microsecond))
	return nil
}

func save[B tensor.Backend](w io.Writer, model models.Model[B], cfg config.Config, path string) error {
	if path == "" {
		path = cfg.Model + ".born"
	}

	encoded, err := cfg.Marshal()
	if err != nil {
		return err
	}
	metadata := map[string]string{
		"config": string(encoded),
		"seed":   strconv.FormatUint(cfg.Seed, 10),
	}
	if err := nn.Save[B](model, path, cfg.Model, metadata); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	fmt.Fprintf(w, "Saved %s to %s (%s, %d tensors)\n",
		cfg.Model, path, humanize.Bytes(uint64(info.Size())), len(model.StateDict()))
	return nil
}
