// Package main provides the metalearn CLI.
//
// Usage:
//
//	metalearn version
//	metalearn summary -model miniimagenet
//	metalearn forward -model omniglot -batch 25 -backend cpu
//	metalearn init -config fc.yaml -seed 42 -out fc.born
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/born-ml/metalearn/internal/config"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

// options holds the flags shared by every model command.
type options struct {
	backend    string
	configPath string
	model      string
	seed       uint64
	batch      int
	out        string
}

func (o *options) register(fs *flag.FlagSet, command string) {
	fs.StringVar(&o.backend, "backend", "cpu", "Compute backend: cpu or webgpu")
	fs.StringVar(&o.configPath, "config", "", "YAML architecture file (overrides -model)")
	fs.StringVar(&o.model, "model", config.Omniglot, "Model name: "+strings.Join(config.Names, ", "))
	fs.Uint64Var(&o.seed, "seed", 0, "Initializer seed (0 keeps the config seed)")
	if command == "forward" {
		fs.IntVar(&o.batch, "batch", 5, "Number of random examples to run")
	}
	if command == "init" {
		fs.StringVar(&o.out, "out", "", "Output .born file (default <model>.born)")
	}
}

// loadConfig resolves the architecture from -config or -model and applies -seed.
func (o *options) loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.Default(o.model)
	}
	if err != nil {
		return config.Config{}, err
	}
	if o.seed != 0 {
		cfg.Seed = o.seed
	}
	return cfg, nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "metalearn - MAML few-shot models on Born")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  summary    Print the architecture and parameter count")
	fmt.Fprintln(w, "  forward    Run a random batch through the model")
	fmt.Fprintln(w, "  init       Initialize a model and save it as a .born file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'metalearn <command> -h' for command flags.")
}

func main() {
	defer klog.Flush()

	if len(os.Args) < 2 {
		usage(os.Stdout)
		return
	}

	command := os.Args[1]
	switch command {
	case "version":
		fmt.Printf("metalearn %s\n", version)
		return
	case "help", "-h", "-help", "--help":
		usage(os.Stdout)
		return
	case "summary", "forward", "init":
	default:
		usage(os.Stderr)
		klog.Exitf("unknown command %q", command)
	}

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	klog.InitFlags(fs)
	var opts options
	opts.register(fs, command)
	_ = fs.Parse(os.Args[2:])

	if err := run(os.Stdout, command, &opts); err != nil {
		klog.Exitf("%s: %+v", command, err)
	}
}

// run loads the configuration and executes command on the selected backend.
func run(w io.Writer, command string, opts *options) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	klog.V(1).Infof("config: %+v", cfg)

	switch opts.backend {
	case "cpu":
		return runCPU(w, command, cfg, opts)
	case "webgpu":
		return runWebGPU(w, command, cfg, opts)
	default:
		return errors.Errorf("unknown backend %q (want cpu or webgpu)", opts.backend)
	}
}
