// Package config describes model architectures as YAML documents and builds
// the matching models.
//
// A minimal file selects a model by name and relies on defaults:
//
//	model: miniimagenet
//	output_size: 5
//
// Every field left at its zero value is filled by WithDefaults.
package config

import (
	"bytes"
	"io"
	"os"
	"slices"

	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
	"github.com/born-ml/metalearn/internal/models"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Model names accepted in Config.Model.
const (
	Omniglot     = "omniglot"
	MiniImagenet = "miniimagenet"
	FC           = "fc"
	ConvBase     = "convbase"
)

// Names lists the supported model names.
var Names = []string{Omniglot, MiniImagenet, FC, ConvBase}

// Defaults that are not fixed by a model constructor.
const (
	DefaultFCInputSize     = models.OmniglotImageSize * models.OmniglotImageSize
	DefaultFCOutputSize    = 5
	DefaultConvBaseHidden  = 64
	DefaultConvBaseLayers  = 4
	DefaultConvBaseImage   = models.OmniglotImageSize
	DefaultConvBaseFactor  = 1.0
	DefaultConvBaseChannel = 1
)

// Config is the architecture of a single model.
type Config struct {
	Model         string  `yaml:"model"`
	InputSize     int     `yaml:"input_size,omitempty"`
	OutputSize    int     `yaml:"output_size,omitempty"`
	HiddenSize    int     `yaml:"hidden_size,omitempty"`
	Layers        int     `yaml:"layers,omitempty"`
	Channels      int     `yaml:"channels,omitempty"`
	ImageSize     int     `yaml:"image_size,omitempty"`
	MaxPool       bool    `yaml:"max_pool,omitempty"`
	MaxPoolFactor float64 `yaml:"max_pool_factor,omitempty"`
	Sizes         []int   `yaml:"sizes,flow,omitempty"`
	Seed          uint64  `yaml:"seed,omitempty"`
}

// Default returns the fully populated default configuration of the named
// model.
func Default(model string) (Config, error) {
	cfg := Config{Model: model}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML document. Unknown fields are rejected. An empty
// document yields the zero Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}

// Load reads, parses and validates the YAML file at path, applying
// defaults to the fields it leaves out.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %q", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.WithMessagef(err, "config %q", path)
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.WithMessagef(err, "config %q", path)
	}
	return cfg, nil
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode config")
	}
	return data, nil
}

// WithDefaults returns a copy of c with zero fields replaced by the
// defaults of c.Model. Unknown models are returned unchanged.
func (c Config) WithDefaults() Config {
	orInt := func(v *int, def int) {
		if *v == 0 {
			*v = def
		}
	}

	switch c.Model {
	case Omniglot:
		orInt(&c.OutputSize, models.DefaultOmniglotOutputSize)
		orInt(&c.HiddenSize, models.DefaultOmniglotHidden)
		orInt(&c.Layers, models.DefaultOmniglotLayers)
	case MiniImagenet:
		orInt(&c.OutputSize, models.DefaultMiniImagenetOutputSize)
		orInt(&c.HiddenSize, models.DefaultMiniImagenetHidden)
		orInt(&c.Layers, models.DefaultMiniImagenetLayers)
	case FC:
		orInt(&c.InputSize, DefaultFCInputSize)
		orInt(&c.OutputSize, DefaultFCOutputSize)
		if len(c.Sizes) == 0 {
			c.Sizes = slices.Clone(models.DefaultFCSizes)
		}
	case ConvBase:
		orInt(&c.HiddenSize, DefaultConvBaseHidden)
		orInt(&c.Layers, DefaultConvBaseLayers)
		orInt(&c.Channels, DefaultConvBaseChannel)
		orInt(&c.ImageSize, DefaultConvBaseImage)
		if c.MaxPoolFactor == 0 {
			c.MaxPoolFactor = DefaultConvBaseFactor
		}
	}
	return c
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if !slices.Contains(Names, c.Model) {
		return errors.Errorf("unknown model %q (want one of %v)", c.Model, Names)
	}

	positive := func(name string, v int) error {
		if v <= 0 {
			return errors.Errorf("%s: %s must be positive, got %d", c.Model, name, v)
		}
		return nil
	}

	switch c.Model {
	case Omniglot:
		for _, check := range []error{
			positive("output_size", c.OutputSize),
			positive("hidden_size", c.HiddenSize),
			positive("layers", c.Layers),
		} {
			if check != nil {
				return check
			}
		}
	case MiniImagenet:
		for _, check := range []error{
			positive("output_size", c.OutputSize),
			positive("hidden_size", c.HiddenSize),
		} {
			if check != nil {
				return check
			}
		}
		if grid := models.MiniImagenetGridSize(c.Layers); grid*grid != models.MiniImagenetFeatureCells {
			return errors.Errorf("%s: layers must be 2 or 4 to reduce %dx%d images to a 5x5 grid, got %d (%dx%d)",
				c.Model, models.MiniImagenetImageSize, models.MiniImagenetImageSize, c.Layers, grid, grid)
		}
	case FC:
		if err := positive("input_size", c.InputSize); err != nil {
			return err
		}
		if err := positive("output_size", c.OutputSize); err != nil {
			return err
		}
		for i, size := range c.Sizes {
			if size <= 0 {
				return errors.Errorf("%s: sizes[%d] must be positive, got %d", c.Model, i, size)
			}
		}
	case ConvBase:
		for _, check := range []error{
			positive("hidden_size", c.HiddenSize),
			positive("layers", c.Layers),
			positive("channels", c.Channels),
			positive("image_size", c.ImageSize),
		} {
			if check != nil {
				return check
			}
		}
		if int(2*c.MaxPoolFactor) <= 0 {
			return errors.Errorf("%s: max_pool_factor %g gives a zero stride", c.Model, c.MaxPoolFactor)
		}
	}
	return nil
}

// InputShape returns the shape of a batch of inputs accepted by the model.
func (c Config) InputShape(batch int) tensor.Shape {
	switch c.Model {
	case Omniglot:
		return tensor.Shape{batch, models.OmniglotImageSize * models.OmniglotImageSize}
	case MiniImagenet:
		return tensor.Shape{batch, models.MiniImagenetChannels, models.MiniImagenetImageSize, models.MiniImagenetImageSize}
	case FC:
		return tensor.Shape{batch, c.InputSize}
	case ConvBase:
		return tensor.Shape{batch, c.Channels, c.ImageSize, c.ImageSize}
	}
	return nil
}

// Build validates c and constructs the model on backend. A non-zero Seed
// reseeds the shared initializer source first, so equal configs build
// equal weights.
func Build[B tensor.Backend](c Config, backend B) (models.Model[B], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Seed != 0 {
		layers.Seed(c.Seed)
	}

	switch c.Model {
	case Omniglot:
		return models.NewOmniglotCNN(c.OutputSize, c.HiddenSize, c.Layers, backend), nil
	case MiniImagenet:
		return models.NewMiniImagenetCNN(c.OutputSize, c.HiddenSize, c.Layers, backend), nil
	case FC:
		return models.NewMAMLFC(c.InputSize, c.OutputSize, c.Sizes, backend), nil
	default:
		return models.NewMAMLConvBase(c.HiddenSize, c.Channels, c.MaxPool, c.Layers, c.MaxPoolFactor, backend), nil
	}
}
