package models

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// Omniglot image geometry.
const (
	OmniglotChannels  = 1
	OmniglotImageSize = 28
)

// OmniglotCNN defaults.
const (
	DefaultOmniglotOutputSize = 5
	DefaultOmniglotHidden     = 64
	DefaultOmniglotLayers     = 4
)

// OmniglotCNN is the Omniglot few-shot classifier.
//
// Architecture:
//
//	Input: any shape holding batch*784 pixels, viewed as [batch, 1, 28, 28]
//	MAMLConvBase: 4 strided conv blocks (no pooling) -> [batch, hidden, 2, 2]
//	Mean over height and width -> [batch, hidden]
//	Linear: hidden -> output_size
//
// Unlike the other heads, the final linear weight is drawn from N(0, 1);
// its bias starts at zero.
type OmniglotCNN[B tensor.Backend] struct {
	base       *MAMLConvBase[B]
	linear     *nn.Linear[B]
	hiddenSize int
}

// NewOmniglotCNN creates an Omniglot classifier.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model := models.NewOmniglotCNN(5, 64, 4, backend)
//	logits := model.Forward(images) // [N, 784] -> [N, 5]
func NewOmniglotCNN[B tensor.Backend](outputSize, hiddenSize, numLayers int, backend B) *OmniglotCNN[B] {
	if outputSize <= 0 || hiddenSize <= 0 {
		panic(fmt.Sprintf("omniglot cnn: invalid sizes output=%d, hidden=%d", outputSize, hiddenSize))
	}

	base := NewMAMLConvBase(hiddenSize, OmniglotChannels, false, numLayers, 1.0, backend)

	linear := nn.NewLinear(hiddenSize, outputSize, backend)
	layers.Normal(linear.Weight().Tensor(), 0, 1)
	layers.Constant(linear.Bias().Tensor(), 0)

	return &OmniglotCNN[B]{
		base:       base,
		linear:     linear,
		hiddenSize: hiddenSize,
	}
}

// Forward computes class logits for a batch of 28x28 grayscale images.
func (m *OmniglotCNN[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	pixels := OmniglotChannels * OmniglotImageSize * OmniglotImageSize
	x = flatten(x, pixels, "omniglot cnn")
	x = x.Reshape(x.Shape()[0], OmniglotChannels, OmniglotImageSize, OmniglotImageSize)

	x = m.base.Forward(x)                  // [batch, hidden, h, w]
	x = layers.Mean(x, []int{2, 3}, false) // [batch, hidden]
	return m.linear.Forward(x)
}

// Parameters returns all trainable parameters.
func (m *OmniglotCNN[B]) Parameters() []*layers.Parameter[B] {
	return layers.Unnamed(m.NamedParameters())
}

// NamedParameters returns base.* and linear.* parameters.
func (m *OmniglotCNN[B]) NamedParameters() []layers.NamedParameter[B] {
	named := layers.Prefixed("base", m.base.NamedParameters())
	return append(named, layers.WeightAndBias[B]("linear", m.linear)...)
}

// StateDict returns a map of parameter names to raw tensors.
func (m *OmniglotCNN[B]) StateDict() map[string]*tensor.RawTensor {
	return layers.StateDict(m.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (m *OmniglotCNN[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return layers.LoadStateDict(m.NamedParameters(), stateDict)
}

// Base returns the convolutional feature extractor.
func (m *OmniglotCNN[B]) Base() *MAMLConvBase[B] {
	return m.base
}

// Head returns the final linear layer.
func (m *OmniglotCNN[B]) Head() *nn.Linear[B] {
	return m.linear
}

// HiddenSize returns the number of conv channels.
func (m *OmniglotCNN[B]) HiddenSize() int {
	return m.hiddenSize
}

// String returns a string representation of the model architecture.
func (m *OmniglotCNN[B]) String() string {
	return fmt.Sprintf("OmniglotCNN(\n  (base): %s\n  Mean(dims=[2, 3])\n  (linear): Linear(in=%d, out=%d)\n)",
		indent(m.base.String()), m.linear.InFeatures(), m.linear.OutFeatures())
}
