package models

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// MiniImagenet image geometry. The conv base reduces 84x84 images to 5x5
// feature maps, so the head sees 25*hidden features.
const (
	MiniImagenetChannels     = 3
	MiniImagenetImageSize    = 84
	MiniImagenetFeatureCells = 25
)

// MiniImagenetCNN defaults.
const (
	DefaultMiniImagenetOutputSize = 5
	DefaultMiniImagenetHidden     = 32
	DefaultMiniImagenetLayers     = 4
)

// MiniImagenetGridSize returns the side of the feature maps the conv base
// produces for 84x84 images with numLayers blocks, or 0 when numLayers is
// outside [1, 4]. Only 2 and 4 layers give the 5x5 grid the head expects.
func MiniImagenetGridSize(numLayers int) int {
	if numLayers < 1 || numLayers > 4 {
		return 0
	}
	// Convs keep the size (3x3, padding 1, stride 1); pools use kernel = stride.
	pool := int(2 * float64(4/numLayers))
	size := MiniImagenetImageSize
	for i := 0; i < numLayers; i++ {
		size = (size-pool)/pool + 1
	}
	return size
}

// MiniImagenetCNN is the MiniImagenet few-shot classifier.
//
// Architecture:
//
//	Input: [batch, 3, 84, 84]
//	MAMLConvBase: conv blocks with max pooling, factor 4/layers -> [batch, hidden, 5, 5]
//	Flatten -> [batch, 25*hidden]
//	Linear: 25*hidden -> output_size (Xavier uniform, zero bias)
type MiniImagenetCNN[B tensor.Backend] struct {
	base       *MAMLConvBase[B]
	linear     *nn.Linear[B]
	hiddenSize int
}

// NewMiniImagenetCNN creates a MiniImagenet classifier.
//
// numLayers must be 2 or 4: the pooling factor is 4/numLayers (integer
// division) and only those counts reduce 84x84 images to the 5x5 grid
// the head is sized for. Other counts panic.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	model := models.NewMiniImagenetCNN(5, 32, 4, backend)
//	logits := model.Forward(images) // [N, 3, 84, 84] -> [N, 5]
func NewMiniImagenetCNN[B tensor.Backend](outputSize, hiddenSize, numLayers int, backend B) *MiniImagenetCNN[B] {
	if outputSize <= 0 || hiddenSize <= 0 {
		panic(fmt.Sprintf("miniimagenet cnn: invalid sizes output=%d, hidden=%d", outputSize, hiddenSize))
	}
	if grid := MiniImagenetGridSize(numLayers); grid*grid != MiniImagenetFeatureCells {
		panic(fmt.Sprintf("miniimagenet cnn: %d layers reduce %dx%d images to a %dx%d grid, want 5x5 (use 2 or 4 layers)",
			numLayers, MiniImagenetImageSize, MiniImagenetImageSize, grid, grid))
	}

	factor := float64(4 / numLayers)
	base := NewMAMLConvBase(hiddenSize, MiniImagenetChannels, true, numLayers, factor, backend)

	linear := nn.NewLinear(MiniImagenetFeatureCells*hiddenSize, outputSize, backend)
	layers.MAMLInit[B](linear)

	return &MiniImagenetCNN[B]{
		base:       base,
		linear:     linear,
		hiddenSize: hiddenSize,
	}
}

// Forward computes class logits for a batch of 84x84 RGB images.
//
// Panics when the conv base does not produce 25*hidden features per
// example, which happens for inputs of any other resolution.
func (m *MiniImagenetCNN[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = m.base.Forward(x)

	features := MiniImagenetFeatureCells * m.hiddenSize
	if shape := x.Shape(); shape[0] == 0 || x.NumElements()/shape[0] != features {
		panic(fmt.Sprintf("miniimagenet cnn: expected %d features per example after conv base, got shape %v",
			features, shape))
	}
	return m.linear.Forward(flatten(x, features, "miniimagenet cnn"))
}

// Parameters returns all trainable parameters.
func (m *MiniImagenetCNN[B]) Parameters() []*layers.Parameter[B] {
	return layers.Unnamed(m.NamedParameters())
}

// NamedParameters returns base.* and linear.* parameters.
func (m *MiniImagenetCNN[B]) NamedParameters() []layers.NamedParameter[B] {
	named := layers.Prefixed("base", m.base.NamedParameters())
	return append(named, layers.WeightAndBias[B]("linear", m.linear)...)
}

// StateDict returns a map of parameter names to raw tensors.
func (m *MiniImagenetCNN[B]) StateDict() map[string]*tensor.RawTensor {
	return layers.StateDict(m.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (m *MiniImagenetCNN[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return layers.LoadStateDict(m.NamedParameters(), stateDict)
}

// Base returns the convolutional feature extractor.
func (m *MiniImagenetCNN[B]) Base() *MAMLConvBase[B] {
	return m.base
}

// Head returns the final linear layer.
func (m *MiniImagenetCNN[B]) Head() *nn.Linear[B] {
	return m.linear
}

// HiddenSize returns the number of conv channels.
func (m *MiniImagenetCNN[B]) HiddenSize() int {
	return m.hiddenSize
}

// String returns a string representation of the model architecture.
func (m *MiniImagenetCNN[B]) String() string {
	return fmt.Sprintf("MiniImagenetCNN(\n  (base): %s\n  Flatten(features=%d)\n  (linear): Linear(in=%d, out=%d)\n)",
		indent(m.base.String()), MiniImagenetFeatureCells*m.hiddenSize,
		m.linear.InFeatures(), m.linear.OutFeatures())
}
