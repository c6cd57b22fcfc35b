package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// DefaultFCSizes are the hidden sizes of MAMLFC when none are given.
var DefaultFCSizes = []int{256, 128, 64, 64}

// MAMLFC is a stack of MAMLLinearBlocks followed by a plain linear output
// layer initialized with MAMLFCInit.
//
// Architecture (default sizes):
//
//	Input: any shape holding batch*input_size values, viewed as [batch, input_size]
//	MAMLLinearBlock: input_size -> 256
//	MAMLLinearBlock: 256 -> 128
//	MAMLLinearBlock: 128 -> 64
//	MAMLLinearBlock: 64 -> 64
//	Linear: 64 -> output_size
type MAMLFC[B tensor.Backend] struct {
	blocks    []*MAMLLinearBlock[B]
	output    *nn.Linear[B]
	inputSize int
	sizes     []int
}

// NewMAMLFC creates a fully-connected MAML network.
//
// sizes lists the hidden layer widths; an empty list selects
// DefaultFCSizes. A single size gives one block plus the output layer.
func NewMAMLFC[B tensor.Backend](inputSize, outputSize int, sizes []int, backend B) *MAMLFC[B] {
	if len(sizes) == 0 {
		sizes = DefaultFCSizes
	}
	sizes = append([]int(nil), sizes...)

	blocks := make([]*MAMLLinearBlock[B], 0, len(sizes))
	in := inputSize
	for _, out := range sizes {
		blocks = append(blocks, NewMAMLLinearBlock(in, out, backend))
		in = out
	}

	output := nn.NewLinear(in, outputSize, backend)
	layers.MAMLFCInit[B](output)

	return &MAMLFC[B]{
		blocks:    blocks,
		output:    output,
		inputSize: inputSize,
		sizes:     sizes,
	}
}

// Forward views x as [-1, input_size] and applies the stack.
func (m *MAMLFC[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = flatten(x, m.inputSize, "maml fc")
	for _, block := range m.blocks {
		x = block.Forward(x)
	}
	return m.output.Forward(x)
}

// Parameters returns all trainable parameters.
func (m *MAMLFC[B]) Parameters() []*layers.Parameter[B] {
	return layers.Unnamed(m.NamedParameters())
}

// NamedParameters returns the parameters keyed by position in the stack:
// "0.linear.weight" ... for blocks and "<len(sizes)>.weight" for the output.
func (m *MAMLFC[B]) NamedParameters() []layers.NamedParameter[B] {
	var named []layers.NamedParameter[B]
	for i, block := range m.blocks {
		named = append(named, layers.Prefixed(strconv.Itoa(i), block.NamedParameters())...)
	}
	return append(named, layers.WeightAndBias[B](strconv.Itoa(len(m.blocks)), m.output)...)
}

// StateDict returns a map of parameter names to raw tensors.
func (m *MAMLFC[B]) StateDict() map[string]*tensor.RawTensor {
	return layers.StateDict(m.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (m *MAMLFC[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return layers.LoadStateDict(m.NamedParameters(), stateDict)
}

// InputSize returns the number of input features.
func (m *MAMLFC[B]) InputSize() int {
	return m.inputSize
}

// Sizes returns the hidden layer widths.
func (m *MAMLFC[B]) Sizes() []int {
	return append([]int(nil), m.sizes...)
}

// Block returns the linear block at the given index.
//
// Panics if index is out of bounds.
func (m *MAMLFC[B]) Block(index int) *MAMLLinearBlock[B] {
	if index < 0 || index >= len(m.blocks) {
		panic("MAMLFC.Block: index out of bounds")
	}
	return m.blocks[index]
}

// Output returns the final linear layer.
func (m *MAMLFC[B]) Output() *nn.Linear[B] {
	return m.output
}

// String returns a string representation of the model architecture.
func (m *MAMLFC[B]) String() string {
	var sb strings.Builder
	sb.WriteString("MAMLFC(")
	for i, block := range m.blocks {
		fmt.Fprintf(&sb, "\n  (%d): %s", i, indent(block.String()))
	}
	fmt.Fprintf(&sb, "\n  (%d): Linear(in=%d, out=%d)\n)",
		len(m.blocks), m.output.InFeatures(), m.output.OutFeatures())
	return sb.String()
}
