package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// ConvKernelSize is the kernel size of every block in a MAMLConvBase.
const ConvKernelSize = 3

// MAMLConvBase is an ordered stack of MAMLConvBlocks.
//
// The first block maps channels -> hidden, the remaining ones
// hidden -> hidden; all share maxPool and maxPoolFactor.
//
// Typical configurations:
//   - Omniglot: hidden=64, channels=1, no max pooling
//   - MiniImagenet: hidden=32, channels=3, max pooling
type MAMLConvBase[B tensor.Backend] struct {
	blocks []*MAMLConvBlock[B]
}

// NewMAMLConvBase creates a conv base with numLayers blocks (at least one).
func NewMAMLConvBase[B tensor.Backend](
	hidden, channels int,
	maxPool bool,
	numLayers int,
	maxPoolFactor float64,
	backend B,
) *MAMLConvBase[B] {
	if numLayers < 1 {
		panic(fmt.Sprintf("maml conv base: invalid number of layers %d", numLayers))
	}

	blocks := make([]*MAMLConvBlock[B], 0, numLayers)
	blocks = append(blocks, NewMAMLConvBlock(channels, hidden, ConvKernelSize, maxPool, maxPoolFactor, backend))
	for i := 1; i < numLayers; i++ {
		blocks = append(blocks, NewMAMLConvBlock(hidden, hidden, ConvKernelSize, maxPool, maxPoolFactor, backend))
	}
	return &MAMLConvBase[B]{blocks: blocks}
}

// Forward applies every block in order.
func (c *MAMLConvBase[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	for _, block := range c.blocks {
		x = block.Forward(x)
	}
	return x
}

// Parameters returns all trainable parameters.
func (c *MAMLConvBase[B]) Parameters() []*layers.Parameter[B] {
	return layers.Unnamed(c.NamedParameters())
}

// NamedParameters returns the block parameters prefixed with the block
// index ("0.conv.weight", "3.normalize.bias", ...).
func (c *MAMLConvBase[B]) NamedParameters() []layers.NamedParameter[B] {
	var named []layers.NamedParameter[B]
	for i, block := range c.blocks {
		named = append(named, layers.Prefixed(strconv.Itoa(i), block.NamedParameters())...)
	}
	return named
}

// StateDict returns a map of parameter names to raw tensors.
func (c *MAMLConvBase[B]) StateDict() map[string]*tensor.RawTensor {
	return layers.StateDict(c.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (c *MAMLConvBase[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return layers.LoadStateDict(c.NamedParameters(), stateDict)
}

// ComputeOutputSize computes output spatial dimensions for given input size.
func (c *MAMLConvBase[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	size := [2]int{inputH, inputW}
	for _, block := range c.blocks {
		size = block.ComputeOutputSize(size[0], size[1])
	}
	return size
}

// Len returns the number of blocks.
func (c *MAMLConvBase[B]) Len() int {
	return len(c.blocks)
}

// Block returns the block at the given index.
//
// Panics if index is out of bounds.
func (c *MAMLConvBase[B]) Block(index int) *MAMLConvBlock[B] {
	if index < 0 || index >= len(c.blocks) {
		panic("MAMLConvBase.Block: index out of bounds")
	}
	return c.blocks[index]
}

// String returns a string representation of the stack.
func (c *MAMLConvBase[B]) String() string {
	var sb strings.Builder
	sb.WriteString("MAMLConvBase(")
	for i, block := range c.blocks {
		fmt.Fprintf(&sb, "\n  (%d): %s", i, indent(block.String()))
	}
	sb.WriteString("\n)")
	return sb.String()
}
