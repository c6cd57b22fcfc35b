package models

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// MAMLLinearBlock is Linear -> BatchNorm -> ReLU.
//
// The linear layer uses MAMLFCInit (truncated normal, std 0.01, zero
// bias). Batch norm is affine with epsilon 1e-3 and momentum 0.999 and
// always normalizes with the current batch.
//
// Input shape:  [batch, input_size]
// Output shape: [batch, output_size]
type MAMLLinearBlock[B tensor.Backend] struct {
	linear    *nn.Linear[B]
	normalize *layers.BatchNorm[B]
	relu      *nn.ReLU[B]
}

// NewMAMLLinearBlock creates a linear block mapping inputSize to outputSize features.
func NewMAMLLinearBlock[B tensor.Backend](inputSize, outputSize int, backend B) *MAMLLinearBlock[B] {
	if inputSize <= 0 || outputSize <= 0 {
		panic(fmt.Sprintf("maml linear block: invalid sizes in=%d, out=%d", inputSize, outputSize))
	}

	linear := nn.NewLinear(inputSize, outputSize, backend)
	layers.MAMLFCInit[B](linear)

	return &MAMLLinearBlock[B]{
		linear:    linear,
		normalize: layers.NewBatchNorm(outputSize, BatchNormEpsilon, BatchNormMomentum, true, backend),
		relu:      nn.NewReLU[B](),
	}
}

// Forward computes relu(batchnorm(linear(x))).
func (b *MAMLLinearBlock[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = b.linear.Forward(x)
	x = b.normalize.Forward(x)
	return b.relu.Forward(x)
}

// Parameters returns all trainable parameters.
func (b *MAMLLinearBlock[B]) Parameters() []*layers.Parameter[B] {
	return layers.Unnamed(b.NamedParameters())
}

// NamedParameters returns linear.{weight,bias} and normalize.{weight,bias}.
func (b *MAMLLinearBlock[B]) NamedParameters() []layers.NamedParameter[B] {
	named := layers.WeightAndBias[B]("linear", b.linear)
	return append(named, layers.Prefixed("normalize", b.normalize.NamedParameters())...)
}

// StateDict returns a map of parameter names to raw tensors.
func (b *MAMLLinearBlock[B]) StateDict() map[string]*tensor.RawTensor {
	return layers.StateDict(b.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (b *MAMLLinearBlock[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return layers.LoadStateDict(b.NamedParameters(), stateDict)
}

// Linear returns the linear layer.
func (b *MAMLLinearBlock[B]) Linear() *nn.Linear[B] {
	return b.linear
}

// Normalize returns the batch normalization layer.
func (b *MAMLLinearBlock[B]) Normalize() *layers.BatchNorm[B] {
	return b.normalize
}

// String returns a string representation of the block.
func (b *MAMLLinearBlock[B]) String() string {
	return fmt.Sprintf("MAMLLinearBlock(\n  Linear(in=%d, out=%d)\n  %s\n  ReLU()\n)",
		b.linear.InFeatures(), b.linear.OutFeatures(), b.normalize)
}
