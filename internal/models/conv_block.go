package models

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// MAMLConvBlock is Conv2D -> BatchNorm -> ReLU -> MaxPool2D (optional).
//
// The downsampling factor is int(2*maxPoolFactor). With max pooling the
// conv runs at stride 1 and a non-overlapping pool of that size follows;
// without it the conv itself strides by the factor and pooling is the
// identity. The conv always pads by 1 and uses MAMLInit (Xavier uniform,
// zero bias).
//
// Input shape:  [batch, in_channels, height, width]
// Output shape: [batch, out_channels, out_h, out_w]
type MAMLConvBlock[B tensor.Backend] struct {
	conv      *nn.Conv2D[B]
	normalize *layers.BatchNorm[B]
	relu      *nn.ReLU[B]
	pool      spatialLayer[B] // *nn.MaxPool2D or *layers.Identity
	maxPool   bool
}

// NewMAMLConvBlock creates a conv block with a square kernel.
func NewMAMLConvBlock[B tensor.Backend](
	inChannels, outChannels int,
	kernelSize int,
	maxPool bool,
	maxPoolFactor float64,
	backend B,
) *MAMLConvBlock[B] {
	stride := int(2 * maxPoolFactor)
	if stride <= 0 {
		panic(fmt.Sprintf("maml conv block: max pool factor %g gives stride %d", maxPoolFactor, stride))
	}

	var pool spatialLayer[B]
	if maxPool {
		pool = nn.NewMaxPool2D(stride, stride, backend)
		stride = 1
	} else {
		pool = layers.NewIdentity[B]()
	}

	conv := nn.NewConv2D(inChannels, outChannels, kernelSize, kernelSize, stride, 1, true, backend)
	layers.MAMLInit[B](conv)

	return &MAMLConvBlock[B]{
		conv:      conv,
		normalize: layers.NewBatchNorm(outChannels, BatchNormEpsilon, BatchNormMomentum, true, backend),
		relu:      nn.NewReLU[B](),
		pool:      pool,
		maxPool:   maxPool,
	}
}

// Forward computes pool(relu(batchnorm(conv(x)))).
func (b *MAMLConvBlock[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = b.conv.Forward(x)
	x = b.normalize.Forward(x)
	x = b.relu.Forward(x)
	return b.pool.Forward(x)
}

// Parameters returns all trainable parameters.
func (b *MAMLConvBlock[B]) Parameters() []*layers.Parameter[B] {
	return layers.Unnamed(b.NamedParameters())
}

// NamedParameters returns conv.{weight,bias} and normalize.{weight,bias}.
func (b *MAMLConvBlock[B]) NamedParameters() []layers.NamedParameter[B] {
	named := layers.WeightAndBias[B]("conv", b.conv)
	return append(named, layers.Prefixed("normalize", b.normalize.NamedParameters())...)
}

// StateDict returns a map of parameter names to raw tensors.
func (b *MAMLConvBlock[B]) StateDict() map[string]*tensor.RawTensor {
	return layers.StateDict(b.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (b *MAMLConvBlock[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return layers.LoadStateDict(b.NamedParameters(), stateDict)
}

// ComputeOutputSize computes output spatial dimensions for given input size.
func (b *MAMLConvBlock[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	size := b.conv.ComputeOutputSize(inputH, inputW)
	return b.pool.ComputeOutputSize(size[0], size[1])
}

// Conv returns the convolution layer.
func (b *MAMLConvBlock[B]) Conv() *nn.Conv2D[B] {
	return b.conv
}

// Normalize returns the batch normalization layer.
func (b *MAMLConvBlock[B]) Normalize() *layers.BatchNorm[B] {
	return b.normalize
}

// MaxPool reports whether the block pools after the activation.
func (b *MAMLConvBlock[B]) MaxPool() bool {
	return b.maxPool
}

// String returns a string representation of the block.
func (b *MAMLConvBlock[B]) String() string {
	return fmt.Sprintf("MAMLConvBlock(\n  %s\n  %s\n  ReLU()\n  %s\n)", b.conv, b.normalize, b.pool)
}
