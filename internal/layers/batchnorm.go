package layers

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// BatchNorm normalizes each feature (channel) with the statistics of the
// current batch.
//
// Formula: Y = weight * (X - mean(X)) / sqrt(var(X) + eps) + bias
//
// mean and (biased) variance are computed over every axis except axis 1,
// so the layer accepts [N, C] and [N, C, L] inputs (BatchNorm1d) as well as
// [N, C, H, W] images (BatchNorm2d).
//
// No running statistics are tracked: evaluation uses the batch statistics
// exactly like training does. Momentum is kept for reporting only; it has
// no effect without running statistics.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	bn := layers.NewBatchNorm(64, 1e-3, 0.999, true, backend)
//	output := bn.Forward(features) // [N, 64, H, W] -> [N, 64, H, W]
type BatchNorm[B tensor.Backend] struct {
	numFeatures int
	epsilon     float32
	momentum    float32
	affine      bool

	weight *Parameter[B] // [num_features], initialized to ones
	bias   *Parameter[B] // [num_features], initialized to zeros

	backend B
}

// Parameter is Born's trainable parameter.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewBatchNorm creates a batch normalization layer for numFeatures channels.
//
// With affine set the layer owns a learnable scale (weight) and shift
// (bias); otherwise it only normalizes.
func NewBatchNorm[B tensor.Backend](numFeatures int, epsilon, momentum float32, affine bool, backend B) *BatchNorm[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm: invalid number of features %d", numFeatures))
	}

	bn := &BatchNorm[B]{
		numFeatures: numFeatures,
		epsilon:     epsilon,
		momentum:    momentum,
		affine:      affine,
		backend:     backend,
	}
	if affine {
		bn.weight = nn.NewParameter("weight", tensor.Ones[float32](tensor.Shape{numFeatures}, backend))
		bn.bias = nn.NewParameter("bias", tensor.Zeros[float32](tensor.Shape{numFeatures}, backend))
	}
	return bn
}

// Forward normalizes x with its own per-feature batch statistics.
//
// Panics when x has fewer than two dimensions, when axis 1 does not match
// the number of features, or when there is only one value per feature
// (variance is undefined).
func (bn *BatchNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("batchnorm: expected input with at least 2 dimensions [N, C, ...], got shape %v", shape))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm: expected %d features, got %d", bn.numFeatures, shape[1]))
	}
	if shape.NumElements()/shape[1] <= 1 {
		panic(fmt.Sprintf("batchnorm: expected more than 1 value per feature, got input shape %v", shape))
	}

	dims := make([]int, 0, len(shape)-1)
	dims = append(dims, 0)
	for d := 2; d < len(shape); d++ {
		dims = append(dims, d)
	}

	mean := Mean(x, dims, true) // [1, C, 1, ...]
	centered := x.Sub(mean)
	variance := Mean(centered.Mul(centered), dims, true)

	eps := tensor.Full[float32](variance.Shape(), bn.epsilon, bn.backend)
	output := centered.Mul(variance.Add(eps).Rsqrt())

	if bn.affine {
		stats := bn.statShape(len(shape))
		output = output.Mul(bn.weight.Tensor().Reshape(stats...)).Add(bn.bias.Tensor().Reshape(stats...))
	}
	return output
}

// statShape is [1, C, 1, ...] for an input of the given rank.
func (bn *BatchNorm[B]) statShape(rank int) []int {
	s := make([]int, rank)
	for i := range s {
		s[i] = 1
	}
	s[1] = bn.numFeatures
	return s
}

// Parameters returns [weight, bias] for an affine layer, nothing otherwise.
func (bn *BatchNorm[B]) Parameters() []*Parameter[B] {
	if !bn.affine {
		return nil
	}
	return []*Parameter[B]{bn.weight, bn.bias}
}

// NamedParameters returns the parameters keyed as "weight" and "bias".
func (bn *BatchNorm[B]) NamedParameters() []NamedParameter[B] {
	if !bn.affine {
		return nil
	}
	return []NamedParameter[B]{
		{Name: "weight", Param: bn.weight},
		{Name: "bias", Param: bn.bias},
	}
}

// StateDict returns a map of parameter names to raw tensors.
func (bn *BatchNorm[B]) StateDict() map[string]*tensor.RawTensor {
	return StateDict(bn.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (bn *BatchNorm[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadStateDict(bn.NamedParameters(), stateDict)
}

// Weight returns the scale parameter, or nil when the layer is not affine.
func (bn *BatchNorm[B]) Weight() *Parameter[B] {
	return bn.weight
}

// Bias returns the shift parameter, or nil when the layer is not affine.
func (bn *BatchNorm[B]) Bias() *Parameter[B] {
	return bn.bias
}

// NumFeatures returns the number of normalized features.
func (bn *BatchNorm[B]) NumFeatures() int {
	return bn.numFeatures
}

// Epsilon returns the variance stabilizer.
func (bn *BatchNorm[B]) Epsilon() float32 {
	return bn.epsilon
}

// Momentum returns the configured momentum.
func (bn *BatchNorm[B]) Momentum() float32 {
	return bn.momentum
}

// String returns a string representation of the layer.
func (bn *BatchNorm[B]) String() string {
	return fmt.Sprintf("BatchNorm(%d, eps=%g, momentum=%g, affine=%v, track_running_stats=false)",
		bn.numFeatures, bn.epsilon, bn.momentum, bn.affine)
}
