// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package layers

import (
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// Parameter is a trainable tensor (Born's nn.Parameter).
type Parameter[B tensor.Backend] = layers.Parameter[B]

// NamedParameter pairs a parameter with its state dict key.
type NamedParameter[B tensor.Backend] = layers.NamedParameter[B]

// Parameterized is any module exposing its trainable parameters.
type Parameterized[B tensor.Backend] = layers.Parameterized[B]

// Layers

// BatchNorm normalizes each feature over the batch (and spatial) dimensions.
// Running statistics are never tracked.
type BatchNorm[B tensor.Backend] = layers.BatchNorm[B]

// NewBatchNorm creates a batch normalization layer over numFeatures
// channels. When affine is true it learns a per-feature scale (initialized
// to 1) and shift (initialized to 0).
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	bn := layers.NewBatchNorm(64, 1e-3, 0.999, true, backend)
//	y := bn.Forward(x) // x: [N, 64] or [N, 64, H, W]
func NewBatchNorm[B tensor.Backend](numFeatures int, epsilon, momentum float32, affine bool, backend B) *BatchNorm[B] {
	return layers.NewBatchNorm(numFeatures, epsilon, momentum, affine, backend)
}

// AddBias adds a learnable bias vector along the last dimension.
type AddBias[B tensor.Backend] = layers.AddBias[B]

// NewAddBias creates an AddBias layer with a zero bias of the given size.
//
// Example:
//
//	bias := layers.NewAddBias(10, backend)
//	y := bias.Forward(x) // x: [..., 10]
func NewAddBias[B tensor.Backend](size int, backend B) *AddBias[B] {
	return layers.NewAddBias(size, backend)
}

// Identity returns its input unchanged.
type Identity[B tensor.Backend] = layers.Identity[B]

// NewIdentity creates an Identity layer.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return layers.NewIdentity[B]()
}

// Initialization

// MAMLFCStd is the standard deviation used by MAMLFCInit.
const MAMLFCStd = layers.MAMLFCStd

// Seed resets the source shared by all initializers.
func Seed(seed uint64) {
	layers.Seed(seed)
}

// TruncatedNormal fills t in place from N(mean, std^2), redrawing samples
// outside mean ± 2*std, and returns t.
func TruncatedNormal[B tensor.Backend](t *tensor.Tensor[float32, B], mean, std float64) *tensor.Tensor[float32, B] {
	return layers.TruncatedNormal(t, mean, std)
}

// Normal fills t in place from N(mean, std^2) and returns t.
func Normal[B tensor.Backend](t *tensor.Tensor[float32, B], mean, std float64) *tensor.Tensor[float32, B] {
	return layers.Normal(t, mean, std)
}

// Uniform fills t in place from U(low, high) and returns t.
func Uniform[B tensor.Backend](t *tensor.Tensor[float32, B], low, high float64) *tensor.Tensor[float32, B] {
	return layers.Uniform(t, low, high)
}

// Constant fills t in place with value and returns t.
func Constant[B tensor.Backend](t *tensor.Tensor[float32, B], value float32) *tensor.Tensor[float32, B] {
	return layers.Constant(t, value)
}

// XavierUniform fills t in place with the Glorot uniform scheme and returns t.
func XavierUniform[B tensor.Backend](t *tensor.Tensor[float32, B], gain float64) *tensor.Tensor[float32, B] {
	return layers.XavierUniform(t, gain)
}

// Fans returns the fan-in and fan-out of a weight of the given shape.
func Fans(shape tensor.Shape) (fanIn, fanOut int) {
	return layers.Fans(shape)
}

// MAMLFCInit initializes a linear layer for MAML: weight from a truncated
// normal with std MAMLFCStd, bias zero. Missing parameters are skipped.
//
// Example:
//
//	linear := nn.NewLinear(64, 5, backend)
//	layers.MAMLFCInit[Backend](linear)
func MAMLFCInit[B tensor.Backend](m Parameterized[B]) {
	layers.MAMLFCInit[B](m)
}

// MAMLInit initializes a conv or linear layer for MAML: Xavier uniform
// weight with gain 1, bias zero. Panics if either parameter is missing.
//
// Example:
//
//	conv := nn.NewConv2D(3, 32, 3, 3, 1, 1, true, backend)
//	layers.MAMLInit[Backend](conv)
func MAMLInit[B tensor.Backend](m Parameterized[B]) {
	layers.MAMLInit[B](m)
}

// Utilities

// Mean reduces x over dims.
func Mean[B tensor.Backend](x *tensor.Tensor[float32, B], dims []int, keepDim bool) *tensor.Tensor[float32, B] {
	return layers.Mean(x, dims, keepDim)
}

// LookupParameter finds the parameter called name ("weight", "bias") on m,
// or returns nil.
func LookupParameter[B tensor.Backend](m Parameterized[B], name string) *Parameter[B] {
	return layers.LookupParameter[B](m, name)
}
