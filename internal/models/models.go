// Package models implements the MAML building blocks and the few-shot
// classifiers built from them:
//   - MAMLLinearBlock: Linear -> BatchNorm -> ReLU
//   - MAMLConvBlock: Conv2D -> BatchNorm -> ReLU -> optional MaxPool2D
//   - MAMLConvBase: stack of conv blocks
//   - OmniglotCNN, MiniImagenetCNN: conv base + linear head
//   - MAMLFC: stack of linear blocks + linear output layer
//
// Batch normalization never tracks running statistics, and weights are
// initialized with the MAML truncated-normal / Xavier scheme (see package
// layers).
//
// State dictionaries use PyTorch-style dotted keys
// ("base.0.conv.weight", "linear.bias", "4.weight", ...).
package models

import (
	"fmt"
	"strings"

	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
)

// Batch normalization hyperparameters shared by every block.
const (
	BatchNormEpsilon  = 1e-3
	BatchNormMomentum = 0.999
)

// Model is the contract shared by every block and classifier in this
// package. It is a superset of Born's nn.Module.
type Model[B tensor.Backend] interface {
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
	Parameters() []*layers.Parameter[B]
	NamedParameters() []layers.NamedParameter[B]
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
	String() string
}

// layer is a Born layer used inside a block.
type layer[B tensor.Backend] interface {
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]
	String() string
}

// spatialLayer is a layer that can predict its output size.
type spatialLayer[B tensor.Backend] interface {
	layer[B]
	ComputeOutputSize(inputH, inputW int) [2]int
}

// flatten reshapes x to [-1, features], panicking when the number of
// elements is not a multiple of features.
func flatten[B tensor.Backend](x *tensor.Tensor[float32, B], features int, who string) *tensor.Tensor[float32, B] {
	n := x.NumElements()
	if n%features != 0 {
		panic(fmt.Sprintf("%s: cannot view input of shape %v as [-1, %d]", who, x.Shape(), features))
	}
	return x.Reshape(n/features, features)
}

// CountParameters returns the number of scalar weights in m.
func CountParameters[B tensor.Backend](m interface {
	Parameters() []*layers.Parameter[B]
}) int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Tensor().NumElements()
	}
	return total
}

// indent prefixes every line of s but the first with two spaces.
func indent(s string) string {
	return strings.ReplaceAll(s, "\n", "\n  ")
}
