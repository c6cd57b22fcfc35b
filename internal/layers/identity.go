package layers

import (
	"github.com/born-ml/born/tensor"
)

// Identity returns its input unchanged. It stands in for an optional
// layer that is switched off, such as pooling in a MAMLConvBlock.
type Identity[B tensor.Backend] struct{}

// NewIdentity creates an Identity layer.
func NewIdentity[B tensor.Backend]() *Identity[B] {
	return &Identity[B]{}
}

// Forward returns input.
func (i *Identity[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return input
}

// Parameters returns nil (Identity has no trainable parameters).
func (i *Identity[B]) Parameters() []*Parameter[B] {
	return nil
}

// StateDict returns an empty state dictionary.
func (i *Identity[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{}
}

// LoadStateDict accepts any state dictionary.
func (i *Identity[B]) LoadStateDict(map[string]*tensor.RawTensor) error {
	return nil
}

// ComputeOutputSize returns the input size.
func (i *Identity[B]) ComputeOutputSize(inputH, inputW int) [2]int {
	return [2]int{inputH, inputW}
}

// String returns a string representation of the layer.
func (i *Identity[B]) String() string {
	return "Identity()"
}
