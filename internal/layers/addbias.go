package layers

import (
	"fmt"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// AddBias adds a learnable vector to its input.
//
// The bias has shape [size] and broadcasts over the last axis of the
// input, so [..., size] -> [..., size]. It starts at zero.
type AddBias[B tensor.Backend] struct {
	size int
	bias *Parameter[B]
}

// NewAddBias creates an AddBias layer with a zero bias of length size.
func NewAddBias[B tensor.Backend](size int, backend B) *AddBias[B] {
	if size <= 0 {
		panic(fmt.Sprintf("addbias: invalid size %d", size))
	}
	return &AddBias[B]{
		size: size,
		bias: nn.NewParameter("bias", tensor.Zeros[float32](tensor.Shape{size}, backend)),
	}
}

// Forward returns x + bias.
func (a *AddBias[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != a.size {
		panic(fmt.Sprintf("addbias: expected last dimension %d, got shape %v", a.size, shape))
	}

	b := a.bias.Tensor()
	for i := 0; i < len(shape)-1; i++ {
		b = b.Unsqueeze(0)
	}
	return x.Add(b)
}

// Parameters returns [bias].
func (a *AddBias[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{a.bias}
}

// NamedParameters returns the bias keyed as "bias".
func (a *AddBias[B]) NamedParameters() []NamedParameter[B] {
	return []NamedParameter[B]{{Name: "bias", Param: a.bias}}
}

// StateDict returns a map of parameter names to raw tensors.
func (a *AddBias[B]) StateDict() map[string]*tensor.RawTensor {
	return StateDict(a.NamedParameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (a *AddBias[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return LoadStateDict(a.NamedParameters(), stateDict)
}

// Bias returns the bias parameter.
func (a *AddBias[B]) Bias() *Parameter[B] {
	return a.bias
}

// Size returns the bias length.
func (a *AddBias[B]) Size() int {
	return a.size
}

// String returns a string representation of the layer.
func (a *AddBias[B]) String() string {
	return fmt.Sprintf("AddBias(size=%d)", a.size)
}
