// Package layers implements the small pieces shared by the meta-learning
// models: MAML weight initializers, batch normalization without running
// statistics, a learnable bias, an identity layer and state-dict helpers.
//
// Everything here is generic over a Born tensor.Backend and composes with
// Born's own layers (nn.Linear, nn.Conv2D, nn.MaxPool2D).
package layers

import (
	"sort"
	"strings"

	"github.com/born-ml/born/nn"
	"github.com/born-ml/born/tensor"
)

// Parameterized is implemented by every module that owns trainable parameters.
type Parameterized[B tensor.Backend] interface {
	Parameters() []*nn.Parameter[B]
}

// weightHolder and biasHolder are the accessors Born exposes on nn.Linear.
type weightHolder[B tensor.Backend] interface {
	Weight() *nn.Parameter[B]
}

type biasHolder[B tensor.Backend] interface {
	Bias() *nn.Parameter[B]
}

// namedParameterizer is implemented by the modules of this repository.
type namedParameterizer[B tensor.Backend] interface {
	NamedParameters() []NamedParameter[B]
}

// LookupParameter finds the parameter called name ("weight" or "bias") that
// m owns directly.
//
// Accessor methods (Weight, Bias) take precedence. Modules exposing
// NamedParameters match only a top-level entry with exactly that name, so
// a block never answers with a child's parameter ("linear.weight" is not
// "weight"). Other modules are matched through Parameters by exact name or
// last dotted component ("conv2d.weight" matches "weight"), and only when
// exactly one parameter matches.
//
// Returns nil when m has no such parameter.
func LookupParameter[B tensor.Backend](m Parameterized[B], name string) *nn.Parameter[B] {
	switch name {
	case "weight":
		if h, ok := any(m).(weightHolder[B]); ok {
			if p := h.Weight(); p != nil {
				return p
			}
		}
	case "bias":
		if h, ok := any(m).(biasHolder[B]); ok {
			if p := h.Bias(); p != nil {
				return p
			}
		}
	}

	if np, ok := any(m).(namedParameterizer[B]); ok {
		for _, p := range np.NamedParameters() {
			if p.Name == name {
				return p.Param
			}
		}
		return nil
	}

	var found *nn.Parameter[B]
	for _, p := range m.Parameters() {
		if p == nil {
			continue
		}
		n := p.Name()
		if n != name && !strings.HasSuffix(n, "."+name) {
			continue
		}
		if found != nil {
			// Several children share the name: m is a container.
			return nil
		}
		found = p
	}
	return found
}

// Mean averages x over dims.
//
// Dimensions may be given in any order. With keepDim the reduced
// dimensions are kept with size 1 so the result broadcasts against x.
func Mean[B tensor.Backend](x *tensor.Tensor[float32, B], dims []int, keepDim bool) *tensor.Tensor[float32, B] {
	rank := len(x.Shape())
	normalized := make([]int, len(dims))
	for i, d := range dims {
		if d < 0 {
			d += rank
		}
		normalized[i] = d
	}
	// Reduce from the highest axis down so earlier indices stay valid
	// when keepDim is false.
	sort.Sort(sort.Reverse(sort.IntSlice(normalized)))

	backend := x.Backend()
	raw := x.Raw()
	for _, d := range normalized {
		raw = backend.MeanDim(raw, d, keepDim)
	}
	return tensor.New[float32, B](raw, backend)
}
