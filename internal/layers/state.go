package layers

import (
	"github.com/born-ml/born/tensor"
	"github.com/pkg/errors"
)

// NamedParameter pairs a parameter with its state-dict key.
type NamedParameter[B tensor.Backend] struct {
	Name  string
	Param *Parameter[B]
}

// Prefixed returns params with prefix + "." prepended to every name.
func Prefixed[B tensor.Backend](prefix string, params []NamedParameter[B]) []NamedParameter[B] {
	out := make([]NamedParameter[B], len(params))
	for i, p := range params {
		out[i] = NamedParameter[B]{Name: prefix + "." + p.Name, Param: p.Param}
	}
	return out
}

// WeightAndBias names the weight and bias of a Born layer (nn.Linear,
// nn.Conv2D) as "<prefix>.weight" and "<prefix>.bias". Absent parameters
// are omitted.
func WeightAndBias[B tensor.Backend](prefix string, m Parameterized[B]) []NamedParameter[B] {
	var named []NamedParameter[B]
	if w := LookupParameter(m, "weight"); w != nil {
		named = append(named, NamedParameter[B]{Name: prefix + ".weight", Param: w})
	}
	if b := LookupParameter(m, "bias"); b != nil {
		named = append(named, NamedParameter[B]{Name: prefix + ".bias", Param: b})
	}
	return named
}

// Unnamed strips the names from params.
func Unnamed[B tensor.Backend](params []NamedParameter[B]) []*Parameter[B] {
	out := make([]*Parameter[B], len(params))
	for i, p := range params {
		out[i] = p.Param
	}
	return out
}

// StateDict maps every name to the raw tensor of its parameter.
func StateDict[B tensor.Backend](params []NamedParameter[B]) map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor, len(params))
	for _, p := range params {
		stateDict[p.Name] = p.Param.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict copies the entries of stateDict into params.
//
// Every parameter must be present with a matching shape and float32 dtype.
// Keys that do not name a parameter are ignored.
func LoadStateDict[B tensor.Backend](params []NamedParameter[B], stateDict map[string]*tensor.RawTensor) error {
	for _, p := range params {
		raw, ok := stateDict[p.Name]
		if !ok {
			return errors.Errorf("missing %q in state dict", p.Name)
		}

		want := p.Param.Tensor().Shape()
		if !raw.Shape().Equal(want) {
			return errors.Errorf("%q shape mismatch: expected %v, got %v", p.Name, want, raw.Shape())
		}
		if raw.DType() != tensor.Float32 {
			return errors.Errorf("%q dtype mismatch: expected float32, got %v", p.Name, raw.DType())
		}

		copy(p.Param.Tensor().Raw().AsFloat32(), raw.AsFloat32())
	}
	return nil
}
