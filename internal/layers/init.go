package layers

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/born-ml/born/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// Truncation bound, in standard deviations, of TruncatedNormal.
const truncationBound = 2.0

// MAMLFCStd is the standard deviation MAMLFCInit draws weights with.
const MAMLFCStd = 0.01

// golden is mixed into the seed to derive the second PCG word.
const golden = 0x9e3779b97f4a7c15

var (
	rngMu sync.Mutex
	rng   = rand.NewPCG(rand.Uint64(), rand.Uint64())
)

// Seed resets the random source used by all initializers in this package.
//
// Models built after the same Seed call are initialized identically.
func Seed(seed uint64) {
	rngMu.Lock()
	defer rngMu.Unlock()
	rng = rand.NewPCG(seed, seed^golden)
}

// fill overwrites every element of t with values produced by sample.
// The package random source is held for the whole fill.
func fill[B tensor.Backend](t *tensor.Tensor[float32, B], sample func(src rand.Source) float64) {
	rngMu.Lock()
	defer rngMu.Unlock()

	data := t.Raw().AsFloat32()
	for i := range data {
		data[i] = float32(sample(rng))
	}
}

// TruncatedNormal fills t in place with samples from a standard normal
// distribution truncated to [-2, 2], scaled by std and shifted by mean.
//
// Every value therefore lies in [mean-2*std, mean+2*std]. The shape of t is
// preserved and std is not validated. Returns t.
//
// Example:
//
//	w := tensor.Zeros[float32](tensor.Shape{64, 64}, backend)
//	layers.TruncatedNormal(w, 0, 0.01) // values in [-0.02, 0.02]
func TruncatedNormal[B tensor.Backend](t *tensor.Tensor[float32, B], mean, std float64) *tensor.Tensor[float32, B] {
	fill(t, func(src rand.Source) float64 {
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
		for {
			// Rejection sampling: about 95% of draws land inside the bounds.
			v := normal.Rand()
			if v >= -truncationBound && v <= truncationBound {
				return mean + std*v
			}
		}
	})
	return t
}

// Normal fills t in place with samples from N(mean, std²). Returns t.
func Normal[B tensor.Backend](t *tensor.Tensor[float32, B], mean, std float64) *tensor.Tensor[float32, B] {
	fill(t, func(src rand.Source) float64 {
		return distuv.Normal{Mu: mean, Sigma: std, Src: src}.Rand()
	})
	return t
}

// Uniform fills t in place with samples from U(low, high). Returns t.
func Uniform[B tensor.Backend](t *tensor.Tensor[float32, B], low, high float64) *tensor.Tensor[float32, B] {
	fill(t, func(src rand.Source) float64 {
		return distuv.Uniform{Min: low, Max: high, Src: src}.Rand()
	})
	return t
}

// Constant fills t in place with value. Returns t.
func Constant[B tensor.Backend](t *tensor.Tensor[float32, B], value float32) *tensor.Tensor[float32, B] {
	data := t.Raw().AsFloat32()
	for i := range data {
		data[i] = value
	}
	return t
}

// Fans computes the fan-in and fan-out of a weight tensor.
//
// The first two dimensions are [out, in]; any trailing dimensions form the
// receptive field (kernel), so a conv weight [out, in, kh, kw] has
// fan_in = in*kh*kw and fan_out = out*kh*kw.
//
// Panics for tensors with fewer than two dimensions.
func Fans(shape tensor.Shape) (fanIn, fanOut int) {
	if len(shape) < 2 {
		panic(fmt.Sprintf("fans: cannot compute fan in/out for tensor with fewer than 2 dimensions, got shape %v", shape))
	}
	receptive := 1
	for _, d := range shape[2:] {
		receptive *= d
	}
	return shape[1] * receptive, shape[0] * receptive
}

// XavierUniform fills t in place with Glorot-uniform samples:
// U(-a, a) with a = gain * sqrt(6 / (fan_in + fan_out)). Returns t.
func XavierUniform[B tensor.Backend](t *tensor.Tensor[float32, B], gain float64) *tensor.Tensor[float32, B] {
	fanIn, fanOut := Fans(t.Shape())
	bound := gain * math.Sqrt(6.0/float64(fanIn+fanOut))
	return Uniform(t, -bound, bound)
}

// MAMLFCInit initializes a fully-connected module for MAML: weight from a truncated normal with mean 0 and std 0.01,
// bias set to zero.
//
// Either parameter may be absent, in which case it is skipped.
func MAMLFCInit[B tensor.Backend](m Parameterized[B]) {
	if w := LookupParameter(m, "weight"); w != nil {
		TruncatedNormal(w.Tensor(), 0, MAMLFCStd)
	}
	if b := LookupParameter(m, "bias"); b != nil {
		Constant(b.Tensor(), 0)
	}
}

// MAMLInit initializes a module with a Xavier-uniform weight (gain 1) and a
// zero bias.
//
// Both parameters must exist; MAMLInit panics otherwise.
func MAMLInit[B tensor.Backend](m Parameterized[B]) {
	w := LookupParameter(m, "weight")
	if w == nil {
		panic(fmt.Sprintf("maml init: module %T has no weight parameter", m))
	}
	b := LookupParameter(m, "bias")
	if b == nil {
		panic(fmt.Sprintf("maml init: module %T has no bias parameter", m))
	}
	XavierUniform(w.Tensor(), 1.0)
	Constant(b.Tensor(), 0)
}
