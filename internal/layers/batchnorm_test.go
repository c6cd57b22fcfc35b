package layers

import (
	"math"
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

// channelValues gathers every value of channel c from an [N, C, ...] tensor.
func channelValues(x *tensor.Tensor[float32, Backend], c int) []float64 {
	shape := x.Shape()
	inner := 1
	for _, d := range shape[2:] {
		inner *= d
	}
	data := x.Data()
	values := make([]float64, 0, shape[0]*inner)
	for n := 0; n < shape[0]; n++ {
		base := (n*shape[1] + c) * inner
		for i := 0; i < inner; i++ {
			values = append(values, float64(data[base+i]))
		}
	}
	return values
}

// popMeanStd returns the mean and the biased standard deviation of values.
func popMeanStd(values []float64) (float64, float64) {
	mean, variance := stat.MeanVariance(values, nil)
	n := float64(len(values))
	return mean, math.Sqrt(variance * (n - 1) / n)
}

func TestBatchNorm_NormalizesFeatures(t *testing.T) {
	backend := newBackend()
	bn := NewBatchNorm(3, 1e-3, 0.999, true, backend)

	x, err := tensor.FromSlice([]float32{
		1, 10, -5,
		2, 20, -5.5,
		3, 30, -6,
		4, 40, -6.5,
	}, tensor.Shape{4, 3}, backend)
	require.NoError(t, err)

	out := bn.Forward(x)
	require.True(t, out.Shape().Equal(tensor.Shape{4, 3}))

	for c := 0; c < 3; c++ {
		mean, std := popMeanStd(channelValues(out, c))
		assert.InDelta(t, 0.0, mean, 1e-4, "feature %d mean", c)
		assert.InDelta(t, 1.0, std, 0.02, "feature %d std", c)
	}
}

func TestBatchNorm_NoRunningStatistics(t *testing.T) {
	backend := newBackend()
	bn := NewBatchNorm(2, 1e-3, 0.999, true, backend)

	first, err := tensor.FromSlice([]float32{10, -10, 20, -20, 30, -30}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)
	// Same pattern, very different statistics.
	second, err := tensor.FromSlice([]float32{200, 90, 300, 80, 400, 70}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)

	out1 := bn.Forward(first).Data()
	out2 := bn.Forward(second).Data()
	out1Again := bn.Forward(first).Data()

	// Each call normalizes with its own batch, so the second batch is not
	// pulled towards the first one's statistics.
	for i := range out1 {
		assert.InDelta(t, out1[i], out2[i], 1e-3, "element %d", i)
		assert.Equal(t, out1[i], out1Again[i], "element %d", i)
	}
	for c := 0; c < 2; c++ {
		mean, _ := popMeanStd(channelValues(bn.Forward(second), c))
		assert.InDelta(t, 0.0, mean, 1e-4)
	}
}

func TestBatchNorm_Images(t *testing.T) {
	Seed(3)
	backend := newBackend()
	bn := NewBatchNorm(2, 1e-3, 0.999, true, backend)

	x := Normal(tensor.Zeros[float32](tensor.Shape{4, 2, 5, 5}, backend), 3, 2)
	out := bn.Forward(x)
	require.True(t, out.Shape().Equal(tensor.Shape{4, 2, 5, 5}))

	for c := 0; c < 2; c++ {
		mean, std := popMeanStd(channelValues(out, c))
		assert.InDelta(t, 0.0, mean, 1e-4, "channel %d mean", c)
		assert.InDelta(t, 1.0, std, 1e-3, "channel %d std", c)
	}
}

func TestBatchNorm_Affine(t *testing.T) {
	Seed(5)
	backend := newBackend()
	bn := NewBatchNorm(2, 1e-3, 0.999, true, backend)
	Constant(bn.Weight().Tensor(), 2)
	Constant(bn.Bias().Tensor(), 1)

	x := Normal(tensor.Zeros[float32](tensor.Shape{8, 2, 3, 3}, backend), 0, 5)
	out := bn.Forward(x)

	for c := 0; c < 2; c++ {
		mean, std := popMeanStd(channelValues(out, c))
		assert.InDelta(t, 1.0, mean, 1e-3)
		assert.InDelta(t, 2.0, std, 1e-2)
	}
}

func TestBatchNorm_Parameters(t *testing.T) {
	backend := newBackend()

	bn := NewBatchNorm(6, 1e-3, 0.999, true, backend)
	require.Len(t, bn.Parameters(), 2)
	for _, v := range bn.Weight().Tensor().Data() {
		assert.Equal(t, float32(1), v)
	}
	for _, v := range bn.Bias().Tensor().Data() {
		assert.Equal(t, float32(0), v)
	}
	assert.Equal(t, float32(1e-3), bn.Epsilon())
	assert.Equal(t, float32(0.999), bn.Momentum())
	assert.Contains(t, bn.String(), "track_running_stats=false")

	plain := NewBatchNorm(6, 1e-3, 0.999, false, backend)
	assert.Empty(t, plain.Parameters())
	assert.Empty(t, plain.StateDict())
}

func TestBatchNorm_Gradient(t *testing.T) {
	backend := newBackend()
	bn := NewBatchNorm(3, 1e-3, 0.999, true, backend)

	input, err := tensor.FromSlice([]float32{
		1, 10, -5,
		2, 20, -5.5,
		3, 30, -6,
		4, 40, -6.5,
	}, tensor.Shape{4, 3}, backend)
	require.NoError(t, err)
	normalized := bn.Forward(input).Data()

	backend.Tape().StartRecording()
	_ = bn.Forward(input)

	// dL/dy = 1 + x_hat, so the bias gradient counts the rows and the
	// weight gradient sums x_hat^2.
	upstream := make([]float32, len(normalized))
	for i, v := range normalized {
		upstream[i] = 1 + v
	}
	outputGrad, err := tensor.FromSlice(upstream, tensor.Shape{4, 3}, backend)
	require.NoError(t, err)

	grads := backend.Tape().Backward(outputGrad.Raw(), backend)
	t.Logf("%d operations recorded", backend.Tape().NumOps())

	inputGrad, ok := grads[input.Raw()]
	require.True(t, ok, "no gradient for input")
	require.True(t, inputGrad.Shape().Equal(tensor.Shape{4, 3}), "got %v", inputGrad.Shape())
	for i, v := range inputGrad.AsFloat32() {
		// The upstream gradient lies in the span of 1 and x_hat.
		assert.InDelta(t, 0, v, 0.02, "input grad %d", i)
	}

	weightGrad, ok := grads[bn.Weight().Tensor().Raw()]
	require.True(t, ok, "no gradient for weight")
	for c, v := range weightGrad.AsFloat32() {
		assert.InDelta(t, 4, v, 0.02, "weight grad %d", c)
	}

	biasGrad, ok := grads[bn.Bias().Tensor().Raw()]
	require.True(t, ok, "no gradient for bias")
	for c, v := range biasGrad.AsFloat32() {
		assert.InDelta(t, 4, v, 1e-4, "bias grad %d", c)
	}
}

func TestBatchNorm_InvalidInput(t *testing.T) {
	backend := newBackend()
	bn := NewBatchNorm(3, 1e-3, 0.999, true, backend)

	assert.Panics(t, func() {
		bn.Forward(tensor.Zeros[float32](tensor.Shape{1, 3}, backend))
	}, "single value per feature")
	assert.Panics(t, func() {
		bn.Forward(tensor.Zeros[float32](tensor.Shape{4, 5}, backend))
	}, "feature mismatch")
	assert.Panics(t, func() {
		bn.Forward(tensor.Zeros[float32](tensor.Shape{3}, backend))
	}, "1D input")
	assert.Panics(t, func() {
		NewBatchNorm(0, 1e-3, 0.999, true, backend)
	})
}
