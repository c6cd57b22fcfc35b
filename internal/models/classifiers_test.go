package models

import (
	"testing"

	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOmniglotCNN_Forward(t *testing.T) {
	backend := newBackend()
	model := NewOmniglotCNN(5, DefaultOmniglotHidden, DefaultOmniglotLayers, backend)

	// Flattened pixels.
	out := model.Forward(randomInput(tensor.Shape{3, 784}, backend))
	require.True(t, out.Shape().Equal(tensor.Shape{3, 5}), "got %v", out.Shape())

	// Already shaped images.
	out = model.Forward(randomInput(tensor.Shape{2, 1, 28, 28}, backend))
	require.True(t, out.Shape().Equal(tensor.Shape{2, 5}), "got %v", out.Shape())

	assert.Panics(t, func() {
		model.Forward(randomInput(tensor.Shape{2, 780}, backend))
	})
}

func TestOmniglotCNN_Head(t *testing.T) {
	layers.Seed(1)
	backend := newBackend()
	model := NewOmniglotCNN(5, 64, 4, backend)

	for _, v := range model.Head().Bias().Tensor().Data() {
		require.Equal(t, float32(0), v)
	}

	// The head is N(0, 1), not the std 0.01 truncated normal of the blocks.
	large := 0
	for _, v := range model.Head().Weight().Tensor().Data() {
		if v > 0.5 || v < -0.5 {
			large++
		}
	}
	assert.Greater(t, large, 100, "head weight should be standard normal")

	assert.Equal(t, 64, model.HiddenSize())
	assert.Equal(t, 4, model.Base().Len())
	for i := 0; i < model.Base().Len(); i++ {
		assert.False(t, model.Base().Block(i).MaxPool())
		assert.Equal(t, 2, model.Base().Block(i).Conv().Stride())
	}
}

func TestOmniglotCNN_StateDictKeys(t *testing.T) {
	backend := newBackend()
	model := NewOmniglotCNN(5, 8, 4, backend)

	state := model.StateDict()
	assert.Len(t, state, 4*4+2)
	for _, key := range []string{
		"base.0.conv.weight",
		"base.0.conv.bias",
		"base.0.normalize.weight",
		"base.3.normalize.bias",
		"linear.weight",
		"linear.bias",
	} {
		assert.Contains(t, state, key)
	}
	assert.True(t, state["linear.weight"].Shape().Equal(tensor.Shape{5, 8}))
	assert.True(t, state["base.0.conv.weight"].Shape().Equal(tensor.Shape{8, 1, 3, 3}))
}

func TestMiniImagenetCNN_Forward(t *testing.T) {
	backend := newBackend()
	model := NewMiniImagenetCNN(5, 32, DefaultMiniImagenetLayers, backend)

	out := model.Forward(randomInput(tensor.Shape{2, 3, 84, 84}, backend))
	require.True(t, out.Shape().Equal(tensor.Shape{2, 5}), "got %v", out.Shape())

	assert.Equal(t, 25*32, model.Head().InFeatures())
	assert.Equal(t, [2]int{5, 5}, model.Base().ComputeOutputSize(84, 84))
	for _, v := range model.Head().Bias().Tensor().Data() {
		require.Equal(t, float32(0), v)
	}
}

func TestMiniImagenetCNN_PoolingFactor(t *testing.T) {
	backend := newBackend()

	// Two layers pool by 4: 84 -> 21 -> 5.
	model := NewMiniImagenetCNN(3, 4, 2, backend)
	assert.Equal(t, [2]int{5, 5}, model.Base().ComputeOutputSize(84, 84))
	for i := 0; i < model.Base().Len(); i++ {
		assert.True(t, model.Base().Block(i).MaxPool())
		assert.Equal(t, 1, model.Base().Block(i).Conv().Stride())
	}

	out := model.Forward(randomInput(tensor.Shape{2, 3, 84, 84}, backend))
	assert.True(t, out.Shape().Equal(tensor.Shape{2, 3}), "got %v", out.Shape())
}

func TestMiniImagenetCNN_Invalid(t *testing.T) {
	backend := newBackend()

	assert.Panics(t, func() { NewMiniImagenetCNN(5, 32, 5, backend) }, "4/5 == 0")
	assert.Panics(t, func() { NewMiniImagenetCNN(5, 32, 0, backend) })
	assert.PanicsWithValue(t,
		"miniimagenet cnn: 1 layers reduce 84x84 images to a 10x10 grid, want 5x5 (use 2 or 4 layers)",
		func() { NewMiniImagenetCNN(5, 32, 1, backend) })
	assert.PanicsWithValue(t,
		"miniimagenet cnn: 3 layers reduce 84x84 images to a 10x10 grid, want 5x5 (use 2 or 4 layers)",
		func() { NewMiniImagenetCNN(5, 32, 3, backend) })
	assert.Panics(t, func() { NewMiniImagenetCNN(0, 32, 4, backend) })

	model := NewMiniImagenetCNN(5, 4, 4, backend)
	assert.Panics(t, func() {
		// 32x32 images reach the head with 2x2 maps, not 5x5.
		model.Forward(randomInput(tensor.Shape{2, 3, 32, 32}, backend))
	})
}

func TestMiniImagenetGridSize(t *testing.T) {
	tests := []struct {
		layers int
		want   int
	}{
		{layers: 0, want: 0},
		{layers: 1, want: 10},
		{layers: 2, want: 5},
		{layers: 3, want: 10},
		{layers: 4, want: 5},
		{layers: 5, want: 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MiniImagenetGridSize(tt.layers), "layers=%d", tt.layers)
	}

	backend := newBackend()
	for _, n := range []int{2, 4} {
		model := NewMiniImagenetCNN(2, 2, n, backend)
		grid := MiniImagenetGridSize(n)
		assert.Equal(t, [2]int{grid, grid}, model.Base().ComputeOutputSize(MiniImagenetImageSize, MiniImagenetImageSize))
	}
}

func TestMAMLFC_Forward(t *testing.T) {
	backend := newBackend()
	model := NewMAMLFC(10, 3, nil, backend)

	out := model.Forward(randomInput(tensor.Shape{4, 10}, backend))
	require.True(t, out.Shape().Equal(tensor.Shape{4, 3}), "got %v", out.Shape())

	// [4, 2, 5] is viewed as [4, 10].
	out = model.Forward(randomInput(tensor.Shape{4, 2, 5}, backend))
	require.True(t, out.Shape().Equal(tensor.Shape{4, 3}), "got %v", out.Shape())

	for _, v := range model.Output().Bias().Tensor().Data() {
		require.Equal(t, float32(0), v)
	}
	for _, v := range model.Output().Weight().Tensor().Data() {
		require.InDelta(t, 0, v, 0.02+1e-7)
	}

	assert.Equal(t, DefaultFCSizes, model.Sizes())
	assert.Equal(t, 49347, CountParameters[Backend](model))
}

func TestMAMLFC_Sizes(t *testing.T) {
	backend := newBackend()

	single := NewMAMLFC(6, 2, []int{8}, backend)
	assert.Equal(t, 8, single.Block(0).Linear().OutFeatures())
	assert.Equal(t, 8, single.Output().InFeatures())
	assert.Equal(t,
		[]string{
			"0.linear.weight", "0.linear.bias", "0.normalize.weight", "0.normalize.bias",
			"1.weight", "1.bias",
		},
		names(single.NamedParameters()))

	out := single.Forward(randomInput(tensor.Shape{3, 6}, backend))
	assert.True(t, out.Shape().Equal(tensor.Shape{3, 2}))

	empty := NewMAMLFC(6, 2, []int{}, backend)
	assert.Equal(t, DefaultFCSizes, empty.Sizes())
	assert.Contains(t, empty.StateDict(), "4.weight")
	assert.Contains(t, empty.String(), "(4): Linear(in=64, out=2)")
}

func TestMAMLFC_Gradient(t *testing.T) {
	layers.Seed(21)
	backend := newBackend()
	model := NewMAMLFC(6, 3, []int{4, 4}, backend)
	input := randomInput(tensor.Shape{5, 6}, backend)

	backend.Tape().StartRecording()
	out := model.Forward(input)
	require.True(t, out.Shape().Equal(tensor.Shape{5, 3}))

	ones := make([]float32, 15)
	for i := range ones {
		ones[i] = 1
	}
	outputGrad, err := tensor.FromSlice(ones, tensor.Shape{5, 3}, backend)
	require.NoError(t, err)

	grads := backend.Tape().Backward(outputGrad.Raw(), backend)

	_, ok := grads[input.Raw()]
	assert.True(t, ok, "no gradient for input")
	for _, p := range model.NamedParameters() {
		grad, ok := grads[p.Param.Tensor().Raw()]
		if !assert.True(t, ok, "no gradient for %s", p.Name) {
			continue
		}
		assert.True(t, grad.Shape().Equal(p.Param.Tensor().Shape()), "%s: got %v", p.Name, grad.Shape())
	}

	for _, v := range grads[model.Output().Bias().Tensor().Raw()].AsFloat32() {
		assert.InDelta(t, 5, v, 1e-5)
	}
}

func TestMAMLFC_LoadStateDict(t *testing.T) {
	backend := newBackend()
	src := NewMAMLFC(5, 2, []int{7, 7}, backend)
	dst := NewMAMLFC(5, 2, []int{7, 7}, backend)

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := randomInput(tensor.Shape{3, 5}, backend)
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(x).Data())

	other := NewMAMLFC(5, 2, []int{9}, backend)
	assert.Error(t, other.LoadStateDict(src.StateDict()))
}
