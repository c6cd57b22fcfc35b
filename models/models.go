// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package models

import (
	"github.com/born-ml/born/tensor"
	"github.com/born-ml/metalearn/internal/models"
)

// Model is implemented by every block and network in this package.
type Model[B tensor.Backend] = models.Model[B]

// Batch normalization hyperparameters shared by all blocks.
const (
	BatchNormEpsilon  = models.BatchNormEpsilon
	BatchNormMomentum = models.BatchNormMomentum
)

// Blocks

// MAMLLinearBlock is Linear -> BatchNorm -> ReLU.
type MAMLLinearBlock[B tensor.Backend] = models.MAMLLinearBlock[B]

// NewMAMLLinearBlock creates a linear block. The linear layer is
// initialized with layers.MAMLFCInit.
//
// Example:
//
//	block := models.NewMAMLLinearBlock(784, 256, backend)
//	y := block.Forward(x) // [N, 784] -> [N, 256]
func NewMAMLLinearBlock[B tensor.Backend](inputSize, outputSize int, backend B) *MAMLLinearBlock[B] {
	return models.NewMAMLLinearBlock(inputSize, outputSize, backend)
}

// MAMLConvBlock is Conv2D -> BatchNorm -> ReLU -> MaxPool2D (or Identity).
type MAMLConvBlock[B tensor.Backend] = models.MAMLConvBlock[B]

// NewMAMLConvBlock creates a conv block with padding 1.
//
// The stride s = int(2*maxPoolFactor) goes to the pooling layer when
// maxPool is true (conv stride 1, pool kernel s) and to the convolution
// otherwise. Panics when s is zero.
//
// Example:
//
//	block := models.NewMAMLConvBlock(3, 32, 3, true, 1.0, backend)
//	y := block.Forward(x) // [N, 3, 84, 84] -> [N, 32, 42, 42]
func NewMAMLConvBlock[B tensor.Backend](
	inChannels, outChannels int,
	kernelSize int,
	maxPool bool,
	maxPoolFactor float64,
	backend B,
) *MAMLConvBlock[B] {
	return models.NewMAMLConvBlock(inChannels, outChannels, kernelSize, maxPool, maxPoolFactor, backend)
}

// ConvKernelSize is the kernel size used by MAMLConvBase.
const ConvKernelSize = models.ConvKernelSize

// MAMLConvBase is a stack of MAMLConvBlocks.
type MAMLConvBase[B tensor.Backend] = models.MAMLConvBase[B]

// NewMAMLConvBase creates numLayers 3x3 conv blocks: channels -> hidden,
// then hidden -> hidden. Panics if numLayers < 1.
//
// Example:
//
//	base := models.NewMAMLConvBase(64, 1, false, 4, 1.0, backend)
//	features := base.Forward(x) // [N, 1, 28, 28] -> [N, 64, 2, 2]
func NewMAMLConvBase[B tensor.Backend](
	hidden, channels int,
	maxPool bool,
	numLayers int,
	maxPoolFactor float64,
	backend B,
) *MAMLConvBase[B] {
	return models.NewMAMLConvBase(hidden, channels, maxPool, numLayers, maxPoolFactor, backend)
}

// Networks

// Omniglot defaults.
const (
	DefaultOmniglotOutputSize = models.DefaultOmniglotOutputSize
	DefaultOmniglotHidden     = models.DefaultOmniglotHidden
	DefaultOmniglotLayers     = models.DefaultOmniglotLayers
)

// OmniglotCNN is the Omniglot classifier.
type OmniglotCNN[B tensor.Backend] = models.OmniglotCNN[B]

// NewOmniglotCNN creates an Omniglot classifier.
//
// Example:
//
//	model := models.NewOmniglotCNN(5, 64, 4, backend)
//	logits := model.Forward(images) // [N, 784] -> [N, 5]
func NewOmniglotCNN[B tensor.Backend](outputSize, hiddenSize, numLayers int, backend B) *OmniglotCNN[B] {
	return models.NewOmniglotCNN(outputSize, hiddenSize, numLayers, backend)
}

// MiniImagenet defaults.
const (
	DefaultMiniImagenetOutputSize = models.DefaultMiniImagenetOutputSize
	DefaultMiniImagenetHidden     = models.DefaultMiniImagenetHidden
	DefaultMiniImagenetLayers     = models.DefaultMiniImagenetLayers
)

// MiniImagenetCNN is the MiniImagenet classifier.
type MiniImagenetCNN[B tensor.Backend] = models.MiniImagenetCNN[B]

// NewMiniImagenetCNN creates a MiniImagenet classifier. numLayers must be
// 2 or 4, the only depths that reduce 84x84 images to a 5x5 grid.
//
// Example:
//
//	model := models.NewMiniImagenetCNN(5, 32, 4, backend)
//	logits := model.Forward(images) // [N, 3, 84, 84] -> [N, 5]
func NewMiniImagenetCNN[B tensor.Backend](outputSize, hiddenSize, numLayers int, backend B) *MiniImagenetCNN[B] {
	return models.NewMiniImagenetCNN(outputSize, hiddenSize, numLayers, backend)
}

// MiniImagenetGridSize returns the side of the feature grid numLayers
// pooled blocks leave from an 84x84 image, or 0 outside [1, 4].
func MiniImagenetGridSize(numLayers int) int {
	return models.MiniImagenetGridSize(numLayers)
}

// MAMLFC is a fully connected MAML network.
type MAMLFC[B tensor.Backend] = models.MAMLFC[B]

// DefaultFCSizes returns the hidden widths used when none are given.
func DefaultFCSizes() []int {
	return append([]int(nil), models.DefaultFCSizes...)
}

// NewMAMLFC creates a fully connected network. An empty sizes list selects
// DefaultFCSizes.
//
// Example:
//
//	model := models.NewMAMLFC(10, 3, nil, backend)
//	logits := model.Forward(x) // [N, 10] -> [N, 3]
func NewMAMLFC[B tensor.Backend](inputSize, outputSize int, sizes []int, backend B) *MAMLFC[B] {
	return models.NewMAMLFC(inputSize, outputSize, sizes, backend)
}

// CountParameters returns the number of scalar weights in m.
func CountParameters[B tensor.Backend](m Model[B]) int {
	return models.CountParameters[B](m)
}
