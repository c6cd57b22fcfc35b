// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package models provides the building blocks and standard networks for
// MAML-style few-shot learning.
//
// # Overview
//
// Blocks:
//   - MAMLLinearBlock: Linear -> BatchNorm -> ReLU
//   - MAMLConvBlock: Conv2D(padding=1) -> BatchNorm -> ReLU -> MaxPool2D or Identity
//   - MAMLConvBase: a stack of MAMLConvBlocks
//
// Networks:
//   - OmniglotCNN: 28x28 grayscale images, strided convs, spatial mean, linear head
//   - MiniImagenetCNN: 84x84 RGB images, pooled convs, flatten, linear head
//   - MAMLFC: fully connected stack for vector inputs
//
// Batch normalization in every block uses epsilon 1e-3 and never keeps
// running statistics, so training and evaluation behave identically.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/born/autodiff"
//	    "github.com/born-ml/born/backend/cpu"
//	    "github.com/born-ml/born/nn"
//	    "github.com/born-ml/metalearn/models"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//
//	    model := models.NewMiniImagenetCNN(5, 32, 4, backend)
//	    logits := model.Forward(images) // [N, 3, 84, 84] -> [N, 5]
//
//	    // Checkpoint keys match the PyTorch layout: "base.0.conv.weight", ...
//	    err := nn.Save(model, "mini.born", "MiniImagenetCNN", nil)
//	}
package models
