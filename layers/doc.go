// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package layers provides the layers and initializers used by MAML models.
//
// # Overview
//
// This package contains:
//   - BatchNorm: batch normalization that always uses batch statistics
//   - AddBias: learnable additive bias over the last dimension
//   - Identity: pass-through layer
//   - Initializers: TruncatedNormal, Normal, Uniform, XavierUniform, Constant
//   - MAML init schemes: MAMLFCInit (linear layers), MAMLInit (conv layers)
//
// All layers satisfy Born's nn.Module interface and work with any
// tensor.Backend.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/born/autodiff"
//	    "github.com/born-ml/born/backend/cpu"
//	    "github.com/born-ml/born/nn"
//	    "github.com/born-ml/metalearn/layers"
//	)
//
//	func main() {
//	    type Backend = *autodiff.Backend[*cpu.Backend]
//	    backend := autodiff.New(cpu.New())
//
//	    linear := nn.NewLinear(784, 64, backend)
//	    layers.MAMLFCInit[Backend](linear) // weight ~ N(0, 0.01) truncated at 2 std, bias = 0
//
//	    bn := layers.NewBatchNorm(64, 1e-3, 0.999, true, backend)
//	    output := bn.Forward(linear.Forward(input))
//	}
//
// # Randomness
//
// Initializers draw from a single package-level source. Call Seed before
// building a model to make its weights reproducible.
package layers
