package ml

import (
	"gonum.org/v1/gonum/floats"
)

// Optimizer applies the gradients held in each layer after a backward pass.
type Optimizer interface {
	Update(nw *NeuralNetwork, learningRate float64)
}

// SGDOptimizer is plain stochastic gradient descent with a fixed rate.
type SGDOptimizer struct{}

// ------ SGD OPTIMIZER METHODS ------ //
func (opt SGDOptimizer) Update(nw *NeuralNetwork, learningRate float64) {
	for _, layer := range nw.Layers {
		// Simple update: W = W - (lr * gradient)
		floats.AddScaled(layer.Weights.data, -learningRate, layer.dW.data)
		floats.AddScaled(layer.Biases.data, -learningRate, layer.delta.data)
	}
}
