package ml

import (
	"fmt"
	"math"
)

const (
	ActLinear ActivationType = iota
	ActSigmoid
)

var activationMap = map[string]ActivationType{
	"linear":  ActLinear,
	"sigmoid": ActSigmoid,
}

// -------- TYPE DEFINITIONS -------- //
type ActivationType int
type LayerOption func(*LayerConfig)

// LayerConfig holds the blueprint for a layer
type LayerConfig struct {
	Neurons    int
	IsInput    bool
	Activation ActivationType
}

type Layer struct {
	Weights *Matrix // [in, out]
	Biases  *Matrix // [1, out]
	ActType ActivationType

	// Forward State
	A *Matrix

	// Backward State
	delta *Matrix
	dW    *Matrix
}

// ------- LAYER CONFIG HELPERS ------- //
// Input defines the entry point dimensions
func Input(size int) LayerConfig {
	return LayerConfig{
		Neurons:    size,
		IsInput:    true,
		Activation: ActLinear,
	}
}

// Dense defines a fully connected layer.
func Dense(size int, opts ...LayerOption) LayerConfig {
	d := LayerConfig{
		Neurons:    size,
		IsInput:    false,
		Activation: ActSigmoid,
	}

	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Activation overrides the default sigmoid of a Dense layer.
func Activation(activation string) LayerOption {
	return func(lc *LayerConfig) {
		act, err := ParseActivation(activation)
		if err != nil {
			panic(err.Error())
		}
		lc.Activation = act
	}
}

// ParseActivation maps an activation name ("sigmoid", "linear") to its type.
func ParseActivation(name string) (ActivationType, error) {
	act, exists := activationMap[name]
	if !exists {
		return 0, fmt.Errorf("unknown activation %q", name)
	}
	return act, nil
}

func newLayer(in, out int, act ActivationType) *Layer {
	return &Layer{
		Weights: NewMatrix(in, out),
		Biases:  NewMatrix(1, out),
		ActType: act,
	}
}

// initBuffers allocates the per-example forward and backward state.
func (l *Layer) initBuffers() {
	in, out := l.Weights.Dims()
	l.A = NewMatrix(1, out)
	l.delta = NewMatrix(1, out)
	l.dW = NewMatrix(in, out)
}

func (l *Layer) clone() *Layer {
	c := &Layer{
		Weights: l.Weights.Clone(),
		Biases:  l.Biases.Clone(),
		ActType: l.ActType,
	}
	c.initBuffers()
	return c
}

// derivative returns the activation slope expressed in terms of the output.
func (l *Layer) derivative(out float64) float64 {
	if l.ActType == ActSigmoid {
		return SigmoidDerivative(out)
	}
	return 1
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// SigmoidDerivative takes the sigmoid output, not its input.
func SigmoidDerivative(y float64) float64 {
	return y * (1 - y)
}
