package ml

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
)

// Network is the capability the trainer drives. Implementations own their
// weights; Clone must return a copy that shares nothing with the receiver.
type Network interface {
	TrainStep(input, target []float64, learningRate float64)
	Infer(input []float64) []float64
	Clone() Network
	Release()
	Serialize(w io.Writer) error
}

// Factory creates a fresh network of the given geometry.
type Factory func(inputs, hiddenLayers, hiddenSize, outputs int) (Network, error)

// NeuralNetwork is a fully connected feed-forward network trained one
// example at a time.
type NeuralNetwork struct {
	Layers    []*Layer
	optimizer Optimizer
}

// Neural Network Builder
func NewNetwork(rng *rand.Rand, configs ...LayerConfig) *NeuralNetwork {
	if len(configs) < 2 {
		panic("Network must have at least Input and one Output layer")
	}
	if !configs[0].IsInput {
		panic("First layer must be Input()")
	}

	nn := &NeuralNetwork{optimizer: SGDOptimizer{}}
	prevOutputSize := configs[0].Neurons

	for i := 1; i < len(configs); i++ {
		cfg := configs[i]
		layer := newLayer(prevOutputSize, cfg.Neurons, cfg.Activation)
		layer.Weights.RandomizeXavier(rng)
		layer.initBuffers()

		nn.Layers = append(nn.Layers, layer)
		prevOutputSize = cfg.Neurons
	}

	return nn
}

// SigmoidFactory builds networks of sigmoid hidden layers whose weights are
// drawn from a generator seeded with seed. Successive networks get successive
// draws. outputOpts apply to the output layer only.
func SigmoidFactory(seed uint64, outputOpts ...LayerOption) Factory {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(inputs, hiddenLayers, hiddenSize, outputs int) (Network, error) {
		if inputs <= 0 || outputs <= 0 {
			return nil, fmt.Errorf("network: inputs and outputs must be > 0 (got %d, %d)", inputs, outputs)
		}
		if hiddenLayers < 0 || (hiddenLayers > 0 && hiddenSize <= 0) {
			return nil, fmt.Errorf("network: invalid hidden geometry %d x %d", hiddenLayers, hiddenSize)
		}
		configs := []LayerConfig{Input(inputs)}
		for i := 0; i < hiddenLayers; i++ {
			configs = append(configs, Dense(hiddenSize))
		}
		configs = append(configs, Dense(outputs, outputOpts...))
		return NewNetwork(rng, configs...), nil
	}
}

// -------- NEURAL NETWORK METHODS -------- //

// InputSize returns the width the first layer expects.
func (nw *NeuralNetwork) InputSize() int {
	rows, _ := nw.Layers[0].Weights.Dims()
	return rows
}

func (nw *NeuralNetwork) forward(input *Matrix) *Matrix {
	activation := input
	for _, layer := range nw.Layers {
		MatMul(activation.dense, layer.Weights.dense, layer.A)
		layer.A.AddVector(layer.Biases)
		if layer.ActType == ActSigmoid {
			layer.A.ApplySigmoid()
		}
		activation = layer.A
	}
	return activation
}

func (nw *NeuralNetwork) inputMatrix(input []float64) *Matrix {
	if len(input) != nw.InputSize() {
		panic(fmt.Sprintf("Input size mismatch. Expected %d, got %d", nw.InputSize(), len(input)))
	}
	return NewMatrixFromSlice(1, len(input), input)
}

// Infer runs a forward pass and returns a copy of the output layer.
func (nw *NeuralNetwork) Infer(input []float64) []float64 {
	out := nw.forward(nw.inputMatrix(input))
	result := make([]float64, len(out.data))
	copy(result, out.data)
	return result
}

// TrainStep backpropagates the squared error of one example and applies a
// single optimizer update.
func (nw *NeuralNetwork) TrainStep(input, target []float64, learningRate float64) {
	in := nw.inputMatrix(input)
	out := nw.forward(in)
	if len(target) != len(out.data) {
		panic(fmt.Sprintf("Target size mismatch. Expected %d, got %d", len(out.data), len(target)))
	}

	// 1. Output Error
	last := nw.Layers[len(nw.Layers)-1]
	for j, o := range out.data {
		last.delta.data[j] = (o - target[j]) * last.derivative(o)
	}

	// 2. Backward through the hidden layers, using weights before the update
	for l := len(nw.Layers) - 1; l >= 0; l-- {
		layer := nw.Layers[l]
		prev := in
		if l > 0 {
			prev = nw.Layers[l-1].A
		}
		layer.dW.dense.Mul(prev.dense.T(), layer.delta.dense)

		if l > 0 {
			below := nw.Layers[l-1]
			below.delta.dense.Mul(layer.delta.dense, layer.Weights.dense.T())
			for j, a := range below.A.data {
				below.delta.data[j] *= below.derivative(a)
			}
		}
	}

	// 3. Update
	nw.optimizer.Update(nw, learningRate)
}

// Predict returns the arg-max class and its score.
func (nw *NeuralNetwork) Predict(input []float64) (int, float64) {
	scores := nw.Infer(input)
	class := ArgMax(scores)
	return class, scores[class]
}

// Clone returns an independent deep copy.
func (nw *NeuralNetwork) Clone() Network {
	return nw.clone()
}

func (nw *NeuralNetwork) clone() *NeuralNetwork {
	c := &NeuralNetwork{
		Layers:    make([]*Layer, len(nw.Layers)),
		optimizer: nw.optimizer,
	}
	for i, l := range nw.Layers {
		c.Layers[i] = l.clone()
	}
	return c
}

// Release drops every buffer. The network must not be used afterwards.
func (nw *NeuralNetwork) Release() {
	nw.Layers = nil
}

type layerData struct {
	Weights *Matrix
	Biases  *Matrix
	ActType ActivationType
}

type networkData struct {
	LayerDatas []layerData
}

// Serialize writes the weights as a gob stream.
func (nw *NeuralNetwork) Serialize(w io.Writer) error {
	if len(nw.Layers) == 0 {
		return errors.New("serialize: network has no layers")
	}
	ld := make([]layerData, len(nw.Layers))
	for i, l := range nw.Layers {
		ld[i] = layerData{Weights: l.Weights, Biases: l.Biases, ActType: l.ActType}
	}
	return gob.NewEncoder(w).Encode(networkData{LayerDatas: ld})
}

// LoadNetwork reads a network written by Serialize.
func LoadNetwork(r io.Reader) (*NeuralNetwork, error) {
	var loaded networkData
	if err := gob.NewDecoder(r).Decode(&loaded); err != nil {
		return nil, fmt.Errorf("failed to decode gob stream: %w", err)
	}
	if len(loaded.LayerDatas) == 0 {
		return nil, errors.New("model has no layers")
	}

	nw := &NeuralNetwork{optimizer: SGDOptimizer{}}
	prevOut := -1
	for i, ld := range loaded.LayerDatas {
		if ld.Weights == nil || ld.Biases == nil {
			return nil, fmt.Errorf("layer %d: missing weights", i)
		}
		in, out := ld.Weights.Dims()
		if _, bc := ld.Biases.Dims(); bc != out {
			return nil, fmt.Errorf("layer %d: bias width %d, want %d", i, bc, out)
		}
		if ld.ActType != ActLinear && ld.ActType != ActSigmoid {
			return nil, fmt.Errorf("layer %d: unknown activation %d", i, ld.ActType)
		}
		if prevOut >= 0 && in != prevOut {
			return nil, fmt.Errorf("layer %d: input width %d, previous output %d", i, in, prevOut)
		}
		layer := &Layer{Weights: ld.Weights, Biases: ld.Biases, ActType: ld.ActType}
		layer.initBuffers()
		nw.Layers = append(nw.Layers, layer)
		prevOut = out
	}
	return nw, nil
}
