package ml

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Global Variables to prevent compiler optimizations ---
var resultScores []float64

func newTestNetwork(t testing.TB, inputs, hiddenLayers, hiddenSize, outputs int) *NeuralNetwork {
	t.Helper()
	net, err := SigmoidFactory(42)(inputs, hiddenLayers, hiddenSize, outputs)
	require.NoError(t, err)
	return net.(*NeuralNetwork)
}

func squaredError(out, target []float64) float64 {
	sum := 0.0
	for i := range out {
		d := out[i] - target[i]
		sum += d * d
	}
	return sum
}

// --- 1. Network ---

func TestFactoryGeometry(t *testing.T) {
	nw := newTestNetwork(t, 6, 2, 4, 3)
	require.Len(t, nw.Layers, 3)

	shapes := [][2]int{{6, 4}, {4, 4}, {4, 3}}
	for i, want := range shapes {
		r, c := nw.Layers[i].Weights.Dims()
		assert.Equal(t, want, [2]int{r, c}, "layer %d", i)
	}
	assert.Equal(t, 6, nw.InputSize())
	assert.Len(t, nw.Infer(make([]float64, 6)), 3)

	direct := newTestNetwork(t, 6, 0, 0, 3)
	require.Len(t, direct.Layers, 1)
}

func TestFactoryRejectsBadGeometry(t *testing.T) {
	factory := SigmoidFactory(1)
	_, err := factory(0, 1, 4, 10)
	assert.Error(t, err)
	_, err = factory(4, 2, 0, 10)
	assert.Error(t, err)
	_, err = factory(4, -1, 4, 10)
	assert.Error(t, err)
}

func TestInferOutputsInUnitRange(t *testing.T) {
	nw := newTestNetwork(t, 4, 1, 3, 2)
	out := nw.Infer([]float64{0.1, 0.9, 0.5, 0})
	for _, v := range out {
		assert.True(t, v > 0 && v < 1)
	}

	out[0] = 42
	assert.NotEqual(t, 42.0, nw.Infer([]float64{0.1, 0.9, 0.5, 0})[0], "Infer returns a copy")
}

func TestTrainStepReducesError(t *testing.T) {
	nw := newTestNetwork(t, 2, 1, 4, 2)
	inputs := [][]float64{{0, 1}, {1, 0}}
	targets := [][]float64{{1, 0}, {0, 1}}

	loss := func() float64 {
		total := 0.0
		for i := range inputs {
			total += squaredError(nw.Infer(inputs[i]), targets[i])
		}
		return total
	}

	before := loss()
	for epoch := 0; epoch < 500; epoch++ {
		for i := range inputs {
			nw.TrainStep(inputs[i], targets[i], 0.5)
		}
	}
	after := loss()
	assert.Less(t, after, before)

	class, _ := nw.Predict(inputs[0])
	assert.Equal(t, 0, class)
	class, _ = nw.Predict(inputs[1])
	assert.Equal(t, 1, class)
}

func TestCloneIsIndependent(t *testing.T) {
	nw := newTestNetwork(t, 3, 1, 4, 2)
	input := []float64{0.2, 0.4, 0.6}
	before := nw.Infer(input)

	c := nw.Clone()
	for i := 0; i < 50; i++ {
		c.TrainStep(input, []float64{1, 0}, 1)
	}
	assert.Equal(t, before, nw.Infer(input), "training the clone leaves the original untouched")
	assert.NotEqual(t, before, c.Infer(input))

	nw.Release()
	assert.Nil(t, nw.Layers)
	assert.Len(t, c.Infer(input), 2, "releasing the original leaves the clone usable")
}

func TestSerializeRoundTrip(t *testing.T) {
	nw := newTestNetwork(t, 4, 2, 3, 2)
	input := []float64{0.3, 0.1, 0.8, 0.5}

	var buf bytes.Buffer
	require.NoError(t, nw.Serialize(&buf))

	loaded, err := LoadNetwork(&buf)
	require.NoError(t, err)
	assert.Equal(t, nw.Infer(input), loaded.Infer(input))
	assert.Equal(t, 4, loaded.InputSize())
}

func TestSerializeReleased(t *testing.T) {
	nw := newTestNetwork(t, 2, 0, 0, 2)
	nw.Release()
	var buf bytes.Buffer
	assert.Error(t, nw.Serialize(&buf))
}

func TestLoadNetworkRejectsGarbage(t *testing.T) {
	_, err := LoadNetwork(bytes.NewReader([]byte("not a model")))
	assert.Error(t, err)
}

func encodeLayers(t *testing.T, layers ...layerData) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(networkData{LayerDatas: layers}))
	return &buf
}

func TestLoadNetworkRejectsCorruptShapes(t *testing.T) {
	bias := &Matrix{rows: 1, cols: 2, data: []float64{0, 0}}
	cases := map[string]layerData{
		"short weights":  {Weights: &Matrix{rows: 2, cols: 2, data: []float64{1}}, Biases: bias, ActType: ActSigmoid},
		"zero rows":      {Weights: &Matrix{rows: 0, cols: 2, data: []float64{1, 2}}, Biases: bias, ActType: ActSigmoid},
		"negative cols":  {Weights: &Matrix{rows: 2, cols: -1, data: []float64{1, 2}}, Biases: bias, ActType: ActSigmoid},
		"bias width":     {Weights: NewMatrix(2, 2), Biases: &Matrix{rows: 1, cols: 3, data: []float64{0, 0, 0}}, ActType: ActSigmoid},
		"bad activation": {Weights: NewMatrix(2, 2), Biases: bias, ActType: ActivationType(7)},
	}
	for name, ld := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadNetwork(encodeLayers(t, ld))
			assert.Error(t, err)
		})
	}

	_, err := LoadNetwork(encodeLayers(t,
		layerData{Weights: NewMatrix(3, 2), Biases: bias, ActType: ActSigmoid},
		layerData{Weights: NewMatrix(3, 2), Biases: bias, ActType: ActSigmoid},
	))
	assert.Error(t, err, "layer widths must chain")
}

func TestFactoryOutputActivation(t *testing.T) {
	net, err := SigmoidFactory(42, Activation("linear"))(3, 1, 4, 2)
	require.NoError(t, err)
	nw := net.(*NeuralNetwork)
	assert.Equal(t, ActSigmoid, nw.Layers[0].ActType)
	assert.Equal(t, ActLinear, nw.Layers[1].ActType)

	var buf bytes.Buffer
	require.NoError(t, nw.Serialize(&buf))
	loaded, err := LoadNetwork(&buf)
	require.NoError(t, err)
	assert.Equal(t, ActLinear, loaded.Layers[1].ActType)

	input := []float64{0.5, 0.25, 1}
	assert.Equal(t, nw.Infer(input), loaded.Infer(input))

	_, err = ParseActivation("softmax")
	assert.Error(t, err)
	assert.Panics(t, func() { Dense(2, Activation("softmax")) })
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.InDelta(t, 1.0, Sigmoid(40), 1e-12)
	assert.Equal(t, 0.25, SigmoidDerivative(0.5))
	assert.False(t, math.IsNaN(Sigmoid(-1000)))
}

// --- 2. Benchmarks: Network Operations ---

func benchmarkInfer(b *testing.B, hiddenSize int) {
	nw := newTestNetwork(b, 784, 2, hiddenSize, 10)
	rng := rand.New(rand.NewPCG(1, 2))
	input := make([]float64, 784)
	for i := range input {
		input[i] = rng.Float64()
	}
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		resultScores = nw.Infer(input)
	}
}

func BenchmarkInfer_Hidden_15(b *testing.B)  { benchmarkInfer(b, 15) }
func BenchmarkInfer_Hidden_128(b *testing.B) { benchmarkInfer(b, 128) }

func benchmarkTrainStep(b *testing.B, hiddenSize int) {
	nw := newTestNetwork(b, 784, 2, hiddenSize, 10)
	rng := rand.New(rand.NewPCG(3, 4))
	input := make([]float64, 784)
	for i := range input {
		input[i] = rng.Float64()
	}
	target := make([]float64, 10)
	target[rng.IntN(10)] = 1
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		nw.TrainStep(input, target, 0.1)
	}
}

func BenchmarkTrainStep_Hidden_15(b *testing.B)  { benchmarkTrainStep(b, 15) }
func BenchmarkTrainStep_Hidden_128(b *testing.B) { benchmarkTrainStep(b, 128) }
