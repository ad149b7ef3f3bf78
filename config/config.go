package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/b0tShaman/idx-trainer/ml"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	TrainImages string `yaml:"train_images"`
	TrainLabels string `yaml:"train_labels"`
	TestImages  string `yaml:"test_images"`
	TestLabels  string `yaml:"test_labels"`
	ModelPath   string `yaml:"model_path"`

	HiddenSize      int     `yaml:"hidden_size"`
	HiddenLayers    int     `yaml:"hidden_layers"`
	Epochs          int     `yaml:"epochs"`
	LearningRate    float64 `yaml:"learning_rate"`
	Classes         int     `yaml:"classes"`
	ValidationRatio int     `yaml:"validation_ratio"`
	CheckpointEvery int     `yaml:"checkpoint_every"`
	Seed            uint64  `yaml:"seed"`

	// OutputActivation is "sigmoid" or "linear".
	OutputActivation string `yaml:"output_activation"`
}

// Overrides captures CLI supplied values. Nil fields were not given.
type Overrides struct {
	TrainImages      *string
	TrainLabels      *string
	TestImages       *string
	TestLabels       *string
	ModelPath        *string
	HiddenSize       *int
	HiddenLayers     *int
	Epochs           *int
	LearningRate     *float64
	ValidationRatio  *int
	CheckpointEvery  *int
	OutputActivation *string
	Seed             *uint64
}

// Defaults returns the stock MNIST run.
func Defaults() *Config {
	return &Config{
		TrainImages:      "../dataset/train-images.idx3-ubyte",
		TrainLabels:      "../dataset/train-labels.idx1-ubyte",
		TestImages:       "../dataset/t10k-images.idx3-ubyte",
		TestLabels:       "../dataset/t10k-labels.idx1-ubyte",
		ModelPath:        "../nets/best_net.bin",
		HiddenSize:       15,
		HiddenLayers:     2,
		Epochs:           20,
		LearningRate:     2,
		Classes:          10,
		ValidationRatio:  5,
		CheckpointEvery:  30000,
		OutputActivation: "sigmoid",
	}
}

// Load reads a YAML file on top of Defaults and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := Defaults()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides copies every non-nil override into c. Zero values are
// applied as given; Validate decides whether they are usable.
func (c *Config) ApplyOverrides(o Overrides) {
	set(&c.TrainImages, o.TrainImages)
	set(&c.TrainLabels, o.TrainLabels)
	set(&c.TestImages, o.TestImages)
	set(&c.TestLabels, o.TestLabels)
	set(&c.ModelPath, o.ModelPath)
	set(&c.HiddenSize, o.HiddenSize)
	set(&c.HiddenLayers, o.HiddenLayers)
	set(&c.Epochs, o.Epochs)
	set(&c.LearningRate, o.LearningRate)
	set(&c.ValidationRatio, o.ValidationRatio)
	set(&c.CheckpointEvery, o.CheckpointEvery)
	set(&c.OutputActivation, o.OutputActivation)
	set(&c.Seed, o.Seed)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	paths := []struct{ name, value string }{
		{"train_images", c.TrainImages},
		{"train_labels", c.TrainLabels},
		{"test_images", c.TestImages},
		{"test_labels", c.TestLabels},
		{"model_path", c.ModelPath},
	}
	for _, p := range paths {
		if p.value == "" {
			return fmt.Errorf("%s must be set", p.name)
		}
	}
	if c.HiddenLayers < 0 {
		return fmt.Errorf("hidden_layers must be >= 0 (got %d)", c.HiddenLayers)
	}
	if c.HiddenLayers > 0 && c.HiddenSize <= 0 {
		return fmt.Errorf("hidden_size must be > 0 (got %d)", c.HiddenSize)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("epochs must be >= 0 (got %d)", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Classes <= 0 || c.Classes > 256 {
		return fmt.Errorf("classes must be in [1, 256] (got %d)", c.Classes)
	}
	if c.ValidationRatio <= 0 {
		return fmt.Errorf("validation_ratio must be > 0 (got %d)", c.ValidationRatio)
	}
	if c.CheckpointEvery <= 0 {
		return fmt.Errorf("checkpoint_every must be > 0 (got %d)", c.CheckpointEvery)
	}
	if _, err := ml.ParseActivation(c.OutputActivation); err != nil {
		return fmt.Errorf("output_activation: %w", err)
	}
	return nil
}
