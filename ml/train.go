package ml

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/b0tShaman/idx-trainer/data"
)

// DefaultCheckpointEvery is the validation cadence, in iterations, used when
// TrainingConfig leaves it unset.
const DefaultCheckpointEvery = 30000

type TrainingConfig struct {
	HiddenSize      int
	HiddenLayers    int
	Epochs          int
	LearningRate    float64
	Classes         int
	CheckpointEvery int // Validate when iter % CheckpointEvery == 0

	// OutputActivation names the output layer activation. Empty means sigmoid.
	OutputActivation string
}

// Trainer runs the epoch loop and keeps the best validated snapshot.
type Trainer struct {
	Config TrainingConfig

	// NewNetwork creates the live network.
	NewNetwork Factory
	// Rand reorders the training set once per epoch.
	Rand data.IntNSource
	// Evaluate scores a network on the validation set. Defaults to Accuracy.
	Evaluate func(Network, *data.Dataset) float64
}

// NewTrainer returns a Trainer with a sigmoid network factory and a
// generator seeded once with seed.
func NewTrainer(cfg TrainingConfig, seed uint64) *Trainer {
	var outputOpts []LayerOption
	if cfg.OutputActivation != "" {
		outputOpts = append(outputOpts, Activation(cfg.OutputActivation))
	}
	return &Trainer{
		Config:     cfg,
		NewNetwork: SigmoidFactory(seed, outputOpts...),
		Rand:       rand.New(rand.NewPCG(seed, seed>>1|1)),
		Evaluate:   Accuracy,
	}
}

// Train drives the checkpoint loop over trainSet. targets holds one-hot rows
// of Classes values per item. The returned network is nil when no validation
// checkpoint ever scored above zero; otherwise the caller owns it.
func (t *Trainer) Train(trainSet *data.Dataset, targets []float64, validation *data.Dataset) (Network, error) {
	cfg := t.Config
	if cfg.CheckpointEvery == 0 {
		cfg.CheckpointEvery = DefaultCheckpointEvery
	}
	if err := validateInputs(cfg, trainSet, targets, validation); err != nil {
		return nil, err
	}
	if t.NewNetwork == nil || t.Rand == nil {
		return nil, errors.New("trainer: network factory and random source are required")
	}
	evaluate := t.Evaluate
	if evaluate == nil {
		evaluate = Accuracy
	}

	log.Printf("TrainingConfig: %+v", cfg)

	net, err := t.NewNetwork(trainSet.Info.ImageSize(), cfg.HiddenLayers, cfg.HiddenSize, cfg.Classes)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	defer net.Release()

	var (
		best         Network
		bestAccuracy float64
		w            window
	)
	indices := data.Indices(trainSet.Len())
	start := time.Now()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		data.Shuffle(indices, t.Rand)

		for iter, idx := range indices {
			stepStart := time.Now()
			net.TrainStep(trainSet.Row(idx), targets[idx*cfg.Classes:(idx+1)*cfg.Classes], cfg.LearningRate)
			w.recordTrain(time.Since(stepStart))

			if iter%cfg.CheckpointEvery != 0 {
				continue
			}

			evalStart := time.Now()
			accuracy := evaluate(net, validation)
			w.recordValidate(time.Since(evalStart))

			if accuracy > bestAccuracy {
				if best != nil {
					best.Release()
				}
				bestAccuracy = accuracy
				best = net.Clone()
			}

			p := w.snapshot()
			log.Printf("epoch=%d iter=%d accuracy=%f best=%f examples_per_sec=%.1f validate_ms=%.1f",
				epoch, iter, accuracy, bestAccuracy, p.ExamplesPerSec, p.ValidateMS)
		}
	}

	log.Printf("Training Complete. Best validation accuracy %f. Total Time: %v", bestAccuracy, time.Since(start))
	return best, nil
}

func validateInputs(cfg TrainingConfig, trainSet *data.Dataset, targets []float64, validation *data.Dataset) error {
	if trainSet == nil || trainSet.Images == nil {
		return fmt.Errorf("trainer: %w: training set is required", data.ErrInvalidArgument)
	}
	if validation == nil || validation.Images == nil {
		return fmt.Errorf("trainer: %w: validation set is required", data.ErrInvalidArgument)
	}
	if cfg.Classes <= 0 {
		return fmt.Errorf("trainer: %w: classes must be > 0 (got %d)", data.ErrInvalidArgument, cfg.Classes)
	}
	if len(targets) != trainSet.Len()*cfg.Classes {
		return fmt.Errorf("trainer: %w: %d targets for %d items x %d classes",
			data.ErrInvalidArgument, len(targets), trainSet.Len(), cfg.Classes)
	}
	if !data.RowSumsOne(targets, cfg.Classes) {
		return fmt.Errorf("trainer: %w: targets are not one-hot", data.ErrInvalidArgument)
	}
	if trainSet.Info.ImageSize() == 0 {
		return fmt.Errorf("trainer: %w: empty image geometry", data.ErrInvalidArgument)
	}
	if validation.Len() > 0 && validation.Info.ImageSize() != trainSet.Info.ImageSize() {
		return fmt.Errorf("trainer: %w: validation images have %d pixels, training images %d",
			data.ErrSizeMismatch, validation.Info.ImageSize(), trainSet.Info.ImageSize())
	}
	if cfg.Epochs < 0 || cfg.HiddenLayers < 0 {
		return fmt.Errorf("trainer: %w: epochs and hidden layers must be >= 0", data.ErrInvalidArgument)
	}
	if cfg.HiddenLayers > 0 && cfg.HiddenSize <= 0 {
		return fmt.Errorf("trainer: %w: hidden size must be > 0 (got %d)", data.ErrInvalidArgument, cfg.HiddenSize)
	}
	if cfg.LearningRate <= 0 {
		return fmt.Errorf("trainer: %w: learning rate must be > 0 (got %g)", data.ErrInvalidArgument, cfg.LearningRate)
	}
	if cfg.CheckpointEvery < 0 {
		return fmt.Errorf("trainer: %w: checkpoint cadence must be >= 0, 0 selects the default (got %d)", data.ErrInvalidArgument, cfg.CheckpointEvery)
	}
	if cfg.OutputActivation != "" {
		if _, err := ParseActivation(cfg.OutputActivation); err != nil {
			return fmt.Errorf("trainer: %w: %w", data.ErrInvalidArgument, err)
		}
	}
	return nil
}
