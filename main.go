package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/b0tShaman/idx-trainer/config"
	"github.com/b0tShaman/idx-trainer/data"
	"github.com/b0tShaman/idx-trainer/ml"
)

// -------- MAIN -------- //
func main() {
	cfgPath, predict, overrides, err := parseArgs(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatalf("bad arguments: %v", err)
	}

	log.SetPrefix(fmt.Sprintf("[run %s] ", uuid.New().String()[:8]))

	cfg := config.Defaults()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if predict != "" {
		if err := predictImage(cfg.ModelPath, predict); err != nil {
			log.Fatalf("predict failed: %v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("training failed: %v", err)
	}
}

// parseArgs reads the command line. Only flags that were actually given end
// up in the returned overrides, so explicit zeros such as -epochs 0 apply.
func parseArgs(args []string) (cfgPath, predict string, o config.Overrides, err error) {
	fs := flag.NewFlagSet("idx-trainer", flag.ContinueOnError)
	fs.StringVar(&cfgPath, "config", "", "Path to YAML config (defaults to the stock MNIST run)")
	fs.StringVar(&predict, "predict", "", "Classify this image file with the saved model instead of training")

	var v config.Config
	fs.StringVar(&v.TrainImages, "train-images", "", "Override training image container")
	fs.StringVar(&v.TrainLabels, "train-labels", "", "Override training label container")
	fs.StringVar(&v.TestImages, "test-images", "", "Override test image container")
	fs.StringVar(&v.TestLabels, "test-labels", "", "Override test label container")
	fs.StringVar(&v.ModelPath, "model", "", "Override model output path")
	fs.IntVar(&v.HiddenSize, "hidden-size", 0, "Hidden layer width")
	fs.IntVar(&v.HiddenLayers, "hidden-layers", 0, "Number of hidden layers")
	fs.IntVar(&v.Epochs, "epochs", 0, "Number of epochs")
	fs.Float64Var(&v.LearningRate, "learning-rate", 0, "Learning rate")
	fs.IntVar(&v.ValidationRatio, "validation-ratio", 0, "Hold out 1/N of the test set for validation")
	fs.IntVar(&v.CheckpointEvery, "checkpoint-every", 0, "Validate every N iterations")
	fs.StringVar(&v.OutputActivation, "output-activation", "", "Output layer activation: sigmoid or linear")
	fs.Uint64Var(&v.Seed, "seed", 0, "PRNG seed (0 seeds from the clock)")

	if err := fs.Parse(args); err != nil {
		return "", "", config.Overrides{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "train-images":
			o.TrainImages = &v.TrainImages
		case "train-labels":
			o.TrainLabels = &v.TrainLabels
		case "test-images":
			o.TestImages = &v.TestImages
		case "test-labels":
			o.TestLabels = &v.TestLabels
		case "model":
			o.ModelPath = &v.ModelPath
		case "hidden-size":
			o.HiddenSize = &v.HiddenSize
		case "hidden-layers":
			o.HiddenLayers = &v.HiddenLayers
		case "epochs":
			o.Epochs = &v.Epochs
		case "learning-rate":
			o.LearningRate = &v.LearningRate
		case "validation-ratio":
			o.ValidationRatio = &v.ValidationRatio
		case "checkpoint-every":
			o.CheckpointEvery = &v.CheckpointEvery
		case "output-activation":
			o.OutputActivation = &v.OutputActivation
		case "seed":
			o.Seed = &v.Seed
		}
	})
	return cfgPath, predict, o, nil
}

// run executes the whole pipeline: load, split, encode, train, evaluate and
// persist the best snapshot.
func run(cfg *config.Config) error {
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	log.Printf("seed=%d", cfg.Seed)

	// 1. Load Data
	log.Println("Loading test set...")
	testSet, err := data.Load(cfg.TestImages, cfg.TestLabels)
	if err != nil {
		return fmt.Errorf("load test set: %w", err)
	}
	defer testSet.Release() // the split views below alias testSet

	heldOut, validation, err := testSet.Split(cfg.ValidationRatio)
	if err != nil {
		return err
	}
	log.Printf("test set split: validation=%d test=%d", validation.Len(), heldOut.Len())

	log.Println("Loading training set...")
	trainSet, err := data.Load(cfg.TrainImages, cfg.TrainLabels)
	if err != nil {
		return fmt.Errorf("load training set: %w", err)
	}
	defer trainSet.Release()

	targets, err := data.OneHot(trainSet.Labels, cfg.Classes)
	if err != nil {
		return err
	}

	// 2. Train
	trainer := ml.NewTrainer(ml.TrainingConfig{
		HiddenSize:       cfg.HiddenSize,
		HiddenLayers:     cfg.HiddenLayers,
		Epochs:           cfg.Epochs,
		LearningRate:     cfg.LearningRate,
		Classes:          cfg.Classes,
		CheckpointEvery:  cfg.CheckpointEvery,
		OutputActivation: cfg.OutputActivation,
	}, cfg.Seed)

	best, err := trainer.Train(trainSet, targets, validation)
	if err != nil {
		return err
	}
	if best == nil {
		return errors.New("no checkpoint scored above zero on the validation set; nothing to save")
	}
	defer best.Release()

	// 3. Evaluate & Persist
	log.Printf("Accuracy on test set %f", ml.Accuracy(best, heldOut))
	return saveModel(best, cfg.ModelPath)
}

// saveModel writes net next to path and renames it into place, so a failed
// save never leaves a partial model behind.
func saveModel(net ml.Network, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("open for saving net: %w", err)
	}
	tmp := f.Name()
	if err := net.Serialize(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("serialize model: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save model: %w", err)
	}
	log.Println("Saving model to", path)
	return nil
}

func predictImage(modelPath, imagePath string) error {
	nw, err := ml.LoadNetworkFile(modelPath)
	if err != nil {
		return err
	}
	log.Printf("Running inference on %s", imagePath)
	ranked, err := ml.InferImage(nw, imagePath)
	if err != nil {
		return err
	}
	ml.PrintRanking(os.Stdout, ranked, 3)
	return nil
}
