package cli

import (
	"log/slog"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/internal/storage"
	"github.com/happyhackingspace/maxent/optimizer"
	"github.com/spf13/cobra"
)

// trainFlags are the training options shared by train and evaluate.
// Flags given on the command line override the --config file.
type trainFlags struct {
	config       string
	method       string
	l1           float64
	l2           float64
	history      int
	iterations   int
	epsilon      float64
	learningRate float64
	decayRate    float64
	seed         uint64
	heldout      int
	heldoutRatio float64
	cutoff       int
	threshold    float64
}

func (f *trainFlags) register(cmd *cobra.Command) {
	def := maxent.DefaultTrainConfig()
	fs := cmd.Flags()
	fs.StringVar(&f.config, "config", "", "YAML training configuration")
	fs.StringVar(&f.method, "method", string(optimizer.MethodLBFGS), "Optimizer: lbfgs, owlqn or sgd")
	fs.Float64Var(&f.l1, "l1", 0, "L1 regularization (owlqn, sgd)")
	fs.Float64Var(&f.l2, "l2", 0, "L2 regularization (lbfgs)")
	fs.IntVar(&f.history, "history", def.Optimizer.HistorySize, "LBFGS/OWLQN history size")
	fs.IntVar(&f.iterations, "iterations", 0, "Maximum iterations, or epochs for sgd (0: optimizer default)")
	fs.Float64Var(&f.epsilon, "epsilon", def.Optimizer.Epsilon, "Gradient norm convergence threshold")
	fs.Float64Var(&f.learningRate, "learning-rate", def.Optimizer.LearningRate, "SGD initial learning rate")
	fs.Float64Var(&f.decayRate, "decay-rate", def.Optimizer.DecayRate, "SGD learning rate decay per epoch")
	fs.Uint64Var(&f.seed, "seed", 0, "SGD shuffling seed")
	fs.IntVar(&f.heldout, "heldout", 0, "Number of instances held out from the end of the data")
	fs.Float64Var(&f.heldoutRatio, "heldout-ratio", 0, "Share of instances held out when --heldout is 0")
	fs.IntVar(&f.cutoff, "cutoff", def.FeatureCutoff, "Minimum instances per (label, feature) pair")
	fs.Float64Var(&f.threshold, "threshold", 0, "Drop weights of smaller magnitude when saving")
}

// trainConfig builds the training configuration from --config and the
// flags that were set explicitly.
func (f *trainFlags) trainConfig(cmd *cobra.Command) (*maxent.TrainConfig, error) {
	tc := maxent.DefaultTrainConfig()
	if f.config != "" {
		loaded, err := maxent.LoadTrainConfig(f.config)
		if err != nil {
			return nil, err
		}
		tc = *loaded
	}

	set := func(name string, apply func()) {
		if f.config == "" || cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("method", func() { tc.Optimizer.Method = optimizer.Method(f.method) })
	set("l1", func() { tc.Optimizer.L1Reg = f.l1 })
	set("l2", func() { tc.Optimizer.L2Reg = f.l2 })
	set("history", func() { tc.Optimizer.HistorySize = f.history })
	set("iterations", func() { tc.Optimizer.MaxIterations = f.iterations })
	set("epsilon", func() { tc.Optimizer.Epsilon = f.epsilon })
	set("learning-rate", func() { tc.Optimizer.LearningRate = f.learningRate })
	set("decay-rate", func() { tc.Optimizer.DecayRate = f.decayRate })
	set("seed", func() { tc.Optimizer.Seed = f.seed })
	set("heldout", func() { tc.Heldout = f.heldout })
	set("heldout-ratio", func() { tc.HeldoutRatio = f.heldoutRatio })
	set("cutoff", func() { tc.FeatureCutoff = f.cutoff })
	set("threshold", func() { tc.SaveThreshold = f.threshold })

	if err := tc.Optimizer.Validate(); err != nil {
		return nil, err
	}
	return &tc, nil
}

func (c *CLI) newTrainCommand() *cobra.Command {
	var flags trainFlags
	var dataPath, format string

	cmd := &cobra.Command{
		Use:   "train <modelfile>",
		Short: "Train a model on an instance file",
		Args:  cobra.ExactArgs(1),
		Example: `  maxent train model.txt --data train.tsv
  maxent train model.json --data train.jsonl --method owlqn --l1 1
  maxent train model.txt --data train.tsv --method sgd --l1 0.5 --iterations 20 --heldout 100
  maxent train model.txt --data train.tsv --config train.yaml -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			tc, err := flags.trainConfig(cmd)
			if err != nil {
				return err
			}
			instances, err := readInstances(dataPath, format)
			if err != nil {
				return err
			}
			slog.Info("Training classifier", "data", dataPath, "instances", len(instances), "output", modelPath)
			cl, err := maxent.Train(cmd.Context(), instances, tc)
			if err != nil {
				return err
			}
			if err := cl.Save(modelPath); err != nil {
				return err
			}
			slog.Info("Model saved", "path", modelPath, "features", cl.Model().NumActiveFeatures())
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dataPath, "data", "", "Training instance file")
	cmd.Flags().StringVar(&format, "format", "", "Instance file format: tsv or jsonl (default: from extension)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func readInstances(path, format string) ([]maxent.Instance, error) {
	f, err := storage.ParseFormat(format, path)
	if err != nil {
		return nil, err
	}
	return storage.ReadInstanceFile(path, f)
}
