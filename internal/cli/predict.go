package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/maxent"
	"github.com/spf13/cobra"
)

func (c *CLI) newPredictCommand() *cobra.Command {
	var dataPath, format string
	var workers int
	var proba bool

	cmd := &cobra.Command{
		Use:   "predict [modelfile]",
		Short: "Classify an instance file and report accuracy on labeled data",
		Args:  cobra.MaximumNArgs(1),
		Example: `  maxent predict model.txt --data test.tsv
  maxent predict model.json --data test.jsonl --proba --workers 8 > predictions.jsonl
  maxent predict --data test.tsv   # uses maxent.model from the working directory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := loadModel(args)
			if err != nil {
				return err
			}
			instances, err := readInstances(dataPath, format)
			if err != nil {
				return err
			}

			start := time.Now()
			preds, err := cl.ClassifyAll(cmd.Context(), instances, workers, proba)
			if err != nil {
				return err
			}
			slog.Debug("Classification completed", "instances", len(preds), "duration", time.Since(start))

			w := bufio.NewWriter(cmd.OutOrStdout())
			enc := json.NewEncoder(w)
			labeled, correct := 0, 0
			for i, p := range preds {
				if err := enc.Encode(p); err != nil {
					return err
				}
				if instances[i].Label != "" {
					labeled++
					if instances[i].Label == p.Label {
						correct++
					}
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if labeled > 0 {
				slog.Info("Accuracy",
					"value", fmt.Sprintf("%.4f", float64(correct)/float64(labeled)),
					"correct", correct,
					"total", labeled)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Instance file to classify")
	cmd.Flags().StringVar(&format, "format", "", "Instance file format: tsv or jsonl (default: from extension)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent classifiers (default: GOMAXPROCS)")
	cmd.Flags().BoolVar(&proba, "proba", false, "Print the probability of every label")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

// loadModel loads the model named in args, or finds the default model file.
func loadModel(args []string) (*maxent.Classifier, error) {
	if len(args) > 0 && args[0] != "" {
		slog.Debug("Loading model", "path", args[0])
		return maxent.Load(args[0])
	}
	return maxent.New()
}
