package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/internal/storage"
	"github.com/happyhackingspace/maxent/internal/vectorizer"
	"github.com/spf13/cobra"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var flags trainFlags
	var dataPath, format, dataFolder string
	var cvFolds, workers int

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate model accuracy via cross-validation",
		Example: `  maxent evaluate --data train.tsv --cv 10
  maxent evaluate --data train.tsv --cv 5 --method owlqn --l1 0.5
  maxent evaluate --data-folder docs --cv 10   # folds never split a site`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := flags.trainConfig(cmd)
			if err != nil {
				return err
			}

			var instances []maxent.Instance
			var groups []int
			switch {
			case dataFolder != "":
				docs, err := storage.NewStorage(dataFolder).IterDocuments(storage.DefaultIterOptions())
				if err != nil {
					return err
				}
				dv := vectorizer.NewDocumentVectorizer(vectorizer.DefaultDocumentConfig())
				instances = documentInstances(docs, dv)
				groups = domainGroups(docs)
			case dataPath != "":
				instances, err = readInstances(dataPath, format)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("either --data or --data-folder is required")
			}

			slog.Info("Evaluating", "folds", cvFolds, "instances", len(instances))
			start := time.Now()
			result, err := maxent.Evaluate(cmd.Context(), instances, groups, &maxent.EvalConfig{
				Folds:   cvFolds,
				Train:   tc,
				Workers: workers,
			})
			if err != nil {
				return err
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Accuracy: %.1f%% (%d/%d)\n", result.Accuracy*100, result.Correct, result.Total)
			fmt.Fprintf(out, "Macro F1: %.1f%%  Weighted F1: %.1f%%\n", result.MacroF1*100, result.WeightedF1*100)
			for i, acc := range result.FoldAccuracy {
				slog.Debug("Fold", "fold", i+1, "accuracy", acc)
			}
			printConfusionMatrix(out, result.Confusion, result.Classes)
			printClassReport(out, &result.Metrics)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dataPath, "data", "", "Labeled instance file")
	cmd.Flags().StringVar(&format, "format", "", "Instance file format: tsv or jsonl (default: from extension)")
	cmd.Flags().StringVar(&dataFolder, "data-folder", "", "Labeled document folder, grouped by site")
	cmd.Flags().IntVar(&cvFolds, "cv", 10, "Number of cross-validation folds")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent classifiers per fold (default: GOMAXPROCS)")
	return cmd
}

// domainGroups numbers the documents' domains in order of appearance.
func domainGroups(docs []storage.Document) []int {
	ids := make(map[string]int)
	groups := make([]int, len(docs))
	for i, d := range docs {
		id, ok := ids[d.Domain]
		if !ok {
			id = len(ids)
			ids[d.Domain] = id
		}
		groups[i] = id
	}
	return groups
}

func printClassReport(w io.Writer, m *maxent.Metrics) {
	fmt.Fprintf(w, "\nPer-class metrics:\n")
	fmt.Fprintf(w, "%12s  %6s  %6s  %6s  %7s\n", "class", "prec", "recall", "f1", "support")
	for _, cls := range m.Classes {
		support := 0
		for _, v := range m.Confusion[cls] {
			support += v
		}
		fmt.Fprintf(w, "%12s  %5.1f%%  %5.1f%%  %5.1f%%  %7d\n",
			cls, m.Precision[cls]*100, m.Recall[cls]*100, m.F1[cls]*100, support)
	}
}

// printConfusionMatrix prints rows ordered by support, most frequent class
// first.
func printConfusionMatrix(w io.Writer, confusion map[string]map[string]int, classes []string) {
	if len(confusion) == 0 {
		return
	}

	support := func(cls string) int {
		n := 0
		for _, v := range confusion[cls] {
			n += v
		}
		return n
	}
	classes = append([]string(nil), classes...)
	sort.SliceStable(classes, func(i, j int) bool {
		return support(classes[i]) > support(classes[j])
	})

	fmt.Fprintf(w, "\nConfusion matrix (rows=true, cols=predicted):\n")
	fmt.Fprintf(w, "%12s", "")
	for _, c := range classes {
		fmt.Fprintf(w, " %7s", c)
	}
	fmt.Fprintf(w, "  total  acc%%\n")

	for _, trueClass := range classes {
		fmt.Fprintf(w, "%12s", trueClass)
		total := 0
		correct := 0
		for _, predClass := range classes {
			count := confusion[trueClass][predClass]
			total += count
			if trueClass == predClass {
				correct = count
			}
			if count == 0 {
				fmt.Fprintf(w, " %7s", ".")
			} else {
				fmt.Fprintf(w, " %7d", count)
			}
		}
		acc := 0.0
		if total > 0 {
			acc = float64(correct) / float64(total) * 100
		}
		fmt.Fprintf(w, "  %5d %5.1f\n", total, acc)
	}
}
