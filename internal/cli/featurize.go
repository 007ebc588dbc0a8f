package cli

import (
	"fmt"
	"log/slog"

	"github.com/happyhackingspace/maxent"
	"github.com/happyhackingspace/maxent/internal/storage"
	"github.com/happyhackingspace/maxent/internal/vectorizer"
	"github.com/spf13/cobra"
)

func (c *CLI) newFeaturizeCommand() *cobra.Command {
	var dataFolder, output, format, vecPath string
	var ngrams, titleChars []int
	var minDF int
	var numberRatio float64
	var keepStopWords, keepDuplicates bool

	cmd := &cobra.Command{
		Use:   "featurize",
		Short: "Turn a labeled document folder into an instance file",
		Example: `  maxent featurize --data-folder docs --output train.tsv
  maxent featurize --data-folder docs --output train.jsonl --vectorizer vec.json --ngrams 1,3 --min-df 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ngrams) != 2 || len(titleChars) != 2 {
				return fmt.Errorf("--ngrams and --title-chars take two values: min,max")
			}
			f, err := storage.ParseFormat(format, output)
			if err != nil {
				return err
			}

			opts := storage.DefaultIterOptions()
			opts.DropDuplicates = !keepDuplicates
			docs, err := storage.NewStorage(dataFolder).IterDocuments(opts)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return fmt.Errorf("no labeled documents in %s", dataFolder)
			}

			cfg := vectorizer.DocumentConfig{
				NgramRange:  [2]int{ngrams[0], ngrams[1]},
				MinDF:       minDF,
				StopWords:   !keepStopWords,
				NumberRatio: numberRatio,
				CharNgrams:  [2]int{titleChars[0], titleChars[1]},
			}
			dv := vectorizer.NewDocumentVectorizer(cfg)
			instances := documentInstances(docs, dv)

			if err := storage.WriteInstanceFile(output, instances, f); err != nil {
				return err
			}
			slog.Info("Instances written", "path", output, "documents", len(instances),
				"vocabulary", dv.Body.VocabSize()+dv.Title.VocabSize())
			if vecPath != "" {
				if err := dv.Save(vecPath); err != nil {
					return err
				}
				slog.Info("Vectorizer saved", "path", vecPath)
			}
			return nil
		},
	}

	def := vectorizer.DefaultDocumentConfig()
	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Labeled document folder (index.json, config.json)")
	cmd.Flags().StringVar(&output, "output", "train.tsv", "Instance file to write")
	cmd.Flags().StringVar(&format, "format", "", "Instance file format: tsv or jsonl (default: from extension)")
	cmd.Flags().StringVar(&vecPath, "vectorizer", "", "Save the fitted vectorizer for classify")
	cmd.Flags().IntSliceVar(&ngrams, "ngrams", def.NgramRange[:], "Word n-gram range of the body")
	cmd.Flags().IntSliceVar(&titleChars, "title-chars", []int{0, 0}, "Character n-gram range of the title (0,0: off)")
	cmd.Flags().IntVar(&minDF, "min-df", def.MinDF, "Minimum document frequency of body terms")
	cmd.Flags().Float64Var(&numberRatio, "number-ratio", def.NumberRatio, "Digit share above which tokens are reduced to their shape")
	cmd.Flags().BoolVar(&keepStopWords, "keep-stop-words", false, "Keep English stop words")
	cmd.Flags().BoolVar(&keepDuplicates, "keep-duplicates", false, "Keep documents with identical content")
	return cmd
}

// documentInstances fits dv on docs and returns one labeled instance per
// document.
func documentInstances(docs []storage.Document, dv *vectorizer.DocumentVectorizer) []maxent.Instance {
	texts := make([]vectorizer.Text, len(docs))
	for i, d := range docs {
		texts[i] = vectorizer.Text{Title: d.Title, Body: d.Text}
	}
	features := dv.FitTransform(texts)
	instances := make([]maxent.Instance, len(docs))
	for i, d := range docs {
		instances[i] = maxent.Instance{Label: d.Label, Features: features[i]}
	}
	return instances
}
