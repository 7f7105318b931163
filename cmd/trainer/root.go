package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/urisense/platform/pkg/common/logger"
	"github.com/urisense/platform/pkg/normalizer"
	"github.com/urisense/platform/pkg/serving/predictor"
	"github.com/urisense/platform/pkg/training"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "trainer",
		Short:        "Train and inspect urinalysis diagnosis models",
		SilenceUsage: true,
	}

	debug := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		logger.Init()
		logger.Log.SetOutput(cmd.ErrOrStderr())
		if *debug {
			logger.Log.SetLevel(logrus.DebugLevel)
		}
	}

	cmd.AddCommand(newTrainCommand())
	cmd.AddCommand(newInspectCommand())
	return cmd
}

func newTrainCommand() *cobra.Command {
	opts := training.DefaultOptions()
	var dataPath, outPath, schemaPath, target string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit a model on a labelled CSV export and write the artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := normalizer.LoadSchema(schemaPath)
			if err != nil {
				return err
			}
			f, err := os.Open(filepath.Clean(dataPath))
			if err != nil {
				return fmt.Errorf("opening dataset: %w", err)
			}
			defer f.Close()

			ds, err := training.LoadDataset(f, schema, target)
			if err != nil {
				return fmt.Errorf("loading dataset: %w", err)
			}
			artifact, report, err := training.Train(cmd.Context(), ds, opts)
			if err != nil {
				return err
			}
			if err := predictor.WriteArtifact(outPath, artifact); err != nil {
				return fmt.Errorf("writing artifact: %w", err)
			}

			logger.Log.WithFields(logrus.Fields{
				"path":    outPath,
				"version": artifact.Version,
			}).Info("Model artifact written")
			return printJSON(cmd, report)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dataPath, "data", "urinalysis_data.csv", "Labelled CSV dataset")
	flags.StringVar(&outPath, "out", "model.json", "Artifact output path")
	flags.StringVar(&schemaPath, "schema", "", "Feature schema YAML (built-in schema when empty)")
	flags.StringVar(&target, "target", training.DefaultTargetColumn, "Label column")
	flags.StringVar(&opts.Name, "name", opts.Name, "Model name")
	flags.StringVar(&opts.Version, "version", "", "Model version (timestamp when empty)")
	flags.StringVar(&opts.Algorithm, "algorithm", opts.Algorithm, "random_forest or logistic")
	flags.Float64Var(&opts.TestFraction, "test-fraction", opts.TestFraction, "Held-out fraction for evaluation")
	flags.Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed")
	flags.IntVar(&opts.Forest.Trees, "trees", opts.Forest.Trees, "Number of trees")
	flags.IntVar(&opts.Forest.MaxDepth, "max-depth", opts.Forest.MaxDepth, "Maximum tree depth")
	flags.IntVar(&opts.Logistic.Epochs, "epochs", 0, "Logistic regression epochs")
	return cmd
}

func newInspectCommand() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Print artifact metadata and check it against a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := predictor.LoadArtifact(args[0])
			if err != nil {
				return err
			}
			schema, err := normalizer.LoadSchema(schemaPath)
			if err != nil {
				return err
			}
			if err := artifact.Validate(schema); err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{
				"name":          artifact.Name,
				"version":       artifact.Version,
				"algorithm":     artifact.Algorithm,
				"classes":       artifact.Classes,
				"feature_names": artifact.FeatureNames,
				"metrics":       artifact.Metrics,
				"created_at":    artifact.CreatedAt,
			})
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "Feature schema YAML (built-in schema when empty)")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
