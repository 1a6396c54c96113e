package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/train"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the face recognizer from the stored samples",
	Long: `Reads every stored sample of a registered person, trains the LBPH
recognizer and replaces the model artifact. Samples of unregistered owners
and unreadable files are skipped and reported.`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("model", "", "Model artifact path (default MODEL_PATH)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if model := mustGetString(cmd, "model"); model != "" {
		cfg.Storage.ModelPath = model
	}

	ctx := context.Background()
	reg, closeRegistry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRegistry()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Loading samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowElapsedTimeOnFinish(),
	)

	trainer := &train.Trainer{
		Registry:  reg,
		Samples:   samples.NewStore(cfg.Storage.DataDir),
		ModelPath: cfg.Storage.ModelPath,
		Params:    lbphParams(cfg),
		Progress: func(accepted int) {
			_ = bar.Set(accepted)
		},
		Logger: log,
	}

	report, err := trainer.Train(ctx)
	_ = bar.Finish()
	fmt.Println()

	if errors.Is(err, train.ErrNoTrainingData) {
		fmt.Println("No training data found. Enroll at least one person first.")
	}
	if err != nil {
		return err
	}

	snapshot, err := reg.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	fmt.Printf("Model trained: %d samples, %d identities\n", report.Samples, report.Identities)
	for _, identity := range registry.Sorted(snapshot) {
		if n, ok := report.PerIdentity[identity.ID]; ok {
			fmt.Printf("  %3d  %-30s %d samples\n", identity.ID, identity.DisplayName, n)
		}
	}
	if report.Excluded > 0 {
		fmt.Printf("Skipped %d samples of unregistered identities\n", report.Excluded)
	}
	if report.Corrupt > 0 {
		fmt.Printf("Skipped %d unreadable samples\n", report.Corrupt)
	}
	fmt.Printf("Saved to %s\n", cfg.Storage.ModelPath)
	return nil
}
