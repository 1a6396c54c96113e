package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/enroll"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Register a new person and capture face samples",
	Long: `Assigns the next identity id, asks for the person's name and roll number,
then captures face samples from the camera until the sample quota is reached.

Name and roll number can be passed as flags to skip the prompts.`,
	Args: cobra.NoArgs,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("name", "", "Display name (prompted when empty)")
	enrollCmd.Flags().String("roll", "", "Roll or ID number (prompted when empty)")
	enrollCmd.Flags().Int("quota", 0, "Number of samples to capture (default ENROLL_SAMPLE_QUOTA)")
	enrollCmd.Flags().Bool("reject-multi-face", false, "Skip frames with more than one face")
	enrollCmd.Flags().String("frames-dir", "", "Read frames from a directory instead of the camera")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	quota := mustGetInt(cmd, "quota")
	if quota <= 0 {
		quota = cfg.Enroll.SampleQuota
	}
	rejectMultiFace := cfg.Enroll.RejectMultiFace || mustGetBool(cmd, "reject-multi-face")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, closeRegistry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRegistry()

	detector, err := newDetector(cfg, cfg.Detector.Enroll)
	if err != nil {
		return err
	}
	defer detector.Close()

	bar := progressbar.NewOptions(quota,
		progressbar.OptionSetDescription("Capturing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	controller := &enroll.Controller{
		Registry: reg,
		Samples:  samples.NewStore(cfg.Storage.DataDir),
		Camera:   openCamera(cfg, mustGetString(cmd, "frames-dir")),
		Detector: detector,
		Prompter: enroll.LinePrompter{
			In:                os.Stdin,
			Out:               os.Stdout,
			DisplayName:       mustGetString(cmd, "name"),
			ExternalReference: mustGetString(cmd, "roll"),
		},
		Quota:           quota,
		RejectMultiFace: rejectMultiFace,
		Progress: func(captured, quota int) {
			_ = bar.Set(captured)
		},
		Logger: log,
	}

	result, err := controller.Enroll(ctx)
	_ = bar.Finish()
	fmt.Println()

	if err != nil {
		if result.Registered {
			fmt.Printf("Identity %d registered with %d of %d samples\n", result.Identity.ID, result.Samples, quota)
		}
		return fmt.Errorf("enrollment failed: %w", err)
	}

	fmt.Printf("Identity: %d (%s, %s)\n", result.Identity.ID, result.Identity.DisplayName, result.Identity.ExternalReference)
	fmt.Printf("Samples:  %d (%d frames read)\n", result.Samples, result.Frames)
	fmt.Println("Enrollment complete. Run 'face-attendance train' to update the model.")
	return nil
}
