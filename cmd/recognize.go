package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/recognition"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize",
	Short: "Run a time-boxed attendance session",
	Long: `Connects to the attendance dashboard, scans the camera for the configured
duration and reports each recognized person once. Unrecognized faces are
saved under the unknown bucket of the sample store.

Press Ctrl+C to end the session early; the summary is still printed.`,
	Args: cobra.NoArgs,
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Duration("duration", 0, "Scan duration (default RECOGNITION_DURATION)")
	recognizeCmd.Flags().Float64("threshold", 0, "Match distance threshold (default RECOGNITION_THRESHOLD)")
	recognizeCmd.Flags().String("dashboard", "", "Dashboard Socket.IO URL (default DASHBOARD_URL)")
	recognizeCmd.Flags().String("frames-dir", "", "Read frames from a directory instead of the camera")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if d := mustGetDuration(cmd, "duration"); d > 0 {
		cfg.Recognition.Duration = d
	}
	if t := mustGetFloat64(cmd, "threshold"); t > 0 {
		cfg.Recognition.Threshold = t
	}
	if url := mustGetString(cmd, "dashboard"); url != "" {
		cfg.Dashboard.URL = url
	}
	policy, err := recognition.ParseSendPolicy(cfg.Recognition.SendFailure)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, closeRegistry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRegistry()

	detector, err := newDetector(cfg, cfg.Detector.Recognize)
	if err != nil {
		return err
	}
	defer detector.Close()

	session := &recognition.Session{
		Registry:            reg,
		LoadModel:           recognition.ModelFile(cfg.Storage.ModelPath),
		Dial:                recognition.DashboardDialer(cfg.Dashboard.URL, cfg.Dashboard.ConnectTimeout, log),
		Camera:              openCamera(cfg, mustGetString(cmd, "frames-dir")),
		Detector:            detector,
		Unknowns:            samples.NewStore(cfg.Storage.DataDir),
		Threshold:           cfg.Recognition.Threshold,
		Duration:            cfg.Recognition.Duration,
		SendPolicy:          policy,
		IsolateRegionErrors: cfg.Recognition.IsolateRegionErrors,
		OnAttendance: func(identity registry.Identity, record recognition.Attendance, sendErr error) {
			if sendErr != nil {
				fmt.Printf("Attendance marked: %s (%s) at %s [not delivered: %v]\n", record.Name, record.RollNumber, record.Date, sendErr)
				return
			}
			fmt.Printf("Attendance marked: %s (%s) at %s\n", record.Name, record.RollNumber, record.Date)
		},
		Logger: log,
	}

	fmt.Printf("Scanning for %s, press Ctrl+C to stop\n", cfg.Recognition.Duration.Round(time.Second))
	result, runErr := session.Run(ctx)
	if !result.StartedAt.IsZero() {
		// The session may have been cancelled; the summary still needs the registry.
		snapshot, err := reg.LoadAll(context.WithoutCancel(ctx))
		if err != nil {
			log.Warn("failed to reload registry for summary", "error", err)
		}
		recognition.Summary(os.Stdout, result, snapshot)
	}
	if runErr != nil {
		return fmt.Errorf("recognition failed: %w", runErr)
	}
	return nil
}
