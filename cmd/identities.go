package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List registered people and their sample counts",
	Args:  cobra.NoArgs,
	RunE:  runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)

	identitiesCmd.Flags().String("search", "", "Filter by name (case and diacritics insensitive)")
	identitiesCmd.Flags().Bool("json", false, "Output as JSON")
}

type identityRow struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Samples    int    `json:"samples"`
}

func runIdentities(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	reg, closeRegistry, err := openRegistry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRegistry()

	snapshot, err := reg.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	var list []registry.Identity
	if query := mustGetString(cmd, "search"); query != "" {
		list = registry.Search(snapshot, query)
	} else {
		list = registry.Sorted(snapshot)
	}

	store := samples.NewStore(cfg.Storage.DataDir)
	rows := make([]identityRow, 0, len(list))
	for _, identity := range list {
		count, err := store.Count(ctx, identity.ID)
		if err != nil {
			return fmt.Errorf("failed to count samples of %d: %w", identity.ID, err)
		}
		rows = append(rows, identityRow{
			ID:         identity.ID,
			Name:       identity.DisplayName,
			RollNumber: identity.ExternalReference,
			Samples:    count,
		})
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	fmt.Printf("Registry: %s, %d identities\n", registryBackend(cfg), len(snapshot))
	if len(rows) == 0 {
		fmt.Println("No identities found.")
		return nil
	}
	fmt.Printf("%4s  %-30s %-15s %s\n", "ID", "NAME", "ROLL", "SAMPLES")
	for _, row := range rows {
		fmt.Printf("%4d  %-30s %-15s %d\n", row.ID, row.Name, row.RollNumber, row.Samples)
	}
	return nil
}
