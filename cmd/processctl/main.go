package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"law_process_app_go/config"
	"law_process_app_go/db"
	"law_process_app_go/models"
	"law_process_app_go/services"
	"law_process_app_go/services/extraction"
	"law_process_app_go/services/process"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// opener returns the database the commands run against
type opener func() (*gorm.DB, *config.Config, error)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}

func openFromEnv() (*gorm.DB, *config.Config, error) {
	cfg := config.Load()
	if err := db.Initialize(db.Options{
		Path:        cfg.DBPath,
		Environment: "production",
		TursoURL:    cfg.TursoDatabaseURL,
		TursoToken:  cfg.TursoAuthToken,
	}); err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrate(
		&models.Client{},
		&models.Case{},
		&models.PhaseState{},
		&models.PhaseDocument{},
		&models.FolderConsolidation{},
		&models.AuditLog{},
		&models.Precedent{},
		&models.Doctrine{},
	); err != nil {
		return nil, nil, err
	}
	services.InitializeStorage(cfg)
	return db.DB, cfg, nil
}

func newRootCmd(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "processctl",
		Short:         "Operate the case process engine",
		SilenceUsage: true,
	}
	root.AddCommand(
		newPhasesCmd(),
		newProgressCmd(open),
		newReconsolidateCmd(open),
		newImportReferenceCmd(open),
		newReferenceTemplateCmd(),
	)
	return root
}

func newPhasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "phases",
		Short: "List the phases with their fields and folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			schema := process.DefaultSchema()
			for _, p := range schema.Phases() {
				fmt.Fprintf(out, "%-22s %3d%%  %s\n", p.ID, p.CompletionTarget, p.Title)
				for _, f := range p.Fields {
					marker := " "
					if f.Required {
						marker = "*"
					}
					binding := ""
					if f.Folder != "" {
						binding = " <- " + f.Folder
					}
					fmt.Fprintf(out, "    %s %s (%s)%s\n", marker, f.Name, f.Type, binding)
				}
			}
			fmt.Fprintf(out, "completion order: %v\n", schema.CompletionOrder())
			return nil
		},
	}
}

func newProgressCmd(open opener) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "progress <caseId>",
		Short: "Show the completion percentage and per-phase coverage of a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, _, err := open()
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			state, err := services.NewProcessStore(dbConn).LoadProcessState(ctx, args[0])
			if err != nil {
				return err
			}
			progress := process.DefaultSchema().Progress(state.PerPhaseData)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, map[string]interface{}{"state": state, "phases": progress})
			}
			fmt.Fprintf(out, "case %s: %d%% (current phase %s)\n", state.CaseID, state.CompletionPercentage, state.CurrentPhase)
			for _, p := range progress {
				status := "pending"
				if p.Complete {
					status = "complete"
				}
				fmt.Fprintf(out, "  %-22s %d/%d required  target %3d%%  %s\n", p.Phase, p.Filled, p.Required, p.Target, status)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func newReconsolidateCmd(open opener) *cobra.Command {
	var caseID string
	var force bool
	cmd := &cobra.Command{
		Use:   "reconsolidate",
		Short: "Rebuild stale folder consolidations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConn, cfg, err := open()
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			storage := services.Storage
			if storage == nil {
				storage = services.NewLocalStorage(cfg.UploadDir)
			}
			docs := services.NewDocumentService(dbConn, storage,
				extraction.New(cfg.ExtractionServiceURL, 60*time.Second),
				process.DefaultSchema(), process.NewBus(), cfg.MaxUploadBytes)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			n, err := docs.ReconsolidateStale(ctx, caseID, force)
			if err != nil {
				return fmt.Errorf("reconsolidation stopped after %d folders: %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d folders\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&caseID, "case", "", "limit to one case id")
	cmd.Flags().BoolVar(&force, "force", false, "rebuild every folder regardless of age")
	return cmd
}

func newImportReferenceCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import-reference <file.xlsx>",
		Short: "Load doctrine and precedents from a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open workbook: %w", err)
			}
			defer f.Close()

			dbConn, _, err := open()
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			result, err := services.ImportReferenceWorkbook(context.Background(), dbConn, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d doctrine entries and %d precedents\n", result.DoctrineCount, result.PrecedentCount)
			for _, e := range result.Errors {
				log.Printf("[WARNING] %s", e)
			}
			return nil
		},
	}
}

func newReferenceTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reference-template <out.xlsx>",
		Short: "Write an empty reference workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := services.GenerateReferenceTemplate()
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("failed to write template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
