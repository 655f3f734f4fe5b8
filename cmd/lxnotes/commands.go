package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/localnerve/lxnotes/data"
	"github.com/localnerve/lxnotes/internal/config"
	"github.com/localnerve/lxnotes/internal/database"
	"github.com/localnerve/lxnotes/internal/logger"
	"github.com/localnerve/lxnotes/internal/services"
	"github.com/localnerve/lxnotes/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// cli carries the state shared by every subcommand once the root pre-run has connected
type cli struct {
	envFile string
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
}

func (a *cli) setup(cmd *cobra.Command, _ []string) error {
	var err error
	if a.envFile != "" {
		a.cfg, err = config.LoadFile(a.envFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	// command output goes to stdout
	if a.cfg.LogOutput == "" || a.cfg.LogOutput == "stdout" {
		a.cfg.LogOutput = "stderr"
	}
	a.log = logger.New(a.cfg)
	zap.ReplaceGlobals(a.log)

	a.db, err = database.Connect(a.cfg, a.log)
	if err != nil {
		return err
	}
	return database.AutoMigrate(a.db)
}

func (a *cli) teardown(*cobra.Command, []string) error {
	if a.db != nil {
		return database.Close(a.db)
	}
	return nil
}

func rootCommand() *cobra.Command {
	a := &cli{}
	root := &cobra.Command{
		Use:                "lxnotes",
		Short:              "LX Notes administration",
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.PersistentFlags().StringVarP(&a.envFile, "env", "e", "", "path to a .env file")

	root.AddCommand(
		a.migrateCommand(),
		a.productionsCommand(),
		a.importHookupCommand(),
		a.exportCommand(),
		a.importCommand(),
		a.checkpointCommand(),
	)
	return root
}

func (a *cli) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run migrations and seed the system presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			seeded, err := services.SeedSystemPresets(a.db, data.DefaultPresets)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated, %d system presets seeded\n", seeded)
			return nil
		},
	}
}

func (a *cli) productionsCommand() *cobra.Command {
	var includeDeleted bool
	cmd := &cobra.Command{
		Use:   "productions",
		Short: "List productions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prods, err := services.ListProductions(a.db, includeDeleted)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range prods {
				state := ""
				if p.DeletedAt.Valid {
					state = " (deleted)"
				}
				fmt.Fprintf(out, "%s\t%s\tv%d%s\n", p.ID, p.Name, p.Version, state)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeDeleted, "deleted", false, "include soft-deleted productions")
	return cmd
}

func (a *cli) importHookupCommand() *cobra.Command {
	var (
		mapping    string
		deactivate bool
		delimiter  string
	)
	cmd := &cobra.Command{
		Use:   "import-hookup PRODUCTION_ID FILE",
		Short: "Import a Lightwright hookup CSV into a production",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := services.HookupImportOptions{
				DeactivateMissing: deactivate,
				MaxBytes:          int64(a.cfg.MaxUploadBytes),
				MaxRowErrors:      a.cfg.MaxRowErrors,
			}
			if mapping != "" {
				if err := json.Unmarshal([]byte(mapping), &opts.Mapping); err != nil {
					return fmt.Errorf("invalid --mapping: %w", err)
				}
			}
			if delimiter != "" {
				runes := []rune(delimiter)
				if len(runes) != 1 {
					return fmt.Errorf("--delimiter must be a single character")
				}
				opts.Delimiter = runes[0]
			}

			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			result, err := services.ImportHookupCSV(a.db, args[0], file, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "rows %d: created %d, updated %d, unchanged %d, skipped %d, deactivated %d\n",
				result.Total, result.Created, result.Updated, result.Unchanged, result.Skipped, result.Deactivated)
			for _, rowErr := range result.Errors {
				fmt.Fprintf(out, "  row %d: %s\n", rowErr.Row, rowErr.Message)
			}
			if result.Truncated {
				fmt.Fprintf(out, "  ... %d errors in total\n", result.ErrorCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mapping, "mapping", "", `JSON object of field to CSV header, e.g. {"lwid":"LW ID"}`)
	cmd.Flags().BoolVar(&deactivate, "deactivate-missing", false, "deactivate fixtures absent from the file")
	cmd.Flags().StringVar(&delimiter, "delimiter", "", "field delimiter, default comma")
	return cmd
}

func (a *cli) exportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export PRODUCTION_ID",
		Short: "Export a production snapshot as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := services.ExportProduction(a.db, args[0])
			if err != nil {
				return err
			}
			payload, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(append(payload, '\n'))
				return err
			}
			return os.WriteFile(output, payload, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, default stdout")
	return cmd
}

func (a *cli) importCommand() *cobra.Command {
	var replace string
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a production snapshot as a new production, or replace an existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			snap, err := services.DecodeSnapshot(raw)
			if err != nil {
				return err
			}

			mode := services.ImportModeNew
			if replace != "" {
				mode = services.ImportModeReplace
			}
			result, err := services.ImportSnapshot(a.db, snap, mode, replace)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\t%s\tnotes %d, pages %d, scenes/songs %d, fixtures %d, presets %d\n",
				result.Production.ID, result.Production.Name,
				result.Notes, result.Pages, result.Scenes, result.Fixtures, result.Presets)
			if len(result.Warnings) > 0 {
				fmt.Fprintf(out, "warnings:\n  %s\n", strings.Join(result.Warnings, "\n  "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&replace, "replace", "", "production ID whose content is replaced")
	return cmd
}

func (a *cli) checkpointCommand() *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "checkpoint PRODUCTION_ID",
		Short: "Create a named checkpoint of a production",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.New(a.cfg, a.log)
			if err != nil {
				return err
			}
			svc := services.NewCheckpointService(a.db, store, a.log)
			checkpoint, err := svc.CreateCheckpoint(context.Background(), args[0], label, "cli")
			if err != nil {
				return err
			}
			svc.Wait()
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tversion %d\n", checkpoint.ID, checkpoint.Label, checkpoint.ProductionVersion)
			return nil
		},
	}
	cmd.Flags().StringVarP(&label, "label", "l", "", `checkpoint label, default "Version N"`)
	return cmd
}
