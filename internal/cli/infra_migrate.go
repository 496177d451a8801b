package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scaffold/internal/engine"
)

var (
	migrateOriginURI      string
	migrateKeepLegacyFile bool
	migrateCommit         bool
	migrateYes            bool
)

var infraMigrateCmd = &cobra.Command{
	Use:   "migrate-from-legacy <project-dir>",
	Short: "Convert a legacy .template-version project",
	Long: `Replace the legacy .template-version marker with answers files for the
infra base and every app directory under infra/, all recorded at the legacy
version.

Base answers are seeded from the terraform outputs of infra/project-config
when terraform is available.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		uri, err := infraTemplateURI(migrateOriginURI)
		if err != nil {
			return err
		}
		if ok, err := confirmMigration(args[0]); err != nil || !ok {
			return err
		}

		ctx := context.Background()
		result, err := eng.MigrateInfra(ctx, &engine.MigrateRequest{
			ProjectDir:     args[0],
			TemplateURI:    uri,
			KeepLegacyFile: migrateKeepLegacyFile,
			Commit:         migrateCommit,
		})
		if err != nil {
			return err
		}

		printMigration(result)
		return nil
	},
}

// confirmMigration asks before rewriting the project. Without a terminal
// the migration proceeds.
func confirmMigration(projectDir string) (bool, error) {
	if migrateYes {
		return true, nil
	}
	ok, err := prompter.Confirm(fmt.Sprintf("Migrate %s to per-instance answers files?", projectDir), true)
	if errors.Is(err, ErrNotInteractive) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if !ok {
		PrintInfo("Migration cancelled")
	}
	return ok, nil
}

func printMigration(result *engine.MigrateResult) {
	PrintSection("Migrated from legacy template")
	PrintLabelValue("Legacy file", result.LegacyFile)
	PrintLabelValue("Version", result.LegacyVersion)
	if len(result.ProjectConfig) > 0 {
		PrintLabelValue("Project config", PrintCount(len(result.ProjectConfig), "answer", "answers"))
	}

	PrintSubsection("Answers files:")
	PrintList(result.Written, false)

	if !result.Removed {
		PrintInfo(fmt.Sprintf("Kept %s", result.LegacyFile))
	}
	printCommit(result.Commit)
}

func init() {
	infraMigrateCmd.Flags().StringVar(&migrateOriginURI, "origin-template-uri", "", "Path or URL of the legacy template the project was created from (default "+DefaultInfraTemplateURI+")")
	infraMigrateCmd.Flags().BoolVar(&migrateKeepLegacyFile, "keep-legacy-file", false, "Leave the legacy marker in place")
	infraMigrateCmd.Flags().BoolVar(&migrateCommit, "commit", false, "Commit the migration")
	infraMigrateCmd.Flags().BoolVarP(&migrateYes, "yes", "y", false, "Do not ask for confirmation")
}
