package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scaffold/internal/engine"
	"github.com/danieljhkim/scaffold/internal/template"
)

var (
	updateOpts       updateFlags
	updateDryRun     bool
	updateBaseOpts   updateFlags
	updateBaseCommit bool
	updateAppOpts    updateFlags
	updateAppCommit  bool
	updateAppAll     bool
)

var infraUpdateCmd = &cobra.Command{
	Use:   "update <project-dir>",
	Short: "Update the infra base and every app",
	Long: `Update the infra base, then every installed app in name order, committing
after each step.

A merge conflict stops the update. The steps before it stay committed; resolve
the conflict and continue with update-base or update-app.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		opts, err := updateOpts.options()
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.UpdateInfra(ctx, &engine.UpdateInfraRequest{
			ProjectDir:    args[0],
			UpdateOptions: opts,
			DryRun:        updateDryRun,
		})
		if result != nil && result.Plan != nil {
			printPlan(result)
		}
		if result != nil && !result.DryRun {
			printSteps(result.Steps)
		}
		if err != nil {
			if errors.Is(err, template.ErrMergeConflicts) {
				PrintWarning("Run `infra update-base` and `infra update-app` separately once the conflicts are resolved")
			}
			return err
		}

		switch {
		case result.DryRun:
			PrintInfo("Dry run, nothing was changed")
		case result.UpToDate():
			PrintSuccess("Infra template is up to date")
		default:
			PrintSuccess(fmt.Sprintf("Updated %s", PrintCount(len(result.Steps), "instance", "instances")))
		}
		return nil
	},
}

var infraUpdateBaseCmd = &cobra.Command{
	Use:   "update-base <project-dir>",
	Short: "Update the infra base only",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		opts, err := updateBaseOpts.options()
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.UpdateBase(ctx, &engine.UpdateBaseRequest{
			ProjectDir:    args[0],
			UpdateOptions: opts,
			Commit:        updateBaseCommit,
		})
		if result != nil {
			printSteps(result.Steps)
			if result.NetworkConfig != nil {
				PrintLabelValue("Network config", result.NetworkConfig.Path)
			}
		}
		return err
	},
}

var infraUpdateAppCmd = &cobra.Command{
	Use:   "update-app <project-dir> [app-name...]",
	Short: "Update infra app instances",
	Long: `Update the app slice of the infra template for the given apps, or every
installed app with --all. Without either, the apps are picked interactively.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		opts, err := updateAppOpts.options()
		if err != nil {
			return err
		}

		apps := args[1:]
		if len(apps) == 0 && !updateAppAll {
			if apps, err = selectInfraApps(eng, args[0]); err != nil {
				return err
			}
		}

		ctx := context.Background()
		result, err := eng.UpdateApps(ctx, &engine.UpdateAppsRequest{
			ProjectDir:    args[0],
			UpdateOptions: opts,
			AppNames:      apps,
			All:           updateAppAll,
			Commit:        updateAppCommit,
		})
		if result != nil {
			printSteps(result.Steps)
		}
		return err
	},
}

// selectInfraApps asks which installed apps to update.
func selectInfraApps(eng *engine.Engine, projectDir string) ([]string, error) {
	installed, err := eng.InfraApps(projectDir)
	if err != nil {
		return nil, err
	}
	if len(installed) == 0 {
		return nil, fmt.Errorf("%w: no infra apps installed", engine.ErrValidation)
	}
	apps, err := prompter.MultiSelect("Which apps?", installed)
	if err != nil {
		return nil, fmt.Errorf("app selection: %w (pass app names or --all)", err)
	}
	return apps, nil
}

func printPlan(result *engine.UpdateResult) {
	plan := result.Plan
	target := plan.Target
	if target == "" {
		target = "latest release"
	}

	PrintSection("Update plan")
	PrintLabelValue("Target", target)
	steps := make([]string, 0, len(plan.Steps))
	for _, s := range plan.Steps {
		steps = append(steps, s.String())
	}
	PrintList(steps, true)

	if plan.HasDrift() {
		PrintSubsection("Drift:")
		for _, d := range plan.Drift {
			PrintWarning(d.String())
		}
	}
	PrintRule("")
}

func init() {
	updateOpts.register(infraUpdateCmd)
	infraUpdateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Show the update plan without changing anything")

	updateBaseOpts.register(infraUpdateBaseCmd)
	infraUpdateBaseCmd.Flags().BoolVar(&updateBaseCommit, "commit", false, "Commit changes with a standard message")

	updateAppOpts.register(infraUpdateAppCmd)
	infraUpdateAppCmd.Flags().BoolVar(&updateAppCommit, "commit", false, "Commit each app with a standard message")
	infraUpdateAppCmd.Flags().BoolVar(&updateAppAll, "all", false, "Update every installed app")
}
