package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scaffold/internal/engine"
)

var infoOffline bool

var infraInfoCmd = &cobra.Command{
	Use:   "info <project-dir>",
	Short: "Show the template instances of a project",
	Long: `Show the infra template version of a project, newer releases of its
source, legacy marker state and the version of every installed instance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.Info(ctx, &engine.InfoRequest{
			ProjectDir: args[0],
			Offline:    infoOffline,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}
		printInfo(result)
		return nil
	},
}

func printInfo(result *engine.InfoResult) {
	PrintSection(fmt.Sprintf("Project %s", result.Name))
	PrintLabelValue("Directory", result.ProjectDir)

	if infra := result.Infra; infra != nil {
		printInfraInfo(infra)
	}

	PrintSubsection("Instances:")
	if len(result.Instances) == 0 {
		PrintEmptyState("No template instances installed")
		return
	}
	rows := make([][]string, 0, len(result.Instances))
	for _, inst := range result.Instances {
		ver := inst.Version
		if inst.Error != "" {
			ver = "error: " + inst.Error
		}
		rows = append(rows, []string{inst.ID, inst.AppName, ver, inst.SourceURI})
	}
	PrintTable([]string{"TEMPLATE", "APP", "VERSION", "SOURCE"}, rows)
}

func printInfraInfo(infra *engine.InfraInfo) {
	PrintSubsection("Infra template:")
	if infra.Installed {
		PrintLabelValue("Base version", orUnknown(infra.Version))
		PrintLabelValue("Source", orUnknown(infra.SourceURI))
		newer := "none"
		if len(infra.NewerReleases) > 0 {
			newer = strings.Join(infra.NewerReleases, ", ")
		}
		PrintLabelValue("Newer releases", newer)
		PrintLabelValue("Apps", strings.Join(infra.Apps, ", "))
	} else {
		PrintLabelValueWithColor("Installed", "no", warningColor)
	}

	if infra.LegacyVersion != "" {
		PrintLabelValueWithColor("Legacy version", infra.LegacyVersion, warningColor)
		PrintLabelValue("Closest upstream version", orUnknown(infra.LegacyClosestTag))
	}

	for _, d := range infra.Drift {
		PrintWarning(fmt.Sprintf("%s is at %s, base is at %s", d.AppName, d.AppVersion, d.BaseVersion))
	}
	if len(infra.Unmanaged) > 0 {
		PrintWarning(fmt.Sprintf("Not managed by the infra template: %s", strings.Join(infra.Unmanaged, ", ")))
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func init() {
	infraInfoCmd.Flags().BoolVar(&infoOffline, "offline", false, "Skip release lookups")
}
