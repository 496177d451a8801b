package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scaffold/internal/engine"
)

var (
	installTemplateURI string
	installVersion     string
	installData        []string
	installCommit      bool

	addAppTemplateURI string
	addAppData        []string
	addAppCommit      bool
)

var infraInstallCmd = &cobra.Command{
	Use:   "install <project-dir>",
	Short: "Install the infra template in a project",
	Long: `Install the infra base and one app instance per application.

Applications are discovered from the directories under infra/. When there
are none, the app name is taken from --data app_name=<name> or asked for.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		uri, err := infraTemplateURI(installTemplateURI)
		if err != nil {
			return err
		}
		version, err := templateVersion(installVersion)
		if err != nil {
			return err
		}
		data, err := parseData(installData)
		if err != nil {
			return err
		}

		apps, err := installAppNames(eng, args[0], data)
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.InstallInfra(ctx, &engine.InstallInfraRequest{
			ProjectDir:  args[0],
			TemplateURI: uri,
			Version:     version,
			Data:        data,
			AppNames:    apps,
			Commit:      installCommit,
		})
		if result != nil {
			PrintSection("Install infra template")
			printSteps(result.Steps)
			printNetworkConfig(result)
		}
		if err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Installed %s into %s", PrintCount(len(result.Steps), "instance", "instances"), result.ProjectDir))
		return nil
	},
}

var infraAddAppCmd = &cobra.Command{
	Use:   "add-app <project-dir> <app-name>",
	Short: "Add an application to the infra template",
	Long: `Render the app slice of the infra template for a new application, at
the version the project is already on, and regenerate the network
configuration.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		data, err := parseData(addAppData)
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.AddApp(ctx, &engine.AddAppRequest{
			ProjectDir:  args[0],
			TemplateURI: addAppTemplateURI,
			AppName:     args[1],
			Data:        data,
			Commit:      addAppCommit,
		})
		if result != nil {
			printSteps(result.Steps)
			printNetworkConfig(result)
		}
		if err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Added app %s", args[1]))
		return nil
	},
}

// installAppNames returns the apps to install alongside the base.
func installAppNames(eng *engine.Engine, projectDir string, data map[string]any) ([]string, error) {
	apps, err := eng.InfraAppDirs(projectDir)
	if err != nil {
		return nil, err
	}
	if len(apps) > 0 {
		return apps, nil
	}

	if name, ok := data["app_name"].(string); ok && name != "" {
		return []string{name}, nil
	}

	name, err := prompter.Input(
		"What is the name of your app?",
		"Lowercase letters, digits, '-' and '_'. Used as the infra/<app> directory name.",
		engine.ValidateInfraAppName,
	)
	if err != nil {
		return nil, fmt.Errorf("app name: %w (pass --data app_name=<name>)", err)
	}
	return []string{name}, nil
}

func printNetworkConfig(result *engine.InstallResult) {
	if result.NetworkConfig == nil {
		return
	}
	PrintLabelValue("Network config", result.NetworkConfig.Path)
}

func init() {
	infraInstallCmd.Flags().StringVar(&installTemplateURI, "template-uri", "", "Path or URL to the infra template (default "+DefaultInfraTemplateURI+")")
	infraInstallCmd.Flags().StringVar(&installVersion, "version", "", "Template version to install (branch, tag, commit or HEAD), defaults to the latest release")
	infraInstallCmd.Flags().StringArrayVar(&installData, "data", nil, "Template answer in form KEY=VALUE (repeatable)")
	infraInstallCmd.Flags().BoolVar(&installCommit, "commit", false, "Commit each instance with a standard message")

	infraAddAppCmd.Flags().StringVar(&addAppTemplateURI, "template-uri", "", "Template source, defaults to the source recorded by the base")
	infraAddAppCmd.Flags().StringArrayVar(&addAppData, "data", nil, "Template answer in form KEY=VALUE (repeatable)")
	infraAddAppCmd.Flags().BoolVar(&addAppCommit, "commit", false, "Commit the new app with a standard message")
}
