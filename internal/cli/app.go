package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/scaffold/internal/engine"
)

var (
	appInstallURI     string
	appInstallName    string
	appInstallVersion string
	appInstallData    []string
	appInstallCommit  bool

	appUpdateOpts   updateFlags
	appUpdateName   string
	appUpdateCommit bool

	appMigrateURI      string
	appMigrateKeepFile bool
	appMigrateCommit   bool
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Install and update application templates",
	Long: `Manage application templates: templates rendered once per application,
with answers recorded in .template-<repo>/<app>.yml.`,
}

var appInstallCmd = &cobra.Command{
	Use:   "install <project-dir> <app-name>",
	Short: "Install an application template in a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		version, err := templateVersion(appInstallVersion)
		if err != nil {
			return err
		}
		data, err := parseData(appInstallData)
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.InstallApp(ctx, &engine.InstallAppRequest{
			ProjectDir:   args[0],
			TemplateURI:  appInstallURI,
			TemplateName: appInstallName,
			AppName:      args[1],
			Version:      version,
			Data:         data,
			Commit:       appInstallCommit,
		})
		if result != nil {
			printSteps(result.Steps)
		}
		if err != nil {
			return err
		}

		PrintSuccess(fmt.Sprintf("Installed %s for %s", appInstallURI, args[1]))
		return nil
	},
}

var appUpdateCmd = &cobra.Command{
	Use:   "update <project-dir> <app-name>",
	Short: "Update an application template",
	Long: `Update the application template installed for an app. The template is
found from --template-uri, or from --template-name and the source recorded
at install.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		opts, err := appUpdateOpts.options()
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.UpdateApp(ctx, &engine.UpdateAppRequest{
			ProjectDir:    args[0],
			UpdateOptions: opts,
			TemplateName:  appUpdateName,
			AppName:       args[1],
			Commit:        appUpdateCommit,
		})
		if result != nil {
			printSteps(result.Steps)
		}
		return err
	},
}

var appMigrateCmd = &cobra.Command{
	Use:   "migrate-from-legacy <project-dir> <app-name>",
	Short: "Convert a legacy .<repo>-version marker for an app",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		ctx := context.Background()
		result, err := eng.MigrateApp(ctx, &engine.MigrateRequest{
			ProjectDir:     args[0],
			TemplateURI:    appMigrateURI,
			AppName:        args[1],
			KeepLegacyFile: appMigrateKeepFile,
			Commit:         appMigrateCommit,
		})
		if err != nil {
			return err
		}

		printMigration(result)
		return nil
	},
}

func init() {
	appInstallCmd.Flags().StringVar(&appInstallURI, "template-uri", "", "Path or URL to the application template")
	appInstallCmd.Flags().StringVar(&appInstallName, "template-name", "", "Template name, defaults to the repository name of --template-uri")
	appInstallCmd.Flags().StringVar(&appInstallVersion, "version", "", "Template version to install (branch, tag, commit or HEAD), defaults to the latest release")
	appInstallCmd.Flags().StringArrayVar(&appInstallData, "data", nil, "Template answer in form KEY=VALUE (repeatable)")
	appInstallCmd.Flags().BoolVar(&appInstallCommit, "commit", false, "Commit with a standard message")
	_ = appInstallCmd.MarkFlagRequired("template-uri")

	appUpdateOpts.register(appUpdateCmd)
	appUpdateCmd.Flags().StringVar(&appUpdateName, "template-name", "", "Installed template name, repo or repo:template")
	appUpdateCmd.Flags().BoolVar(&appUpdateCommit, "commit", false, "Commit with a standard message")
	appUpdateCmd.MarkFlagsOneRequired("template-uri", "template-name")

	appMigrateCmd.Flags().StringVar(&appMigrateURI, "origin-template-uri", "", "Path or URL of the legacy template the app was created from")
	appMigrateCmd.Flags().BoolVar(&appMigrateKeepFile, "keep-legacy-file", false, "Leave the legacy marker in place")
	appMigrateCmd.Flags().BoolVar(&appMigrateCommit, "commit", false, "Commit the migration")
	_ = appMigrateCmd.MarkFlagRequired("origin-template-uri")

	appCmd.AddCommand(appInstallCmd)
	appCmd.AddCommand(appUpdateCmd)
	appCmd.AddCommand(appMigrateCmd)
}
