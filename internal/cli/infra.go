package cli

import (
	"github.com/spf13/cobra"

	"github.com/danieljhkim/scaffold/internal/engine"
)

var infraCmd = &cobra.Command{
	Use:   "infra",
	Short: "Install and update the infra template",
	Long: `Manage the infra template of a project.

The infra template has two slices: the base, rendered once per project, and
the app slice, rendered once for every application. Base and apps are kept
at the same template version.`,
}

// updateFlags are the flags shared by every update command.
type updateFlags struct {
	templateURI string
	version     string
	data        []string
	answersOnly bool
	force       bool
}

func (f *updateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.templateURI, "template-uri", "", "Template source, defaults to the source recorded at install")
	cmd.Flags().StringVar(&f.version, "version", "", "Template version to update to (branch, tag, commit or HEAD), defaults to the latest release")
	cmd.Flags().StringArrayVar(&f.data, "data", nil, "Template answer in form KEY=VALUE (repeatable)")
	cmd.Flags().BoolVar(&f.answersOnly, "answers-only", false, "Re-render with new answers without changing the version")
	cmd.Flags().BoolVar(&f.force, "force", false, "Render from scratch instead of merging")
	cmd.MarkFlagsMutuallyExclusive("answers-only", "force")
	cmd.MarkFlagsMutuallyExclusive("answers-only", "version")
}

func (f *updateFlags) options() (engine.UpdateOptions, error) {
	data, err := parseData(f.data)
	if err != nil {
		return engine.UpdateOptions{}, err
	}
	version := f.version
	if !f.answersOnly {
		if version, err = templateVersion(f.version); err != nil {
			return engine.UpdateOptions{}, err
		}
	}
	return engine.UpdateOptions{
		TemplateURI: f.templateURI,
		Version:     version,
		Data:        data,
		AnswersOnly: f.answersOnly,
		Force:       f.force,
	}, nil
}

func init() {
	infraCmd.AddCommand(infraInstallCmd)
	infraCmd.AddCommand(infraAddAppCmd)
	infraCmd.AddCommand(infraUpdateCmd)
	infraCmd.AddCommand(infraUpdateBaseCmd)
	infraCmd.AddCommand(infraUpdateAppCmd)
	infraCmd.AddCommand(infraMigrateCmd)
	infraCmd.AddCommand(infraInfoCmd)
}
