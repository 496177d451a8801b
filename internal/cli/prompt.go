package cli

import (
	"errors"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"
)

var (
	// ErrNotInteractive is returned when input is needed but stdin is not
	// a terminal.
	ErrNotInteractive = errors.New("input required but stdin is not a terminal")

	// ErrAborted is returned when the user interrupts a prompt.
	ErrAborted = errors.New("aborted")
)

// Prompter asks the user for input.
type Prompter interface {
	Input(message, help string, validate func(string) error) (string, error)
	Confirm(message string, def bool) (bool, error)
	MultiSelect(message string, options []string) ([]string, error)
}

// prompter is replaced in tests.
var prompter Prompter = &surveyPrompter{}

type surveyPrompter struct{}

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func (p *surveyPrompter) Input(message, help string, validate func(string) error) (string, error) {
	if !interactive() {
		return "", ErrNotInteractive
	}
	var out string
	prompt := &survey.Input{
		Message: message,
		Help:    help,
	}
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (p *surveyPrompter) Confirm(message string, def bool) (bool, error) {
	if !interactive() {
		return false, ErrNotInteractive
	}
	var out bool
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

func (p *surveyPrompter) MultiSelect(message string, options []string) ([]string, error) {
	if !interactive() {
		return nil, ErrNotInteractive
	}
	var out []string
	prompt := &survey.MultiSelect{
		Message: message,
		Options: options,
	}
	if err := survey.AskOne(prompt, &out, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, translateSurveyErr(err)
	}
	return out, nil
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
