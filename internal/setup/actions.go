package setup

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/druxit/models"
)

// InitAction interactively creates or updates the settings file.
func InitAction(c *cli.Context) error {
	path := c.String("settings")
	s, err := models.LoadSettings(path)
	if err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Select{
		Message: "Database driver:",
		Options: []string{"mysql", "sqlite"},
		Default: s.Driver,
	}, &s.Driver); err != nil {
		return err
	}
	if s.Driver == "mysql" {
		if err := survey.AskOne(&survey.Input{Message: "Host:", Default: s.Host}, &s.Host); err != nil {
			return err
		}
	}
	if err := survey.AskOne(&survey.Input{Message: "Database name:", Default: s.Database}, &s.Database, survey.WithValidator(survey.Required)); err != nil {
		return err
	}
	if s.Driver == "mysql" {
		if err := survey.AskOne(&survey.Input{Message: "Username:", Default: s.User}, &s.User, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Password{Message: "Password (leave empty to be prompted each run):"}, &s.Password); err != nil {
			return err
		}
	}

	var types string
	if err := survey.AskOne(&survey.Input{
		Message: "Content types to export (comma separated):",
		Default: strings.Join(s.Types, ","),
	}, &types); err != nil {
		return err
	}
	s.Types = splitList(types)

	var containers string
	if err := survey.AskOne(&survey.Input{
		Message: "Container content types (comma separated):",
		Default: strings.Join(s.ContainerTypes, ","),
	}, &containers); err != nil {
		return err
	}
	s.ContainerTypes = splitList(containers)

	if err := survey.AskOne(&survey.Input{Message: "Output directory:", Default: s.OutputDir}, &s.OutputDir); err != nil {
		return err
	}

	if err := s.Save(path); err != nil {
		return err
	}
	fmt.Printf("Settings saved to %s\n", path)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
