package commands

import (
	"fmt"

	"github.com/TWChennai/gocd-git-path-material-plugin/internal/foundation/errors"
	"github.com/TWChennai/gocd-git-path-material-plugin/internal/material"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct{}

// MaterialProblem is one entry of the validate report.
type MaterialProblem struct {
	Material string `json:"material"`
	material.ValidationResult
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	problems := []MaterialProblem{}
	for i := range cfg.Materials {
		m := &cfg.Materials[i]
		repo, err := m.RepositoryConfig()
		if err != nil {
			problems = append(problems, MaterialProblem{Material: m.Name, ValidationResult: material.ValidationResult{Key: "shallow_clone", Message: err.Error()}})
			continue
		}
		if res := material.ValidateURL(repo); res != nil {
			problems = append(problems, MaterialProblem{Material: m.Name, ValidationResult: *res})
		}
	}
	if err := writeJSON(g.Out, problems); err != nil {
		return err
	}
	if len(problems) > 0 {
		return errors.ValidationError(fmt.Sprintf("%d material(s) failed validation", len(problems))).UserAction().Build()
	}
	return nil
}
