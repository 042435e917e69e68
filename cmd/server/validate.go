package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/windowing/internal/domain/blueprint"
)

var errInvalid = errors.New("invalid blueprints")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file-or-dir...]",
		Short: "Check blueprint files without starting the server",
		Long: `Parses and validates every blueprint named. A directory is searched
recursively for yaml, json and toml files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expand(args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, file := range files {
				if err := validateFile(file); err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", file, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", file)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalid, failed, len(files))
			}
			return nil
		},
	}
}

func validateFile(path string) error {
	bp, err := blueprint.ParseFile(path)
	if err != nil {
		return err
	}
	return bp.Validate()
}

func expand(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(arg), blueprint.Pattern)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%s: %w", arg, fs.ErrNotExist)
		}
		for _, m := range matches {
			files = append(files, filepath.Join(arg, filepath.FromSlash(m)))
		}
	}
	return files, nil
}
