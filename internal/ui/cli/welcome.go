package cli

import (
	"easierless/internal/core/config"
	"easierless/internal/engine/alias"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	ignore "github.com/sabhiram/go-gitignore"
)

// ShouldShowWelcomePrompt is true only for projects that want the notice,
// have not suppressed it and have no root files yet.
func ShouldShowWelcomePrompt(notice, suppress bool, files []string) bool {
	if !notice || suppress {
		return false
	}
	return len(files) == 0
}

// BuildWorkspaceMixinPaths turns picked absolute files into the specifiers
// stored in less.files. Missing files are dropped; without a workspace root
// paths are kept as given.
func BuildWorkspaceMixinPaths(paths []string, workspaceRoot string, aliases *alias.Config, exists func(string) bool) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" || !exists(p) {
			continue
		}
		if workspaceRoot == "" {
			out = append(out, p)
			continue
		}
		out = append(out, aliases.ToAliasOrWorkspaceRelativePath(p, workspaceRoot))
	}
	return out
}

var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".easierless":  true,
}

// DiscoverStylesheets lists files under root with extension ext, skipping
// whatever the root .gitignore ignores.
func DiscoverStylesheets(root, ext string) ([]string, error) {
	var matcher *ignore.GitIgnore
	if m, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		matcher = m
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if skippedDirs[d.Name()] || (matcher != nil && (matcher.MatchesPath(rel) || matcher.MatchesPath(rel+"/"))) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		if matcher != nil && matcher.MatchesPath(rel) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	sort.Strings(out)
	return out, err
}

const (
	choicePick     = "pick"
	choiceSuppress = "suppress"
	choiceLater    = "later"
)

// runInit asks which root stylesheets to use and writes the answer back to
// the config file.
func runInit(cfg *config.Config, cfgPath string, aliases *alias.Config) error {
	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("First run: choose your mixin files").
				Description("Root stylesheets are indexed for hover, completion and auto-import").
				Options(
					huh.NewOption("Choose files", choicePick),
					huh.NewOption("Don't remind me again", choiceSuppress),
					huh.NewOption("Later", choiceLater),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	switch choice {
	case choiceSuppress:
		if err := config.SaveSuppressNotice(cfgPath, true); err != nil {
			return err
		}
		fmt.Println("Notice suppressed for this project.")
		return nil
	case choiceLater:
		return nil
	}

	candidates, err := DiscoverStylesheets(cfg.ProjectRoot, cfg.Less.DefaultExtension)
	if err != nil {
		return fmt.Errorf("discover stylesheets: %w", err)
	}
	if len(candidates) == 0 {
		fmt.Printf("No %s files found under %s.\n", cfg.Less.DefaultExtension, cfg.ProjectRoot)
		return nil
	}

	options := make([]huh.Option[string], 0, len(candidates))
	for _, c := range candidates {
		label := aliases.ToAliasOrWorkspaceRelativePath(c, cfg.ProjectRoot)
		options = append(options, huh.NewOption(label, c))
	}
	var picked []string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Mixin files").
				Options(options...).
				Value(&picked),
		),
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	files := BuildWorkspaceMixinPaths(picked, cfg.ProjectRoot, aliases, fileExists)
	if len(files) == 0 {
		return nil
	}
	if err := config.SaveFiles(cfgPath, files); err != nil {
		return err
	}
	fmt.Printf("Saved %d file(s) to %s\n", len(files), cfgPath)
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
