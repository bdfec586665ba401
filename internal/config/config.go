// Package config assembles the settings the command line front end passes
// to the preprocessor: include directories, output names and the optional
// YAML project file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/fwessels/cpreproc/internal/preprocessor"
	"github.com/fwessels/cpreproc/internal/report"
)

// IncludeEnv names the environment variable holding extra include
// directories, separated by os.PathListSeparator.
const IncludeEnv = "INCLUDE"

// OutputSuffix replaces the extension of an input to name its output.
const OutputSuffix = ".p.c"

// File is the YAML project file.
type File struct {
	Include     []string `yaml:"include,omitempty"`
	Define      []string `yaml:"define,omitempty"`
	OutputDir   string   `yaml:"output_dir,omitempty"`
	Overwrite   bool     `yaml:"overwrite,omitempty"`
	MultiThread bool     `yaml:"multi_thread,omitempty"`
	ShowLevel   string   `yaml:"show_level,omitempty"`
}

// Load reads a project file. Relative include and output directories are
// taken relative to the file itself.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var f File
	if err := yaml.UnmarshalStrict(content, &f); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, dir := range f.Include {
		f.Include[i] = relativeTo(base, dir)
	}
	if f.OutputDir != "" {
		f.OutputDir = relativeTo(base, f.OutputDir)
	}
	if f.ShowLevel != "" {
		if _, err := report.ParseLevel(f.ShowLevel); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return &f, nil
}

func relativeTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// SplitList splits every entry on the path list separator.
func SplitList(entries []string) []string {
	var out []string
	for _, e := range entries {
		out = append(out, filepath.SplitList(e)...)
	}
	return out
}

// IncludeDirs returns the explicit directories followed by those listed
// in env. Empty entries are dropped, and so are directories that do not
// exist, each with a warning.
func IncludeDirs(explicit []string, env string, log preprocessor.Logger) []string {
	all := append(SplitList(explicit), filepath.SplitList(env)...)
	var dirs []string
	for _, dir := range all {
		if dir == "" {
			continue
		}
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			if log != nil {
				log.Logf(report.Warning, "include directory (%s) not found", dir)
			}
			continue
		}
		dirs = append(dirs, dir)
	}
	return dirs
}

// OutputName picks where the expansion of input goes: outFile when set,
// else <stem>.p.c in outDir or next to the input.
func OutputName(input, outFile, outDir string) string {
	if outFile != "" {
		return outFile
	}
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, stem+OutputSuffix)
}

// CheckOutput refuses to replace an existing file unless overwrite is set.
func CheckOutput(path string, overwrite bool, log preprocessor.Logger) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if !overwrite {
		return fmt.Errorf("file(%s) existed, require overwrite", path)
	}
	if log != nil {
		log.Logf(report.Information, "required overwrite file(%s)", path)
	}
	return nil
}

// ExpandInputs expands arguments holding '*' or '?' against the file
// system; other arguments are kept as given.
func ExpandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.ContainsAny(arg, "*?") {
			out = append(out, arg)
			continue
		}
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no input matches %s", arg)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// Target pairs an input with the file its expansion is written to.
type Target struct {
	Input  string
	Output string
}

// Plan derives the targets for inputs. Inputs not named *.c only draw a
// warning; an explicit output file is rejected for more than one input.
// Inputs whose output exists and may not be replaced are reported and
// left out.
func Plan(inputs []string, outFile, outDir string, overwrite bool, log preprocessor.Logger) ([]Target, error) {
	if outFile != "" && len(inputs) > 1 {
		return nil, fmt.Errorf("output file name shall not used in multi inputs")
	}
	var targets []Target
	for _, in := range inputs {
		if !strings.EqualFold(filepath.Ext(in), ".c") && log != nil {
			log.Logf(report.Warning, "file(%s) may not a c file", in)
		}
		out := OutputName(in, outFile, outDir)
		if err := CheckOutput(out, overwrite, log); err != nil {
			if log != nil {
				log.Logf(report.Error, "%v", err)
			}
			continue
		}
		targets = append(targets, Target{Input: in, Output: out})
	}
	return targets, nil
}
