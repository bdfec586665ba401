package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fwessels/cpreproc"
	"github.com/fwessels/cpreproc/internal/config"
	"github.com/fwessels/cpreproc/internal/report"
)

type flags struct {
	multiThread bool
	showLevel   string
	outputDir   string
	outputFile  string
	overwrite   bool
	includes    []string
	defines     []string
	configFile  string
	noColor     bool
}

func newRootCmd(stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "cpreproc [options...] [c files...]",
		Short: "A C preprocessor",
		Long: `cpreproc expands #include, #define and conditional blocks of C source
files. The result of <name>.c is written to <name>.p.c, next to the input
or in the output directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return run(cmd, f, args, stderr)
		},
	}
	fl := cmd.Flags()
	fl.BoolVarP(&f.multiThread, "multi-thread", "m", false, "preprocess the input files concurrently")
	fl.StringVarP(&f.showLevel, "show-level", "s", report.DefaultLevel.String(), "least level shown (verbose|detail|information|warning|error|critical)")
	fl.StringVarP(&f.outputDir, "output-directory", "o", "", "output directory")
	fl.StringVarP(&f.outputFile, "output-file", "O", "", "output file name, for a single input")
	fl.BoolVarP(&f.overwrite, "overwrite", "f", false, "force overwrite of existing outputs")
	fl.StringArrayVarP(&f.includes, "include-path", "i", nil, "add include directories, separated by the path list separator")
	fl.StringArrayVarP(&f.defines, "define", "D", nil, "define NAME or NAME=VALUE before preprocessing")
	fl.StringVarP(&f.configFile, "config", "c", "", "YAML project file")
	fl.BoolVar(&f.noColor, "no-color", false, "print level prefixes without color")
	return cmd
}

func run(cmd *cobra.Command, f flags, args []string, stderr io.Writer) error {
	var file config.File
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return err
		}
		file = *loaded
	}

	levelName := f.showLevel
	if !cmd.Flags().Changed("show-level") && file.ShowLevel != "" {
		levelName = file.ShowLevel
	}
	level, err := report.ParseLevel(levelName)
	if err != nil {
		return err
	}
	rep := report.New(stderr, level)
	rep.SetColor(!f.noColor)

	outputDir := f.outputDir
	if outputDir == "" {
		outputDir = file.OutputDir
	}
	includes := config.IncludeDirs(append(file.Include, f.includes...), os.Getenv(config.IncludeEnv), rep)

	inputs, err := config.ExpandInputs(args)
	if err != nil {
		return err
	}
	targets, err := config.Plan(inputs, f.outputFile, outputDir, f.overwrite || file.Overwrite, rep)
	if err != nil {
		return err
	}

	jobs := make([]cpreproc.Job, 0, len(targets))
	for _, t := range targets {
		jobs = append(jobs, cpreproc.Job{Input: t.Input, Output: t.Output})
	}
	opts := cpreproc.Options{
		IncludeDirs: includes,
		Defines:     append(file.Define, f.defines...),
		Logger:      rep,
	}
	failed := 0
	for _, res := range cpreproc.PreprocessFiles(jobs, opts, f.multiThread || file.MultiThread) {
		if res.Err != nil {
			rep.Report(report.Error, res.Err)
			failed++
			continue
		}
		rep.Logf(report.Detail, "wrote %s", res.Job.Output)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(inputs))
	}
	return nil
}

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
