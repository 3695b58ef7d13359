// Command symasm resolves a (possibly mangled or fuzzy) symbol name to an
// annotated disassembly listing. Flag parsing and exit-code mapping use
// github.com/spf13/cobra, following the corpus's own Cobra CLIs (the ipsw
// disass command, pptrace's manifest) rather than the teacher's own
// modalflag package, which only covers flag-set "modes" this single
// command tool has no use for.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/binspect/symasm/buildmeta"
	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/logger"
	"github.com/binspect/symasm/object"
	"github.com/binspect/symasm/orchestrate"
)

type config struct {
	bin          string
	release      bool
	manifestPath string
	symsrc       string
	arch         string
	color        string
	noDemangle   bool
	verbosity    int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	var cfg config

	root := &cobra.Command{
		Use:   "symasm <symbol>",
		Short: "resolve a symbol to an annotated disassembly listing",
		Args:  cobra.ExactArgs(1),
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	root.Flags().StringVar(&cfg.bin, "bin", "", "binary target name, when the workspace has more than one")
	root.Flags().BoolVar(&cfg.release, "release", false, "select the release profile artifact")
	root.Flags().StringVar(&cfg.manifestPath, "manifest-path", ".", "build-metadata manifest location")
	root.Flags().StringVar(&cfg.symsrc, "symsrc", "auto", "symbol source: auto|object|dwarf|pdb|all")
	root.Flags().StringVar(&cfg.arch, "arch", "auto", "override architecture detection")
	root.Flags().StringVar(&cfg.color, "color", "auto", "colour mode: auto|always|never")
	root.Flags().BoolVar(&cfg.noDemangle, "no-demangle", false, "index symbols under their raw linkage name")
	root.Flags().CountVarP(&cfg.verbosity, "verbose", "v", "print the log to stderr after the run (-v; -vv and -vvv show the same)")

	exitCode := 0
	root.RunE = func(cmd *cobra.Command, argv []string) error {
		query := argv[0]
		code, err := execute(cmd, cfg, query)
		exitCode = code
		return err
	}

	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		if exitCode == 0 {
			exitCode = errors.KindOf(err).ExitCode()
		}
	}

	if cfg.verbosity > 0 {
		logger.Write(stderr)
	}

	return exitCode
}

func execute(cmd *cobra.Command, cfg config, query string) (int, error) {
	meta, err := buildmeta.Query(cfg.manifestPath, nil)
	if err != nil {
		return errors.KindOf(err).ExitCode(), err
	}

	artifact, err := buildmeta.SelectArtifact(meta, cfg.bin, cfg.release)
	if err != nil {
		return errors.KindOf(err).ExitCode(), err
	}
	if !artifactExists(artifact) {
		err := errors.Errorf(errors.ArtifactNotFound, errors.ArtifactMissing, artifact)
		return errors.KindOf(err).ExitCode(), err
	}

	symSrc, err := orchestrate.ParseSymSrc(cfg.symsrc)
	if err != nil {
		return errors.KindOf(err).ExitCode(), err
	}

	arch, err := parseArch(cfg.arch)
	if err != nil {
		return errors.KindOf(err).ExitCode(), err
	}

	req := orchestrate.Request{
		ArtifactPath: artifact,
		ArchOverride: arch,
		SymSrc:       symSrc,
		Query:        query,
		NoDemangle:   cfg.noDemangle,
		Color:        resolveColor(cfg.color, cmd.OutOrStdout()),
	}

	if cfg.verbosity > 0 {
		logger.Logf(logger.Allow, "cli", "resolved artifact %s, symsrc=%s", artifact, cfg.symsrc)
	}

	if err := orchestrate.Run(cmd.OutOrStdout(), req); err != nil {
		if errors.KindOf(err) == errors.AmbiguousMatch {
			printCandidates(cmd, req)
		}
		return errors.KindOf(err).ExitCode(), err
	}

	return 0, nil
}

// printCandidates re-runs the match in disambiguate mode to list every
// candidate within the top score band, for AMBIGUOUS_MATCH output.
func printCandidates(cmd *cobra.Command, req orchestrate.Request) {
	candidates, err := orchestrate.Candidates(req)
	if err != nil {
		return
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "%q matches more than one symbol:\n", req.Query)
	for _, c := range candidates {
		fmt.Fprintf(out, "  %#x %s\n", c.Symbol.Address, c.Symbol.Name)
	}
}

func artifactExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func parseArch(s string) (object.Arch, error) {
	if s == "" || s == "auto" {
		return object.ArchUnknown, nil
	}
	a := object.ParseArch(s)
	if a == object.ArchUnknown {
		return object.ArchUnknown, errors.Errorf(errors.BadObject, errors.InvalidArch, s)
	}
	return a, nil
}

func resolveColor(mode string, w interface{ Write([]byte) (int, error) }) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		return term.IsTerminal(int(f.Fd()))
	}
}
