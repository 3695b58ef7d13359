// Package buildmeta invokes the workspace's build-metadata command as a
// child process and resolves the artifact path for a named (or sole)
// binary target. The child-process integration — spawn, pipe stdout,
// decode, wait — is the same shape as the teacher's only other external
// process collaborator, bots/chess/uci/uci.go's NewUCI/Start, reduced to
// a single request/response round trip instead of a long-lived session.
package buildmeta

import (
	"encoding/json"
	"os/exec"
	"path/filepath"

	"github.com/binspect/symasm/errors"
)

// DefaultCommand is the build-metadata command invoked when the caller
// doesn't override it. Its output is expected on stdout as JSON matching
// the Metadata shape below.
var DefaultCommand = []string{"cargo", "metadata", "--format-version=1", "--no-deps"}

// Target is one buildable unit within a package.
type Target struct {
	Name    string `json:"name"`
	Kind    []string `json:"kind"`
	SrcPath string `json:"src_path"`
}

// Package groups targets the metadata command reports under one workspace
// member.
type Package struct {
	Targets []Target `json:"targets"`
}

// Metadata is the subset of the build-metadata command's JSON output this
// package consumes: packages[*].targets[*].{name,kind,src_path} and
// target_directory.
type Metadata struct {
	Packages        []Package `json:"packages"`
	TargetDirectory string    `json:"target_directory"`
}

// Query runs command (or DefaultCommand when nil) with working directory
// dir and decodes its stdout as Metadata.
func Query(dir string, command []string) (*Metadata, error) {
	if len(command) == 0 {
		command = DefaultCommand
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Errorf(errors.IO, errors.BuildMetaExec, err)
	}

	var meta Metadata
	if err := json.Unmarshal(out, &meta); err != nil {
		return nil, errors.Errorf(errors.IO, errors.BuildMetaParse, err)
	}

	return &meta, nil
}

// SelectArtifact picks the binary target named bin, or the workspace's
// unique binary target if bin is empty, and resolves its compiled
// artifact path under profile ("debug" or "release").
func SelectArtifact(meta *Metadata, bin string, release bool) (string, error) {
	var bins []Target
	for _, pkg := range meta.Packages {
		for _, t := range pkg.Targets {
			if isBinary(t) {
				bins = append(bins, t)
			}
		}
	}

	if len(bins) == 0 {
		return "", errors.Errorf(errors.ArtifactNotFound, errors.NoBinaryTarget)
	}

	var chosen *Target
	if bin != "" {
		for i := range bins {
			if bins[i].Name == bin {
				chosen = &bins[i]
				break
			}
		}
		if chosen == nil {
			return "", errors.Errorf(errors.ArtifactNotFound, errors.TargetNotFound, bin)
		}
	} else if len(bins) == 1 {
		chosen = &bins[0]
	} else {
		names := make([]string, len(bins))
		for i, t := range bins {
			names[i] = t.Name
		}
		return "", errors.Errorf(errors.ArtifactNotFound, errors.AmbiguousTarget, names)
	}

	profile := "debug"
	if release {
		profile = "release"
	}

	return filepath.Join(meta.TargetDirectory, profile, chosen.Name), nil
}

func isBinary(t Target) bool {
	for _, k := range t.Kind {
		if k == "bin" {
			return true
		}
	}
	return false
}
