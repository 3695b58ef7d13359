package buildmeta

import (
	"testing"

	"github.com/binspect/symasm/errors"
	"github.com/binspect/symasm/test"
)

func sampleMetadata() *Metadata {
	return &Metadata{
		TargetDirectory: "/work/target",
		Packages: []Package{
			{Targets: []Target{
				{Name: "app", Kind: []string{"bin"}, SrcPath: "/work/src/main.rs"},
				{Name: "libcore", Kind: []string{"lib"}, SrcPath: "/work/src/lib.rs"},
			}},
		},
	}
}

func TestSelectArtifactUsesSoleBinary(t *testing.T) {
	path, err := SelectArtifact(sampleMetadata(), "", false)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, path, "/work/target/debug/app")
}

func TestSelectArtifactHonoursReleaseProfile(t *testing.T) {
	path, err := SelectArtifact(sampleMetadata(), "", true)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, path, "/work/target/release/app")
}

func TestSelectArtifactNoBinaryTargets(t *testing.T) {
	meta := &Metadata{
		TargetDirectory: "/work/target",
		Packages: []Package{
			{Targets: []Target{{Name: "libcore", Kind: []string{"lib"}}}},
		},
	}
	_, err := SelectArtifact(meta, "", false)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.ArtifactNotFound)
}

func TestSelectArtifactAmbiguousWithoutBinFlag(t *testing.T) {
	meta := &Metadata{
		TargetDirectory: "/work/target",
		Packages: []Package{
			{Targets: []Target{
				{Name: "app", Kind: []string{"bin"}},
				{Name: "tool", Kind: []string{"bin"}},
			}},
		},
	}
	_, err := SelectArtifact(meta, "", false)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.ArtifactNotFound)
}

func TestSelectArtifactBinFlagPicksNamedTarget(t *testing.T) {
	meta := &Metadata{
		TargetDirectory: "/work/target",
		Packages: []Package{
			{Targets: []Target{
				{Name: "app", Kind: []string{"bin"}},
				{Name: "tool", Kind: []string{"bin"}},
			}},
		},
	}
	path, err := SelectArtifact(meta, "tool", false)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, path, "/work/target/debug/tool")
}

func TestSelectArtifactUnknownBinName(t *testing.T) {
	_, err := SelectArtifact(sampleMetadata(), "nonexistent", false)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.ArtifactNotFound)
}

func TestQueryDecodesCommandStdout(t *testing.T) {
	script := `echo '{"packages":[{"targets":[{"name":"app","kind":["bin"],"src_path":"/x/main.rs"}]}],"target_directory":"/x/target"}'`
	meta, err := Query(".", []string{"sh", "-c", script})
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, meta.TargetDirectory, "/x/target")
	test.ExpectEquality(t, len(meta.Packages[0].Targets), 1)
}

func TestQueryReportsExecFailure(t *testing.T) {
	_, err := Query(".", []string{"sh", "-c", "exit 1"})
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.IO)
}

func TestQueryReportsParseFailure(t *testing.T) {
	_, err := Query(".", []string{"sh", "-c", "echo not-json"})
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, errors.KindOf(err), errors.IO)
}
