// Package filetree maps a (root, iteration, split) triple onto the
// directories a sweep reads from and writes to.
package filetree

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// SplitsPerRoot is the number of splits stored under each root before the
// next root is used.
const SplitsPerRoot = 128

type Provider interface {
	SplitsDir(root, iteration, split int) (string, error)
	ResultsDir(root, iteration, split int) (string, error)
	ArtifactsDir(root, iteration, split int) (string, error)
	ArchiveDir(root, iteration, split int) (string, error)
}

// RootFor returns the root identity that holds split.
func RootFor(split int) int {
	if split < SplitsPerRoot {
		return 0
	}
	return 1
}

// BatchFile is the input batch path of split inside its splits directory.
func BatchFile(splitsDir string, split int, ext string) string {
	return filepath.Join(splitsDir, fmt.Sprintf("split_%d%s", split, ext))
}

// ResultsFile is the output results path of split inside its results
// directory.
func ResultsFile(resultsDir string, split int, ext string) string {
	return filepath.Join(resultsDir, fmt.Sprintf("results_%d%s", split, ext))
}

// Tree lays directories out as
// <roots[root]>/iteration_<i>/{splits,results/split_<s>,sims/split_<s>/{runs,archives}}.
type Tree struct {
	roots []string
}

func New(roots ...string) (*Tree, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one root directory is required")
	}
	for i, root := range roots {
		if root == "" {
			return nil, fmt.Errorf("root directory %d is empty", i)
		}
	}
	return &Tree{roots: append([]string(nil), roots...)}, nil
}

func (t *Tree) iterationDir(root, iteration int) (string, error) {
	if root < 0 || root >= len(t.roots) {
		return "", fmt.Errorf("root identity %d not configured (have %d roots)", root, len(t.roots))
	}
	if iteration < 0 {
		return "", fmt.Errorf("iteration must be >= 0")
	}
	return filepath.Join(t.roots[root], "iteration_"+strconv.Itoa(iteration)), nil
}

func (t *Tree) splitDir(root, iteration, split int, parts ...string) (string, error) {
	base, err := t.iterationDir(root, iteration)
	if err != nil {
		return "", err
	}
	if split < 0 {
		return "", fmt.Errorf("split must be >= 0")
	}
	elems := append([]string{base}, parts[0], "split_"+strconv.Itoa(split))
	return filepath.Join(append(elems, parts[1:]...)...), nil
}

func (t *Tree) SplitsDir(root, iteration, _ int) (string, error) {
	base, err := t.iterationDir(root, iteration)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "splits"), nil
}

func (t *Tree) ResultsDir(root, iteration, split int) (string, error) {
	return t.splitDir(root, iteration, split, "results")
}

func (t *Tree) ArtifactsDir(root, iteration, split int) (string, error) {
	return t.splitDir(root, iteration, split, "sims", "runs")
}

func (t *Tree) ArchiveDir(root, iteration, split int) (string, error) {
	return t.splitDir(root, iteration, split, "sims", "archives")
}

// Paths are the resolved directories of one split.
type Paths struct {
	Splits    string
	Results   string
	Artifacts string
	Archives  string
}

// Resolve looks up every directory of split and, when create is set, makes
// sure the output directories exist.
func Resolve(p Provider, iteration, split int, create bool) (Paths, error) {
	root := RootFor(split)
	var (
		out Paths
		err error
	)
	if out.Splits, err = p.SplitsDir(root, iteration, split); err != nil {
		return Paths{}, fmt.Errorf("splits dir: %w", err)
	}
	if out.Results, err = p.ResultsDir(root, iteration, split); err != nil {
		return Paths{}, fmt.Errorf("results dir: %w", err)
	}
	if out.Artifacts, err = p.ArtifactsDir(root, iteration, split); err != nil {
		return Paths{}, fmt.Errorf("artifacts dir: %w", err)
	}
	if out.Archives, err = p.ArchiveDir(root, iteration, split); err != nil {
		return Paths{}, fmt.Errorf("archive dir: %w", err)
	}
	if !create {
		return out, nil
	}
	for _, dir := range []string{out.Results, out.Artifacts, out.Archives} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return out, nil
}
