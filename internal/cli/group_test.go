package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/cfgroup/cfgroup/pkg/annotate"
	"github.com/cfgroup/cfgroup/pkg/flowgraph"
)

// writeChainFile writes 0 -> 1 -> 2 -> 3 to a temp graph.json.
func writeChainFile(t *testing.T) string {
	t.Helper()
	g, err := flowgraph.New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {2, 3}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := flowgraph.WriteFile(g, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// runCommand executes the root command with the given args.
func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, log.FatalLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.Execute()
}

func TestGroupCommand(t *testing.T) {
	graphPath := writeChainFile(t)
	outPath := filepath.Join(t.TempDir(), "out.dot")

	err := runCommand(t, "group", graphPath, "1",
		"--label", "tail", "--no-cache", "-f", "dot", "-o", outPath)
	if err != nil {
		t.Fatalf("group command: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	dot := string(data)
	if !strings.Contains(dot, "digraph") {
		t.Error("output should be a DOT graph")
	}
	if !strings.Contains(dot, "tail") {
		t.Error("output should contain the group label")
	}
}

func TestGroupCommandDryRun(t *testing.T) {
	graphPath := writeChainFile(t)

	err := runCommand(t, "group", graphPath, "1", "--dry-run", "--no-cache")
	if err != nil {
		t.Fatalf("group --dry-run: %v", err)
	}

	// Dry run must not write next to the input
	base := strings.TrimSuffix(graphPath, filepath.Ext(graphPath))
	if _, err := os.Stat(base + ".dot"); !os.IsNotExist(err) {
		t.Error("dry run should not write artifacts")
	}
}

func TestGroupCommandMissingLabel(t *testing.T) {
	graphPath := writeChainFile(t)

	err := runCommand(t, "group", graphPath, "1", "--no-cache")
	if err == nil {
		t.Fatal("expected error without --label")
	}
}

func TestGroupCommandBoundaryStart(t *testing.T) {
	graphPath := writeChainFile(t)

	annPath := filepath.Join(t.TempDir(), "notes.toml")
	a := annotate.New()
	if err := a.Mark(1, annotate.DefaultMarker); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if err := annotate.Save(a, annPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	err := runCommand(t, "group", graphPath, "1",
		"--label", "tail", "--no-cache", "-a", annPath)
	if err == nil {
		t.Fatal("expected error for boundary start")
	}
	if !strings.Contains(err.Error(), "BOUNDARY_START") {
		t.Errorf("error should carry the BOUNDARY_START code: %v", err)
	}
}

func TestSolveCommand(t *testing.T) {
	graphPath := writeChainFile(t)
	outPath := filepath.Join(t.TempDir(), "doms.json")

	err := runCommand(t, "solve", graphPath, "--no-cache", "-o", outPath)
	if err != nil {
		t.Fatalf("solve command: %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("solve should write %s: %v", outPath, err)
	}
}

func TestAnnotateCommands(t *testing.T) {
	annPath := filepath.Join(t.TempDir(), "notes.toml")

	if err := runCommand(t, "annotate", "set", annPath, "3", "loop head"); err != nil {
		t.Fatalf("annotate set: %v", err)
	}
	if err := runCommand(t, "annotate", "mark", annPath, "3"); err != nil {
		t.Fatalf("annotate mark: %v", err)
	}

	a, err := annotate.Load(annPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !a.HasMarker(3, annotate.DefaultMarker) {
		t.Error("node 3 should carry the marker after mark")
	}
	comment, ok := a.Comment(3)
	if !ok || !strings.Contains(comment, "loop head") {
		t.Errorf("comment = %q, should keep the original text", comment)
	}

	if err := runCommand(t, "annotate", "unmark", annPath, "3"); err != nil {
		t.Fatalf("annotate unmark: %v", err)
	}
	a, err = annotate.Load(annPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.HasMarker(3, annotate.DefaultMarker) {
		t.Error("node 3 should not carry the marker after unmark")
	}

	if err := runCommand(t, "annotate", "clear", annPath, "3"); err != nil {
		t.Fatalf("annotate clear: %v", err)
	}
	a, err = annotate.Load(annPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("store should be empty after clear, has %d", a.Len())
	}
}
