package architecture_test

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Lower layers never reach upward. Each rule lists the package trees that
// belong to a layer and the internal trees they must not import.
var layerRules = []struct {
	name   string
	owns   []string
	denies []string
}{
	{
		name: "platform",
		owns: []string{"platform"},
		denies: []string{"data", "domain", "ingestion", "normalization", "reconcile", "mirrorsync",
			"pipeline", "services", "jobs", "realtime", "http", "app"},
	},
	{
		name:   "core",
		owns:   []string{"data", "ingestion", "normalization", "reconcile", "mirrorsync"},
		denies: []string{"pipeline", "services", "jobs", "realtime", "http", "app"},
	},
	{
		name:   "pipeline",
		owns:   []string{"pipeline"},
		denies: []string{"services", "jobs", "realtime", "http", "app"},
	},
	{
		name:   "service",
		owns:   []string{"jobs", "services", "realtime"},
		denies: []string{"http", "app"},
	},
}

func TestImportBoundaries(t *testing.T) {
	root := moduleRoot(t)
	modulePath := modulePathOf(t, filepath.Join(root, "go.mod"))
	fset := token.NewFileSet()

	var problems []string
	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		rel, err := filepath.Rel(filepath.Join(root, "internal"), path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		top := strings.SplitN(rel, "/", 2)[0]

		for _, rule := range layerRules {
			if !contains(rule.owns, top) {
				continue
			}
			f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
			if err != nil {
				return err
			}
			for _, spec := range f.Imports {
				imp, err := strconv.Unquote(spec.Path.Value)
				if err != nil || !strings.HasPrefix(imp, modulePath+"/internal/") {
					continue
				}
				target := strings.SplitN(strings.TrimPrefix(imp, modulePath+"/internal/"), "/", 2)[0]
				if contains(rule.denies, target) {
					problems = append(problems, fmt.Sprintf("%s layer: internal/%s imports %s", rule.name, rel, imp))
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal: %v", err)
	}
	if len(problems) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(problems, "\n"))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above working directory")
		}
		dir = parent
	}
}

func modulePathOf(t *testing.T, goMod string) string {
	t.Helper()
	raw, err := os.ReadFile(goMod)
	if err != nil {
		t.Fatalf("read go.mod: %v", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if mp, ok := strings.CutPrefix(strings.TrimSpace(line), "module "); ok {
			return strings.TrimSpace(mp)
		}
	}
	t.Fatalf("module directive missing from %s", goMod)
	return ""
}
