package architecture_test

import (
	"go/parser"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"
)

const (
	modulePrefix   = "studytrack/internal/modules/"
	platformPrefix = "studytrack/internal/platform/"
)

var layers = []string{"adapter/in", "adapter/out", "usecase", "service", "domain", "port/in", "port/out", "dto"}

// ioPlatform packages touch disk or network and belong behind output ports.
var ioPlatform = map[string]bool{"kv": true, "syncclient": true, "notify": true, "markdown": true, "slug": true}

type source struct {
	module string
	layer  string
}

func TestModuleImportsRespectLayers(t *testing.T) {
	t.Parallel()
	fset := token.NewFileSet()
	root := filepath.Join("..", "modules")
	err := filepath.WalkDir(root, func(file string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(file, ".go") || strings.HasSuffix(file, "_test.go") {
			return nil
		}
		src, ok := classify(filepath.ToSlash(file))
		if !ok {
			return nil
		}
		node, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, imp := range node.Imports {
			importPath := strings.Trim(imp.Path.Value, `"`)
			if reason := violation(src, importPath); reason != "" {
				t.Errorf("%s: %s imports %s: %s", file, src.layer, importPath, reason)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk modules: %v", err)
	}
}

func TestViolationRules(t *testing.T) {
	t.Parallel()
	cases := []struct {
		from   source
		imp    string
		reject bool
	}{
		{source{"session", "adapter/out"}, modulePrefix + "outbox/port/in", false},
		{source{"session", "adapter/out"}, modulePrefix + "outbox/usecase", true},
		{source{"tracker", "usecase"}, modulePrefix + "session/dto", false},
		{source{"tracker", "usecase"}, modulePrefix + "session/domain", true},
		{source{"progress", "adapter/in"}, modulePrefix + "progress/service", true},
		{source{"progress", "usecase"}, platformPrefix + "kv", true},
		{source{"progress", "adapter/out"}, platformPrefix + "kv", false},
		{source{"session", "domain"}, platformPrefix + "errors", false},
		{source{"outbox", "service"}, "github.com/rs/zerolog", false},
	}
	for _, tc := range cases {
		got := violation(tc.from, tc.imp) != ""
		if got != tc.reject {
			t.Fatalf("%s/%s importing %s: rejected=%v, want %v", tc.from.module, tc.from.layer, tc.imp, got, tc.reject)
		}
	}
}

// classify maps ../modules/<module>/<layer>/file.go to its module and layer.
func classify(file string) (source, bool) {
	_, rest, ok := strings.Cut(file, "modules/")
	if !ok {
		return source{}, false
	}
	module, rest, ok := strings.Cut(rest, "/")
	if !ok {
		return source{}, false
	}
	dir := path.Dir(rest)
	for _, layer := range layers {
		if dir == layer || strings.HasPrefix(dir, layer+"/") {
			return source{module: module, layer: layer}, true
		}
	}
	return source{}, false
}

func violation(src source, importPath string) string {
	if pkg, ok := strings.CutPrefix(importPath, platformPrefix); ok {
		if ioPlatform[strings.Split(pkg, "/")[0]] && src.layer != "adapter/out" {
			return "I/O platform packages are only for output adapters"
		}
		return ""
	}
	rest, ok := strings.CutPrefix(importPath, modulePrefix)
	if !ok {
		return ""
	}
	module, target, _ := strings.Cut(rest, "/")
	if module != src.module {
		if target == "port/in" || target == "dto" {
			return ""
		}
		return "other modules are reachable only through port/in and dto"
	}

	switch src.layer {
	case "adapter/in":
		if target != "port/in" && target != "dto" {
			return "input adapters talk to the usecase port only"
		}
	case "usecase":
		if strings.HasPrefix(target, "adapter/") {
			return "usecases must not depend on adapters"
		}
	case "service":
		if strings.HasPrefix(target, "adapter/") || target == "usecase" {
			return "services sit below usecases and adapters"
		}
	case "domain", "dto":
		if target != "domain" {
			return "domain and dto depend on nothing but the domain"
		}
	}
	return ""
}
