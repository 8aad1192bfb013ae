package architecture_test

import (
	"bufio"
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

type violation struct {
	file string
	imp  string
	rule string
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)
	violations := walkImports(t, root, func(rel, imp string, isTest bool) string {
		for _, bad := range disallowedImports(modulePath, layerFor(rel)) {
			if imp == bad || strings.HasPrefix(imp, bad+"/") {
				return bad
			}
		}
		return ""
	})
	report(t, "import boundary violations", violations)
}

// Handlers talk to services only; repos and the db layer stay behind the service interfaces.
func TestHTTPReachesDataOnlyThroughServices(t *testing.T) {
	root, modulePath := moduleRoot(t)
	data := modulePath + "/internal/data"
	violations := walkImports(t, root, func(rel, imp string, isTest bool) string {
		if isTest || !strings.HasPrefix(rel, "internal/http/") {
			return ""
		}
		if imp == data || strings.HasPrefix(imp, data+"/") {
			return data
		}
		return ""
	})
	report(t, "internal/http imports internal/data outside tests (go through internal/services)", violations)
}

func layerFor(rel string) string {
	switch {
	case strings.HasPrefix(rel, "internal/domain/"):
		return "domain"
	case strings.HasPrefix(rel, "internal/pkg/"):
		return "pkg"
	case strings.HasPrefix(rel, "internal/platform/"):
		return "platform"
	case strings.HasPrefix(rel, "internal/data/"):
		return "data"
	case strings.HasPrefix(rel, "internal/modules/"):
		return "modules"
	case strings.HasPrefix(rel, "internal/jobs/"):
		return "jobs"
	case strings.HasPrefix(rel, "internal/services/"):
		return "services"
	case strings.HasPrefix(rel, "internal/temporalx/"):
		return "temporalx"
	case strings.HasPrefix(rel, "internal/realtime/"):
		return "realtime"
	default:
		return ""
	}
}

func disallowedImports(modulePath string, layer string) []string {
	in := func(pkgs ...string) []string {
		out := make([]string, 0, len(pkgs))
		for _, p := range pkgs {
			out = append(out, modulePath+"/internal/"+p)
		}
		return out
	}
	switch layer {
	case "domain":
		return in("pkg", "platform", "data", "modules", "jobs", "services", "realtime", "temporalx", "http", "app")
	case "pkg":
		return in("platform", "data", "modules", "jobs", "services", "realtime", "temporalx", "http", "app")
	case "platform":
		return in("data", "modules", "jobs", "services", "realtime", "temporalx", "http", "app")
	case "data":
		return in("modules", "jobs", "services", "realtime", "temporalx", "http", "app")
	case "modules":
		return in("services", "temporalx", "http", "app")
	case "jobs":
		return in("modules", "services", "temporalx", "http", "app")
	case "services":
		return in("temporalx", "http", "app")
	case "temporalx":
		return in("data", "modules", "services", "realtime", "http", "app")
	case "realtime":
		return in("temporalx", "http", "app")
	default:
		return nil
	}
}

func walkImports(t *testing.T, root string, check func(rel, imp string, isTest bool) string) []violation {
	t.Helper()
	fset := token.NewFileSet()
	var violations []violation
	walkErr := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache":
				return filepath.SkipDir
			default:
				return nil
			}
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		isTest := strings.HasSuffix(path, "_test.go")
		for _, spec := range f.Imports {
			if spec == nil || spec.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			if rule := check(rel, imp, isTest); rule != "" {
				violations = append(violations, violation{file: rel, imp: imp, rule: rule})
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}
	return violations
}

func report(t *testing.T, title string, violations []violation) {
	t.Helper()
	if len(violations) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(title + ":\n")
	for _, v := range violations {
		fmt.Fprintf(&b, "- %s imports %q (disallowed: %q)\n", v.file, v.imp, v.rule)
	}
	t.Fatal(b.String())
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return root, modulePath
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
