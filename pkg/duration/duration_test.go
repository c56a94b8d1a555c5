package duration_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cyberph/posture/pkg/duration"
)

func TestSince(t *testing.T) {
	now := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		d    time.Duration
		want bool
	}{
		{"zero time", time.Time{}, duration.StaleProgress, false},
		{"fresh", now.Add(-duration.Day), duration.StaleProgress, false},
		{"exactly at bound", now.Add(-duration.StaleProgress), duration.StaleProgress, false},
		{"stale", now.Add(-duration.StaleProgress - time.Hour), duration.StaleProgress, true},
		{"review due", now.AddDate(-1, 0, -1), duration.ReviewCycle, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := duration.Since(tt.t, now, tt.d); got != tt.want {
				t.Errorf("Since(%v, %v) = %v, want %v", tt.t, tt.d, got, tt.want)
			}
		})
	}
}

// TestNoHardcodedDurations ensures duration-carrying arguments and fields use
// duration.* constants. UI animation timing in spinners.go is exempt.
func TestNoHardcodedDurations(t *testing.T) {
	names := map[string]bool{
		"Timeout":       true,
		"Interval":      true,
		"Delay":         true,
		"SignalContext": true,
	}
	violations := findHardcodedDurations(t, names, []string{
		"duration.go",
		"_test.go",
		"spinners.go",
	})

	if len(violations) > 0 {
		t.Errorf("Found %d hardcoded durations. Use duration.* instead:", len(violations))
		for _, v := range violations {
			t.Errorf("  %s", v)
		}
	}
}

// findHardcodedDurations walks pkg/ and cmd/ for fields, assignments and call
// arguments named in names that receive a literal time.Duration expression.
func findHardcodedDurations(t *testing.T, names map[string]bool, excludePatterns []string) []string {
	t.Helper()

	var violations []string
	root := findProjectRoot(t)

	for _, dir := range []string{"pkg", "cmd"} {
		dirPath := filepath.Join(root, dir)
		if _, err := os.Stat(dirPath); os.IsNotExist(err) {
			continue
		}

		err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			for _, pattern := range excludePatterns {
				if strings.Contains(path, pattern) {
					return nil
				}
			}

			fset := token.NewFileSet()
			node, err := parser.ParseFile(fset, path, nil, 0)
			if err != nil {
				return nil
			}

			report := func(expr ast.Expr, name string) {
				pos := fset.Position(expr.Pos())
				relPath, _ := filepath.Rel(root, pos.Filename)
				violations = append(violations, relPath+":"+strconv.Itoa(pos.Line)+": "+name+" = <hardcoded duration>")
			}

			ast.Inspect(node, func(n ast.Node) bool {
				switch n := n.(type) {
				case *ast.KeyValueExpr:
					// Interval: 80 * time.Millisecond
					if ident, ok := n.Key.(*ast.Ident); ok && names[ident.Name] && isHardcodedDuration(n.Value) {
						report(n.Value, ident.Name)
					}
				case *ast.AssignStmt:
					// cfg.Timeout = 30 * time.Second
					for i, lhs := range n.Lhs {
						if sel, ok := lhs.(*ast.SelectorExpr); ok && names[sel.Sel.Name] && i < len(n.Rhs) && isHardcodedDuration(n.Rhs[i]) {
							report(n.Rhs[i], sel.Sel.Name)
						}
					}
				case *ast.CallExpr:
					// cli.SignalContext(5 * time.Second)
					if sel, ok := n.Fun.(*ast.SelectorExpr); ok && names[sel.Sel.Name] {
						for _, arg := range n.Args {
							if isHardcodedDuration(arg) {
								report(arg, sel.Sel.Name)
							}
						}
					}
				}
				return true
			})
			return nil
		})
		if err != nil {
			t.Logf("Warning: error walking %s: %v", dir, err)
		}
	}

	return violations
}

// isHardcodedDuration matches N * time.Second and friends.
func isHardcodedDuration(expr ast.Expr) bool {
	binExpr, ok := expr.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	if _, ok := binExpr.X.(*ast.BasicLit); !ok {
		return false
	}
	sel, ok := binExpr.Y.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	ident, ok := sel.X.(*ast.Ident)
	if !ok || ident.Name != "time" {
		return false
	}
	switch sel.Sel.Name {
	case "Second", "Minute", "Hour", "Millisecond", "Microsecond", "Nanosecond":
		return true
	}
	return false
}

// findProjectRoot finds the project root by looking for go.mod
func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("Could not find project root (go.mod)")
		}
		dir = parent
	}
}
