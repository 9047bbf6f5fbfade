package bootstrap

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Ace1928/docforge/internal/logfields"
)

// DefaultPackage is the package directory name expected under src/.
const DefaultPackage = "doc_forge"

// Locator determines the project root for a src/<package> source layout.
type Locator struct {
	Package    string // package directory name; DefaultPackage when empty
	ScriptPath string // absolute path of the launching script or binary
	WorkDir    string // working directory; resolved via os.Getwd when empty
}

// NewLocator creates a locator for the given script path using defaults.
func NewLocator(scriptPath string) *Locator {
	return &Locator{Package: DefaultPackage, ScriptPath: scriptPath}
}

// Root returns the directory expected to contain src/<package>.
//
// Candidates are tried in order: the script's parent directory, the working
// directory, then each ancestor of the script's directory walking upward.
// The walk stops at the filesystem root. When nothing matches, the script's
// parent directory is returned unvalidated; a wrong guess surfaces later as
// a load failure, which is the actual signal of misconfiguration.
func (l *Locator) Root() string {
	pkg := l.Package
	if pkg == "" {
		pkg = DefaultPackage
	}

	scriptDir := filepath.Dir(l.ScriptPath)
	if hasPackageDir(scriptDir, pkg) {
		return scriptDir
	}

	workDir := l.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	if workDir != "" && hasPackageDir(workDir, pkg) {
		return workDir
	}

	for dir := filepath.Dir(scriptDir); ; {
		if hasPackageDir(dir, pkg) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	slog.Debug("No package root found, defaulting to script directory",
		logfields.Package(pkg), logfields.Path(scriptDir))
	return scriptDir
}

// hasPackageDir reports whether dir/src/pkg exists and is a directory.
func hasPackageDir(dir, pkg string) bool {
	info, err := os.Stat(filepath.Join(dir, "src", pkg))
	return err == nil && info.IsDir()
}
