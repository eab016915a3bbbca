package memory

import (
	"go/build"
	"strings"
	"testing"
)

func TestImportsAreHistoryOrStdlib(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	for _, imp := range pkg.Imports {
		if strings.HasPrefix(imp, "nwbview/") && imp != "nwbview/internal/history" {
			t.Fatalf("unexpected dependency: %s", imp)
		}
	}
}
