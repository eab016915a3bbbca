package pluginapi

import (
	"testing"

	"nwbview/testutil"
)

func TestPluginAPIStaysPublic(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden, "pluginapi is imported by external plugins")
	testutil.AssertNoDirectImports(t, "../imagestack", testutil.InternalImportForbidden, "imagestack travels through LayerData")
}

func TestPluginAPINoTransitiveInternal(t *testing.T) {
	if testing.Short() {
		t.Skip("shells out to go list")
	}
	testutil.AssertNoTransitiveDependency(t, ".", testutil.UnderAny("nwbview/internal"), "pluginapi must build without internal packages")
}
