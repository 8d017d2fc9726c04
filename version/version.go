package version

import (
	"runtime/debug"
	"strings"
)

const (
	ModulePath = "github.com/mikeblum/graph-bulk-import"

	// reported when the binary was built without module information
	DevelopVersion = "develop"
)

// BuildVersion resolves the module version from the embedded build info.
func BuildVersion() (*debug.Module, bool) {
	if info, ok := debug.ReadBuildInfo(); ok {
		if strings.EqualFold(info.Main.Path, ModulePath) && info.Main.Version != "" && info.Main.Version != "(devel)" {
			return &info.Main, true
		}
		for _, dep := range info.Deps {
			if strings.EqualFold(dep.Path, ModulePath) {
				return dep, true
			}
		}
	}
	return &debug.Module{
		Path:    ModulePath,
		Version: DevelopVersion,
	}, false
}

// UserAgent identifies this client to stores that accept one.
func UserAgent() string {
	build, _ := BuildVersion()
	return "graph-bulk-import/" + build.Version
}
