package lifecycle

import (
	"path/filepath"

	"github.com/mlagent-labs/mlagent/internal/manifest"
)

// ManifestPath derives where a package's manifest must live:
// <install root>/res/global/<resource type>/rpk_config.json.
// Pure path construction, no I/O.
func ManifestPath(rootPath, resType string) string {
	return filepath.Join(rootPath, "res", "global", resType, manifest.FileName)
}
