// Package csssplit gives groups of pages their own copy of the shared
// stylesheet, points their <link> tags at it and purges the copy down to the
// rules those pages use.
package csssplit

import (
	"path"

	"github.com/pustelto/sitepipe/builder/utils"
)

// ChunkName picks the stylesheet name for the pages matched by htmlPath, the
// pattern joined onto the target folder. In order of precedence:
//
//   - outputName + ".css" when set
//   - "index.css" when the pages sit directly in the target folder
//   - "<dir>.css" for the closest folder, unless it is a wildcard
//   - "chunk-<hash>.css", stable for the same pattern
func ChunkName(htmlPath, rootFolder, outputName string) string {
	if outputName != "" {
		return outputName + ".css"
	}

	closest := path.Base(path.Dir(htmlPath))
	if closest == rootFolder {
		return "index.css"
	}
	if closest != "*" && closest != "**" && closest != "." && closest != "/" {
		return closest + ".css"
	}
	return "chunk-" + utils.HashString(htmlPath)[:9] + ".css"
}
