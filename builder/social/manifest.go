// Package social renders one share image per entry of the og_images_data.json
// manifest the page build writes.
package social

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/utils"
)

// Entry is one share image in the manifest.
type Entry struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags"`
	Filename    string   `json:"filename,omitempty"`
}

// LoadManifest reads the JSON array at path. Entries are not validated here;
// a missing title fails only that entry when it is rendered.
func LoadManifest(fs afero.Fs, path string) ([]Entry, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, batch.Wrap(path, batch.KindMissingInput, err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, batch.Wrap(path, batch.KindMissingInput, fmt.Errorf("invalid manifest: %w", err))
	}
	return entries, nil
}

// WriteManifest is the page build's side of LoadManifest.
func WriteManifest(fs afero.Fs, path string, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFile(fs, path, data)
}

// FileName is the explicit filename, or the lowercased title with spaces
// replaced by dashes, with a .jpg extension.
func FileName(e Entry) string {
	name := e.Filename
	if name == "" {
		name = strings.Join(strings.Split(strings.ToLower(e.Title), " "), "-")
	}
	if strings.HasSuffix(strings.ToLower(name), ".jpg") {
		return name
	}
	return name + ".jpg"
}
