package run

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/pustelto/sitepipe/builder/utils"
)

// loadGlobalData reads every .json and .yaml file in the data dir, keyed by
// file name without extension.
func (b *Builder) loadGlobalData() (map[string]interface{}, error) {
	dir := filepath.Join(b.cfg.Paths.Input, b.cfg.Paths.Data)
	data := map[string]interface{}{}
	if exists, _ := afero.DirExists(b.SourceFs, dir); !exists {
		return data, nil
	}
	err := utils.WalkFiles(b.SourceFs, dir, nil, func(p string, _ fs.FileInfo) error {
		v, ok, err := readDataFile(b.SourceFs, p)
		if err != nil || !ok {
			return err
		}
		data[strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))] = v
		return nil
	})
	return data, err
}

func readDataFile(fsys afero.Fs, p string) (interface{}, bool, error) {
	ext := strings.ToLower(filepath.Ext(p))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, false, nil
	}
	raw, err := afero.ReadFile(fsys, p)
	if err != nil {
		return nil, false, err
	}
	var v interface{}
	if ext == ".json" {
		err = json.Unmarshal(raw, &v)
	} else {
		err = yaml.Unmarshal(raw, &v)
	}
	if err != nil {
		return nil, false, fmt.Errorf("invalid data file %s: %w", p, err)
	}
	return v, true, nil
}

// directoryData resolves the data cascade of a page: <dir>/<dir>.json (or
// .yaml) files from the input root down to the page's folder, then the
// page's own <name>.json. Deeper files win.
type directoryData struct {
	fs    afero.Fs
	input string

	mu    sync.Mutex
	cache map[string]map[string]interface{}
}

func newDirectoryData(fsys afero.Fs, input string) *directoryData {
	return &directoryData{fs: fsys, input: input, cache: map[string]map[string]interface{}{}}
}

// For returns the merged data for the page at rel.
func (d *directoryData) For(rel string) (map[string]interface{}, error) {
	merged := map[string]interface{}{}
	dir := path.Dir(rel)
	var chain []string
	for dir != "." && dir != "/" && dir != "" {
		chain = append([]string{dir}, chain...)
		dir = path.Dir(dir)
	}
	for _, dir := range chain {
		data, err := d.load(path.Join(dir, path.Base(dir)))
		if err != nil {
			return nil, err
		}
		merged = mergeData(merged, data)
	}
	own, err := d.load(strings.TrimSuffix(rel, path.Ext(rel)))
	if err != nil {
		return nil, err
	}
	return mergeData(merged, own), nil
}

// load reads <stem>.json, .yaml or .yml relative to the input dir.
func (d *directoryData) load(stem string) (map[string]interface{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if data, ok := d.cache[stem]; ok {
		return data, nil
	}
	var data map[string]interface{}
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		p := filepath.Join(d.input, filepath.FromSlash(stem)+ext)
		if exists, _ := afero.Exists(d.fs, p); !exists {
			continue
		}
		v, _, err := readDataFile(d.fs, p)
		if err != nil {
			return nil, err
		}
		if m, ok := v.(map[string]interface{}); ok {
			data = m
		}
		break
	}
	d.cache[stem] = data
	return data, nil
}

// mergeData deep-merges src into a copy of dst. Maps merge recursively,
// lists are concatenated without duplicates and scalars from src win.
func mergeData(dst, src map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		switch sv := v.(type) {
		case map[string]interface{}:
			if dv, ok := out[k].(map[string]interface{}); ok {
				out[k] = mergeData(dv, sv)
				continue
			}
		case []interface{}:
			if dv, ok := asList(out[k]); ok {
				out[k] = unionList(dv, sv)
				continue
			}
		case string:
			// A scalar tag joins an inherited list.
			if dv, ok := out[k].([]interface{}); ok && k == "tags" {
				out[k] = unionList(dv, []interface{}{sv})
				continue
			}
		}
		out[k] = v
	}
	return out
}

func asList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case []interface{}:
		return l, true
	case string:
		return []interface{}{l}, true
	}
	return nil, false
}

func unionList(a, b []interface{}) []interface{} {
	out := append([]interface{}(nil), a...)
	for _, v := range b {
		found := false
		for _, existing := range out {
			if fmt.Sprint(existing) == fmt.Sprint(v) {
				found = true
				break
			}
		}
		if !found {
			out = append(out, v)
		}
	}
	return out
}
