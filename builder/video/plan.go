// Package video turns raw recordings into the web renditions the video
// shortcode references: an mp4 and a webm per quality plus a poster frame.
package video

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/config"
	"github.com/pustelto/sitepipe/builder/utils"
)

// PosterSuffix names the poster frame: <base>-poster.jpg.
const PosterSuffix = "poster"

// OutputName is the file name of one rendition.
func OutputName(base, suffix, ext string) string {
	return base + "-" + suffix + "." + strings.TrimPrefix(ext, ".")
}

type JobKind int

const (
	JobVideo JobKind = iota
	JobPoster
)

// Job is one encoder invocation.
type Job struct {
	Kind   JobKind
	Input  string
	Output string
	// Format is "mp4", "webm" or "jpg".
	Format  string
	Quality config.Quality
	CRF     int
	// At and Width apply to posters.
	At    time.Duration
	Width int
}

// Discover returns every file under cfg.SourceRoot that sits inside a
// cfg.RawDir directory and has one of cfg.Extensions, in lexical order.
func Discover(fsys afero.Fs, cfg config.VideoConfig) ([]string, error) {
	if _, err := fsys.Stat(cfg.SourceRoot); err != nil {
		return nil, nil
	}
	var inputs []string
	err := utils.WalkFiles(fsys, cfg.SourceRoot, nil, func(p string, _ fs.FileInfo) error {
		if rawDir(p, cfg.RawDir) == "" {
			return nil
		}
		if slices.Contains(cfg.Extensions, strings.ToLower(filepath.Ext(p))) {
			inputs = append(inputs, p)
		}
		return nil
	})
	return inputs, err
}

// rawDir returns the closest ancestor of p named name, or "".
func rawDir(p, name string) string {
	for dir := filepath.Dir(p); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if filepath.Base(dir) == name {
			return dir
		}
		if filepath.Dir(dir) == dir {
			break
		}
	}
	return ""
}

// OutputDir is the directory renditions of input are written to: the parent
// of its raw directory, which is the post's own folder.
func OutputDir(input, raw string) string {
	if dir := rawDir(input, raw); dir != "" {
		return filepath.Dir(dir)
	}
	return filepath.Dir(filepath.Dir(input))
}

// Plan lists the jobs for input: per quality an mp4 then a webm, then the
// poster.
func Plan(input string, cfg config.VideoConfig) []Job {
	outDir := OutputDir(input, cfg.RawDir)
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))

	jobs := make([]Job, 0, len(cfg.Qualities)*2+1)
	for _, q := range cfg.Qualities {
		jobs = append(jobs,
			Job{
				Kind:    JobVideo,
				Input:   input,
				Output:  filepath.Join(outDir, OutputName(base, q.Name, "mp4")),
				Format:  "mp4",
				Quality: q,
				CRF:     q.CRF,
			},
			Job{
				Kind:    JobVideo,
				Input:   input,
				Output:  filepath.Join(outDir, OutputName(base, q.Name, "webm")),
				Format:  "webm",
				Quality: q,
				CRF:     cfg.WebMCRF,
			},
		)
	}
	jobs = append(jobs, Job{
		Kind:   JobPoster,
		Input:  input,
		Output: filepath.Join(outDir, OutputName(base, PosterSuffix, "jpg")),
		Format: "jpg",
		At:     cfg.PosterAt,
		Width:  cfg.PosterWidth,
	})
	return jobs
}
