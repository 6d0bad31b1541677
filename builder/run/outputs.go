package run

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pustelto/sitepipe/builder/batch"
	"github.com/pustelto/sitepipe/builder/generators"
	"github.com/pustelto/sitepipe/builder/metrics"
	"github.com/pustelto/sitepipe/builder/models"
	"github.com/pustelto/sitepipe/builder/social"
	"github.com/pustelto/sitepipe/builder/utils"
)

const feedPath = "feed.xml"

// copyPassthrough copies each configured path or glob to the same path
// relative to the output dir.
func (b *Builder) copyPassthrough(m *metrics.BuildMetrics) *batch.Report {
	report := batch.NewReport("passthrough")
	for _, pattern := range b.cfg.Passthrough {
		files, err := b.passthroughFiles(pattern)
		if err != nil {
			report.AddFailure(pattern, batch.KindFilesystem, err)
			continue
		}
		if len(files) == 0 {
			report.AddSkipped(pattern, "no matching files")
			continue
		}
		for _, src := range files {
			rel, err := filepath.Rel(b.cfg.Paths.Input, src)
			if err != nil {
				report.AddFailure(src, batch.KindFilesystem, err)
				continue
			}
			dst := filepath.Join(b.cfg.Paths.Output, rel)
			if err := utils.CopyFile(b.SourceFs, b.DestFs, src, dst); err != nil {
				report.AddFailure(src, batch.KindFilesystem, err)
				continue
			}
			m.IncrementFilesCopied()
		}
		report.AddProcessed(pattern)
	}
	return report
}

func (b *Builder) passthroughFiles(pattern string) ([]string, error) {
	if utils.HasMeta(pattern) {
		return utils.GlobFiles(b.SourceFs, ".", pattern)
	}
	info, err := b.SourceFs.Stat(pattern)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return []string{pattern}, nil
	}
	var files []string
	err = utils.WalkFiles(b.SourceFs, pattern, nil, func(p string, _ os.FileInfo) error {
		files = append(files, p)
		return nil
	})
	return files, err
}

// writeFeed writes the RSS feed of published posts, newest first.
func (b *Builder) writeFeed(c *models.Collections) error {
	out := filepath.Join(b.cfg.Paths.Output, feedPath)
	if err := generators.GenerateRSS(b.DestFs, out, "/"+feedPath, b.cfg.Site, newestFirst(c.Blogposts)); err != nil {
		return batch.Wrap(out, batch.KindFilesystem, err)
	}
	return nil
}

// SocialEntries lists the share image of every non-project page with a
// title, unless its front matter sets socialImage: false.
func SocialEntries(c *models.Collections) []social.Entry {
	var entries []social.Entry
	for _, p := range c.AllPages {
		if p.Title == "" {
			continue
		}
		if v, ok := p.Data["socialImage"].(bool); ok && !v {
			continue
		}
		tags := []string{}
		for _, t := range p.Tags {
			if t != tagPosts {
				tags = append(tags, t)
			}
		}
		entries = append(entries, social.Entry{
			Title:       p.Title,
			Description: utils.GetString(p.Data, "socialDescription"),
			Tags:        tags,
			Filename:    utils.GetString(p.Data, "socialImageName"),
		})
	}
	return entries
}

func (b *Builder) writeSocialManifest(c *models.Collections) error {
	entries := SocialEntries(c)
	if err := social.WriteManifest(b.DestFs, b.cfg.Social.Manifest, entries); err != nil {
		return batch.Wrap(b.cfg.Social.Manifest, batch.KindFilesystem, fmt.Errorf("social manifest: %w", err))
	}
	return nil
}
