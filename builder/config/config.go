// Package config loads sitepipe.yaml, .env and command-line flags into a
// single Config value that is passed to every build step.
package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvVar selects the build environment. "production" enables the
// after-build social image step.
const EnvVar = "SITE_ENV"

type Config struct {
	Site        SiteConfig     `yaml:"site"`
	Paths       PathsConfig    `yaml:"paths"`
	Markdown    MarkdownConfig `yaml:"markdown"`
	Styles      StylesConfig   `yaml:"styles"`
	Scripts     ScriptsConfig  `yaml:"scripts"`
	Split       SplitConfig    `yaml:"split"`
	Critical    CriticalConfig `yaml:"critical"`
	Social      SocialConfig   `yaml:"social"`
	Video       VideoConfig    `yaml:"video"`
	Images      ImagesConfig   `yaml:"images"`
	Passthrough []string       `yaml:"passthrough"`
	Minify      bool           `yaml:"minify"`
	Server      ServerConfig   `yaml:"server"`

	// Runtime state, never read from yaml.
	Production bool   `yaml:"-"`
	IsDev      bool   `yaml:"-"`
	Verbose    bool   `yaml:"-"`
	ConfigFile string `yaml:"-"`
}

type SiteConfig struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	Language    string `yaml:"language"`
	CodepenUser string `yaml:"codepenUser"`
	Twitter     string `yaml:"twitter"`
}

// Host returns the site URL without scheme or trailing slash.
func (s SiteConfig) Host() string {
	if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return strings.TrimSuffix(s.URL, "/")
}

type PathsConfig struct {
	Input    string `yaml:"input"`
	Output   string `yaml:"output"`
	Includes string `yaml:"includes"`
	Data     string `yaml:"data"`
	Cache    string `yaml:"cache"`
}

// LayoutsDir is where page layouts live.
func (p PathsConfig) LayoutsDir() string {
	return filepath.Join(p.Input, p.Includes, "layouts")
}

type MarkdownConfig struct {
	AnchorSymbol      string `yaml:"anchorSymbol"`
	TOCClass          string `yaml:"tocClass"`
	HighlightStyle    string `yaml:"highlightStyle"`
	ExternalLinkBlank bool   `yaml:"externalLinkBlank"`
}

type StylesConfig struct {
	Entry  string `yaml:"entry"`
	Output string `yaml:"output"`
	// MediaQueries maps a file suffix to a media query whose top-level blocks
	// move to <output base>-<suffix>.css.
	MediaQueries map[string]string `yaml:"mediaQueries"`
	Minify       bool              `yaml:"minify"`
}

type ScriptsConfig struct {
	Entries map[string]string `yaml:"entries"`
	CopyDir string            `yaml:"copyDir"`
	Target  string            `yaml:"target"`
}

// Pattern is one CSS split rule: matching pages get their own stylesheet.
type Pattern struct {
	Path       string `yaml:"path"`
	OutputName string `yaml:"outputName"`
}

type SplitConfig struct {
	TargetFolder string    `yaml:"targetFolder"`
	CSSPath      string    `yaml:"cssPath"`
	HTML         []Pattern `yaml:"html"`
	Concurrency  int       `yaml:"concurrency"`
}

type CriticalConfig struct {
	Dir         string        `yaml:"dir"`
	Include     string        `yaml:"include"`
	ExcludeDirs []string      `yaml:"excludeDirs"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	Timeout     time.Duration `yaml:"timeout"`
	Minify      bool          `yaml:"minify"`
	Extract     bool          `yaml:"extract"`
	Concurrency int           `yaml:"concurrency"`
	FailFast    bool          `yaml:"failFast"`
}

type SocialConfig struct {
	Manifest    string `yaml:"manifest"`
	OutDir      string `yaml:"outDir"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	Scale       int    `yaml:"scale"`
	Quality     int    `yaml:"quality"`
	Byline      string `yaml:"byline"`
	Link        string `yaml:"link"`
	Concurrency int    `yaml:"concurrency"`
	FailFast    bool   `yaml:"failFast"`
	Renderer    string `yaml:"renderer"`
}

// Quality is one video rendition.
type Quality struct {
	Name   string `yaml:"name"`
	Height int    `yaml:"height"`
	CRF    int    `yaml:"crf"`
}

type VideoConfig struct {
	SourceRoot  string        `yaml:"sourceRoot"`
	RawDir      string        `yaml:"rawDir"`
	Extensions  []string      `yaml:"extensions"`
	Qualities   []Quality     `yaml:"qualities"`
	WebMCRF     int           `yaml:"webmCRF"`
	PosterAt    time.Duration `yaml:"posterAt"`
	PosterWidth int           `yaml:"posterWidth"`
	Encoder     string        `yaml:"encoder"`
	Concurrency int           `yaml:"concurrency"`
	FailFast    bool          `yaml:"failFast"`
}

type ImagesConfig struct {
	Widths  []int  `yaml:"widths"`
	Sizes   string `yaml:"sizes"`
	Quality int    `yaml:"quality"`
	Workers int    `yaml:"workers"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             string        `yaml:"port"`
	NotFoundPage     string        `yaml:"notFoundPage"`
	DebounceDuration time.Duration `yaml:"debounceDuration"`
	ShutdownTimeout  time.Duration `yaml:"shutdownTimeout"`
}

// DefaultSplitPatterns are the page groups that get their own stylesheet.
func DefaultSplitPatterns() []Pattern {
	return []Pattern{
		{Path: "index.html"},
		{Path: "projects/index.html"},
		{Path: "blog/index.html"},
		{Path: "talks/index.html"},
		{Path: "blog/*/index.html", OutputName: "article"},
	}
}

func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Title:       "Tomas Pustelnik",
			URL:         "https://pustelto.com/",
			Description: "Personal website of Tomas Pustelnik. A front-end developer with focus on HTML/CSS, React, performance and accessibility.",
			Author:      "Tomas Pustelnik",
			Language:    "en",
			CodepenUser: "Pustelto",
			Twitter:     "@pustelto",
		},
		Paths: PathsConfig{
			Input:    "src",
			Output:   "_site",
			Includes: "_includes",
			Data:     "_data",
			Cache:    ".sitepipe-cache",
		},
		Markdown: MarkdownConfig{
			AnchorSymbol:      "#",
			TOCClass:          "toc",
			HighlightStyle:    "dracula",
			ExternalLinkBlank: true,
		},
		Styles: StylesConfig{
			Entry:  "src/_includes/css/index.css",
			Output: "styles/main.css",
			Minify: true,
		},
		Scripts: ScriptsConfig{
			Entries: map[string]string{"analytics": "src/js/analytics.js"},
			CopyDir: "src/js/copy-over",
			Target:  "es2017",
		},
		Split: SplitConfig{
			TargetFolder: "_site",
			CSSPath:      "styles/main.css",
			HTML:         DefaultSplitPatterns(),
		},
		Critical: CriticalConfig{
			Dir:         "_site",
			Include:     "**/*.html",
			ExcludeDirs: []string{"node_modules"},
			Width:       920,
			Height:      960,
			Timeout:     2 * time.Minute,
			Minify:      true,
			Concurrency: 1,
		},
		Social: SocialConfig{
			Manifest:    "_site/og_images_data.json",
			OutDir:      "_site/images/share",
			Width:       1200,
			Height:      630,
			Scale:       2,
			Quality:     90,
			Byline:      "Tomas Pustelnik",
			Link:        "pustelto.com",
			Concurrency: 1,
			Renderer:    "chrome",
		},
		Video: VideoConfig{
			SourceRoot: "src/blog",
			RawDir:     "raw-videos",
			Extensions: []string{".mp4", ".mov", ".avi", ".mkv", ".webm"},
			Qualities: []Quality{
				{Name: "720p", Height: 720, CRF: 23},
				{Name: "1080p", Height: 1080, CRF: 22},
			},
			WebMCRF:     32,
			PosterAt:    time.Second,
			PosterWidth: 1280,
			Encoder:     "ffmpeg",
			Concurrency: 1,
			FailFast:    true,
		},
		Images: ImagesConfig{
			Widths:  []int{296, 608, 888, 1216, 1824},
			Sizes:   "(max-width: 39.4375rem) 100vw, 608px",
			Quality: 80,
			Workers: 4,
		},
		Passthrough: []string{
			"src/fonts",
			"src/images",
			"src/blog/**/*.{gif}",
			"src/favicon*",
			"src/robots.txt",
		},
		Minify: true,
		Server: ServerConfig{
			Host:             "localhost",
			Port:             "8080",
			NotFoundPage:     "404.html",
			DebounceDuration: 300 * time.Millisecond,
			ShutdownTimeout:  5 * time.Second,
		},
	}
}

// configFiles are tried in order; the first one that exists wins.
var configFiles = []string{"sitepipe.yaml", "config.yaml"}

// Load builds the configuration from defaults, .env, the first config file
// found and finally the command-line flags in args. A malformed config file
// is reported on stderr and ignored.
func Load(args []string) *Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	for _, name := range configFiles {
		data, err := os.ReadFile(name)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Ignoring %s: %v\n", name, err)
			cfg = DefaultConfig()
		} else {
			cfg.ConfigFile = name
		}
		break
	}

	cfg.Production = os.Getenv(EnvVar) == "production"

	fs := flag.NewFlagSet("sitepipe", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	production := fs.Bool("production", cfg.Production, "Production build (runs after-build hooks)")
	verbose := fs.Bool("v", false, "Verbose (debug) logging")
	input := fs.String("input", cfg.Paths.Input, "Source directory")
	output := fs.String("output", cfg.Paths.Output, "Output directory")
	baseURL := fs.String("baseurl", cfg.Site.URL, "Site URL")
	port := fs.String("port", cfg.Server.Port, "Server port")
	host := fs.String("host", cfg.Server.Host, "Server host")
	renderer := fs.String("renderer", cfg.Social.Renderer, "Social image renderer: chrome or canvas")
	concurrency := fs.Int("concurrency", 0, "Override concurrency of critical, social and video steps")
	failFast := fs.Bool("fail-fast", false, "Stop a batch step at its first failure")
	noMinify := fs.Bool("no-minify", false, "Disable HTML minification")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  %v\n", err)
	}

	cfg.Production = *production
	cfg.Verbose = *verbose
	cfg.Site.URL = *baseURL
	cfg.Server.Port = *port
	cfg.Server.Host = *host
	cfg.Social.Renderer = *renderer
	if *noMinify {
		cfg.Minify = false
	}
	if *concurrency > 0 {
		cfg.Critical.Concurrency = *concurrency
		cfg.Social.Concurrency = *concurrency
		cfg.Video.Concurrency = *concurrency
	}
	if *failFast {
		cfg.Critical.FailFast = true
		cfg.Social.FailFast = true
		cfg.Video.FailFast = true
	}
	if *output != cfg.Paths.Output {
		cfg.setOutput(*output)
	}
	cfg.Paths.Input = *input

	cfg.validate()
	return cfg
}

// setOutput moves every output-relative default along with the output dir.
func (c *Config) setOutput(out string) {
	old := c.Paths.Output
	rebase := func(p string) string {
		if p == old {
			return out
		}
		if strings.HasPrefix(p, old+"/") {
			return out + strings.TrimPrefix(p, old)
		}
		return p
	}
	c.Paths.Output = out
	c.Split.TargetFolder = rebase(c.Split.TargetFolder)
	c.Critical.Dir = rebase(c.Critical.Dir)
	c.Social.Manifest = rebase(c.Social.Manifest)
	c.Social.OutDir = rebase(c.Social.OutDir)
}

// SetDevMode marks the config as serving a development build.
func SetDevMode(cfg *Config, isDev bool) {
	cfg.IsDev = isDev
}

// validate ensures configuration values are within reasonable bounds
func (c *Config) validate() {
	if !strings.HasSuffix(c.Site.URL, "/") {
		c.Site.URL += "/"
	}
	if c.Markdown.AnchorSymbol == "" {
		c.Markdown.AnchorSymbol = "#"
	}
	if c.Markdown.TOCClass == "" {
		c.Markdown.TOCClass = "toc"
	}
	if len(c.Split.HTML) == 0 {
		c.Split.HTML = DefaultSplitPatterns()
	}

	clamp := func(v *int, lo, hi int) {
		if *v < lo {
			*v = lo
		}
		if *v > hi {
			*v = hi
		}
	}
	clamp(&c.Critical.Concurrency, 1, 16)
	clamp(&c.Social.Concurrency, 1, 16)
	clamp(&c.Video.Concurrency, 1, 8)
	clamp(&c.Critical.Width, 320, 3840)
	clamp(&c.Critical.Height, 320, 4320)
	clamp(&c.Social.Scale, 1, 4)
	clamp(&c.Social.Quality, 1, 100)
	clamp(&c.Images.Quality, 1, 100)
	clamp(&c.Images.Workers, 1, 32)

	if c.Social.Width <= 0 {
		c.Social.Width = 1200
	}
	if c.Social.Height <= 0 {
		c.Social.Height = 630
	}
	if c.Social.Renderer != "chrome" && c.Social.Renderer != "canvas" {
		c.Social.Renderer = "chrome"
	}
	if c.Critical.Timeout < time.Second {
		c.Critical.Timeout = 2 * time.Minute
	}
	if c.Video.WebMCRF <= 0 || c.Video.WebMCRF > 63 {
		c.Video.WebMCRF = 32
	}
	if c.Video.PosterWidth <= 0 {
		c.Video.PosterWidth = 1280
	}
	if len(c.Images.Widths) == 0 {
		c.Images.Widths = []int{296, 608, 888, 1216, 1824}
	}
	if c.Server.DebounceDuration < 10*time.Millisecond {
		c.Server.DebounceDuration = 10 * time.Millisecond
	}
	if c.Server.DebounceDuration > 5*time.Second {
		c.Server.DebounceDuration = 5 * time.Second
	}
	if c.Server.ShutdownTimeout < time.Second {
		c.Server.ShutdownTimeout = time.Second
	}
	for i, ext := range c.Video.Extensions {
		if !strings.HasPrefix(ext, ".") {
			c.Video.Extensions[i] = "." + ext
		}
		c.Video.Extensions[i] = strings.ToLower(c.Video.Extensions[i])
	}
}
