package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/brogergvhs/pagekit/internal/keys"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Output           string `yaml:"output"`
	Debug            bool   `yaml:"debug"`
	UserAgent        string `yaml:"user_agent"`
	Cookie           string `yaml:"cookie"`
	CookieFile       string `yaml:"cookie_file"`
	CloudflareBypass bool   `yaml:"cloudflare_bypass"`

	Download DownloadConfig `yaml:"download"`
	Guard    GuardConfig    `yaml:"guard"`
	Resize   ResizeConfig   `yaml:"resize"`
}

type DownloadConfig struct {
	URL           string        `yaml:"url"`
	ImageClass    string        `yaml:"image_class"`
	NextSelector  string        `yaml:"next_selector"`
	MaxConcurrent int           `yaml:"max_concurrent"`
	AutoDownload  bool          `yaml:"auto_download"`
	AutoScroll    bool          `yaml:"auto_scroll"`
	ScrollStep    int           `yaml:"scroll_step"`
	ScrollDelay   time.Duration `yaml:"scroll_delay"`
	FullSize      bool          `yaml:"full_size"`
	MaxPages      int           `yaml:"max_pages"`
	Shortcuts     Shortcuts     `yaml:"shortcuts"`
}

type Shortcuts struct {
	Download string `yaml:"download"`
	Next     string `yaml:"next"`
	Stop     string `yaml:"stop"`
}

type GuardConfig struct {
	Hosts       []string      `yaml:"hosts"`
	PathPattern string        `yaml:"path_pattern"`
	HomeURL     string        `yaml:"home_url"`
	Countdown   time.Duration `yaml:"countdown"`
	Debounce    time.Duration `yaml:"debounce"`
}

// ResizeConfig drives the square-crop post-processing of downloaded images.
type ResizeConfig struct {
	Size int `yaml:"size"`
}

// Options carries CLI overrides. Zero values leave the loaded config as is.
type Options struct {
	IgnoreConfig bool
	Debug        bool
	Output       string
	UserAgent    string
	Cookie       string
	CookieFile   string

	URL           string
	ImageClass    string
	NextSelector  string
	MaxConcurrent int
	AutoDownload  bool
	AutoScroll    bool
	FullSize      bool
	MaxPages      int

	HomeURL   string
	Countdown time.Duration

	ResizeSize int
}

const (
	defaultImageClass    = "thumbimage"
	defaultNextSelector  = `td[data-source="next"]`
	defaultMaxConcurrent = 5
	defaultScrollStep    = 800
	defaultScrollDelay   = 300 * time.Millisecond

	defaultPathPattern = `^/shorts(/|$)`
	defaultHomeURL     = "https://www.youtube.com/"
	defaultCountdown   = 3 * time.Second
	defaultDebounce    = 500 * time.Millisecond

	defaultResizeSize = 512
)

func DefaultConfig() *Config {
	return &Config{
		Output:           ".",
		Debug:            false,
		UserAgent:        "",
		Cookie:           "",
		CookieFile:       "",
		CloudflareBypass: false,
		Download: DownloadConfig{
			URL:           "",
			ImageClass:    defaultImageClass,
			NextSelector:  defaultNextSelector,
			MaxConcurrent: defaultMaxConcurrent,
			AutoDownload:  false,
			AutoScroll:    false,
			ScrollStep:    defaultScrollStep,
			ScrollDelay:   defaultScrollDelay,
			FullSize:      false,
			MaxPages:      0,
			Shortcuts: Shortcuts{
				Download: "alt+d",
				Next:     "alt+n",
				Stop:     "alt+s",
			},
		},
		Guard: GuardConfig{
			Hosts:       []string{"youtube.com", "www.youtube.com", "m.youtube.com"},
			PathPattern: defaultPathPattern,
			HomeURL:     defaultHomeURL,
			Countdown:   defaultCountdown,
			Debounce:    defaultDebounce,
		},
		Resize: ResizeConfig{
			Size: defaultResizeSize,
		},
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

func LoadMerged(opts Options) (*Config, string, error) {
	if opts.IgnoreConfig {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(ignored config)", cfg.Validate()
	}

	activePath, err := ActiveConfigPath()
	if errors.Is(err, ErrNoConfig) || activePath == "" {
		cfg := DefaultConfig()
		mergeConfig(cfg, opts)
		normalizeDefaults(cfg)
		return cfg, "(default config in memory)\nRun `pagekit config init` to create an actual config\n", cfg.Validate()
	}
	if err != nil {
		return nil, "", err
	}

	cfg, err := loadYAML(activePath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)

	return cfg, activePath, cfg.Validate()
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.Output != "" {
		c.Output = o.Output
	}
	if o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if o.Cookie != "" {
		c.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.CookieFile = o.CookieFile
	}

	d := &c.Download
	if o.URL != "" {
		d.URL = o.URL
	}
	if o.ImageClass != "" {
		d.ImageClass = o.ImageClass
	}
	if o.NextSelector != "" {
		d.NextSelector = o.NextSelector
	}
	if o.MaxConcurrent != 0 {
		d.MaxConcurrent = o.MaxConcurrent
	}
	if o.AutoDownload {
		d.AutoDownload = true
	}
	if o.AutoScroll {
		d.AutoScroll = true
	}
	if o.FullSize {
		d.FullSize = true
	}
	if o.MaxPages != 0 {
		d.MaxPages = o.MaxPages
	}

	if o.HomeURL != "" {
		c.Guard.HomeURL = o.HomeURL
	}
	if o.Countdown != 0 {
		c.Guard.Countdown = o.Countdown
	}

	if o.ResizeSize != 0 {
		c.Resize.Size = o.ResizeSize
	}
}

func normalizeDefaults(c *Config) {
	if c.Output == "" {
		c.Output = "."
	}

	d := &c.Download
	d.ImageClass = strings.TrimPrefix(strings.TrimSpace(d.ImageClass), ".")
	if d.ImageClass == "" {
		d.ImageClass = defaultImageClass
	}
	if d.NextSelector == "" {
		d.NextSelector = defaultNextSelector
	}
	if d.MaxConcurrent == 0 {
		d.MaxConcurrent = defaultMaxConcurrent
	}
	if d.ScrollStep == 0 {
		d.ScrollStep = defaultScrollStep
	}
	if d.ScrollDelay == 0 {
		d.ScrollDelay = defaultScrollDelay
	}

	g := &c.Guard
	if g.PathPattern == "" {
		g.PathPattern = defaultPathPattern
	}
	if g.HomeURL == "" {
		g.HomeURL = defaultHomeURL
	}
	if g.Countdown == 0 {
		g.Countdown = defaultCountdown
	}
	if g.Debounce == 0 {
		g.Debounce = defaultDebounce
	}

	if c.Resize.Size == 0 {
		c.Resize.Size = defaultResizeSize
	}
}

// Validate rejects settings that would make a run impossible.
func (c *Config) Validate() error {
	d := c.Download
	if d.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", d.MaxConcurrent)
	}
	if d.ScrollStep < 1 {
		return fmt.Errorf("scroll_step must be positive, got %d", d.ScrollStep)
	}
	if d.MaxPages < 0 {
		return fmt.Errorf("max_pages cannot be negative")
	}
	if strings.ContainsAny(d.ImageClass, " .#[") {
		return fmt.Errorf("image_class must be a single class name, got %q", d.ImageClass)
	}

	for name, chord := range map[string]string{
		"download": d.Shortcuts.Download,
		"next":     d.Shortcuts.Next,
		"stop":     d.Shortcuts.Stop,
	} {
		if _, err := keys.ParseChord(chord); err != nil {
			return fmt.Errorf("shortcut %s: %w", name, err)
		}
	}

	if _, err := regexp.Compile(c.Guard.PathPattern); err != nil {
		return fmt.Errorf("guard path_pattern: %w", err)
	}
	if c.Guard.Countdown < time.Second || c.Guard.Countdown%time.Second != 0 {
		return fmt.Errorf("guard countdown must be a whole number of seconds, at least 1s, got %s", c.Guard.Countdown)
	}

	if c.Resize.Size < 1 {
		return fmt.Errorf("resize size must be positive, got %d", c.Resize.Size)
	}

	return nil
}

func (c *Config) Print() {
	if c.Output != "" {
		fmt.Printf(" -output: %s\n", c.Output)
	}
	if c.Debug {
		fmt.Printf(" -debug: %t\n", c.Debug)
	}
	if c.CookieFile != "" {
		fmt.Printf(" -cookie_file: %s\n", c.CookieFile)
	}
	if c.CloudflareBypass {
		fmt.Printf(" -cloudflare_bypass: %t\n", c.CloudflareBypass)
	}

	d := c.Download
	if d.URL != "" {
		fmt.Printf(" -download.url: %s\n", d.URL)
	}
	fmt.Printf(" -download.image_class: %s\n", d.ImageClass)
	fmt.Printf(" -download.next_selector: %s\n", d.NextSelector)
	fmt.Printf(" -download.max_concurrent: %d\n", d.MaxConcurrent)
	if d.AutoDownload {
		fmt.Printf(" -download.auto_download: %t\n", d.AutoDownload)
	}
	if d.AutoScroll {
		fmt.Printf(" -download.auto_scroll: %t (step %dpx, %s)\n", d.AutoScroll, d.ScrollStep, d.ScrollDelay)
	}
	if d.FullSize {
		fmt.Printf(" -download.full_size: %t\n", d.FullSize)
	}
	if d.MaxPages > 0 {
		fmt.Printf(" -download.max_pages: %d\n", d.MaxPages)
	}
	fmt.Printf(" -download.shortcuts: download=%s next=%s stop=%s\n",
		d.Shortcuts.Download, d.Shortcuts.Next, d.Shortcuts.Stop)

	g := c.Guard
	if len(g.Hosts) > 0 {
		fmt.Printf(" -guard.hosts: %s\n", strings.Join(g.Hosts, ", "))
	}
	fmt.Printf(" -guard.path_pattern: %s\n", g.PathPattern)
	fmt.Printf(" -guard.home_url: %s\n", g.HomeURL)
	fmt.Printf(" -guard.countdown: %s\n", g.Countdown)

	fmt.Printf(" -resize.size: %dpx\n", c.Resize.Size)
}
