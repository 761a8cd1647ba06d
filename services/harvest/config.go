package harvest

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reviewharvest/lib/browser"
	"reviewharvest/lib/configutil"
	configlibsql "reviewharvest/lib/configutil/libsql"
	"strings"
	"time"

	"dario.cat/mergo"
)

const ConfigFile = "harvest.json5"

type PageRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

type LoadMoreConfig struct {
	Selector        string `json:"selector"`
	// MaxAttempts and ScrollConfig.Rounds are pointers so that an explicit 0
	// turns the expansion off instead of being replaced by the default.
	MaxAttempts     *int   `json:"max_attempts"`
	WaitTimeoutMs   int    `json:"wait_timeout_ms"`
	SettleTimeoutMs int    `json:"settle_timeout_ms"`
}

type ScrollConfig struct {
	Rounds          *int `json:"rounds"`
	SettleTimeoutMs int  `json:"settle_timeout_ms"`
}

type BrowserConfig struct {
	Bin                 string `json:"bin"`
	NoSandbox           bool   `json:"no_sandbox"`
	NavigationTimeoutMs int    `json:"navigation_timeout_ms"`
	SettleTimeoutMs     int    `json:"settle_timeout_ms"`
}

type Config struct {
	BaseUrl      string                `json:"base_url"`
	DataDir      string                `json:"data_dir"`
	ProductPages PageRange             `json:"product_pages"`
	LoadMore     LoadMoreConfig        `json:"load_more"`
	Scroll       ScrollConfig          `json:"scroll"`
	Browser      BrowserConfig         `json:"browser"`
	Database     configlibsql.Database `json:"database"`
}

func DefaultConfig() Config {
	return Config{
		BaseUrl: "https://web-scraping.dev",
		DataDir: "data",
		ProductPages: PageRange{
			First: 1,
			Last:  6,
		},
		LoadMore: LoadMoreConfig{
			Selector:        "#page-load-more",
			MaxAttempts:     intPtr(5),
			WaitTimeoutMs:   5000,
			SettleTimeoutMs: 3000,
		},
		Scroll: ScrollConfig{
			Rounds:          intPtr(5),
			SettleTimeoutMs: 2000,
		},
		Browser: BrowserConfig{
			NavigationTimeoutMs: 30000,
			SettleTimeoutMs:     5000,
		},
	}
}

// WithDefaults fills every unset field from DefaultConfig.
func (c Config) WithDefaults() (Config, error) {
	err := mergo.Merge(&c, DefaultConfig(), mergo.WithoutDereference)
	if err != nil {
		return Config{}, err
	}
	c.BaseUrl = strings.TrimSuffix(c.BaseUrl, "/")
	return c, nil
}

func (c Config) Validate() error {
	if c.ProductPages.First < 1 || c.ProductPages.Last < c.ProductPages.First {
		return fmt.Errorf(
			"invalid product page range %d..%d",
			c.ProductPages.First, c.ProductPages.Last,
		)
	}
	if intValue(c.LoadMore.MaxAttempts) < 0 || intValue(c.Scroll.Rounds) < 0 {
		return fmt.Errorf("max_attempts and rounds cannot be negative")
	}
	return nil
}

// LoadConfig reads the config at path, or searches for harvest.json5 from
// the working directory upwards when path is empty. a missing file is not an
// error, the defaults are used instead.
func LoadConfig(path string) (Config, error) {
	var config Config
	var err error
	if path != "" {
		config, err = configutil.ReadConfig[Config](path)
	} else {
		config, err = configutil.ReadRecursively[Config](ConfigFile)
	}
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no harvest config found, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	config, err = config.WithDefaults()
	if err != nil {
		return Config{}, err
	}
	return config, config.Validate()
}

func intPtr(n int) *int {
	return &n
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func millis(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func (c Config) BrowserOptions(headless bool) browser.Options {
	return browser.Options{
		Headless:          headless,
		Bin:               c.Browser.Bin,
		NoSandbox:         c.Browser.NoSandbox,
		NavigationTimeout: millis(c.Browser.NavigationTimeoutMs),
		SettleTimeout:     millis(c.Browser.SettleTimeoutMs),
	}
}

func (c Config) loadMore() browser.ClickLoadMore {
	return browser.ClickLoadMore{
		Selector:      c.LoadMore.Selector,
		MaxAttempts:   intValue(c.LoadMore.MaxAttempts),
		WaitTimeout:   millis(c.LoadMore.WaitTimeoutMs),
		SettleTimeout: millis(c.LoadMore.SettleTimeoutMs),
	}
}

func (c Config) scroll() browser.ScrollToBottom {
	return browser.ScrollToBottom{
		Rounds:        intValue(c.Scroll.Rounds),
		SettleTimeout: millis(c.Scroll.SettleTimeoutMs),
	}
}

func (c Config) productsUrl(page int) string {
	return fmt.Sprintf("%s/products?page=%d", c.BaseUrl, page)
}

func (c Config) reviewsUrl() string {
	return c.BaseUrl + "/reviews"
}

func (c Config) testimonialsUrl() string {
	return c.BaseUrl + "/testimonials"
}
