// Package content holds the customer-facing texts of the bot menu. A built-in
// set is embedded; deployments override it with their own YAML file.
package content

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Link struct {
	Text string `yaml:"text"`
	URL  string `yaml:"url"`
}

type Contacts struct {
	Text    string `yaml:"text"`
	Buttons []Link `yaml:"buttons"`
}

type MapPin struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Caption   string  `yaml:"caption"`
}

// Dialogue holds the prompts of the repair request dialogue.
type Dialogue struct {
	Name    string `yaml:"name"`
	Phone   string `yaml:"phone"`
	Problem string `yaml:"problem"`
	Done    string `yaml:"done"`
}

type Photo struct {
	Path    string `yaml:"path"`
	Caption string `yaml:"caption"`
}

// Content is the full set of menu texts. Texts other than Greeting are
// Markdown.
type Content struct {
	Greeting string   `yaml:"greeting"`
	About    string   `yaml:"about"`
	Prices   string   `yaml:"prices"`
	Hours    string   `yaml:"hours"`
	Address  string   `yaml:"address"`
	Map      MapPin   `yaml:"map"`
	Contacts Contacts `yaml:"contacts"`
	Photo    Photo    `yaml:"photo"`
	Dialogue Dialogue `yaml:"dialogue"`
}

// Default returns the embedded content.
func Default() *Content {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("content: embedded default is invalid: %v", err))
	}
	return c
}

// Load reads content from path. An empty path returns the default. Fields
// missing from the file keep their default values.
func Load(path string) (*Content, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content file: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse content file %s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("content file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a complete content document.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Content) validate() error {
	required := map[string]string{
		"greeting":         c.Greeting,
		"about":            c.About,
		"prices":           c.Prices,
		"hours":            c.Hours,
		"address":          c.Address,
		"contacts":         c.Contacts.Text,
		"dialogue.name":    c.Dialogue.Name,
		"dialogue.phone":   c.Dialogue.Phone,
		"dialogue.problem": c.Dialogue.Problem,
		"dialogue.done":    c.Dialogue.Done,
	}
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}
	for _, b := range c.Contacts.Buttons {
		if b.Text == "" || b.URL == "" {
			return fmt.Errorf("contact button needs text and url")
		}
	}
	return nil
}
