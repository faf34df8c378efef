package content

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultContent(t *testing.T) {
	c := Default()
	if !strings.Contains(c.Greeting, "Привет") {
		t.Errorf("unexpected greeting %q", c.Greeting)
	}
	if c.Map.Latitude != 51.221450 || c.Map.Longitude != 51.363653 {
		t.Errorf("unexpected map pin %+v", c.Map)
	}
	if len(c.Contacts.Buttons) != 5 {
		t.Errorf("expected 5 contact buttons, got %d", len(c.Contacts.Buttons))
	}
	if c.Photo.Path == "" {
		t.Error("expected a default photo path")
	}
	if !strings.Contains(c.Dialogue.Name, "Как вас зовут") || c.Dialogue.Done == "" {
		t.Errorf("unexpected dialogue prompts %+v", c.Dialogue)
	}
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Hours != Default().Hours {
		t.Error("expected default hours")
	}
}

func TestLoadOverridesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	doc := "hours: |-\n  Mon-Fri 9-18\nmap:\n  latitude: 1.5\n  longitude: 2.5\ndialogue:\n  name: What is your name?\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Hours != "Mon-Fri 9-18" {
		t.Errorf("expected overridden hours, got %q", c.Hours)
	}
	if c.Map.Latitude != 1.5 || c.Map.Longitude != 2.5 {
		t.Errorf("expected overridden map pin, got %+v", c.Map)
	}
	if c.Dialogue.Name != "What is your name?" || c.Dialogue.Phone != Default().Dialogue.Phone {
		t.Errorf("expected partial dialogue override, got %+v", c.Dialogue)
	}
	if c.About != Default().About {
		t.Error("fields absent from the file must keep their defaults")
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	broken := filepath.Join(dir, "broken.yaml")
	os.WriteFile(broken, []byte("hours: [unterminated"), 0o644)
	if _, err := Load(broken); err == nil {
		t.Error("expected parse error")
	}

	blank := filepath.Join(dir, "blank.yaml")
	os.WriteFile(blank, []byte("about: \"  \"\n"), 0o644)
	if _, err := Load(blank); err == nil {
		t.Error("expected validation error for blank about")
	}
}
