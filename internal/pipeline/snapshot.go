package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sourcelens/audit-cli/internal/model"
)

// SnapshotFile is the on-disk YAML format for a pre-crawled site. It lets
// audits run without a live crawler.
type SnapshotFile struct {
	CompanyName string         `yaml:"company_name" json:"company_name"`
	Domain      string         `yaml:"domain" json:"domain"`
	Pages       []SnapshotPage `yaml:"pages" json:"pages"`
}

// SnapshotPage is one extracted page in a snapshot file. It doubles as the
// page payload for the audit API, so it carries json tags too.
type SnapshotPage struct {
	URL         string              `yaml:"url" json:"url"`
	Title       string              `yaml:"title" json:"title"`
	MainContent string              `yaml:"main_content" json:"main_content"`
	Headings    map[string][]string `yaml:"headings,omitempty" json:"headings,omitempty"`
	Metadata    map[string]string   `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// LoadSnapshot reads a YAML snapshot file.
func LoadSnapshot(path string) (*SnapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read snapshot %s", path)
	}
	var snap SnapshotFile
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse snapshot %s", path)
	}
	if snap.CompanyName == "" {
		return nil, eris.New("pipeline: snapshot is missing company_name")
	}
	if len(snap.Pages) == 0 {
		return nil, eris.New("pipeline: snapshot has no pages")
	}
	return &snap, nil
}

// ExtractedPages converts snapshot pages to the extractor output type.
func (s *SnapshotFile) ExtractedPages() []model.ExtractedPage {
	pages := make([]model.ExtractedPage, 0, len(s.Pages))
	for _, p := range s.Pages {
		pages = append(pages, model.ExtractedPage{
			URL:         p.URL,
			Title:       p.Title,
			MainContent: p.MainContent,
			WordCount:   wordCount(p.MainContent),
			Headings:    p.Headings,
			Metadata:    p.Metadata,
		})
	}
	return pages
}

func wordCount(s string) int {
	n := 0
	inWord := false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}
