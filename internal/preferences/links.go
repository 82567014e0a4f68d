package preferences

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed links.yaml
var linksYAML []byte

const AllCategories = "All"

type QuickLink struct {
	ID       int    `yaml:"id" json:"id"`
	Title    string `yaml:"title" json:"title"`
	URL      string `yaml:"url" json:"url"`
	Icon     string `yaml:"icon" json:"icon"`
	Category string `yaml:"category" json:"category"`
	Color    string `yaml:"color" json:"color"`
}

func LoadLinks() ([]QuickLink, error) {
	var links []QuickLink
	if err := yaml.Unmarshal(linksYAML, &links); err != nil {
		return nil, fmt.Errorf("parsing quick links: %w", err)
	}
	return links, nil
}

// LinkCategories lists "All" followed by each category in first-seen order.
func LinkCategories(links []QuickLink) []string {
	categories := []string{AllCategories}
	seen := make(map[string]bool)
	for _, link := range links {
		if !seen[link.Category] {
			seen[link.Category] = true
			categories = append(categories, link.Category)
		}
	}
	return categories
}

func FilterLinks(links []QuickLink, category string) []QuickLink {
	if category == "" || category == AllCategories {
		return links
	}
	filtered := []QuickLink{}
	for _, link := range links {
		if link.Category == category {
			filtered = append(filtered, link)
		}
	}
	return filtered
}
