package nlp

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Gazetteer maps entity kinds to canonical options and the phrases that name them.
//
//	entities:
//	  topic:
//	    kubernetes: [kubernetes, k8s]
type Gazetteer struct {
	Entities map[string]map[string][]string `yaml:"entities"`
}

// gazetteerEntry is a compiled synonym pattern
type gazetteerEntry struct {
	kind    string
	option  string
	pattern *regexp.Regexp
}

// DefaultGazetteer returns the built-in technology topic list
func DefaultGazetteer() *Gazetteer {
	return &Gazetteer{Entities: map[string]map[string][]string{
		"topic": {
			"golang":                  {"golang", "go programming language"},
			"javascript":              {"javascript"},
			"typescript":              {"typescript"},
			"python":                  {"python"},
			"rust":                    {"rust programming language", "rustlang"},
			"kubernetes":              {"kubernetes", "k8s"},
			"docker":                  {"docker"},
			"postgresql":              {"postgresql", "postgres"},
			"machine learning":        {"machine learning", "deep learning"},
			"artificial intelligence": {"artificial intelligence", "generative ai"},
			"electric vehicles":       {"electric vehicle", "electric vehicles"},
			"open source":             {"open source", "open-source"},
			"security":                {"cybersecurity", "vulnerability", "vulnerabilities"},
			"web development":         {"web development", "frontend", "backend"},
		},
	}}
}

// LoadGazetteer reads a YAML gazetteer from path
func LoadGazetteer(path string) (*Gazetteer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read gazetteer: %w", err)
	}
	return ParseGazetteer(data)
}

// ParseGazetteer decodes a YAML gazetteer document
func ParseGazetteer(data []byte) (*Gazetteer, error) {
	g := &Gazetteer{}
	if err := yaml.Unmarshal(data, g); err != nil {
		return nil, fmt.Errorf("failed to parse gazetteer: %w", err)
	}
	if len(g.Entities) == 0 {
		return nil, fmt.Errorf("gazetteer has no entities")
	}
	return g, nil
}

// compile turns the gazetteer into case-insensitive whole-phrase patterns.
// Longer phrases come first so "machine learning" wins over a shorter overlapping synonym.
func (g *Gazetteer) compile() []gazetteerEntry {
	if g == nil {
		return nil
	}
	type phrase struct {
		kind, option, text string
	}
	var phrases []phrase
	for kind, options := range g.Entities {
		for option, synonyms := range options {
			if len(synonyms) == 0 {
				synonyms = []string{option}
			}
			for _, s := range synonyms {
				s = strings.TrimSpace(s)
				if s != "" {
					phrases = append(phrases, phrase{kind: kind, option: option, text: s})
				}
			}
		}
	}
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i].text) != len(phrases[j].text) {
			return len(phrases[i].text) > len(phrases[j].text)
		}
		return phrases[i].text < phrases[j].text
	})

	entries := make([]gazetteerEntry, 0, len(phrases))
	for _, p := range phrases {
		entries = append(entries, gazetteerEntry{
			kind:    p.kind,
			option:  p.option,
			pattern: regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])(` + regexp.QuoteMeta(p.text) + `)(?:$|[^\p{L}\p{N}])`),
		})
	}
	return entries
}
