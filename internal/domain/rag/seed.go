package rag

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedPack is a YAML bundle of demo knowledge documents loaded at startup.
//
//	name: acme-demo
//	documents:
//	  - name: Pricing Overview
//	    content: |
//	      ...
type SeedPack struct {
	Name      string         `yaml:"name"`
	Documents []SeedDocument `yaml:"documents"`
}

// SeedDocument is one document inside a seed pack.
type SeedDocument struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

// LoadSeedPack parses a seed pack file.
func LoadSeedPack(path string) (*SeedPack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rag: read seed pack: %w", err)
	}
	var pack SeedPack
	if err := yaml.Unmarshal(raw, &pack); err != nil {
		return nil, fmt.Errorf("rag: parse seed pack: %w", err)
	}
	if len(pack.Documents) == 0 {
		return nil, fmt.Errorf("rag: seed pack %q has no documents", pack.Name)
	}
	return &pack, nil
}

// IngestSeedPack ingests every document of the pack. Documents whose name
// already exists as a source are skipped so repeated startups stay idempotent.
func (s *Store) IngestSeedPack(ctx context.Context, pack *SeedPack) (int, error) {
	existing, err := s.ListSources(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, src := range existing {
		seen[src.Name] = struct{}{}
	}

	ingested := 0
	for _, doc := range pack.Documents {
		if _, ok := seen[doc.Name]; ok {
			continue
		}
		if _, err := s.Ingest(ctx, IngestInput{
			Name:       doc.Name,
			SourceType: "seed",
			Content:    doc.Content,
		}); err != nil {
			return ingested, fmt.Errorf("rag: seed %q: %w", doc.Name, err)
		}
		ingested++
	}
	return ingested, nil
}
