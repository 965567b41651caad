package rulestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/webscoutlabs/webscout/internal/model"
)

// Store persists one SiteRules document per domain as a JSON file. Every
// mutation rewrites the file atomically and bumps the version.
type Store struct {
	dir string
	log zerolog.Logger
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create rules dir: %w", err)
	}
	return &Store{dir: dir, log: log.With().Str("component", "rulestore").Logger()}, nil
}

// path maps a domain to its rules file.
func (s *Store) path(domain string) string {
	name := strings.ToLower(domain)
	name = strings.ReplaceAll(name, ":", "_")
	return filepath.Join(s.dir, name+".json")
}

// Load returns the rules for a domain. A missing file yields an empty,
// version-zero document rather than an error.
func (s *Store) Load(domain string) (*model.SiteRules, error) {
	data, err := os.ReadFile(s.path(domain))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &model.SiteRules{Domain: domain}, nil
		}
		return nil, fmt.Errorf("read rules for %s: %w", domain, err)
	}
	var rules model.SiteRules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decode rules for %s: %w", domain, err)
	}
	return &rules, nil
}

// save writes the document via a temp file and rename so readers never see
// a partial file.
func (s *Store) save(rules *model.SiteRules) error {
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules for %s: %w", rules.Domain, err)
	}
	target := s.path(rules.Domain)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write rules for %s: %w", rules.Domain, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("replace rules for %s: %w", rules.Domain, err)
	}
	return nil
}

// Upsert inserts the component or, when an entry with the same id and page
// URL exists, updates it in place. The version increments either way.
func (s *Store) Upsert(domain string, tc model.TrainedComponent) (*model.SiteRules, error) {
	rules, err := s.Load(domain)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tc.LastUpdated = now

	found := false
	for i := range rules.TrainedComponents {
		existing := &rules.TrainedComponents[i]
		if existing.ID == tc.ID && existing.PageURL == tc.PageURL {
			tc.CreatedAt = existing.CreatedAt
			*existing = tc
			found = true
			break
		}
	}
	if !found {
		tc.CreatedAt = now
		rules.TrainedComponents = append(rules.TrainedComponents, tc)
	}

	rules.Domain = domain
	rules.Version++
	rules.LastUpdated = now
	if err := s.save(rules); err != nil {
		return nil, err
	}
	s.log.Info().Str("domain", domain).Str("component", tc.ID).
		Bool("updated", found).Int("version", rules.Version).Msg("trained component saved")
	return rules, nil
}

// Delete removes a component by id across all page URLs. It reports whether
// anything was removed; removal bumps the version.
func (s *Store) Delete(domain, id string) (bool, error) {
	rules, err := s.Load(domain)
	if err != nil {
		return false, err
	}
	kept := rules.TrainedComponents[:0]
	removed := false
	for _, tc := range rules.TrainedComponents {
		if tc.ID == id {
			removed = true
			continue
		}
		kept = append(kept, tc)
	}
	if !removed {
		return false, nil
	}
	rules.TrainedComponents = kept
	rules.Version++
	rules.LastUpdated = time.Now()
	if err := s.save(rules); err != nil {
		return false, err
	}
	return true, nil
}
