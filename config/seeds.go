package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SeedList manages the detail-page URLs a scrape run starts from. The
// list lives in a JSON file so new listings can be queued without a
// redeploy.
type SeedList struct {
	path string
	mu   sync.RWMutex
	urls []string
}

func NewSeedList(path string) *SeedList {
	return &SeedList{path: path}
}

// Load reads the seed file. A missing file is not an error; it leaves
// the list empty so the server can still start on a fresh deployment.
func (s *SeedList) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		s.urls = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read seeds file: %v", err)
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return fmt.Errorf("failed to parse seeds file: %v", err)
	}

	s.urls = urls
	return nil
}

// Save writes the current list back to the seed file.
func (s *SeedList) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := json.MarshalIndent(s.urls, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal seeds: %v", err)
	}

	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write seeds file: %v", err)
	}
	return nil
}

// URLs returns a copy of the seed URLs.
func (s *SeedList) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]string, len(s.urls))
	copy(urls, s.urls)
	return urls
}

// Add appends URLs that are not already present.
func (s *SeedList) Add(urls ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(s.urls))
	for _, u := range s.urls {
		seen[u] = struct{}{}
	}
	for _, u := range urls {
		if _, dup := seen[u]; dup || u == "" {
			continue
		}
		seen[u] = struct{}{}
		s.urls = append(s.urls, u)
	}
}

// Len returns the number of seed URLs.
func (s *SeedList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urls)
}
