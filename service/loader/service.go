// Package loader loads program images from YAML and keeps the registry the
// spawn syscall resolves image names against.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/strideos/stride/model/program"
)

// Service loads, caches and registers program images.
type Service struct {
	fs      afs.Service
	baseURL string
	mu      sync.RWMutex
	byName  map[string]*program.Program
	byURL   map[string]*program.Program
}

// New creates a loader. baseURL, when set, resolves relative locations.
func New(fs afs.Service, baseURL string) *Service {
	if fs == nil {
		fs = afs.New()
	}
	return &Service{
		fs:      fs,
		baseURL: baseURL,
		byName:  make(map[string]*program.Program),
		byURL:   make(map[string]*program.Program),
	}
}

// DecodeYAML decodes a program image from YAML and validates it.
func (s *Service) DecodeYAML(encoded []byte) (*program.Program, error) {
	ret := &program.Program{}
	if err := yaml.Unmarshal(encoded, ret); err != nil {
		return nil, err
	}
	expandEnv(ret)
	if issues := ret.Validate(); len(issues) > 0 {
		return nil, issues[0]
	}
	return ret, nil
}

// Load fetches a program image from a URL, registers it and caches it by
// location. A missing extension defaults to .yaml; a missing name defaults to
// the file name.
func (s *Service) Load(ctx context.Context, URL string) (*program.Program, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	if s.baseURL != "" && !strings.Contains(URL, "://") && !strings.HasPrefix(URL, "/") {
		URL = strings.TrimSuffix(s.baseURL, "/") + "/" + URL
	}

	s.mu.RLock()
	cached, ok := s.byURL[URL]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load program from %s: %w", URL, err)
	}
	img, err := s.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse program from %s: %w", URL, err)
	}
	if img.Name == "" {
		base := filepath.Base(URL)
		img.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	img.Source = &program.Source{URL: URL}

	s.mu.Lock()
	s.byURL[URL] = img
	s.byName[img.Name] = img
	s.mu.Unlock()
	return img, nil
}

// Register adds an in-code image to the registry, replacing any image with
// the same name.
func (s *Service) Register(img *program.Program) error {
	if img == nil {
		return fmt.Errorf("program is nil")
	}
	if issues := img.Validate(); len(issues) > 0 {
		return issues[0]
	}
	s.mu.Lock()
	s.byName[img.Name] = img
	s.mu.Unlock()
	return nil
}

// Lookup resolves an image by name.
func (s *Service) Lookup(name string) *program.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

// Refresh drops the cached copy for a location so the next Load re-reads it.
func (s *Service) Refresh(URL string) {
	s.mu.Lock()
	if img, ok := s.byURL[URL]; ok {
		delete(s.byURL, URL)
		delete(s.byName, img.Name)
	}
	s.mu.Unlock()
}

// expandEnv substitutes ${env.KEY} in string step args with the environment
// variable KEY, empty when unset.
func expandEnv(img *program.Program) {
	for _, step := range img.Steps {
		for k, v := range step.Args {
			if text, ok := v.(string); ok && strings.Contains(text, "${env.") {
				step.Args[k] = expandEnvExpr(text)
			}
		}
	}
}

func expandEnvExpr(value string) string {
	const prefix = "${env."
	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(value[i:], prefix)
		if idx < 0 {
			b.WriteString(value[i:])
			break
		}
		b.WriteString(value[i : i+idx])
		startKey := i + idx + len(prefix)
		endKey := strings.IndexByte(value[startKey:], '}')
		if endKey < 0 {
			b.WriteString(value[i+idx:])
			break
		}
		key := value[startKey : startKey+endKey]
		b.WriteString(os.Getenv(key))
		i = startKey + endKey + 1
	}
	return b.String()
}
