package glossary

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/parcelmap/listing-search/internal/cache"
	"github.com/parcelmap/listing-search/internal/metrics"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultGlossary []byte

var ErrInvalidGlossary = errors.New("invalid glossary")

// Term is a real-estate term shown next to search filters.
type Term struct {
	Term       string   `yaml:"term" json:"term"`
	Definition string   `yaml:"definition" json:"definition"`
	Aliases    []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// AppointmentType is a kind of showing a buyer can request for a listing.
type AppointmentType struct {
	Code            string `yaml:"code" json:"code"`
	Label           string `yaml:"label" json:"label"`
	DurationMinutes int    `yaml:"duration_minutes" json:"duration_minutes"`
	Description     string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Glossary is the reference document served by GET /v1/glossary.
type Glossary struct {
	Terms            []Term            `yaml:"terms" json:"terms"`
	AppointmentTypes []AppointmentType `yaml:"appointment_types" json:"appointment_types"`
}

// Parse decodes and validates a glossary document. Terms are returned sorted
// case-insensitively; appointment types keep file order.
func Parse(data []byte) (*Glossary, error) {
	var g Glossary
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGlossary, err)
	}

	seen := make(map[string]bool, len(g.Terms))
	for i, t := range g.Terms {
		name := strings.TrimSpace(t.Term)
		if name == "" || strings.TrimSpace(t.Definition) == "" {
			return nil, fmt.Errorf("%w: term %d needs a name and a definition", ErrInvalidGlossary, i)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate term %q", ErrInvalidGlossary, name)
		}
		seen[key] = true
		g.Terms[i].Term = name
	}

	codes := make(map[string]bool, len(g.AppointmentTypes))
	for _, a := range g.AppointmentTypes {
		if a.Code == "" || a.Label == "" {
			return nil, fmt.Errorf("%w: appointment type needs a code and a label", ErrInvalidGlossary)
		}
		if a.DurationMinutes <= 0 {
			return nil, fmt.Errorf("%w: appointment type %q: duration_minutes must be positive", ErrInvalidGlossary, a.Code)
		}
		if codes[a.Code] {
			return nil, fmt.Errorf("%w: duplicate appointment type %q", ErrInvalidGlossary, a.Code)
		}
		codes[a.Code] = true
	}

	sort.SliceStable(g.Terms, func(i, j int) bool {
		return strings.ToLower(g.Terms[i].Term) < strings.ToLower(g.Terms[j].Term)
	})
	if g.Terms == nil {
		g.Terms = []Term{}
	}
	if g.AppointmentTypes == nil {
		g.AppointmentTypes = []AppointmentType{}
	}
	return &g, nil
}

// Service loads the glossary file on demand and keeps the decoded document in
// the result cache under the reference class, so file edits are picked up once
// the entry expires.
type Service struct {
	path     string
	readFile func(string) ([]byte, error)
	cache    *cache.Cache
	recorder metrics.Recorder
}

// NewService creates a glossary service. An empty path serves the built-in
// glossary.
func NewService(path string, resultCache *cache.Cache, recorder metrics.Recorder) *Service {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Service{
		path:     path,
		readFile: os.ReadFile,
		cache:    resultCache,
		recorder: recorder,
	}
}

// Get returns the current glossary.
func (s *Service) Get(ctx context.Context) (*Glossary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.cacheKey()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if payload, ok := s.cache.Get(key); ok {
			var g Glossary
			if err := json.Unmarshal(payload, &g); err == nil {
				s.recorder.RecordCacheHit(string(cache.ClassReference))
				return &g, nil
			}
		}
		s.recorder.RecordCacheMiss(string(cache.ClassReference))
	}

	g, err := s.load()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("encode glossary: %w", err)
		}
		s.cache.Set(key, payload, 0)
	}
	return g, nil
}

func (s *Service) load() (*Glossary, error) {
	data := defaultGlossary
	if s.path != "" {
		raw, err := s.readFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("read glossary %s: %w", s.path, err)
		}
		data = raw
	}

	g, err := Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Info("[Glossary] Loaded reference data",
		"path", s.path,
		"terms", len(g.Terms),
		"appointment_types", len(g.AppointmentTypes))
	return g, nil
}

func (s *Service) cacheKey() (cache.Key, error) {
	digest, err := cache.Digest(map[string]string{"glossary": s.path})
	if err != nil {
		return cache.Key{}, fmt.Errorf("glossary cache key: %w", err)
	}
	return cache.Key{Class: cache.ClassReference, Digest: digest}, nil
}
