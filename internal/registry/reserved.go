package registry

import (
	"fmt"
	"strings"

	"github.com/feral-file/ff-name-registry/internal/adapter"
)

// ReservedRegistry defines the interface for reserved name lookups
//
//go:generate mockgen -source=reserved.go -destination=../mocks/reserved_registry.go -package=mocks -mock_names=ReservedRegistry=MockReservedRegistry
type ReservedRegistry interface {
	// IsReserved checks if a name is withheld from public acquisition
	IsReserved(name string) bool
}

// ReservedData represents the structure of the reserved names JSON file
type ReservedData struct {
	// Names are reserved exactly (case-insensitive)
	Names []string `json:"names"`
	// Prefixes reserve every name starting with them (case-insensitive)
	Prefixes []string `json:"prefixes"`
}

type reservedRegistry struct {
	names    map[string]bool
	prefixes []string
}

// ReservedLoader loads the reserved names registry
type ReservedLoader struct {
	fs   adapter.FileSystem
	json adapter.JSON
}

// NewReservedLoader creates a loader reading through fs and decoding with json
func NewReservedLoader(fs adapter.FileSystem, json adapter.JSON) *ReservedLoader {
	return &ReservedLoader{fs: fs, json: json}
}

// Load reads the reserved names file. An empty path yields an empty registry.
func (l *ReservedLoader) Load(filePath string) (ReservedRegistry, error) {
	if filePath == "" {
		return NewReservedRegistry(ReservedData{}), nil
	}

	data, err := l.fs.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read reserved names file: %w", err)
	}

	var reserved ReservedData
	if err := l.json.Unmarshal(data, &reserved); err != nil {
		return nil, fmt.Errorf("failed to parse reserved names JSON: %w", err)
	}

	return NewReservedRegistry(reserved), nil
}

// NewReservedRegistry builds a registry from already decoded data
func NewReservedRegistry(data ReservedData) ReservedRegistry {
	r := &reservedRegistry{names: make(map[string]bool, len(data.Names))}
	for _, n := range data.Names {
		if n = normalize(n); n != "" {
			r.names[n] = true
		}
	}
	for _, p := range data.Prefixes {
		if p = normalize(p); p != "" {
			r.prefixes = append(r.prefixes, p)
		}
	}
	return r
}

// IsReserved checks if a name is withheld from public acquisition
func (r *reservedRegistry) IsReserved(name string) bool {
	if r == nil {
		return false
	}
	name = normalize(name)
	if r.names[name] {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
