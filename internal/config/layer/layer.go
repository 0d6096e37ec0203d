// Package layer stacks configuration sources by priority.
package layer

import (
	"sort"
	"sync"
)

// Source identifies where a layer came from.
type Source int

const (
	// SourceDefault holds built-in defaults.
	SourceDefault Source = iota
	// SourceFile holds settings read from a config file.
	SourceFile
	// SourceEnv holds environment overrides.
	SourceEnv
	// SourceFlags holds command-line overrides.
	SourceFlags
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "env"
	case SourceFlags:
		return "flags"
	default:
		return "unknown"
	}
}

// Layer is one source of settings. Higher priorities win.
type Layer struct {
	Name     string
	Source   Source
	Priority int
	Data     map[string]any
}

// NewLayer creates a layer. The priority defaults to the source order.
func NewLayer(name string, source Source, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: int(source) * 100,
		Data:     data,
	}
}

// Get returns the value at a dotted path.
func (l *Layer) Get(path string) (any, bool) {
	return GetByPath(l.Data, path)
}

// Stack merges layers in priority order.
type Stack struct {
	mu     sync.RWMutex
	layers []*Layer
}

// NewStack creates an empty stack.
func NewStack() *Stack {
	return &Stack{}
}

// Set adds l, replacing a layer with the same name.
func (s *Stack) Set(l *Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.layers {
		if existing.Name == l.Name {
			s.layers[i] = l
			s.sortLocked()
			return
		}
	}
	s.layers = append(s.layers, l)
	s.sortLocked()
}

// Remove deletes the named layer.
func (s *Stack) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.layers {
		if l.Name == name {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return true
		}
	}
	return false
}

// Layers returns the layers, lowest priority first.
func (s *Stack) Layers() []*Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Layer(nil), s.layers...)
}

// Merged returns every layer merged into one map.
func (s *Stack) Merged() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]any)
	for _, l := range s.layers {
		result = DeepMerge(result, l.Data)
	}
	return result
}

// Origin returns the layer that supplies the effective value at path.
func (s *Stack) Origin(path string) (*Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.layers) - 1; i >= 0; i-- {
		if _, ok := s.layers[i].Get(path); ok {
			return s.layers[i], true
		}
	}
	return nil, false
}

func (s *Stack) sortLocked() {
	sort.SliceStable(s.layers, func(i, j int) bool {
		return s.layers[i].Priority < s.layers[j].Priority
	})
}
