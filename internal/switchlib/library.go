// Package switchlib is the switch structure catalogue. A catalogue is embedded
// in the binary and can be replaced by a YAML file of the same shape.
package switchlib

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"layoutpub/pkg/domain"
)

//go:embed catalogue.yaml
var embedded []byte

type document struct {
	Structures []domain.SwitchStructure `yaml:"structures"`
}

// Library implements domain.SwitchLibrary over an immutable catalogue.
type Library struct {
	byID map[string]domain.SwitchStructure
}

var _ domain.SwitchLibrary = (*Library)(nil)

// Default returns the embedded catalogue.
func Default() *Library {
	lib, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded switch catalogue: %v", err))
	}
	return lib
}

// Load reads a catalogue from path, or returns the embedded one when path is empty.
func Load(path string) (*Library, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read switch catalogue: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a catalogue document.
func Parse(data []byte) (*Library, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse switch catalogue: %w", err)
	}
	lib := &Library{byID: make(map[string]domain.SwitchStructure, len(doc.Structures))}
	for _, s := range doc.Structures {
		if err := check(s); err != nil {
			return nil, err
		}
		if _, dup := lib.byID[s.ID]; dup {
			return nil, fmt.Errorf("switch structure %s declared twice", s.ID)
		}
		lib.byID[s.ID] = s
	}
	return lib, nil
}

func check(s domain.SwitchStructure) error {
	if s.ID == "" {
		return fmt.Errorf("switch structure without id")
	}
	if !slices.Contains(s.Joints, s.PresentationJoint) {
		return fmt.Errorf("switch structure %s: presentation joint %d not declared", s.ID, s.PresentationJoint)
	}
	for _, j := range []*domain.JointNumber{s.FrontJoint, s.SharedPassThroughJoint} {
		if j != nil && !slices.Contains(s.Joints, *j) {
			return fmt.Errorf("switch structure %s: joint %d not declared", s.ID, *j)
		}
	}
	if len(s.Alignments) == 0 {
		return fmt.Errorf("switch structure %s has no alignments", s.ID)
	}
	for _, a := range s.Alignments {
		if len(a.Joints) < 2 {
			return fmt.Errorf("switch structure %s: alignment %s is too short", s.ID, domain.JointSequence(a.Joints))
		}
		for _, j := range a.Joints {
			if !slices.Contains(s.Joints, j) {
				return fmt.Errorf("switch structure %s: alignment %s uses undeclared joint %d", s.ID, domain.JointSequence(a.Joints), j)
			}
		}
	}
	return nil
}

// Structure implements domain.SwitchLibrary.
func (l *Library) Structure(id string) (domain.SwitchStructure, bool) {
	s, ok := l.byID[id]
	return s, ok
}

// IDs lists the catalogue's structure ids in order.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.byID))
	for id := range l.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
