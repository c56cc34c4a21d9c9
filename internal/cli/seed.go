package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"layoutpub/pkg/domain"
)

// SeedFile is a YAML description of layout drafts. Assets refer to each other
// by key; ids are allocated by the store.
type SeedFile struct {
	TrackNumbers   []SeedTrackNumber   `yaml:"trackNumbers"`
	ReferenceLines []SeedReferenceLine `yaml:"referenceLines"`
	KmPosts        []SeedKmPost        `yaml:"kmPosts"`
	Switches       []SeedSwitch        `yaml:"switches"`
	LocationTracks []SeedLocationTrack `yaml:"locationTracks"`
}

// SeedCommon holds the fields every seeded asset shares.
type SeedCommon struct {
	Key      string             `yaml:"key"`
	State    domain.LayoutState `yaml:"state"`
	Official bool               `yaml:"official"`
}

type SeedTrackNumber struct {
	SeedCommon  `yaml:",inline"`
	Number      string `yaml:"number"`
	Description string `yaml:"description"`
}

type SeedReferenceLine struct {
	SeedCommon  `yaml:",inline"`
	TrackNumber string        `yaml:"trackNumber"`
	StartKm     string        `yaml:"startKm"`
	StartMeters float64       `yaml:"startMeters"`
	Segments    []SeedSegment `yaml:"segments"`
}

type SeedKmPost struct {
	SeedCommon  `yaml:",inline"`
	TrackNumber string        `yaml:"trackNumber"`
	Km          string        `yaml:"km"`
	Location    *domain.Point `yaml:"location"`
}

type SeedSwitch struct {
	SeedCommon `yaml:",inline"`
	Name       string      `yaml:"name"`
	Structure  string      `yaml:"structure"`
	Joints     []SeedJoint `yaml:"joints"`
}

type SeedJoint struct {
	Number int     `yaml:"number"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
}

type SeedLocationTrack struct {
	SeedCommon   `yaml:",inline"`
	Name         string                         `yaml:"name"`
	Description  string                         `yaml:"description"`
	TrackNumber  string                         `yaml:"trackNumber"`
	DuplicateOf  string                         `yaml:"duplicateOf"`
	Connectivity domain.TopologicalConnectivity `yaml:"connectivity"`
	StartSwitch  *SeedTopologyLink              `yaml:"startSwitch"`
	EndSwitch    *SeedTopologyLink              `yaml:"endSwitch"`
	Segments     []SeedSegment                  `yaml:"segments"`
}

type SeedTopologyLink struct {
	Switch string `yaml:"switch"`
	Joint  int    `yaml:"joint"`
}

// SeedSegment is a polyline, optionally linked to a switch. Points are
// [x, y] pairs.
type SeedSegment struct {
	Points     [][2]float64 `yaml:"points"`
	Switch     string       `yaml:"switch"`
	StartJoint int          `yaml:"startJoint"`
	EndJoint   int          `yaml:"endJoint"`
}

// SeedResult maps seed keys to the allocated ids.
type SeedResult struct {
	Branch   domain.Branch           `json:"branch"`
	IDs      map[string]domain.IntID `json:"ids"`
	Drafts   int                     `json:"drafts"`
	Official int                     `json:"official"`
}

// LoadSeedFile reads and decodes a seed file. Unknown keys are rejected.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML.
func ParseSeed(data []byte) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Apply stores the seed in one transaction. Official assets are published
// directly without validation.
func (f *SeedFile) Apply(ctx context.Context, store domain.LayoutStore, branch domain.Branch, user string) (SeedResult, error) {
	res := SeedResult{Branch: branch, IDs: make(map[string]domain.IntID)}
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		s := &seeder{tx: tx, branch: branch, user: user, res: &res}
		return s.apply(f)
	})
	if err != nil {
		return SeedResult{}, err
	}
	return res, nil
}

type seeder struct {
	tx     domain.Transaction
	branch domain.Branch
	user   string
	res    *SeedResult
}

func (s *seeder) apply(f *SeedFile) error {
	for _, tn := range f.TrackNumbers {
		asset := domain.TrackNumber{AssetHeader: s.header(tn.SeedCommon), Number: tn.Number, Description: tn.Description}
		if err := save(s, s.tx.TrackNumbers(), tn.SeedCommon, asset); err != nil {
			return err
		}
	}
	for _, rl := range f.ReferenceLines {
		tnID, err := s.ref(rl.TrackNumber)
		if err != nil {
			return err
		}
		km, err := domain.ParseKmNumber(rl.StartKm)
		if err != nil {
			return err
		}
		geom, err := s.alignment(rl.Segments)
		if err != nil {
			return err
		}
		asset := domain.ReferenceLine{
			AssetHeader:   s.header(rl.SeedCommon),
			TrackNumberID: tnID,
			StartAddress:  domain.TrackMeter{KmNumber: km, Meters: rl.StartMeters},
			Geometry:      geom,
		}
		if err := save(s, s.tx.ReferenceLines(), rl.SeedCommon, asset); err != nil {
			return err
		}
	}
	for _, kp := range f.KmPosts {
		km, err := domain.ParseKmNumber(kp.Km)
		if err != nil {
			return err
		}
		asset := domain.KmPost{AssetHeader: s.header(kp.SeedCommon), KmNumber: km, Location: kp.Location}
		if kp.TrackNumber != "" {
			tnID, err := s.ref(kp.TrackNumber)
			if err != nil {
				return err
			}
			asset.TrackNumberID = &tnID
		}
		if err := save(s, s.tx.KmPosts(), kp.SeedCommon, asset); err != nil {
			return err
		}
	}
	for _, sw := range f.Switches {
		asset := domain.Switch{AssetHeader: s.header(sw.SeedCommon), Name: sw.Name, StructureID: sw.Structure}
		for _, j := range sw.Joints {
			asset.Joints = append(asset.Joints, domain.SwitchJoint{Number: domain.JointNumber(j.Number), Location: domain.Point{X: j.X, Y: j.Y}})
		}
		if err := save(s, s.tx.Switches(), sw.SeedCommon, asset); err != nil {
			return err
		}
	}
	for _, lt := range f.LocationTracks {
		asset, err := s.locationTrack(lt)
		if err != nil {
			return err
		}
		if err := save(s, s.tx.LocationTracks(), lt.SeedCommon, asset); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) locationTrack(lt SeedLocationTrack) (domain.LocationTrack, error) {
	tnID, err := s.ref(lt.TrackNumber)
	if err != nil {
		return domain.LocationTrack{}, err
	}
	geom, err := s.alignment(lt.Segments)
	if err != nil {
		return domain.LocationTrack{}, err
	}
	asset := domain.LocationTrack{
		AssetHeader:             s.header(lt.SeedCommon),
		Name:                    lt.Name,
		Description:             lt.Description,
		TrackNumberID:           tnID,
		TopologicalConnectivity: lt.Connectivity,
		Geometry:                geom,
	}
	if asset.TopologicalConnectivity == "" {
		asset.TopologicalConnectivity = domain.ConnectivityNone
	}
	if lt.DuplicateOf != "" {
		dup, err := s.ref(lt.DuplicateOf)
		if err != nil {
			return domain.LocationTrack{}, err
		}
		asset.DuplicateOf = &dup
	}
	if asset.TopologyStartSwitch, err = s.topology(lt.StartSwitch); err != nil {
		return domain.LocationTrack{}, err
	}
	if asset.TopologyEndSwitch, err = s.topology(lt.EndSwitch); err != nil {
		return domain.LocationTrack{}, err
	}
	return asset, nil
}

func (s *seeder) topology(link *SeedTopologyLink) (*domain.TopologySwitch, error) {
	if link == nil {
		return nil, nil
	}
	id, err := s.ref(link.Switch)
	if err != nil {
		return nil, err
	}
	return &domain.TopologySwitch{SwitchID: id, Joint: domain.JointNumber(link.Joint)}, nil
}

// alignment builds geometry with m-values measured from the first point.
// Every seeded segment gets a fresh geometry id.
func (s *seeder) alignment(segments []SeedSegment) (domain.Alignment, error) {
	var (
		out  domain.Alignment
		m    float64
		prev *domain.Point
	)
	for _, seg := range segments {
		next := domain.Segment{GeometryID: uuid.NewString()}
		for _, xy := range seg.Points {
			p := domain.Point{X: xy[0], Y: xy[1]}
			if prev != nil {
				m += prev.DistanceTo(p)
			}
			next.Points = append(next.Points, domain.AlignmentPoint{X: p.X, Y: p.Y, M: m})
			prev = &p
		}
		if seg.Switch != "" {
			id, err := s.ref(seg.Switch)
			if err != nil {
				return domain.Alignment{}, err
			}
			next.SwitchID = &id
			next.StartJoint = joint(seg.StartJoint)
			next.EndJoint = joint(seg.EndJoint)
		}
		out.Segments = append(out.Segments, next)
	}
	return out, nil
}

func joint(n int) *domain.JointNumber {
	if n == 0 {
		return nil
	}
	j := domain.JointNumber(n)
	return &j
}

func (s *seeder) header(c SeedCommon) domain.AssetHeader {
	state := c.State
	if state == "" {
		state = domain.StateInUse
	}
	return domain.AssetHeader{State: state, ChangeUser: s.user}
}

func (s *seeder) ref(key string) (domain.IntID, error) {
	id, ok := s.res.IDs[key]
	if !ok {
		return domain.IntID{}, domain.NewErrorf(domain.CodeInvalidArgument, nil, "seed: unknown key %q", key)
	}
	return id, nil
}

func save[T domain.Versioned[T]](s *seeder, w domain.AssetWriter[T], c SeedCommon, asset T) error {
	saved, err := w.SaveDraft(s.branch, asset)
	if err != nil {
		return err
	}
	if c.Official {
		if _, err := w.Publish(s.branch, saved.Header().RowVersion()); err != nil {
			return err
		}
		s.res.Official++
	} else {
		s.res.Drafts++
	}
	if c.Key != "" {
		if _, dup := s.res.IDs[c.Key]; dup {
			return domain.NewErrorf(domain.CodeInvalidArgument, nil, "seed: duplicate key %q", c.Key)
		}
		s.res.IDs[c.Key] = saved.Header().ID
	}
	return nil
}
