package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"go.aimuz.me/kzmacro/internal/types"
)

// fileProfile is one element of the profiles file.
type fileProfile struct {
	Name           *string     `json:"name"`
	AssignedButton *string     `json:"assigned_button"`
	AssignedLabel  *string     `json:"assigned_label"`
	Blocks         []fileBlock `json:"blocks"`
}

type fileBlock struct {
	Text string `json:"text"`
	Wait int64  `json:"wait"`
}

// Encode writes profiles in the profiles file format.
func Encode(w io.Writer, profiles []types.Profile) error {
	out := lo.Map(profiles, func(p types.Profile, _ int) fileProfile {
		fp := fileProfile{
			Name: lo.ToPtr(p.Name),
			Blocks: lo.Map(p.Blocks, func(b types.Block, _ int) fileBlock {
				return fileBlock{Text: b.Label, Wait: b.WaitMS}
			}),
		}
		fp.AssignedLabel = lo.ToPtr(p.TriggerLabel())
		if p.Trigger != nil {
			fp.AssignedButton = lo.ToPtr(p.Trigger.Raw)
		}
		return fp
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	return nil
}

// Decode reads profiles from the profiles file format. Missing
// assigned_button, assigned_label and blocks default to no trigger, "None"
// and an empty sequence. Anything else malformed fails the whole decode.
func Decode(r io.Reader) ([]types.Profile, error) {
	var raw []fileProfile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrPersistence, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after profiles", ErrPersistence)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no profiles", ErrPersistence)
	}

	profiles := make([]types.Profile, 0, len(raw))
	for i, fp := range raw {
		if fp.Name == nil {
			return nil, fmt.Errorf("%w: profile %d: missing name", ErrPersistence, i)
		}

		p := newProfile(*fp.Name)
		for j, b := range fp.Blocks {
			if b.Wait < 0 {
				return nil, fmt.Errorf("%w: profile %q block %d: negative wait %d", ErrPersistence, *fp.Name, j, b.Wait)
			}
			p.Blocks = append(p.Blocks, types.Block{Label: b.Text, WaitMS: b.Wait})
		}

		if fp.AssignedButton != nil && *fp.AssignedButton != "" {
			label := types.NoTriggerLabel
			if fp.AssignedLabel != nil {
				label = *fp.AssignedLabel
			}
			p.Trigger = &types.TriggerSpec{Raw: *fp.AssignedButton, Display: label}
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Save writes every profile to path. A ".json" extension is added when the
// path has none. It returns the path actually written.
func (s *Store) Save(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrPersistence)
	}
	if filepath.Ext(path) == "" {
		path += ".json"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: create dir: %w", ErrPersistence, err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, s.Profiles()); err != nil {
		return "", err
	}

	// Write to a sibling temp file and rename so a failed save never
	// leaves a truncated profiles file behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("%w: write: %w", ErrPersistence, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("%w: rename: %w", ErrPersistence, err)
	}
	return path, nil
}

// Load replaces the store contents with the profiles in path. On any error
// the store is left unchanged.
func (s *Store) Load(path string) error {
	profiles, err := ReadFile(path)
	if err != nil {
		return err
	}
	return s.Replace(profiles)
}

// ReadFile decodes the profiles file at path without touching any store.
func ReadFile(path string) ([]types.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrPersistence, err)
	}
	defer f.Close()
	return Decode(f)
}
