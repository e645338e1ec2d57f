package routine

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/javiermolinar/lifeplan/internal/task"
)

// fileData is the on-disk shape of a routine file.
type fileData struct {
	Routines []routineData `yaml:"routines"`
}

type routineData struct {
	Title      string   `yaml:"title"`
	Domain     string   `yaml:"domain"`
	Use        string   `yaml:"use"`
	Duration   int      `yaml:"duration_minutes"`
	Slots      string   `yaml:"slots,omitempty"`
	Tags       []string `yaml:"tags,omitempty"`
	Recurrence string   `yaml:"recurrence,omitempty"`
	Checklist  []string `yaml:"checklist,omitempty"`
	Active     *bool    `yaml:"active,omitempty"`
}

// ParseRoutineFile decodes a YAML document with a top-level "routines" list.
// Routines are active unless the file says otherwise.
func ParseRoutineFile(r io.Reader, now time.Time) ([]*task.Routine, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var data fileData
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding routine file: %w", err)
	}

	out := make([]*task.Routine, 0, len(data.Routines))
	for i, rd := range data.Routines {
		rt, err := task.NewRoutine(rd.Title, rd.Domain, rd.Use, rd.Duration, now)
		if err != nil {
			return nil, fmt.Errorf("routine %d (%q): %w", i+1, rd.Title, err)
		}
		rt.Slots = strings.TrimSpace(rd.Slots)
		rt.Recurrence = strings.TrimSpace(rd.Recurrence)
		if rd.Tags != nil {
			rt.Tags = rd.Tags
		}
		if rd.Checklist != nil {
			rt.Checklist = rd.Checklist
		}
		if rd.Active != nil {
			rt.Active = *rd.Active
		}
		out = append(out, rt)
	}
	return out, nil
}

// WriteRoutineFile encodes routines in the format ParseRoutineFile reads.
func WriteRoutineFile(w io.Writer, routines []*task.Routine) error {
	data := fileData{Routines: make([]routineData, 0, len(routines))}
	for _, r := range routines {
		active := r.Active
		data.Routines = append(data.Routines, routineData{
			Title:      r.Title,
			Domain:     string(r.Domain),
			Use:        string(r.Use),
			Duration:   r.DurationMinutes,
			Slots:      r.Slots,
			Tags:       r.Tags,
			Recurrence: r.Recurrence,
			Checklist:  r.Checklist,
			Active:     &active,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&data); err != nil {
		return fmt.Errorf("encoding routine file: %w", err)
	}
	return enc.Close()
}
