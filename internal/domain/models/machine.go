package models

import (
	"fmt"
	"sort"
	"strings"
)

// Machine is one line asset operators can log against.
type Machine struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultMachines is the roster shipped with the line.
var DefaultMachines = []Machine{
	{ID: "M001", Name: "Extruder A"},
	{ID: "M002", Name: "Extruder B"},
	{ID: "M003", Name: "Extruder C"},
}

// Roster is the fixed set of machines accepted by the entry forms.
type Roster struct {
	machines []Machine
	byID     map[string]Machine
}

// NewRoster builds a roster, rejecting blank or duplicate identifiers.
func NewRoster(machines []Machine) (*Roster, error) {
	r := &Roster{byID: make(map[string]Machine, len(machines))}
	for _, m := range machines {
		id := strings.TrimSpace(m.ID)
		if id == "" {
			return nil, fmt.Errorf("machine id must not be empty")
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("duplicate machine id %s", id)
		}
		m.ID = id
		m.Name = strings.TrimSpace(m.Name)
		r.byID[id] = m
		r.machines = append(r.machines, m)
	}
	sort.Slice(r.machines, func(i, j int) bool { return r.machines[i].ID < r.machines[j].ID })
	return r, nil
}

// Contains reports whether id is a known machine.
func (r *Roster) Contains(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// Machines returns the roster ordered by id.
func (r *Roster) Machines() []Machine {
	out := make([]Machine, len(r.machines))
	copy(out, r.machines)
	return out
}

// ParseMachines reads the "ID:Name,ID:Name" form used by the MACHINES setting.
func ParseMachines(raw string) ([]Machine, error) {
	var out []Machine
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, name, _ := strings.Cut(part, ":")
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("invalid machine entry %q", part)
		}
		out = append(out, Machine{ID: id, Name: strings.TrimSpace(name)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no machines in %q", raw)
	}
	return out, nil
}
