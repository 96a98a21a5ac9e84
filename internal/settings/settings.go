// Package settings holds the user-facing feature toggles.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Settings gates the switching features. JSON field names are part of the
// persisted format.
type Settings struct {
	QuickSwitchEnabled       bool `json:"quickSwitchEnabled" yaml:"quickSwitchEnabled"`
	MRUPopupEnabled          bool `json:"mruPopupEnabled" yaml:"mruPopupEnabled"`
	AutoSwitchOnCloseEnabled bool `json:"autoSwitchOnCloseEnabled" yaml:"autoSwitchOnCloseEnabled"`
	ShowPopupOnQuickSwitch   bool `json:"showPopupOnQuickSwitch" yaml:"showPopupOnQuickSwitch"`
	HoldModeEnabled          bool `json:"holdModeEnabled" yaml:"holdModeEnabled"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	QuickSwitchEnabled       *bool `json:"quickSwitchEnabled,omitempty"`
	MRUPopupEnabled          *bool `json:"mruPopupEnabled,omitempty"`
	AutoSwitchOnCloseEnabled *bool `json:"autoSwitchOnCloseEnabled,omitempty"`
	ShowPopupOnQuickSwitch   *bool `json:"showPopupOnQuickSwitch,omitempty"`
	HoldModeEnabled          *bool `json:"holdModeEnabled,omitempty"`
}

func Defaults() Settings {
	return Settings{
		QuickSwitchEnabled:       true,
		MRUPopupEnabled:          true,
		AutoSwitchOnCloseEnabled: true,
	}
}

// PopupMode is what the quick-switch shortcut opens.
type PopupMode int

const (
	PopupNone PopupMode = iota
	PopupQuick
	PopupHold
)

// QuickSwitchPopupMode derives the popup behaviour of the quick-switch
// shortcut. Hold mode always implies a popup, whatever
// ShowPopupOnQuickSwitch says.
func (s Settings) QuickSwitchPopupMode() PopupMode {
	switch {
	case s.HoldModeEnabled:
		return PopupHold
	case s.ShowPopupOnQuickSwitch:
		return PopupQuick
	default:
		return PopupNone
	}
}

// Apply returns s with every non-nil field of p copied over.
func (s Settings) Apply(p Patch) Settings {
	for _, f := range fields {
		if v := f.patch(&p); *v != nil {
			*f.value(&s) = **v
		}
	}
	return s
}

// IsEmpty reports whether p changes nothing.
func (p Patch) IsEmpty() bool {
	for _, f := range fields {
		if *f.patch(&p) != nil {
			return false
		}
	}
	return true
}

// Decode merges a stored record over Defaults. Unknown keys are ignored and
// missing keys keep their default. Fields are decoded one at a time, so a
// mistyped field keeps its default without discarding the others; the
// returned error names every field that was skipped.
func Decode(raw []byte) (Settings, error) {
	s := Defaults()
	if len(strings.TrimSpace(string(raw))) == 0 {
		return s, nil
	}
	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	var errs []error
	for _, key := range sortedKeys(record) {
		f, ok := lookup(key)
		if !ok {
			continue
		}
		var v *bool
		if err := json.Unmarshal(record[key], &v); err != nil {
			errs = append(errs, fmt.Errorf("decode setting %s: %w", f.name, err))
			continue
		}
		if v != nil {
			*f.value(&s) = *v
		}
	}
	return s, errors.Join(errs...)
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodePatch parses a partial record, ignoring unknown keys.
func DecodePatch(raw []byte) (Patch, error) {
	var p Patch
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Patch{}, fmt.Errorf("decode settings patch: %w", err)
	}
	return p, nil
}

// Encode serialises the full record.
func (s Settings) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// ParseAssignments builds a Patch from key=value pairs as typed on the
// command line. Keys are the JSON field names, matched case-insensitively.
func ParseAssignments(pairs []string) (Patch, error) {
	var p Patch
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return Patch{}, fmt.Errorf("expected key=value, got %q", pair)
		}
		f, ok := lookup(strings.TrimSpace(key))
		if !ok {
			return Patch{}, fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Names(), ", "))
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return Patch{}, fmt.Errorf("setting %s: %w", f.name, err)
		}
		*f.patch(&p) = &b
	}
	return p, nil
}

// Names lists the setting keys in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.name)
	}
	sort.Strings(names)
	return names
}

// Value returns the named setting.
func (s Settings) Value(name string) (bool, bool) {
	f, ok := lookup(name)
	if !ok {
		return false, false
	}
	return *f.value(&s), true
}

type field struct {
	name  string
	value func(*Settings) *bool
	patch func(*Patch) **bool
}

var fields = []field{
	{
		name:  "quickSwitchEnabled",
		value: func(s *Settings) *bool { return &s.QuickSwitchEnabled },
		patch: func(p *Patch) **bool { return &p.QuickSwitchEnabled },
	},
	{
		name:  "mruPopupEnabled",
		value: func(s *Settings) *bool { return &s.MRUPopupEnabled },
		patch: func(p *Patch) **bool { return &p.MRUPopupEnabled },
	},
	{
		name:  "autoSwitchOnCloseEnabled",
		value: func(s *Settings) *bool { return &s.AutoSwitchOnCloseEnabled },
		patch: func(p *Patch) **bool { return &p.AutoSwitchOnCloseEnabled },
	},
	{
		name:  "showPopupOnQuickSwitch",
		value: func(s *Settings) *bool { return &s.ShowPopupOnQuickSwitch },
		patch: func(p *Patch) **bool { return &p.ShowPopupOnQuickSwitch },
	},
	{
		name:  "holdModeEnabled",
		value: func(s *Settings) *bool { return &s.HoldModeEnabled },
		patch: func(p *Patch) **bool { return &p.HoldModeEnabled },
	},
}

func lookup(name string) (field, bool) {
	for _, f := range fields {
		if strings.EqualFold(f.name, name) {
			return f, true
		}
	}
	return field{}, false
}
