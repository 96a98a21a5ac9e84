package settings

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func boolPtr(v bool) *bool { return &v }

func TestDefaults(t *testing.T) {
	want := Settings{QuickSwitchEnabled: true, MRUPopupEnabled: true, AutoSwitchOnCloseEnabled: true}
	if diff := cmp.Diff(want, Defaults()); diff != "" {
		t.Fatalf("unexpected defaults (-want +got):\n%s", diff)
	}
}

func TestDecodeMergesOverDefaultsAndIgnoresUnknown(t *testing.T) {
	got, err := Decode([]byte(`{"holdModeEnabled":true,"quickSwitchEnabled":false,"colour":"blue"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Defaults()
	want.HoldModeEnabled = true
	want.QuickSwitchEnabled = false
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected settings (-want +got):\n%s", diff)
	}
}

func TestDecodeEmptyReturnsDefaults(t *testing.T) {
	got, err := Decode(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != Defaults() {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed record")
	}
}

func TestDecodeKeepsValidFieldsWhenOneIsMistyped(t *testing.T) {
	got, err := Decode([]byte(`{"quickSwitchEnabled":false,"holdModeEnabled":"yes","mruPopupEnabled":null}`))
	if err == nil {
		t.Fatalf("expected an error naming the mistyped field")
	}
	if !strings.Contains(err.Error(), "holdModeEnabled") {
		t.Fatalf("error should name holdModeEnabled: %v", err)
	}
	want := Defaults()
	want.QuickSwitchEnabled = false
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected settings (-want +got):\n%s", diff)
	}
}

func TestEncodeUsesCamelCaseNames(t *testing.T) {
	raw, err := Defaults().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var m map[string]bool
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, name := range Names() {
		if _, ok := m[name]; !ok {
			t.Fatalf("encoded record missing %s: %s", name, raw)
		}
	}
	if len(m) != len(Names()) {
		t.Fatalf("unexpected keys in %s", raw)
	}
}

func TestApplyIsShallow(t *testing.T) {
	s := Defaults()
	got := s.Apply(Patch{ShowPopupOnQuickSwitch: boolPtr(true)})
	want := Defaults()
	want.ShowPopupOnQuickSwitch = true
	if got != want {
		t.Fatalf("unexpected result %+v", got)
	}
	if s != Defaults() {
		t.Fatalf("Apply mutated its receiver")
	}
	if !(Patch{}).IsEmpty() || (Patch{HoldModeEnabled: boolPtr(false)}).IsEmpty() {
		t.Fatalf("IsEmpty misreported")
	}
}

func TestQuickSwitchPopupMode(t *testing.T) {
	cases := []struct {
		hold, show bool
		want       PopupMode
	}{
		{false, false, PopupNone},
		{false, true, PopupQuick},
		{true, false, PopupHold},
		{true, true, PopupHold},
	}
	for _, tc := range cases {
		s := Settings{HoldModeEnabled: tc.hold, ShowPopupOnQuickSwitch: tc.show}
		if got := s.QuickSwitchPopupMode(); got != tc.want {
			t.Fatalf("hold=%v show=%v: expected %v, got %v", tc.hold, tc.show, tc.want, got)
		}
	}
}

func TestParseAssignments(t *testing.T) {
	p, err := ParseAssignments([]string{"holdmodeenabled=true", "mruPopupEnabled = false"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.HoldModeEnabled == nil || !*p.HoldModeEnabled {
		t.Fatalf("hold mode not parsed: %+v", p)
	}
	if p.MRUPopupEnabled == nil || *p.MRUPopupEnabled {
		t.Fatalf("mru popup not parsed: %+v", p)
	}
	for _, bad := range []string{"nope=true", "holdModeEnabled", "holdModeEnabled=maybe"} {
		if _, err := ParseAssignments([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDecodePatchIgnoresUnknown(t *testing.T) {
	p, err := DecodePatch([]byte(`{"autoSwitchOnCloseEnabled":false,"extra":1}`))
	if err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	got := Defaults().Apply(p)
	if got.AutoSwitchOnCloseEnabled {
		t.Fatalf("patch not applied: %+v", got)
	}
}
