package tmux

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestBindingString(t *testing.T) {
	cases := []struct {
		binding Binding
		want    string
	}{
		{
			Binding{Key: "M-Tab", Table: "root", Argv: []string{"/usr/bin/lasttab", "quick-switch"}},
			"bind-key -n M-Tab run-shell -b '/usr/bin/lasttab quick-switch'",
		},
		{
			Binding{Key: "w", Argv: []string{"/opt/my tools/lasttab", "show-mru-popup"}},
			`bind-key w run-shell -b ''\''/opt/my tools/lasttab'\'' show-mru-popup'`,
		},
		{
			Binding{Key: "M-`", Table: "lasttab", Argv: []string{"lasttab", "show-mru-popup"}},
			"bind-key -T lasttab 'M-`' run-shell -b 'lasttab show-mru-popup'",
		},
	}
	for _, tc := range cases {
		if got := tc.binding.String(); got != tc.want {
			t.Fatalf("binding %+v:\n got %s\nwant %s", tc.binding, got, tc.want)
		}
	}
}

func TestBindInstallsOnServer(t *testing.T) {
	fc := &fakeClient{}
	stubClient(t, fc)
	err := NewHost("").Bind(
		Binding{Key: "M-Tab", Table: "root", Argv: []string{"lasttab", "quick-switch"}},
		Binding{Key: "w", Argv: []string{"lasttab", "show-mru-popup"}},
	)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	want := [][]string{
		{"bind-key", "-n", "M-Tab", "run-shell", "-b", "lasttab quick-switch"},
		{"bind-key", "w", "run-shell", "-b", "lasttab show-mru-popup"},
	}
	if diff := cmp.Diff(want, fc.commands); diff != "" {
		t.Fatalf("bind-key args mismatch (-want +got):\n%s", diff)
	}
}

func TestBindReportsFailures(t *testing.T) {
	fc := &fakeClient{commandErr: errors.New("unknown key: M-Nope")}
	stubClient(t, fc)
	if err := NewHost("").Bind(Binding{Key: "M-Nope", Argv: []string{"lasttab"}}); err == nil {
		t.Fatalf("expected bind failure")
	}
	if err := NewHost("").Bind(Binding{Key: " ", Argv: []string{"lasttab"}}); err == nil {
		t.Fatalf("expected empty key to be rejected")
	}
}
