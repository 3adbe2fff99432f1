package sexpfmt

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestProfileByName(t *testing.T) {
	for _, name := range ProfileNames() {
		t.Run(name, func(t *testing.T) {
			p, err := ProfileByName(name)
			if err != nil {
				t.Fatalf("ProfileByName(%q) error = %v", name, err)
			}
			if p.Name != name {
				t.Errorf("Name = %q, want %q", p.Name, name)
			}
			if _, err := p.Config(); err != nil {
				t.Errorf("Config() error = %v", err)
			}
		})
	}

	if _, err := ProfileByName("emacs"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("ProfileByName(emacs) error = %v, want ErrUnknownProfile", err)
	}
}

func TestProfileByNameReturnsCopy(t *testing.T) {
	p, err := ProfileByName("kicad-compact")
	if err != nil {
		t.Fatalf("ProfileByName() error = %v", err)
	}
	p.Shortform[0] = "changed"
	p.CompactList.Prefixes = append(p.CompactList.Prefixes, "xy")

	if DefaultShortformPrefixes[0] != "font" {
		t.Errorf("modifying a profile changed DefaultShortformPrefixes: %q", DefaultShortformPrefixes)
	}
	if len(ProfileKiCadCompact.CompactList.Prefixes) != 1 {
		t.Errorf("modifying a profile changed the built-in: %q", ProfileKiCadCompact.CompactList.Prefixes)
	}
}

func TestLoadProfile(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    Profile
		wantErr bool
	}{
		{
			name: "empty document",
			yaml: "",
			want: Profile{
				IndentChar:    "tab",
				IndentWidth:   DefaultIndentWidth,
				WrapThreshold: DefaultWrapThreshold,
				CompactList:   CompactListProfile{ColumnLimit: DefaultCompactColumnLimit},
			},
		},
		{
			name: "full profile",
			yaml: strings.Join([]string{
				"name: custom",
				"indent_char: space",
				"indent_width: 2",
				"wrap_threshold: 0",
				"compact_list:",
				"  prefixes: [pts, xy]",
				"  column_limit: 80",
				"shortform:",
				"  - font",
				"  - stroke",
			}, "\n"),
			want: Profile{
				Name:          "custom",
				IndentChar:    "space",
				IndentWidth:   2,
				WrapThreshold: 0,
				CompactList:   CompactListProfile{Prefixes: []string{"pts", "xy"}, ColumnLimit: 80},
				Shortform:     []string{"font", "stroke"},
			},
		},
		{
			name: "partial profile keeps defaults",
			yaml: "shortform: [stroke]\n",
			want: Profile{
				IndentChar:    "tab",
				IndentWidth:   DefaultIndentWidth,
				WrapThreshold: DefaultWrapThreshold,
				CompactList:   CompactListProfile{ColumnLimit: DefaultCompactColumnLimit},
				Shortform:     []string{"stroke"},
			},
		},
		{
			name:    "unknown key",
			yaml:    "indent: tab\n",
			wantErr: true,
		},
		{
			name:    "wrong type",
			yaml:    "wrap_threshold: wide\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadProfile(strings.NewReader(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadProfile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LoadProfile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProfileConfig(t *testing.T) {
	p := Profile{
		IndentChar:    "space",
		IndentWidth:   2,
		WrapThreshold: 0,
		CompactList:   CompactListProfile{Prefixes: []string{"pts"}, ColumnLimit: 0},
	}
	cfg, err := p.Config()
	if err != nil {
		t.Fatalf("Config() error = %v", err)
	}
	got := cfg.FormatString("(a (pts (xy 1 2) (xy 3 4)))")
	want := "(a\n  (pts (xy 1 2) (xy 3 4)\n  )\n)\n"
	if got != want {
		t.Errorf("FormatString() = %q, want %q", got, want)
	}

	p.IndentChar = "tabs"
	if _, err := p.Config(); !errors.Is(err, ErrInvalidIndentChar) {
		t.Errorf("Config() with bad indent char error = %v, want ErrInvalidIndentChar", err)
	}

	p.IndentChar = "tab"
	p.IndentWidth = 0
	if _, err := p.Config(); !errors.Is(err, ErrInvalidIndentWidth) {
		t.Errorf("Config() with zero width error = %v, want ErrInvalidIndentWidth", err)
	}
}

func TestParseIndentChar(t *testing.T) {
	tests := []struct {
		in      string
		want    byte
		wantErr bool
	}{
		{in: "tab", want: '\t'},
		{in: "\t", want: '\t'},
		{in: "space", want: ' '},
		{in: " ", want: ' '},
		{in: ".", want: '.'},
		{in: "", wantErr: true},
		{in: "ab", wantErr: true},
		{in: "\x00", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseIndentChar(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIndentChar(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseIndentChar(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
