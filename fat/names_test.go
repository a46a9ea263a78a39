package fat

import (
	"strings"
	"testing"
	"unicode/utf16"
)

func TestIsShortName(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		want bool
	}{
		{"README.TXT", true},
		{"REPORT", true},
		{"A", true},
		{"TOOLONGNAME.TXT", false},
		{"OK.TOOLONG", false},
		{"Readme.txt", false}, // mixed case within a component
		{"README.TXT.BAK", false},
		{"", false},
		{"my report.txt", false}, // space not allowed
		{"my.report.txt", false},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := isShortName(tc.name); got != tc.want {
				t.Fatalf("isShortName(%q) = %v, want %v", tc.name, got, tc.want)
			}
		})
	}
}

func TestNormalize11RoundTrip(t *testing.T) {
	t.Parallel()

	buf := normalize11("README.TXT")
	if got := string(buf[:]); got != "README  TXT" {
		t.Fatalf("normalize11(README.TXT) = %q, want %q", got, "README  TXT")
	}

	// Re-normalizing an already-11-byte on-disk buffer must reproduce it.
	again := normalize11(string(buf[:]))
	if again != buf {
		t.Fatalf("normalize11 is not idempotent on its own output: %q -> %q", buf, again)
	}
}

func TestShortNameChecksumMatchesBuffer(t *testing.T) {
	t.Parallel()

	buf := normalize11("REPORT.TXT")
	if got, want := shortNameChecksum("REPORT.TXT"), shortNameChecksum11(buf); got != want {
		t.Fatalf("shortNameChecksum and shortNameChecksum11 disagree: %#x vs %#x", got, want)
	}
}

func TestMakeShortAliasUnique(t *testing.T) {
	t.Parallel()

	taken := map[string]bool{}
	seen := map[[11]byte]bool{}
	for i := 0; i < 12; i++ {
		alias, err := makeShortAlias("my long report name.txt", taken)
		if err != nil {
			t.Fatalf("makeShortAlias iteration %d: %v", i, err)
		}
		if seen[alias] {
			t.Fatalf("makeShortAlias produced a duplicate alias %q on iteration %d", alias, i)
		}
		seen[alias] = true
		if ext := strings.TrimRight(string(alias[8:11]), " "); ext != "TXT" {
			t.Fatalf("alias %q lost its extension: got %q", alias, ext)
		}
	}
}

func TestMakeShortAliasMapsIllegalBytes(t *testing.T) {
	t.Parallel()

	taken := map[string]bool{}
	alias, err := makeShortAlias("my résumé.txt", taken)
	if err != nil {
		t.Fatalf("makeShortAlias: %v", err)
	}
	for _, b := range alias[:8] {
		if b != ' ' && b != '_' && !isShortNameByte(b) {
			t.Fatalf("alias %q contains a byte %q illegal in a short name", alias, b)
		}
	}
}

func TestEncodeLFNNameRejectsTooLong(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", maxLFNUnits+1)
	if _, err := encodeLFNName(long); err == nil {
		t.Fatalf("encodeLFNName accepted a name of %d units, want rejection past %d", len(long), maxLFNUnits)
	}

	ok := strings.Repeat("x", maxLFNUnits)
	if _, err := encodeLFNName(ok); err != nil {
		t.Fatalf("encodeLFNName rejected a name of exactly %d units: %v", maxLFNUnits, err)
	}
}

func TestLFNSegmentCount(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		units int
		want  int
	}{
		{0, 1},
		{1, 1},
		{13, 1},
		{14, 2},
		{26, 2},
		{27, 3},
		{255, 20},
	} {
		tc := tc
		if got := lfnSegmentCount(tc.units); got != tc.want {
			t.Errorf("lfnSegmentCount(%d) = %d, want %d", tc.units, got, tc.want)
		}
	}
}

func TestLFNConcatenationRecoversName(t *testing.T) {
	t.Parallel()

	name := "my long report.txt"
	units, err := encodeLFNName(name)
	if err != nil {
		t.Fatalf("encodeLFNName: %v", err)
	}

	numSeg := lfnSegmentCount(len(units))
	var chain [][]uint16
	for i := 1; i <= numSeg; i++ {
		start := (i - 1) * 13
		end := start + 13
		if end > len(units) {
			end = len(units)
		}
		chain = append(chain, units[start:end])
	}

	var recovered []uint16
	for _, seg := range chain {
		recovered = append(recovered, seg...)
	}
	recovered = recovered[:len(units)]

	if got := string(utf16.Decode(recovered)); got != name {
		t.Fatalf("LFN chain concatenation = %q, want %q", got, name)
	}
}

func FuzzIsShortName(f *testing.F) {
	f.Add("HELLO.TXT")
	f.Add("a")
	f.Add("")
	f.Add("a.b.c")
	f.Add("toolongname.txt")
	f.Fuzz(func(t *testing.T, name string) {
		_ = isShortName(name) // must terminate and never panic
	})
}

func FuzzMakeShortAlias(f *testing.F) {
	f.Add("my long report.txt")
	f.Add("résumé.pdf")
	f.Add("a.b.c.d")
	f.Add("")
	f.Fuzz(func(t *testing.T, name string) {
		taken := map[string]bool{}
		alias, err := makeShortAlias(name, taken)
		if err != nil {
			return
		}
		for _, b := range alias {
			if b != ' ' && !isShortNameByte(b) {
				t.Fatalf("makeShortAlias(%q) = %q, byte %q is illegal in a short name", name, alias, b)
			}
		}
		if !taken[string(alias[:])] {
			t.Fatalf("makeShortAlias(%q) = %q did not record itself in taken", name, alias)
		}
	})
}
