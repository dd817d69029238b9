package kit

import (
	"fmt"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// Descriptor names one sample, the key that triggers it and where its
// bytes live relative to the asset root.
type Descriptor struct {
	ID   string `toml:"id"`
	Key  string `toml:"key"`
	Path string `toml:"path"`
}

// Laid out for a Dvorak home block: top row ' , . p, home row a o e u.
var preset = []Descriptor{
	{ID: "clap", Key: "'", Path: "audio/drum/clap.wav"},
	{ID: "rimshot", Key: ",", Path: "audio/drum/rimshot.wav"},
	{ID: "snap", Key: ".", Path: "audio/drum/snap.wav"},
	{ID: "crash", Key: "p", Path: "audio/drum/crash.wav"},
	{ID: "kick", Key: "a", Path: "audio/drum/kickG.wav"},
	{ID: "snare", Key: "o", Path: "audio/drum/snareG.wav"},
	{ID: "hatClosed", Key: "e", Path: "audio/drum/hatClosed.wav"},
	{ID: "hatOpen", Key: "u", Path: "audio/drum/hatOpen.wav"},
}

// Samples returns the built-in kit in table order.
func Samples() []Descriptor {
	out := make([]Descriptor, len(preset))
	copy(out, preset)
	return out
}

// Validate checks that IDs and keys are unique and every key is a single
// lower-case character.
func Validate(descs []Descriptor) error {
	if len(descs) == 0 {
		return fmt.Errorf("kit is empty")
	}
	ids := make(map[string]bool, len(descs))
	keys := make(map[string]string, len(descs))
	for i, d := range descs {
		if d.ID == "" {
			return fmt.Errorf("sample %d: missing id", i)
		}
		if d.Path == "" {
			return fmt.Errorf("sample %q: missing path", d.ID)
		}
		if ids[d.ID] {
			return fmt.Errorf("duplicate sample id %q", d.ID)
		}
		ids[d.ID] = true

		r, size := utf8.DecodeRuneInString(d.Key)
		if r == utf8.RuneError || size != len(d.Key) {
			return fmt.Errorf("sample %q: key %q must be a single character", d.ID, d.Key)
		}
		if unicode.IsUpper(r) {
			return fmt.Errorf("sample %q: key %q must be lower-case", d.ID, d.Key)
		}
		if other, ok := keys[d.Key]; ok {
			return fmt.Errorf("key %q bound to both %q and %q", d.Key, other, d.ID)
		}
		keys[d.Key] = d.ID
	}
	return nil
}

type kitFile struct {
	Sample []Descriptor `toml:"sample"`
}

// LoadFile reads a kit from a TOML file of [[sample]] tables. Table order
// is kept.
func LoadFile(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kit: %w", err)
	}
	return Parse(string(data))
}

func Parse(data string) ([]Descriptor, error) {
	var f kitFile
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("parsing kit: %w", err)
	}
	if err := Validate(f.Sample); err != nil {
		return nil, err
	}
	return f.Sample, nil
}
