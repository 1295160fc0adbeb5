package audio

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// AudioExts is the allow-list of clip extensions (lowercase).
var AudioExts = map[string]struct{}{
	".wav":  {},
	".mp3":  {},
	".flac": {},
	".ogg":  {},
	".m4a":  {},
}

// NoSequence is the sort key of clips without a numeric name prefix.
const NoSequence = math.MaxInt

type Clip struct {
	Path     string
	Sequence int
}

// ListClips returns the audio files of dir ordered by their leading
// sequence number. Files without one sort last, by name.
func ListClips(dir string) ([]Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []Clip
	for _, e := range entries {
		if e.IsDir() || !IsAudioFile(e.Name()) {
			continue
		}
		out = append(out, Clip{Path: filepath.Join(dir, e.Name()), Sequence: SequenceOf(e.Name())})
	}
	// ReadDir is sorted by name, so the stable sort breaks ties by name.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func IsAudioFile(name string) bool {
	_, ok := AudioExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// SequenceOf parses the digits before the first '_' of the file stem.
func SequenceOf(name string) int {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	head, _, _ := strings.Cut(stem, "_")
	if head == "" || strings.TrimLeft(head, "0123456789") != "" {
		return NoSequence
	}
	n, err := strconv.Atoi(head)
	if err != nil {
		return NoSequence
	}
	return n
}
