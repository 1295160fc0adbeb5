package ports

import (
	"context"
	"errors"

	"github.com/forPelevin/narrate/internal/types"
)

// ErrMissingReferenceVoice is returned before synthesis starts when the
// voice model clones a reference voice and none was supplied.
var ErrMissingReferenceVoice = errors.New("reference voice is required")

// Synthesizer is an external voice model producing one audio file per call.
type Synthesizer interface {
	Synthesize(ctx context.Context, req types.SynthRequest) error
	RequiresReferenceVoice() bool
}

// Transcoder converts containers the in-process decoders cannot read into WAV.
type Transcoder interface {
	ToWAV(ctx context.Context, in, outWav string) error
}
