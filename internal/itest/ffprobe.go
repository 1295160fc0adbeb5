//go:build integration

package itest

import (
	"context"

	"github.com/forPelevin/narrate/internal/ports/adapters/ffmpeg"
)

func probeDurationSeconds(path string) (float64, error) {
	d, err := ffmpeg.New("", "").ProbeDuration(context.Background(), path)
	if err != nil {
		return 0, err
	}
	return d.Seconds(), nil
}
