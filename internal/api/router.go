// Package api exposes the segment and merge operations over HTTP.
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/forPelevin/narrate/internal/audio"
	"github.com/forPelevin/narrate/internal/domain/segments"
	"github.com/forPelevin/narrate/internal/types"
	"github.com/forPelevin/narrate/internal/usecase"
)

// Settings are the server-side defaults. Clip and merge paths are never
// taken from requests.
type Settings struct {
	ClipsDir string
	RefVoice string
	EmoAlpha float64
	GapMs    int
}

type Server struct {
	uc  usecase.Usecase
	set Settings
	log zerolog.Logger
}

func NewServer(uc usecase.Usecase, set Settings, log zerolog.Logger) *Server {
	return &Server{uc: uc, set: set, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(s.log))

	r.GET("/healthz", s.health)
	v1 := r.Group("/v1")
	{
		v1.POST("/segments/extract", s.extract)
		v1.POST("/segments/synthesize", s.synthesizeAll)
		v1.POST("/segments/:seq/synthesize", s.synthesizeOne)
		v1.POST("/merge", s.merge)
	}
	return r
}

func (s *Server) health(c *gin.Context) {
	success(c, gin.H{"status": "ok"})
}

type extractRequest struct {
	Text string `json:"text"`
}

func (s *Server) extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrorBadRequest, err.Error())
		return
	}
	success(c, gin.H{"segments": s.uc.Extract(req.Text)})
}

type synthRequest struct {
	Segments json.RawMessage `json:"segments"`
	RefVoice string          `json:"ref_voice"`
	EmoAlpha *float64        `json:"emo_alpha"`
}

func (s *Server) synthInput(c *gin.Context) (usecase.SynthInput, bool) {
	var req synthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrorBadRequest, err.Error())
		return usecase.SynthInput{}, false
	}
	if req.RefVoice != "" && req.RefVoice != s.set.RefVoice {
		fail(c, http.StatusBadRequest, ErrorBadRequest, "ref_voice is fixed by the server configuration")
		return usecase.SynthInput{}, false
	}
	segs, err := segments.Decode(bytes.NewReader(req.Segments))
	if err != nil {
		failErr(c, err)
		return usecase.SynthInput{}, false
	}
	in := usecase.SynthInput{
		Segments: segs,
		RefVoice: s.set.RefVoice,
		EmoAlpha: s.set.EmoAlpha,
		OutDir:   s.set.ClipsDir,
		Logf:     func(f string, args ...any) { s.log.Debug().Msgf(f, args...) },
	}
	if req.EmoAlpha != nil {
		if *req.EmoAlpha < 0 || *req.EmoAlpha > 1 {
			fail(c, http.StatusBadRequest, ErrorBadRequest, "emo_alpha must be within [0, 1]")
			return usecase.SynthInput{}, false
		}
		in.EmoAlpha = *req.EmoAlpha
	}
	return in, true
}

func (s *Server) synthesizeAll(c *gin.Context) {
	in, ok := s.synthInput(c)
	if !ok {
		return
	}
	res, err := s.uc.SynthesizeAll(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"results": res})
}

func (s *Server) synthesizeOne(c *gin.Context) {
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 1 {
		fail(c, http.StatusBadRequest, ErrorBadRequest, "seq must be a positive integer")
		return
	}
	in, ok := s.synthInput(c)
	if !ok {
		return
	}
	res, err := s.uc.SynthesizeOne(c.Request.Context(), in, seq)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, gin.H{"result": res})
}

type mergeRequest struct {
	GapMs *int `json:"gap_ms"`
}

type mergeResponse struct {
	Path       string       `json:"path"`
	SampleRate int          `json:"sample_rate"`
	Channels   int          `json:"channels"`
	Frames     int          `json:"frames"`
	Clips      []mergedClip `json:"clips"`
	Dialogue   []string     `json:"dialogue"`
	Narration  []string     `json:"narration"`
}

type mergedClip struct {
	Seq      int     `json:"seq"`
	File     string  `json:"file"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

func (s *Server) merge(c *gin.Context) {
	var req mergeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrorBadRequest, err.Error())
			return
		}
	}
	gap := s.set.GapMs
	if req.GapMs != nil {
		if *req.GapMs < 0 {
			fail(c, http.StatusBadRequest, ErrorBadRequest, "gap_ms must be >= 0")
			return
		}
		gap = *req.GapMs
	}

	res, err := s.uc.Merge(c.Request.Context(), usecase.MergeInput{
		Dir:   s.set.ClipsDir,
		GapMs: gap,
		Logf:  func(f string, args ...any) { s.log.Debug().Msgf(f, args...) },
	})
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, toMergeResponse(res))
}

func toMergeResponse(res audio.Result) mergeResponse {
	out := mergeResponse{
		Path:       res.Path,
		SampleRate: res.SampleRate,
		Channels:   res.Channels,
		Frames:     res.Frames,
		Clips:      make([]mergedClip, 0, len(res.Placements)),
	}
	files := make([]string, 0, len(res.Placements))
	for _, p := range res.Placements {
		out.Clips = append(out.Clips, placementJSON(p))
		files = append(files, p.File)
	}
	out.Dialogue, out.Narration = usecase.PartitionClips(files)
	return out
}

func placementJSON(p types.ClipPlacement) mergedClip {
	return mergedClip{
		Seq:      p.Sequence,
		File:     filepath.ToSlash(p.File),
		StartSec: p.Start.Seconds(),
		EndSec:   p.End.Seconds(),
	}
}
