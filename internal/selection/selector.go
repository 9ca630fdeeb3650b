package selection

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/config"
	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/pexels"
)

// Searcher is the stock media provider used to find candidates.
type Searcher interface {
	SearchPhotos(ctx context.Context, query string, opts pexels.SearchOptions) ([]footage.Candidate, error)
	SearchVideos(ctx context.Context, query string, opts pexels.SearchOptions) ([]footage.Candidate, error)
}

// Options tunes candidate filtering and exhaustion.
type Options struct {
	Orientation  footage.Orientation
	AssetSize    string
	VideoQuality string
	// ImageCandidates and VideoCandidates are how many unique candidates one
	// slot of that kind collects from a single page for ranking to choose among.
	ImageCandidates int
	VideoCandidates int
	// MaxDescriptionCycles bounds how many full passes over the descriptions
	// may pass without a new candidate before a kind stops filling.
	MaxDescriptionCycles int
	// Concurrency is the number of paragraphs selected at once.
	Concurrency int
}

// OptionsFromConfig maps the [media] section onto selector options.
func OptionsFromConfig(m config.Media) (Options, error) {
	orientation, err := footage.ParseOrientation(m.Orientation)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Orientation:          orientation,
		AssetSize:            m.AssetSize,
		VideoQuality:         m.VideoQuality,
		ImageCandidates:      m.ImageCandidatesPerSlot,
		VideoCandidates:      m.VideoCandidatesPerSlot,
		MaxDescriptionCycles: m.MaxDescriptionCycles,
		Concurrency:          m.SelectConcurrency,
	}, nil
}

func (o Options) withDefaults() Options {
	if o.Orientation == "" {
		o.Orientation = footage.Landscape
	}
	o.VideoQuality = strings.ToLower(strings.TrimSpace(o.VideoQuality))
	if o.VideoQuality == "" {
		o.VideoQuality = "hd"
	}
	o.ImageCandidates = max(o.ImageCandidates, 1)
	o.VideoCandidates = max(o.VideoCandidates, 1)
	if o.MaxDescriptionCycles < 1 {
		o.MaxDescriptionCycles = 3
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return o
}

// Request describes one paragraph's slot targets.
type Request struct {
	ParagraphIndex int
	Descriptions   []string
	NumImages      int
	NumVideos      int
}

// Result is the filled slots for one paragraph, images first then videos.
type Result struct {
	ParagraphIndex int
	Slots          []footage.Slot
	Requested      int
}

// Partial reports whether fewer slots were filled than requested.
func (r Result) Partial() bool {
	return len(r.Slots) < r.Requested
}

// Selector fills slots from a Searcher under run-wide uniqueness.
type Selector struct {
	searcher Searcher
	registry *footage.Registry
	opts     Options
	frame    footage.FrameSize
	logger   *slog.Logger
}

// New constructs a Selector. The registry must be shared with every other
// component that claims media in the same run.
func New(searcher Searcher, registry *footage.Registry, opts Options, logger *slog.Logger) *Selector {
	opts = opts.withDefaults()
	if registry == nil {
		registry = footage.NewRegistry()
	}
	return &Selector{
		searcher: searcher,
		registry: registry,
		opts:     opts,
		frame:    opts.Orientation.FrameSize(),
		logger:   logging.NewComponentLogger(logger, "selection"),
	}
}

// SelectAll fills every request. Results are returned in request order.
func (s *Selector) SelectAll(ctx context.Context, requests []Request) ([]Result, error) {
	results := make([]Result, len(requests))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.Concurrency)
	for i, req := range requests {
		group.Go(func() error {
			res, err := s.Select(gctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Select fills one paragraph's image slots, then its video slots. It only
// returns an error when ctx is done; exhaustion yields a partial result.
func (s *Selector) Select(ctx context.Context, req Request) (Result, error) {
	ctx = services.WithParagraph(ctx, req.ParagraphIndex+1)
	logger := logging.WithContext(ctx, s.logger)
	result := Result{
		ParagraphIndex: req.ParagraphIndex,
		Requested:      max(req.NumImages, 0) + max(req.NumVideos, 0),
	}
	descriptions := cleanDescriptions(req.Descriptions)
	if result.Requested == 0 {
		return result, nil
	}
	if len(descriptions) == 0 {
		logging.WarnWithContext(logger, "no image descriptions for paragraph", "selection_skipped",
			logging.String(logging.FieldErrorHint, "regenerate the script with image descriptions"),
			logging.String(logging.FieldImpact, "paragraph has no visuals"),
		)
		return result, nil
	}

	for _, target := range []struct {
		kind  footage.Kind
		count int
	}{{footage.KindImage, req.NumImages}, {footage.KindVideo, req.NumVideos}} {
		slots, err := s.fill(ctx, logger, target.kind, target.count, descriptions)
		result.Slots = append(result.Slots, slots...)
		if err != nil {
			return result, err
		}
		if len(slots) < target.count {
			logging.WarnWithContext(logger, "partial slot fill", "selection_partial",
				logging.String("kind", string(target.kind)),
				logging.Int("filled", len(slots)),
				logging.Int("requested", target.count),
				logging.String(logging.FieldErrorHint, "add more varied image descriptions"),
				logging.String(logging.FieldImpact, "paragraph shows fewer clips"),
			)
		}
	}
	return result, nil
}

func (s *Selector) fill(ctx context.Context, logger *slog.Logger, kind footage.Kind, target int, descriptions []string) ([]footage.Slot, error) {
	if target <= 0 {
		return nil, nil
	}
	slots := make([]footage.Slot, 0, target)
	limit := len(descriptions) * s.opts.MaxDescriptionCycles
	misses := 0
	for request := 0; len(slots) < target && misses < limit; request++ {
		if err := ctx.Err(); err != nil {
			return slots, err
		}
		description := descriptions[request%len(descriptions)]
		page := request/len(descriptions) + 1
		candidates := s.claimFromPage(ctx, logger, kind, description, page)
		if len(candidates) == 0 {
			misses++
			continue
		}
		misses = 0
		slot := footage.Slot{
			Key:         footage.SlotKey(kind, len(slots)+1),
			Kind:        kind,
			Candidates:  candidates,
			Description: description,
		}
		if len(candidates) == 1 {
			chosen := candidates[0]
			slot.Selected = &chosen
		}
		slots = append(slots, slot)
		logger.Debug("slot filled",
			logging.String(logging.FieldEventType, "slot_filled"),
			logging.String(logging.FieldSlot, slot.Key),
			logging.String("query", description),
			logging.Int("candidates", len(candidates)),
		)
	}
	return slots, nil
}

func (s *Selector) claimFromPage(ctx context.Context, logger *slog.Logger, kind footage.Kind, description string, page int) []footage.Candidate {
	opts := pexels.SearchOptions{Orientation: s.opts.Orientation, Size: s.opts.AssetSize, Page: page}
	var (
		results []footage.Candidate
		err     error
	)
	if kind == footage.KindVideo {
		results, err = s.searcher.SearchVideos(ctx, description, opts)
	} else {
		results, err = s.searcher.SearchPhotos(ctx, description, opts)
	}
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "media search failed", "search_failed",
				logging.Error(err),
				logging.String("query", description),
				logging.String("kind", string(kind)),
				logging.String(logging.FieldImpact, "query treated as empty page"),
				logging.String(logging.FieldErrorHint, "check pexels api key and rate limits"),
			)
		}
		return nil
	}

	limit := s.opts.ImageCandidates
	if kind == footage.KindVideo {
		limit = s.opts.VideoCandidates
	}
	var claimed []footage.Candidate
	for _, c := range results {
		if !s.acceptable(kind, c) {
			continue
		}
		c.Kind = kind
		c.TargetDescription = description
		if !s.registry.Claim(c) {
			continue
		}
		claimed = append(claimed, c)
		if len(claimed) >= limit {
			break
		}
	}
	return claimed
}

func (s *Selector) acceptable(kind footage.Kind, c footage.Candidate) bool {
	if kind == footage.KindVideo {
		return strings.EqualFold(c.Quality, s.opts.VideoQuality) && s.frame.Matches(c.Width, c.Height)
	}
	return s.frame.Covers(c.Width, c.Height)
}

func cleanDescriptions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
