// Package title resolves a link's note name to the value of a frontmatter
// property of the note it points at.
package title

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/starford/anchorlink/internal/apperr"
	"github.com/starford/anchorlink/internal/index"
	"github.com/starford/anchorlink/internal/metrics"
)

// DefaultCacheEntries is used when the configured cache size is not positive.
const DefaultCacheEntries = 1024

// Source is the part of the note index the resolver reads.
type Source interface {
	ResolveLinkpath(linkpath string) (string, error)
	Frontmatter(path string) (map[string]interface{}, error)
}

type entry struct {
	found       bool
	frontmatter map[string]interface{}
}

// Resolver implements editor.TitleResolver over a Source, caching the
// frontmatter of each linkpath it has looked up.
type Resolver struct {
	src      Source
	cache    *lru.Cache[string, entry]
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New creates a resolver holding up to size cached linkpaths.
func New(src Source, size int, logger *slog.Logger, rec metrics.Recorder) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheEntries
	}
	cache, err := lru.New[string, entry](size)
	if err != nil {
		return nil, fmt.Errorf("title: create cache: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Resolver{src: src, cache: cache, logger: logger, recorder: rec}, nil
}

// ResolveTitle returns the value of property in the frontmatter of the note
// noteName links to. An empty property, an unknown note or an absent value
// yields noteName. Index failures are returned together with noteName.
func (r *Resolver) ResolveTitle(noteName, property string) (string, error) {
	if property == "" {
		r.recorder.IncTitleLookup(metrics.OutcomeDisabled)
		return noteName, nil
	}

	e, err := r.lookup(noteName)
	if err != nil {
		r.recorder.IncTitleLookup(metrics.OutcomeFailed)
		return noteName, err
	}
	if !e.found {
		r.recorder.IncTitleLookup(metrics.OutcomeMiss)
		return noteName, nil
	}
	s, ok := Format(e.frontmatter[property])
	if !ok {
		r.recorder.IncTitleLookup(metrics.OutcomeAbsent)
		return noteName, nil
	}
	r.recorder.IncTitleLookup(metrics.OutcomeHit)
	return s, nil
}

func (r *Resolver) lookup(linkpath string) (entry, error) {
	key := strings.ToLower(linkpath)
	if e, ok := r.cache.Get(key); ok {
		return e, nil
	}

	p, err := r.src.ResolveLinkpath(linkpath)
	if errors.Is(err, apperr.ErrNotFound) {
		r.cache.Add(key, entry{})
		return entry{}, nil
	}
	if err != nil {
		return entry{}, err
	}
	fm, err := r.src.Frontmatter(p)
	if errors.Is(err, apperr.ErrNotFound) {
		r.cache.Add(key, entry{})
		return entry{}, nil
	}
	if err != nil {
		return entry{}, err
	}

	e := entry{found: true, frontmatter: fm}
	r.cache.Add(key, e)
	return e, nil
}

// Invalidate drops every cached lookup.
func (r *Resolver) Invalidate() {
	r.cache.Purge()
}

// OnIndexEvent invalidates the cache after any index change. A rename can
// change which note a linkpath resolves to, so everything goes.
func (r *Resolver) OnIndexEvent(kind index.EventKind, path string) {
	r.cache.Purge()
	r.logger.Debug("title: cache purged", slog.String("kind", string(kind)), slog.String("path", path))
}

// Format renders a frontmatter value as display text. Missing values, empty
// strings, false and zero count as absent. Lists are joined with commas.
func Format(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	case int:
		return strconv.Itoa(t), t != 0
	case int64:
		return strconv.FormatInt(t, 10), t != 0
	case uint64:
		return strconv.FormatUint(t, 10), t != 0
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), t != 0
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, _ := Format(item)
			parts = append(parts, s)
		}
		s := strings.Join(parts, ",")
		return s, s != ""
	default:
		s := fmt.Sprint(t)
		return s, s != ""
	}
}
