// Package resolve implements citation-identity resolution: mapping a noisy
// extracted citation record to the richest obtainable canonical paper
// record through an ordered cascade of lookup strategies.
package resolve

import (
	"context"
	"log"

	"github.com/snooow1029/paper-master/internal/arxiv"
	"github.com/snooow1029/paper-master/internal/citation"
	"github.com/snooow1029/paper-master/internal/s2"
)

// Lookup is the subset of the academic-graph client the resolver drives.
type Lookup interface {
	GetPaper(ctx context.Context, paperID string) (*s2.Paper, error)
	GetPaperByArXiv(ctx context.Context, arxivID string) (*s2.Paper, error)
	SearchPaper(ctx context.Context, title string, authors []string, year int) (*s2.Paper, error)
}

// Cache is an optional store of earlier successful lookups, consulted
// before any network call and written after each hit.
type Cache interface {
	Get(key string) (*s2.Paper, bool)
	Put(key string, paper *s2.Paper)
}

// Resolver resolves citation records against a rate-limited lookup service.
// Absence of data is a valid outcome: Resolve never returns an error.
type Resolver struct {
	lookup Lookup
	cache  Cache
}

// New creates a Resolver. cache may be nil.
func New(lookup Lookup, cache Cache) *Resolver {
	return &Resolver{lookup: lookup, cache: cache}
}

// Resolve maps one citation record to a best-effort resolved work. known
// holds canonical identifiers already resolved for the same job, used to
// avoid repeat lookups. Every external call is independently recovered; a
// failed step degrades to "no data from this step".
func (r *Resolver) Resolve(ctx context.Context, c citation.Citation, known map[string]bool) citation.Work {
	work := citation.Work{
		Title:   c.Title,
		Authors: c.Authors,
		Year:    c.Year,
		Context: c.Context,
		URL:     c.URL,
	}

	// Strategy 1: a derivable canonical identifier, tried against the
	// citation's URL, title, and context text in that order.
	if id, ok := arxiv.NormalizeAny(c.URL, c.Title, c.Context); ok {
		work.ID = id
		if known != nil {
			known[id] = true
		}
		if paper := r.fetchByArXiv(ctx, id); paper != nil {
			apply(&work, paper)
		}
	}

	if work.CitationCount != nil {
		return work
	}

	// Strategy 2: title/author/year search, with one follow-up direct
	// lookup when the hit carries an identifier, to maximize the chance
	// of a citation count.
	paper, err := r.lookup.SearchPaper(ctx, c.Title, c.Authors, c.Year)
	if err != nil {
		logStepFailure("search", c.Title, err)
		return work
	}
	apply(&work, paper)
	if work.CitationCount != nil {
		return work
	}

	if id := paper.ExternalIDs.ArXiv; id != "" {
		if richer := r.fetchByArXiv(ctx, id); richer != nil {
			apply(&work, richer)
		}
	}
	if work.CitationCount != nil {
		return work
	}

	// Strategy 3: direct opaque-id lookup as the last fallback.
	if paper.PaperID != "" {
		if richer := r.fetchByID(ctx, paper.PaperID); richer != nil {
			apply(&work, richer)
		}
	}

	return work
}

// fetchByArXiv looks up a paper by canonical identifier, via the cache
// when possible. Returns nil on any failure.
func (r *Resolver) fetchByArXiv(ctx context.Context, id string) *s2.Paper {
	key := "ARXIV:" + id
	if r.cache != nil {
		if paper, ok := r.cache.Get(key); ok {
			return paper
		}
	}

	paper, err := r.lookup.GetPaperByArXiv(ctx, id)
	if err != nil {
		logStepFailure("arxiv lookup", id, err)
		return nil
	}
	if r.cache != nil {
		r.cache.Put(key, paper)
	}
	return paper
}

// fetchByID looks up a paper by opaque identifier, via the cache when
// possible. Returns nil on any failure.
func (r *Resolver) fetchByID(ctx context.Context, paperID string) *s2.Paper {
	if r.cache != nil {
		if paper, ok := r.cache.Get(paperID); ok {
			return paper
		}
	}

	paper, err := r.lookup.GetPaper(ctx, paperID)
	if err != nil {
		logStepFailure("paper lookup", paperID, err)
		return nil
	}
	if r.cache != nil {
		r.cache.Put(paperID, paper)
	}
	return paper
}

// apply copies lookup results onto the work, filling gaps and upgrading
// to richer data, without ever clearing the work's identity.
func apply(w *citation.Work, p *s2.Paper) {
	if w.ID == "" {
		if p.ExternalIDs.ArXiv != "" {
			w.ID = p.ExternalIDs.ArXiv
		} else if p.PaperID != "" {
			w.ID = p.PaperID
		}
	}
	if p.Title != "" {
		w.Title = p.Title
	}
	if names := s2.AuthorNames(p.Authors); len(names) > len(w.Authors) {
		w.Authors = names
	}
	if p.Year != 0 {
		w.Year = p.Year
	}
	if p.Abstract != "" {
		w.Abstract = p.Abstract
	}
	if w.URL == "" {
		if p.URL != "" {
			w.URL = p.URL
		} else if p.ExternalIDs.ArXiv != "" {
			w.URL = arxiv.AbsURL(p.ExternalIDs.ArXiv)
		}
	}
	if w.CitationCount == nil {
		w.CitationCount = p.Citations
	}
}

func logStepFailure(step, subject string, err error) {
	// Rate limits and not-found are expected outcomes of the cascade;
	// only log genuinely unexpected failures.
	if s2.IsNotFound(err) || s2.IsRateLimited(err) {
		return
	}
	log.Printf("[resolve] %s failed for %q: %v", step, subject, err)
}
