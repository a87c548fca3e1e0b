// Package analysis implements the paper-analysis job: given a set of
// paper URLs, it extracts their citation records, labels pairwise
// relationships, resolves every cited work against the academic graph,
// and assembles the result into a scored citation graph.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/snooow1029/paper-master/internal/arxiv"
	"github.com/snooow1029/paper-master/internal/citation"
	"github.com/snooow1029/paper-master/internal/extract"
	"github.com/snooow1029/paper-master/internal/jobs"
	"github.com/snooow1029/paper-master/internal/label"
	"github.com/snooow1029/paper-master/internal/s2"
)

// JobType is the registry tag for the analysis handler.
const JobType = "paper-analysis"

// derivativeLimit bounds how many citing papers are pulled per source
// paper when building the derivative-work list.
const derivativeLimit = 50

// ErrNoURLs is returned when a job is submitted without any paper URLs.
var ErrNoURLs = errors.New("analysis input contains no paper URLs")

// Input is the payload for a paper-analysis job.
type Input struct {
	URLs []string `json:"urls"`
}

// Node is one analyzed source paper in the output graph.
type Node struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     int      `json:"year,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	URL      string   `json:"url"`
}

// Graph is the completed analysis output.
type Graph struct {
	Nodes           []Node          `json:"nodes"`
	Edges           []label.Edge    `json:"edges"`
	PriorWorks      []citation.Work `json:"prior_works"`
	DerivativeWorks []citation.Work `json:"derivative_works"`
}

// Extractor parses one paper into metadata and raw citation records.
type Extractor interface {
	Extract(ctx context.Context, paperURL string) (*extract.Result, error)
}

// Labeler characterizes the relationship between two source papers.
type Labeler interface {
	LabelPair(ctx context.Context, source, target label.PaperRef) ([]label.Edge, error)
}

// WorkResolver maps one citation record to a resolved work.
type WorkResolver interface {
	Resolve(ctx context.Context, c citation.Citation, known map[string]bool) citation.Work
}

// CitationLister returns papers that cite a given paper.
type CitationLister interface {
	GetCitations(ctx context.Context, paperID string, limit int) ([]s2.Paper, error)
}

// Handler runs paper-analysis jobs. All collaborators are best-effort:
// a failed extraction, labeling call, or lookup shrinks the result
// rather than failing the job, as long as at least one source paper
// could be extracted.
type Handler struct {
	extractor Extractor
	labeler   Labeler
	resolver  WorkResolver
	lister    CitationLister
}

// NewHandler wires an analysis handler. labeler and lister may be nil,
// in which case the corresponding phases produce empty output.
func NewHandler(extractor Extractor, labeler Labeler, resolver WorkResolver, lister CitationLister) *Handler {
	return &Handler{
		extractor: extractor,
		labeler:   labeler,
		resolver:  resolver,
		lister:    lister,
	}
}

// Register attaches the handler to a scheduler under JobType.
func (h *Handler) Register(s *jobs.Scheduler) {
	s.Register(JobType, h.Run)
}

// sourcePaper pairs a node with the raw citations extracted from it.
type sourcePaper struct {
	node      Node
	citations []citation.Citation
}

// Run executes one analysis job end to end. It satisfies jobs.Handler.
func (h *Handler) Run(ctx context.Context, jobID string, input any, report jobs.ProgressFunc) (any, error) {
	in, err := decodeInput(input)
	if err != nil {
		return nil, err
	}

	report(5, &jobs.ProgressDetail{
		Phase: jobs.PhaseInitializing,
		Step:  fmt.Sprintf("analyzing %d papers", len(in.URLs)),
	})

	papers := h.extractAll(ctx, jobID, in.URLs, report)
	if len(papers) == 0 {
		return nil, fmt.Errorf("none of the %d papers could be extracted", len(in.URLs))
	}

	edges := h.labelPairs(ctx, jobID, papers, report)

	prior := h.resolvePriorWorks(ctx, papers, report)
	derivative := h.resolveDerivativeWorks(ctx, jobID, papers, report)

	report(95, &jobs.ProgressDetail{
		Phase: jobs.PhaseBuilding,
		Step:  "scoring merged works",
	})
	prior = scoreWorks(citation.MergeAll(prior), edges)
	derivative = scoreWorks(citation.MergeAll(derivative), edges)

	graph := &Graph{
		Edges:           edges,
		PriorWorks:      prior,
		DerivativeWorks: derivative,
	}
	for _, p := range papers {
		graph.Nodes = append(graph.Nodes, p.node)
	}
	return graph, nil
}

// decodeInput accepts either a typed Input or the generic shape produced
// by JSON submission over the API.
func decodeInput(input any) (Input, error) {
	var in Input
	switch v := input.(type) {
	case Input:
		in = v
	case *Input:
		in = *v
	default:
		raw, err := json.Marshal(input)
		if err != nil {
			return in, fmt.Errorf("unreadable analysis input: %w", err)
		}
		if err := json.Unmarshal(raw, &in); err != nil {
			return in, fmt.Errorf("unreadable analysis input: %w", err)
		}
	}
	if len(in.URLs) == 0 {
		return in, ErrNoURLs
	}
	return in, nil
}

// extractAll runs the extraction phase over every URL, skipping papers
// the extraction service cannot parse.
func (h *Handler) extractAll(ctx context.Context, jobID string, urls []string, report jobs.ProgressFunc) []sourcePaper {
	papers := make([]sourcePaper, 0, len(urls))
	for i, url := range urls {
		report(progressAcross(10, 40, i, len(urls)), &jobs.ProgressDetail{
			Phase: jobs.PhaseExtracting,
			Step:  fmt.Sprintf("extracting paper %d/%d", i+1, len(urls)),
		})

		result, err := h.extractor.Extract(ctx, url)
		if err != nil {
			log.Printf("[analysis] job %s: extraction failed for %s: %v", jobID, url, err)
			continue
		}
		papers = append(papers, sourcePaper{
			node: Node{
				ID:       nodeID(url, result.Title),
				Title:    result.Title,
				Authors:  result.Authors,
				Year:     result.Year,
				Abstract: result.Abstract,
				URL:      url,
			},
			citations: result.Citations,
		})
	}
	return papers
}

// nodeID derives a stable identifier for a source paper: its canonical
// arXiv identifier when one can be recovered, otherwise a fresh uuid.
func nodeID(url, title string) string {
	if id, ok := arxiv.NormalizeAny(url, title); ok {
		return id
	}
	return uuid.NewString()
}

// labelPairs runs the labeling service over every unordered pair of
// extracted papers. Labeling output is taken as formed edges; a failed
// call contributes nothing.
func (h *Handler) labelPairs(ctx context.Context, jobID string, papers []sourcePaper, report jobs.ProgressFunc) []label.Edge {
	report(45, &jobs.ProgressDetail{
		Phase: jobs.PhaseAnalyzing,
		Step:  "labeling paper relationships",
	})
	if h.labeler == nil || len(papers) < 2 {
		return nil
	}

	var edges []label.Edge
	for i := 0; i < len(papers); i++ {
		for j := i + 1; j < len(papers); j++ {
			got, err := h.labeler.LabelPair(ctx, paperRef(papers[i].node), paperRef(papers[j].node))
			if err != nil {
				log.Printf("[analysis] job %s: labeling failed for %q / %q: %v",
					jobID, papers[i].node.Title, papers[j].node.Title, err)
				continue
			}
			edges = append(edges, got...)
		}
	}
	return edges
}

func paperRef(n Node) label.PaperRef {
	return label.PaperRef{ID: n.ID, Title: n.Title, URL: n.URL}
}

// resolvePriorWorks resolves every extracted citation record, one
// goroutine per source paper. Each paper resolves its own citations
// sequentially so the shared lookup client's rate limiter stays the
// only throttle.
func (h *Handler) resolvePriorWorks(ctx context.Context, papers []sourcePaper, report jobs.ProgressFunc) []citation.Work {
	report(60, &jobs.ProgressDetail{
		Phase: jobs.PhaseBuilding,
		Step:  "resolving cited works",
	})

	seed := make(map[string]bool)
	for _, p := range papers {
		seed[p.node.ID] = true
	}

	results := make(chan citation.Work)
	var wg sync.WaitGroup
	for _, p := range papers {
		wg.Add(1)
		go func(p sourcePaper) {
			defer wg.Done()
			known := make(map[string]bool, len(seed))
			for k := range seed {
				known[k] = true
			}
			for _, c := range p.citations {
				work := h.resolver.Resolve(ctx, c, known)
				work.Relationship = "cites"
				select {
				case results <- work:
				case <-ctx.Done():
					return
				}
			}
		}(p)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var works []citation.Work
	for work := range results {
		works = append(works, work)
	}
	return works
}

// resolveDerivativeWorks pulls the papers citing each source paper from
// the lookup service. These arrive already canonical, so they convert
// directly to works without a resolution cascade.
func (h *Handler) resolveDerivativeWorks(ctx context.Context, jobID string, papers []sourcePaper, report jobs.ProgressFunc) []citation.Work {
	report(85, &jobs.ProgressDetail{
		Phase: jobs.PhaseBuilding,
		Step:  "collecting derivative works",
	})
	if h.lister == nil {
		return nil
	}

	var works []citation.Work
	for _, p := range papers {
		id, ok := arxiv.Normalize(p.node.ID)
		if !ok {
			continue
		}
		citing, err := h.lister.GetCitations(ctx, "ARXIV:"+id, derivativeLimit)
		if err != nil {
			if !s2.IsNotFound(err) {
				log.Printf("[analysis] job %s: citations listing failed for %s: %v", jobID, id, err)
			}
			continue
		}
		for _, paper := range citing {
			work := workFromPaper(paper)
			work.Relationship = "cited_by"
			works = append(works, work)
		}
	}
	return works
}

// workFromPaper converts a canonical graph record into a work.
func workFromPaper(p s2.Paper) citation.Work {
	w := citation.Work{
		Title:         p.Title,
		Authors:       s2.AuthorNames(p.Authors),
		Year:          p.Year,
		Abstract:      p.Abstract,
		URL:           p.URL,
		CitationCount: p.Citations,
	}
	if p.ExternalIDs.ArXiv != "" {
		w.ID = p.ExternalIDs.ArXiv
		if w.URL == "" {
			w.URL = arxiv.AbsURL(p.ExternalIDs.ArXiv)
		}
	} else {
		w.ID = p.PaperID
	}
	return w
}

// scoreWorks assigns every merged work its strength against the labeled
// edge set.
func scoreWorks(works []citation.Work, edges []label.Edge) []citation.Work {
	for i := range works {
		keys := map[string]bool{
			citation.NormalizeTitle(works[i].Title): true,
		}
		if works[i].ID != "" {
			keys[works[i].ID] = true
		}
		works[i].Strength = citation.Strength(works[i].CitationCount, label.InDegree(edges, keys))
	}
	return works
}

// progressAcross maps step i of n onto the [lo, hi] progress range.
func progressAcross(lo, hi, i, n int) int {
	if n == 0 {
		return lo
	}
	return lo + (hi-lo)*i/n
}
