package visor

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/visor/backend"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/page"
	"github.com/hupe1980/visor/query"
)

// Describer produces the display description of a result item, typically
// from dataset metadata.
type Describer interface {
	Describe(ctx context.Context, dataset string, item model.Item) (string, error)
}

// DescriberFunc adapts a function to the Describer interface.
type DescriberFunc func(ctx context.Context, dataset string, item model.Item) (string, error)

// Describe implements Describer.
func (f DescriberFunc) Describe(ctx context.Context, dataset string, item model.Item) (string, error) {
	return f(ctx, dataset, item)
}

// Page is one page of a ranking list.
type Page struct {
	ID query.SessionID `json:"qsid"`
	// Number is the page served, after clamping into [1, Count].
	Number int `json:"page"`
	Count  int `json:"page_count"`
	Size   int `json:"page_size"`
	// Total is the number of items the pages are cut from.
	Total  int          `json:"total"`
	Items  []model.Item `json:"items"`
	Window []int        `json:"pages"`
}

// FetchOptions controls FetchPage.
type FetchOptions struct {
	// ROIOnly pages over the items carrying a region of interest.
	ROIOnly bool
	// ResolveROIs asks the backend for the ROIs missing on the page.
	ResolveROIs bool
}

// FetchOption configures FetchPage.
type FetchOption func(*FetchOptions)

// ROIOnly restricts the pages to items with a region of interest.
func ROIOnly() FetchOption {
	return func(o *FetchOptions) { o.ROIOnly = true }
}

// ResolveROIs fills in missing regions of interest from the backend.
func ResolveROIs() FetchOption {
	return func(o *FetchOptions) { o.ResolveROIs = true }
}

// FetchPage returns page pageNumber of the ranking list of id. The page
// number is clamped into the valid range; a non-positive pageSize uses the
// configured default. The cached result is never modified.
func (s *Service) FetchPage(ctx context.Context, id query.SessionID, pageNumber, pageSize int, optFns ...FetchOption) (*Page, error) {
	start := time.Now()
	p, err := s.fetchPage(ctx, id, pageNumber, pageSize, optFns)
	if p != nil {
		s.logger.LogPage(ctx, id, p.Number, p.Count, err)
	} else {
		s.logger.LogPage(ctx, id, pageNumber, 0, err)
	}
	s.metrics.RecordPage(time.Since(start), err)
	return p, err
}

func (s *Service) fetchPage(ctx context.Context, id query.SessionID, pageNumber, pageSize int, optFns []FetchOption) (*Page, error) {
	var opts FetchOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if pageSize <= 0 {
		pageSize = s.opts.pageSize
	}

	res, err := s.cache.GetResult(id)
	if err != nil {
		return nil, translateError(err)
	}
	if res.Empty() {
		return nil, ErrNoResults
	}
	def, err := s.cache.LookupDefinition(id)
	if err != nil {
		return nil, translateError(err)
	}

	var (
		items []model.Item
		total int
		num   int
		count int
	)
	if opts.ROIOnly {
		all := res.WithROI()
		if len(all) == 0 {
			return nil, ErrNoResults
		}
		items, count = page.Get(all, pageNumber, pageSize)
		num = page.Clamp(pageNumber, count)
		total = len(all)
	} else {
		var lo, hi int
		lo, hi, num, count = page.Bounds(res.Len(), pageNumber, pageSize)
		items = res.Slice(lo, hi)
		total = res.Len()
	}

	if opts.ResolveROIs {
		s.resolveROIs(ctx, def, items)
	}
	s.describe(ctx, def.Dataset, items)

	return &Page{
		ID:     id,
		Number: num,
		Count:  count,
		Size:   pageSize,
		Total:  total,
		Items:  items,
		Window: page.Window(num, count, s.opts.pageWindow),
	}, nil
}

// resolveROIs looks up missing ROIs in parallel. Identical concurrent
// lookups share one backend request. Failures leave the item unchanged.
func (s *Service) resolveROIs(ctx context.Context, def query.Definition, items []model.Item) {
	eng, ok := s.reg.Engine(def.Engine)
	if !ok || eng.BackendAddr == "" {
		return
	}
	client, err := s.opts.roiClients(eng)
	if err != nil {
		s.logger.WithEngine(eng.Name).Debug("no roi client", "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.roiParallelism)
	for i := range items {
		if items[i].HasROI() {
			continue
		}
		g.Go(func() error {
			key := eng.Name + "\x00" + def.Spec + "\x00" + items[i].Path
			v, err, _ := s.roiFlight.Do(key, func() (any, error) {
				return backend.LookupROI(gctx, client, items[i].Path, def.Spec)
			})
			if err != nil {
				s.logger.WithEngine(eng.Name).Debug("roi lookup failed", "path", items[i].Path, "error", err)
				return nil
			}
			items[i].ROI = v.(string)
			return nil
		})
	}
	_ = g.Wait()
}

// describe fills in descriptions, falling back to the file name.
func (s *Service) describe(ctx context.Context, dataset string, items []model.Item) {
	for i := range items {
		if items[i].Desc != "" {
			continue
		}
		if s.opts.describer != nil {
			desc, err := s.opts.describer.Describe(ctx, dataset, items[i])
			if err == nil && desc != "" {
				items[i].Desc = desc
				continue
			}
			if err != nil {
				s.logger.Debug("describe failed", "path", items[i].Path, "error", err)
			}
		}
		items[i].Desc = items[i].Name()
	}
}
