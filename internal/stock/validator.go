package stock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bayala/bayala-stock/internal/sales/lineitems"
)

// ErrIncompleteInput means a caller passed an unresolved product or a
// quantity below one. Drafts check completeness first, so seeing this is a
// defect in the caller.
var ErrIncompleteInput = errors.New("stock: incomplete input")

// Request is one line to check.
type Request struct {
	ProductID int64
	Quantity  int
	NameHint  string
}

// Shortfall is the gap between requested and available stock for one product.
type Shortfall struct {
	ProductID int64  `json:"productId"`
	NameHint  string `json:"name"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// ShortfallError reports every product that lacks stock.
type ShortfallError struct {
	Shortfalls []Shortfall
}

func (e *ShortfallError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s: available %d, requested %d", s.label(), s.Available, s.Requested)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (s Shortfall) label() string {
	if s.NameHint != "" {
		return s.NameHint
	}
	return fmt.Sprintf("product %d", s.ProductID)
}

// ValidatorConfig tunes the validator.
type ValidatorConfig struct {
	Concurrency int
	Timeout     time.Duration
}

// Validator compares requested quantities against Query results. The
// result is advisory; the order service validates again on submission.
type Validator struct {
	query   Query
	cfg     ValidatorConfig
	logger  *slog.Logger
	observe func(time.Duration, error)
}

// NewValidator wires the validator.
func NewValidator(query Query, cfg ValidatorConfig, logger *slog.Logger) *Validator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{query: query, cfg: cfg, logger: logger}
}

// OnCheck registers a hook called with the duration and result of each check.
func (v *Validator) OnCheck(fn func(time.Duration, error)) {
	v.observe = fn
}

type demand struct {
	productID int64
	nameHint  string
	requested int
}

// Check returns one shortfall per product whose summed requested quantity
// exceeds the available quantity, ordered by first appearance. Every
// request must be complete, otherwise ErrIncompleteInput is returned
// before any query is made.
func (v *Validator) Check(ctx context.Context, requests []Request) (shortfalls []Shortfall, err error) {
	demands, err := aggregate(requests)
	if err != nil {
		return nil, err
	}
	if len(demands) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		if v.observe != nil {
			v.observe(time.Since(start), err)
		}
	}()

	if v.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()
	}

	var (
		mu        sync.Mutex
		available = make(map[int64]int, len(demands))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.Concurrency)
	for _, d := range demands {
		d := d
		g.Go(func() error {
			qty, err := v.query.Available(gctx, d.productID)
			if err != nil {
				return err
			}
			mu.Lock()
			available[d.productID] = qty
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, d := range demands {
		if avail := available[d.productID]; d.requested > avail {
			shortfalls = append(shortfalls, Shortfall{
				ProductID: d.productID,
				NameHint:  d.nameHint,
				Available: avail,
				Requested: d.requested,
			})
		}
	}
	if len(shortfalls) > 0 {
		v.logger.Info("stock shortfall detected", slog.Int("products", len(shortfalls)))
	}
	return shortfalls, nil
}

func aggregate(requests []Request) ([]demand, error) {
	index := make(map[int64]int, len(requests))
	demands := make([]demand, 0, len(requests))
	for i, r := range requests {
		if !lineitems.Submittable(r.ProductID, r.Quantity) {
			return nil, fmt.Errorf("%w: line %d", ErrIncompleteInput, i+1)
		}
		if pos, ok := index[r.ProductID]; ok {
			demands[pos].requested += r.Quantity
			continue
		}
		index[r.ProductID] = len(demands)
		demands = append(demands, demand{productID: r.ProductID, nameHint: r.NameHint, requested: r.Quantity})
	}
	return demands, nil
}
