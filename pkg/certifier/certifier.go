// Package certifier certifies HTTP responses according to a table of route
// policies and optionally indexes the results into a certification tree.
package certifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/przydatek/response-verification/pkg/cel"
	"github.com/przydatek/response-verification/pkg/certtree"
	"github.com/przydatek/response-verification/pkg/config"
	"github.com/przydatek/response-verification/pkg/httpcert"
	"github.com/przydatek/response-verification/pkg/observability"
	"github.com/przydatek/response-verification/pkg/rihash"
)

// ErrNoRoute is returned when no route covers the request path.
var ErrNoRoute = errors.New("no route matches request path")

// Item is one request/response pair to certify. BodyHash, when set, replaces
// hashing Response.Body.
type Item struct {
	Request  *httpcert.Request
	Response *httpcert.Response
	BodyHash *rihash.Hash
}

// Outcome is the result of certifying one Item.
type Outcome struct {
	Route         config.Route
	Certification httpcert.Certification
	Err           error
}

// Certifier resolves route policies and builds certifications.
type Certifier struct {
	routes  []config.Route
	logger  *slog.Logger
	obs     *observability.Provider
	tree    *certtree.Tree
	workers int
}

// Option configures a Certifier.
type Option func(*Certifier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Certifier) { c.logger = l.With("component", "certifier") }
}

// WithObservability records metrics and spans through p.
func WithObservability(p *observability.Provider) Option {
	return func(c *Certifier) { c.obs = p }
}

// WithTree inserts every successful certification into t.
func WithTree(t *certtree.Tree) Option {
	return func(c *Certifier) { c.tree = t }
}

// WithWorkers bounds the parallelism of CertifyBatch.
func WithWorkers(n int) Option {
	return func(c *Certifier) {
		if n > 0 {
			c.workers = n
		}
	}
}

// New creates a Certifier over routes.
func New(routes []config.Route, opts ...Option) (*Certifier, error) {
	c := &Certifier{
		routes:  routes,
		logger:  slog.Default().With("component", "certifier"),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.obs == nil {
		obs, err := observability.New(context.Background(), nil)
		if err != nil {
			return nil, fmt.Errorf("certifier: observability: %w", err)
		}
		c.obs = obs
	}
	return c, nil
}

// Tree returns the tree certifications are indexed into, or nil.
func (c *Certifier) Tree() *certtree.Tree {
	return c.tree
}

// Match returns the most specific route covering the path of rawURL. Exact
// routes win over wildcards, and longer wildcard prefixes over shorter ones.
func (c *Certifier) Match(rawURL string) (config.Route, bool) {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		path = rawURL[:i]
	}

	var (
		best  config.Route
		found bool
	)
	for _, r := range c.routes {
		if !r.Path.Matches(path) {
			continue
		}
		if !r.Path.IsWildcard() {
			return r, true
		}
		if !found || len(r.Path.String()) > len(best.Path.String()) {
			best, found = r, true
		}
	}
	return best, found
}

// Certify certifies one item under its matching route.
func (c *Certifier) Certify(ctx context.Context, item Item) (httpcert.Certification, error) {
	out := c.certify(ctx, item)
	return out.Certification, out.Err
}

func (c *Certifier) certify(ctx context.Context, item Item) (out Outcome) {
	route, ok := c.Match(item.Request.URL)
	if !ok {
		c.obs.RecordFailure(ctx, "ERR_NO_ROUTE")
		return Outcome{Err: fmt.Errorf("%w: %s", ErrNoRoute, item.Request.URL)}
	}
	out.Route = route

	ctx, done := c.obs.TrackOperation(ctx, "httpcert.certify", attribute.String("route", route.Path.String()))
	defer func() { done(out.Err) }()

	cert, err := c.build(ctx, route, item)
	if err != nil {
		var cerr *httpcert.CertificationError
		code := "ERR_INTERNAL"
		if errors.As(err, &cerr) {
			code = cerr.Code
		}
		c.obs.RecordFailure(ctx, code)
		out.Err = err
		return out
	}

	if c.tree != nil {
		if err := c.tree.Insert(certtree.Entry{Path: route.Path, Certification: cert}); err != nil {
			c.obs.RecordFailure(ctx, "ERR_TREE_INSERT")
			out.Err = fmt.Errorf("certifier: index %s: %w", route.Path, err)
			return out
		}
	}

	c.obs.RecordCertification(ctx, string(cert.Kind()))
	c.logger.DebugContext(ctx, "certified",
		"route", route.Path.String(),
		"kind", cert.Kind(),
		"policy_hash", cert.PolicyHash().String(),
	)
	out.Certification = cert
	return out
}

func (c *Certifier) build(ctx context.Context, route config.Route, item Item) (httpcert.Certification, error) {
	switch expr := route.Expression.(type) {
	case *cel.SkipExpression:
		return httpcert.NewSkip(), nil
	case *cel.ResponseOnlyExpression:
		cert := httpcert.NewResponseOnly(expr, item.Response, item.BodyHash)
		return &cert, nil
	case *cel.FullExpression:
		cert, err := httpcert.NewFull(expr, item.Request, item.Response, item.BodyHash)
		if err == nil {
			return &cert, nil
		}
		if !route.Fallback || !httpcert.IsRequestHashingFailed(err) {
			return nil, err
		}
		c.logger.WarnContext(ctx, "request not certifiable, falling back to response-only",
			"route", route.Path.String(),
			"error", err,
		)
		fallback := cel.ResponseOnlyCertification().WithResponseCertification(expr.Response).Build()
		ro := httpcert.NewResponseOnly(fallback, item.Response, item.BodyHash)
		return &ro, nil
	default:
		return nil, fmt.Errorf("certifier: unsupported expression %T", route.Expression)
	}
}

// CertifyBatch certifies items in parallel. Outcomes are returned in input
// order; a failing item does not stop the others. Items not started before
// ctx is cancelled report ctx.Err().
func (c *Certifier) CertifyBatch(ctx context.Context, items []Item) []Outcome {
	outcomes := make([]Outcome, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := range items {
		i := i
		if err := gctx.Err(); err != nil {
			outcomes[i] = Outcome{Err: err}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				outcomes[i] = Outcome{Err: err}
				return nil
			}
			outcomes[i] = c.certify(gctx, items[i])
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	c.logger.InfoContext(ctx, "batch certified", "items", len(items), "failed", failed)
	return outcomes
}
