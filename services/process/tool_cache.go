package process

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ToolState is the lifecycle of the latest invocation for a key
type ToolState string

const (
	StateIdle    ToolState = "idle"
	StateRunning ToolState = "running"
	StateSuccess ToolState = "success"
	StateFailed  ToolState = "failed"
)

// ToolStatus is the state of a key plus the last failure message
type ToolStatus struct {
	State ToolState `json:"state"`
	Error string    `json:"error,omitempty"`
}

var errEmptyResponse = errors.New("gateway returned an empty response")

// ToolCallTimeout bounds one gateway call shared by every caller waiting on it
var ToolCallTimeout = 2 * time.Minute

// ToolCache runs tools through their gateways and memoizes successful
// results per (source, tool) for the active case.
type ToolCache struct {
	gateways Gateways

	mu      sync.RWMutex
	epoch   uint64
	results map[CacheKey]ToolResult
	status  map[CacheKey]ToolStatus

	flight singleflight.Group
}

// NewToolCache creates an empty cache over the given gateways
func NewToolCache(gateways Gateways) *ToolCache {
	return &ToolCache{
		gateways: gateways,
		results:  make(map[CacheKey]ToolResult),
		status:   make(map[CacheKey]ToolStatus),
	}
}

// GetCached returns the stored result for (tool, src) without blocking on
// in-flight runs.
func (c *ToolCache) GetCached(tool ToolKind, src Source) (ToolResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[src.cacheKey(tool)]
	return r, ok
}

// Status reports the state of the latest invocation for (tool, src)
func (c *ToolCache) Status(tool ToolKind, src Source) ToolStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if st, ok := c.status[src.cacheKey(tool)]; ok {
		return st
	}
	return ToolStatus{State: StateIdle}
}

// RunTool returns the cached result for (tool, src) or invokes the gateway
func (c *ToolCache) RunTool(ctx context.Context, tool ToolKind, src Source) (ToolResult, error) {
	return c.run(ctx, tool, src, false)
}

// Rerun always invokes the gateway and replaces the cached entry on success
func (c *ToolCache) Rerun(ctx context.Context, tool ToolKind, src Source) (ToolResult, error) {
	return c.run(ctx, tool, src, true)
}

// Reset drops every cached result. Runs still in flight will not be stored.
func (c *ToolCache) Reset() {
	c.mu.Lock()
	c.epoch++
	c.results = make(map[CacheKey]ToolResult)
	c.status = make(map[CacheKey]ToolStatus)
	c.mu.Unlock()
}

// Len returns the number of cached results
func (c *ToolCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

func (c *ToolCache) run(ctx context.Context, tool ToolKind, src Source, force bool) (ToolResult, error) {
	if _, ok := ParseToolKind(string(tool)); !ok {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown tool %q", tool)}
	}
	text := strings.TrimSpace(src.sourceText())
	if text == "" {
		return nil, ErrNoTextAvailable
	}

	key := src.cacheKey(tool)
	if !force {
		if r, ok := c.GetCached(tool, src); ok {
			toolRunsTotal.WithLabelValues(string(tool), outcomeCached).Inc()
			return r, nil
		}
	}

	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	// The gateway call is shared by every joined caller and outlives any of
	// them; each caller stops waiting when its own context ends.
	flightKey := fmt.Sprintf("%d|%s|%s", epoch, key, text)
	ch := c.flight.DoChan(flightKey, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ToolCallTimeout)
		defer cancel()

		c.setStatus(key, epoch, ToolStatus{State: StateRunning})

		start := time.Now()
		result, err := c.dispatch(callCtx, tool, text)
		toolDuration.WithLabelValues(string(tool)).Observe(time.Since(start).Seconds())

		if err != nil {
			gwErr := asGatewayError(tool, err)
			c.setStatus(key, epoch, ToolStatus{State: StateFailed, Error: gwErr.Error()})
			toolRunsTotal.WithLabelValues(string(tool), outcomeFailed).Inc()
			log.Printf("[TOOLS] %s failed for %s %s: %v", tool, key.Scope, key.Identity(), err)
			return nil, gwErr
		}

		if !c.store(key, epoch, result) {
			toolRunsTotal.WithLabelValues(string(tool), outcomeStale).Inc()
			log.Printf("[TOOLS] Discarding %s result for %s: case changed while running", tool, key.Identity())
			return result, nil
		}
		toolRunsTotal.WithLabelValues(string(tool), outcomeSuccess).Inc()
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, asGatewayError(tool, ctx.Err())
	case res := <-ch:
		if res.Shared {
			toolRunsTotal.WithLabelValues(string(tool), outcomeDeduped).Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(ToolResult), nil
	}
}

// dispatch maps each tool kind to its gateway call and input limits
func (c *ToolCache) dispatch(ctx context.Context, tool ToolKind, text string) (ToolResult, error) {
	switch tool {
	case ToolJurisprudencia:
		if c.gateways.Jurisprudence == nil {
			return nil, errGatewayNotConfigured
		}
		r, err := c.gateways.Jurisprudence.Jurisprudence(ctx, HeadRunes(text, MaxJurisprudenceQuery))
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errEmptyResponse
		}
		return r, nil

	case ToolAnalisis:
		if c.gateways.Analysis == nil {
			return nil, errGatewayNotConfigured
		}
		r, err := c.gateways.Analysis.Analyze(ctx, HeadRunes(text, MaxAnalysisText))
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errEmptyResponse
		}
		return r, nil

	case ToolDoctrina:
		if c.gateways.Doctrine == nil {
			return nil, errGatewayNotConfigured
		}
		r, err := c.gateways.Doctrine.SearchDoctrine(ctx, HeadRunes(text, MaxDoctrineTerm), HeadRunes(text, MaxDoctrineContext))
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errEmptyResponse
		}
		return r, nil

	case ToolMetabuscador:
		if c.gateways.MetaSearch == nil {
			return nil, errGatewayNotConfigured
		}
		r, err := c.gateways.MetaSearch.MetaSearch(ctx, HeadRunes(text, MaxMetaSearchTerm))
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, errEmptyResponse
		}
		return r, nil
	}
	return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown tool %q", tool)}
}

var errGatewayNotConfigured = errors.New("tool gateway not configured")

func (c *ToolCache) setStatus(key CacheKey, epoch uint64, st ToolStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch == epoch {
		c.status[key] = st
	}
}

func (c *ToolCache) store(key CacheKey, epoch uint64, result ToolResult) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return false
	}
	c.results[key] = result
	c.status[key] = ToolStatus{State: StateSuccess}
	return true
}

func asGatewayError(tool ToolKind, err error) error {
	if IsConfigurationError(err) {
		return err
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Tool == "" {
			return &GatewayError{Tool: tool, Message: gwErr.Message, Err: gwErr.Err}
		}
		return gwErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &GatewayError{Tool: tool, Message: "la solicitud fue cancelada o excedió el tiempo", Err: err}
	}
	return &GatewayError{Tool: tool, Err: err}
}
