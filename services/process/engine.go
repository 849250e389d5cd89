package process

import (
	"sync"
)

// EngineOptions wires the engine's collaborators
type EngineOptions struct {
	Schema      *Schema // defaults to the embedded table
	Store       ProcessStore
	Docs        ConsolidatedTextSource
	Gateways    Gateways
	Sanitizer   Sanitizer
	Bus         *Bus
	OnOverwrite OverwriteFunc
}

// Engine owns the shared components and the open workspaces
type Engine struct {
	Schema *Schema
	Store  ProcessStore
	Bus    *Bus
	Bridge *Bridge
	Saver  *Saver

	gateways Gateways

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewEngine builds an engine from its collaborators
func NewEngine(opts EngineOptions) *Engine {
	schema := opts.Schema
	if schema == nil {
		schema = DefaultSchema()
	}
	bus := opts.Bus
	if bus == nil {
		bus = NewBus()
	}
	return &Engine{
		Schema:     schema,
		Store:      opts.Store,
		Bus:        bus,
		Bridge:     NewBridge(schema, opts.Docs, opts.OnOverwrite),
		Saver:      NewSaver(schema, opts.Store, opts.Sanitizer),
		gateways:   opts.Gateways,
		workspaces: make(map[string]*Workspace),
	}
}

// Workspace returns the workspace for a session, creating it on first use
func (e *Engine) Workspace(sessionID string) *Workspace {
	e.mu.Lock()
	defer e.mu.Unlock()
	if w, ok := e.workspaces[sessionID]; ok {
		return w
	}
	w := newWorkspace(sessionID, e)
	e.workspaces[sessionID] = w
	return w
}

// LookupWorkspace returns an existing workspace
func (e *Engine) LookupWorkspace(sessionID string) (*Workspace, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workspaces[sessionID]
	return w, ok
}

// CloseWorkspace unsubscribes and forgets a session's workspace
func (e *Engine) CloseWorkspace(sessionID string) {
	e.mu.Lock()
	w, ok := e.workspaces[sessionID]
	delete(e.workspaces, sessionID)
	e.mu.Unlock()
	if ok {
		w.Close()
	}
}

// Close closes every workspace
func (e *Engine) Close() {
	e.mu.Lock()
	open := make([]*Workspace, 0, len(e.workspaces))
	for id, w := range e.workspaces {
		open = append(open, w)
		delete(e.workspaces, id)
	}
	e.mu.Unlock()
	for _, w := range open {
		w.Close()
	}
}
