package process

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"law_process_app_go/models"
)

const eventSyncTimeout = 30 * time.Second

// Snapshot is a consistent copy of a workspace's state
type Snapshot struct {
	SessionID            string          `json:"sessionId"`
	CaseID               string          `json:"caseId"`
	Phase                string          `json:"phase"`
	Fields               models.FieldMap `json:"fields"`
	Dirty                bool            `json:"dirty"`
	CompletionPercentage int             `json:"completionPercentage"`
	Generation           uint64          `json:"generation"`
}

// Workspace is one session's open view of a case phase together with its
// tool cache. It follows DocumentsChanged events for the open phase.
type Workspace struct {
	id     string
	engine *Engine
	tools  *ToolCache

	mu         sync.Mutex
	caseID     string
	phase      string
	fields     models.FieldMap
	percentage int
	dirty      bool
	generation uint64 // bumped on every Open
	revision   uint64 // bumped on every field mutation

	closed      bool
	syncs       sync.WaitGroup
	unsubscribe func()
}

func newWorkspace(id string, e *Engine) *Workspace {
	w := &Workspace{
		id:     id,
		engine: e,
		tools:  NewToolCache(e.gateways),
		fields: models.FieldMap{},
	}
	w.unsubscribe = e.Bus.Subscribe(w.onDocumentsChanged)
	return w
}

// ID returns the session id
func (w *Workspace) ID() string { return w.id }

// Tools exposes the workspace's tool cache
func (w *Workspace) Tools() *ToolCache { return w.tools }

// Open loads a case phase into the workspace. Switching to another case
// clears the tool cache. Bound fields are synced from their folders.
func (w *Workspace) Open(ctx context.Context, caseID, phase string) (Snapshot, error) {
	if _, err := w.engine.Schema.Phase(phase); err != nil {
		return Snapshot{}, err
	}
	state, err := w.engine.Store.LoadProcessState(ctx, caseID)
	if err != nil {
		return Snapshot{}, err
	}

	w.mu.Lock()
	if w.caseID != caseID {
		w.tools.Reset()
	}
	w.caseID = caseID
	w.phase = phase
	w.generation++
	w.revision++
	w.fields = state.PerPhaseData[phase].Clone()
	w.percentage = state.CompletionPercentage
	w.dirty = false
	w.mu.Unlock()

	if _, err := w.Sync(ctx); err != nil {
		return w.Snapshot(), err
	}
	return w.Snapshot(), nil
}

// Snapshot returns a copy of the current state
func (w *Workspace) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		SessionID:            w.id,
		CaseID:               w.caseID,
		Phase:                w.phase,
		Fields:               w.fields.Clone(),
		Dirty:                w.dirty,
		CompletionPercentage: w.percentage,
		Generation:           w.generation,
	}
}

// SetFields applies user edits. Unknown field names are rejected as a whole.
func (w *Workspace) SetFields(values map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.caseID == "" {
		return ErrNoActiveCase
	}
	def, err := w.engine.Schema.Phase(w.phase)
	if err != nil {
		return err
	}

	var unknown []string
	for name := range values {
		if _, ok := def.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w for phase %s: %s", ErrUnknownField, w.phase, strings.Join(unknown, ", "))
	}

	for name, v := range values {
		w.fields[name] = v
	}
	w.dirty = true
	w.revision++
	return nil
}

// Sync pulls consolidated folder text into bound fields. Results computed
// for a context that has since been replaced are dropped.
func (w *Workspace) Sync(ctx context.Context) (SyncResult, error) {
	w.mu.Lock()
	if w.caseID == "" {
		w.mu.Unlock()
		return SyncResult{}, ErrNoActiveCase
	}
	gen, caseID, phase := w.generation, w.caseID, w.phase
	fields := w.fields.Clone()
	w.mu.Unlock()

	res, err := w.engine.Bridge.SyncConsolidatedFields(ctx, caseID, phase, fields)
	if err != nil {
		return res, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		log.Printf("[CONSOLIDATION] Discarding sync for case %s phase %s: workspace %s moved on", caseID, phase, w.id)
		return res, ErrContextChanged
	}
	for _, name := range res.Overwritten {
		w.fields[name] = res.Fields[name]
	}
	if res.Dirty {
		w.dirty = true
		w.revision++
	}
	return res, nil
}

func (w *Workspace) onDocumentsChanged(ev DocumentsChanged) {
	w.mu.Lock()
	if w.closed || ev.CaseID != w.caseID || ev.Phase != w.phase {
		w.mu.Unlock()
		return
	}
	w.syncs.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.syncs.Done()
		ctx, cancel := context.WithTimeout(context.Background(), eventSyncTimeout)
		defer cancel()
		if _, err := w.Sync(ctx); err != nil && !errors.Is(err, ErrContextChanged) {
			log.Printf("[CONSOLIDATION] Sync after change in %s/%s failed: %v", ev.Phase, ev.FolderType, err)
		}
	}()
}

// WaitForSync blocks until event-triggered syncs have finished
func (w *Workspace) WaitForSync() {
	w.syncs.Wait()
}

// Save persists the current fields and percentage. On failure the in-memory
// fields and dirty flag are kept so the user can retry.
func (w *Workspace) Save(ctx context.Context) (SaveOutcome, error) {
	w.mu.Lock()
	if w.caseID == "" {
		w.mu.Unlock()
		return SaveOutcome{}, ErrNoActiveCase
	}
	gen, rev, caseID, phase := w.generation, w.revision, w.caseID, w.phase
	fields := w.fields.Clone()
	w.mu.Unlock()

	outcome, err := w.engine.Saver.Save(ctx, caseID, phase, fields)
	if err != nil {
		return outcome, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.generation {
		return outcome, nil
	}
	if outcome.Percentage > w.percentage {
		w.percentage = outcome.Percentage
	}
	if rev == w.revision {
		w.fields = outcome.Fields.Clone()
		w.dirty = false
	}
	return outcome, nil
}

// FieldSource builds a tool source from the current value of a field
func (w *Workspace) FieldSource(name string) (FieldSource, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.caseID == "" {
		return FieldSource{}, ErrNoActiveCase
	}
	def, err := w.engine.Schema.Phase(w.phase)
	if err != nil {
		return FieldSource{}, err
	}
	f, ok := def.Field(name)
	if !ok {
		return FieldSource{}, fmt.Errorf("%w %q for phase %s", ErrUnknownField, name, w.phase)
	}
	return FieldSource{FieldName: f.Name, FolderType: f.Folder, Text: w.fields[name]}, nil
}

// RunTool runs a tool for the open case. With rerun set the cached entry is
// replaced. A response for a case or phase the workspace has left is not
// returned.
func (w *Workspace) RunTool(ctx context.Context, tool ToolKind, src Source, rerun bool) (ToolResult, error) {
	w.mu.Lock()
	caseID, phase := w.caseID, w.phase
	w.mu.Unlock()
	if caseID == "" {
		return nil, ErrNoActiveCase
	}

	var (
		result ToolResult
		err    error
	)
	if rerun {
		result, err = w.tools.Rerun(ctx, tool, src)
	} else {
		result, err = w.tools.RunTool(ctx, tool, src)
	}
	if err != nil {
		return nil, err
	}

	// results stay cached per case; only the caller's view is stale
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.caseID != caseID || w.phase != phase {
		return nil, ErrContextChanged
	}
	return result, nil
}

// GetCached returns a cached tool result without running anything
func (w *Workspace) GetCached(tool ToolKind, src Source) (ToolResult, bool) {
	return w.tools.GetCached(tool, src)
}

// Close stops following document events and waits for running syncs
func (w *Workspace) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.syncs.Wait()
}
