package process

import (
	"context"
	"log"
	"sort"
	"sync"

	"law_process_app_go/models"

	"golang.org/x/sync/errgroup"
)

// ConsolidatedTextSource returns the concatenated extracted text of a folder.
// An empty folder yields "".
type ConsolidatedTextSource interface {
	GetConsolidatedText(ctx context.Context, caseID, phase, folderType string) (string, error)
}

// OverwriteFunc observes a field replaced by folder text
type OverwriteFunc func(caseID, phase, field, oldValue, newValue string)

// SyncResult is the outcome of one consolidation sync
type SyncResult struct {
	Fields      models.FieldMap
	Dirty       bool
	Overwritten []string         // field names replaced by folder text
	Failed      map[string]error // folder type -> fetch error
}

// Bridge projects folder contents onto their bound textarea fields
type Bridge struct {
	schema      *Schema
	docs        ConsolidatedTextSource
	onOverwrite OverwriteFunc
	parallelism int
}

// NewBridge creates a bridge; onOverwrite may be nil
func NewBridge(schema *Schema, docs ConsolidatedTextSource, onOverwrite OverwriteFunc) *Bridge {
	return &Bridge{schema: schema, docs: docs, onOverwrite: onOverwrite, parallelism: 4}
}

// SyncConsolidatedFields replaces every folder-bound field with the folder's
// consolidated text when that text is non-empty. Folder fetch failures are
// logged and leave the field at its current value. The input map is not
// modified.
func (b *Bridge) SyncConsolidatedFields(ctx context.Context, caseID, phase string, fields models.FieldMap) (SyncResult, error) {
	def, err := b.schema.Phase(phase)
	if err != nil {
		return SyncResult{Fields: fields.Clone()}, err
	}

	bound := def.BoundFields()
	folders := make(map[string]struct{}, len(bound))
	for _, f := range bound {
		folders[f.Folder] = struct{}{}
	}

	var (
		mu    sync.Mutex
		texts = make(map[string]string, len(folders))
		fails = make(map[string]error)
		g     errgroup.Group
	)
	g.SetLimit(b.parallelism)
	for folder := range folders {
		g.Go(func() error {
			text, err := b.docs.GetConsolidatedText(ctx, caseID, phase, folder)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails[folder] = &GatewayError{Message: "failed to fetch consolidated text for " + folder, Err: err}
				consolidationSyncTotal.WithLabelValues(outcomeFailed).Inc()
				log.Printf("[CONSOLIDATION] Failed to fetch %s/%s for case %s: %v", phase, folder, caseID, err)
				return nil
			}
			texts[folder] = text
			consolidationSyncTotal.WithLabelValues(outcomeSuccess).Inc()
			return nil
		})
	}
	_ = g.Wait()

	result := SyncResult{Fields: fields.Clone(), Failed: fails}
	if result.Fields == nil {
		result.Fields = models.FieldMap{}
	}
	for _, f := range bound {
		text, ok := texts[f.Folder]
		if !ok || text == "" {
			continue
		}
		old := result.Fields[f.Name]
		if old == text {
			continue
		}
		result.Fields[f.Name] = text
		result.Dirty = true
		result.Overwritten = append(result.Overwritten, f.Name)
		if b.onOverwrite != nil {
			b.onOverwrite(caseID, phase, f.Name, old, text)
		}
	}
	sort.Strings(result.Overwritten)
	return result, nil
}
