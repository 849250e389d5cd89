package process

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// ToolKind identifies a research tool
type ToolKind string

const (
	ToolJurisprudencia ToolKind = "jurisprudencia"
	ToolAnalisis       ToolKind = "analisis"
	ToolDoctrina       ToolKind = "doctrina"
	ToolMetabuscador   ToolKind = "metabuscador"
)

// Input limits per tool, in characters. Only the head of the text is sent.
const (
	MaxJurisprudenceQuery = 800
	MaxAnalysisText       = 6000
	MaxDoctrineContext    = 2000
	MaxDoctrineTerm       = 200
	MaxMetaSearchTerm     = 200
)

// AllTools returns the tool kinds in menu order
func AllTools() []ToolKind {
	return []ToolKind{ToolJurisprudencia, ToolAnalisis, ToolDoctrina, ToolMetabuscador}
}

// ParseToolKind validates a tool identifier
func ParseToolKind(s string) (ToolKind, bool) {
	for _, k := range AllTools() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Scope distinguishes field sources from document sources
type Scope string

const (
	ScopeField    Scope = "field"
	ScopeDocument Scope = "document"
)

// CacheKey identifies one cached tool result within a case
type CacheKey struct {
	Scope  Scope
	Name   string // field name or document id
	Folder string // folder binding of a field, empty for documents
	Tool   ToolKind
}

// Identity returns "field[:folder]" for fields and the document id for documents
func (k CacheKey) Identity() string {
	if k.Scope == ScopeField && k.Folder != "" {
		return k.Name + ":" + k.Folder
	}
	return k.Name
}

// String is an unambiguous encoding used for in-flight deduplication
func (k CacheKey) String() string {
	return strings.Join([]string{
		string(k.Scope),
		strconv.Quote(k.Name),
		strconv.Quote(k.Folder),
		string(k.Tool),
	}, "|")
}

// Source is the text a tool runs against. It is a FieldSource or a
// DocumentSource, possibly wrapped by WithTerm.
type Source interface {
	cacheKey(tool ToolKind) CacheKey
	sourceText() string
}

// FieldSource is the current value of a phase field
type FieldSource struct {
	FieldName  string
	FolderType string
	Text       string
}

func (s FieldSource) cacheKey(tool ToolKind) CacheKey {
	return CacheKey{Scope: ScopeField, Name: s.FieldName, Folder: s.FolderType, Tool: tool}
}

func (s FieldSource) sourceText() string { return s.Text }

// DocumentSource is the extracted text of an uploaded document
type DocumentSource struct {
	DocumentID string
	Text       string
}

func (s DocumentSource) cacheKey(tool ToolKind) CacheKey {
	return CacheKey{Scope: ScopeDocument, Name: s.DocumentID, Tool: tool}
}

func (s DocumentSource) sourceText() string { return s.Text }

// termSource runs a tool on a user-edited term while keeping the cache key
// of the source it was derived from
type termSource struct {
	Source
	term string
}

func (s termSource) sourceText() string { return s.term }

// WithTerm replaces the text sent to the tool with term. The result is still
// cached under src's field or document. A blank term returns src unchanged.
func WithTerm(src Source, term string) Source {
	if strings.TrimSpace(term) == "" {
		return src
	}
	return termSource{Source: src, term: term}
}

// KeyFor returns the cache key of a (tool, source) pair
func KeyFor(tool ToolKind, src Source) CacheKey {
	return src.cacheKey(tool)
}

// ToolResult is the payload of a successful tool run
type ToolResult interface {
	Tool() ToolKind
}

// JurisprudenceResult is a free-text answer about case law
type JurisprudenceResult struct {
	Term       string   `json:"term"`
	Answer     string   `json:"answer"`
	References []string `json:"references,omitempty"`
}

func (*JurisprudenceResult) Tool() ToolKind { return ToolJurisprudencia }

// PrecedentRef is a stored precedent related to an analysis
type PrecedentRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Court     string    `json:"court"`
	Date      time.Time `json:"date"`
	Summary   string    `json:"summary"`
	LegalArea string    `json:"legal_area"`
	Relevance int       `json:"relevance"`
}

// AnalysisResult is the structured review of a document
type AnalysisResult struct {
	DocumentSummary  string         `json:"documentSummary"`
	KeyLegalConcepts []string       `json:"keyLegalConcepts"`
	LegalAreas       []string       `json:"legalAreas"`
	RelevantArticles []string       `json:"relevantArticles"`
	Recommendations  []string       `json:"recommendations"`
	Risks            []string       `json:"risks"`
	Confidence       int            `json:"confidence"`
	PrecedentsFound  []PrecedentRef `json:"precedentsFound"`
	Note             string         `json:"note,omitempty"`
}

func (*AnalysisResult) Tool() ToolKind { return ToolAnalisis }

// DoctrineItem is one matching scholarship entry
type DoctrineItem struct {
	Autor           string   `json:"autor"`
	Obra            string   `json:"obra"`
	Ano             int      `json:"ano"`
	Extracto        string   `json:"extracto"`
	PalabrasClave   []string `json:"palabras_clave"`
	LinkRepositorio string   `json:"link_repositorio,omitempty"`
	Score           int      `json:"score"`
}

// DoctrineResult lists doctrine entries relevant to a query
type DoctrineResult struct {
	Query string         `json:"query"`
	Items []DoctrineItem `json:"items"`
}

func (*DoctrineResult) Tool() ToolKind { return ToolDoctrina }

// SearchHit is one result from an external repository
type SearchHit struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// MetaSearchResult lists hits across external legal repositories. Fallback
// is reported by the meta-search service when its own scraper answered
// instead of the repository APIs; it is passed through unchanged.
type MetaSearchResult struct {
	Term     string      `json:"term"`
	Results  []SearchHit `json:"results"`
	Fallback bool        `json:"fallback,omitempty"`
}

func (*MetaSearchResult) Tool() ToolKind { return ToolMetabuscador }

// Gateway interfaces, one per tool kind

type JurisprudenceGateway interface {
	Jurisprudence(ctx context.Context, query string) (*JurisprudenceResult, error)
}

type AnalysisGateway interface {
	Analyze(ctx context.Context, text string) (*AnalysisResult, error)
}

type DoctrineGateway interface {
	SearchDoctrine(ctx context.Context, term, caseDescription string) (*DoctrineResult, error)
}

type MetaSearchGateway interface {
	MetaSearch(ctx context.Context, term string) (*MetaSearchResult, error)
}

// Gateways bundles the tool backends
type Gateways struct {
	Jurisprudence JurisprudenceGateway
	Analysis      AnalysisGateway
	Doctrine      DoctrineGateway
	MetaSearch    MetaSearchGateway
}

// HeadRunes keeps at most max characters from the start of s
func HeadRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
