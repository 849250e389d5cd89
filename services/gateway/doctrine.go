package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"law_process_app_go/models"
	"law_process_app_go/services/process"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// DefaultDoctrineItems is how many ranked entries fill the doctrine panel
// next to a field. Lower-scored matches are dropped.
const DefaultDoctrineItems = 10

const minTokenRunes = 3

var stopWords = map[string]struct{}{
	"que": {}, "del": {}, "los": {}, "las": {}, "por": {}, "para": {}, "con": {}, "una": {},
	"uno": {}, "sus": {}, "como": {}, "mas": {}, "pero": {}, "sin": {}, "sobre": {}, "entre": {},
	"este": {}, "esta": {}, "ese": {}, "esa": {}, "son": {}, "fue": {}, "ser": {}, "han": {},
	"hay": {}, "cual": {}, "desde": {}, "hasta": {}, "todo": {}, "toda": {}, "ante": {}, "segun": {},
}

// Doctrine searches the doctrine table by keyword overlap
type Doctrine struct {
	db       *gorm.DB
	maxItems int
}

// NewDoctrine returns a doctrine search keeping at most maxItems entries.
// A non-positive maxItems uses DefaultDoctrineItems.
func NewDoctrine(db *gorm.DB, maxItems int) *Doctrine {
	if maxItems <= 0 {
		maxItems = DefaultDoctrineItems
	}
	return &Doctrine{db: db, maxItems: maxItems}
}

// SearchDoctrine implements process.DoctrineGateway
func (d *Doctrine) SearchDoctrine(ctx context.Context, term, caseDescription string) (*process.DoctrineResult, error) {
	var records []models.Doctrine
	if err := d.db.WithContext(ctx).Order("ano DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load doctrine: %w", err)
	}
	return &process.DoctrineResult{
		Query: strings.TrimSpace(term),
		Items: RankDoctrine(records, Tokenize(term+" "+caseDescription), d.maxItems),
	}, nil
}

// RankDoctrine scores records by how many query tokens they contain and
// keeps the best limit of them. With no usable tokens the newest records are
// returned.
func RankDoctrine(records []models.Doctrine, query map[string]struct{}, limit int) []process.DoctrineItem {
	type scored struct {
		rec   models.Doctrine
		score int
	}
	var ranked []scored
	for _, rec := range records {
		score := 0
		if len(query) > 0 {
			recTokens := Tokenize(strings.Join(append([]string{rec.Autor, rec.Obra, rec.Extracto}, rec.Keywords()...), " "))
			for tok := range query {
				if _, ok := recTokens[tok]; ok {
					score++
				}
			}
			if score == 0 {
				continue
			}
		}
		ranked = append(ranked, scored{rec: rec, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].rec.Ano > ranked[j].rec.Ano
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	items := make([]process.DoctrineItem, 0, len(ranked))
	for _, s := range ranked {
		keywords := s.rec.Keywords()
		if keywords == nil {
			keywords = []string{}
		}
		items = append(items, process.DoctrineItem{
			Autor:           s.rec.Autor,
			Obra:            s.rec.Obra,
			Ano:             s.rec.Ano,
			Extracto:        s.rec.Extracto,
			PalabrasClave:   keywords,
			LinkRepositorio: s.rec.LinkRepositorio,
			Score:           s.score,
		})
	}
	return items
}

// Tokenize lower-cases s, strips diacritics and splits on anything that is
// not a letter or digit. Short tokens and stop words are dropped.
func Tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	folded := strings.ToLower(removeDiacritics(s))
	for _, tok := range strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if utf8.RuneCountInString(tok) < minTokenRunes {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens[tok] = struct{}{}
	}
	return tokens
}

func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
