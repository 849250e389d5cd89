package gateway

import (
	"context"
	"fmt"
	"strings"

	"law_process_app_go/models"
	"law_process_app_go/services/process"

	"gorm.io/gorm"
)

// PrecedentIndex matches analyses against the precedents table
type PrecedentIndex struct {
	db *gorm.DB
}

func NewPrecedentIndex(db *gorm.DB) *PrecedentIndex {
	return &PrecedentIndex{db: db}
}

// RelatedPrecedents returns stored precedents that mention a concept, area
// or article of the analysis, most relevant first
func (p *PrecedentIndex) RelatedPrecedents(ctx context.Context, analysis *process.AnalysisResult) ([]process.PrecedentRef, error) {
	var all []models.Precedent
	if err := p.db.WithContext(ctx).Order("relevance DESC, date DESC").Find(&all).Error; err != nil {
		return nil, fmt.Errorf("failed to load precedents: %w", err)
	}
	return MatchPrecedents(analysis, all), nil
}

// MatchPrecedents filters precedents by the analysis' search terms. A term
// naming the civil or labour area also matches any precedent in that area.
func MatchPrecedents(analysis *process.AnalysisResult, precedents []models.Precedent) []process.PrecedentRef {
	var terms []string
	for _, list := range [][]string{analysis.KeyLegalConcepts, analysis.LegalAreas, analysis.RelevantArticles} {
		for _, t := range list {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				terms = append(terms, t)
			}
		}
	}

	matches := []process.PrecedentRef{}
	if len(terms) == 0 {
		return matches
	}
	for _, prec := range precedents {
		text := strings.ToLower(strings.Join(append([]string{prec.Title, prec.Summary, prec.Excerpt, prec.LegalArea}, prec.Articles()...), " "))
		if !matchesAnyTerm(text, terms) {
			continue
		}
		matches = append(matches, process.PrecedentRef{
			ID:        prec.ID,
			Title:     prec.Title,
			Court:     prec.Court,
			Date:      prec.Date,
			Summary:   prec.Summary,
			LegalArea: prec.LegalArea,
			Relevance: prec.Relevance,
		})
	}
	return matches
}

func matchesAnyTerm(text string, terms []string) bool {
	for _, term := range terms {
		switch {
		case strings.Contains(text, term):
			return true
		case strings.Contains(term, "civil") && strings.Contains(text, "civil"):
			return true
		case strings.Contains(term, "laboral") && strings.Contains(text, "laboral"):
			return true
		}
	}
	return false
}
