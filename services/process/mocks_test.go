package process

import (
	"context"

	"law_process_app_go/models"

	"github.com/stretchr/testify/mock"
)

type MockJurisprudence struct{ mock.Mock }

func (m *MockJurisprudence) Jurisprudence(ctx context.Context, query string) (*JurisprudenceResult, error) {
	args := m.Called(ctx, query)
	if r := args.Get(0); r != nil {
		return r.(*JurisprudenceResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAnalysis struct{ mock.Mock }

func (m *MockAnalysis) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	args := m.Called(ctx, text)
	if r := args.Get(0); r != nil {
		return r.(*AnalysisResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockDoctrine struct{ mock.Mock }

func (m *MockDoctrine) SearchDoctrine(ctx context.Context, term, caseDescription string) (*DoctrineResult, error) {
	args := m.Called(ctx, term, caseDescription)
	if r := args.Get(0); r != nil {
		return r.(*DoctrineResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockMetaSearch struct{ mock.Mock }

func (m *MockMetaSearch) MetaSearch(ctx context.Context, term string) (*MetaSearchResult, error) {
	args := m.Called(ctx, term)
	if r := args.Get(0); r != nil {
		return r.(*MetaSearchResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockConsolidatedText struct{ mock.Mock }

func (m *MockConsolidatedText) GetConsolidatedText(ctx context.Context, caseID, phase, folderType string) (string, error) {
	args := m.Called(ctx, caseID, phase, folderType)
	return args.String(0), args.Error(1)
}

type MockStore struct{ mock.Mock }

func (m *MockStore) LoadProcessState(ctx context.Context, caseID string) (*ProcessState, error) {
	args := m.Called(ctx, caseID)
	if r := args.Get(0); r != nil {
		return r.(*ProcessState), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) SaveFields(ctx context.Context, caseID, phase string, fields models.FieldMap) error {
	args := m.Called(ctx, caseID, phase, fields)
	return args.Error(0)
}

func (m *MockStore) SavePercentage(ctx context.Context, caseID, phase string, percentage int) error {
	args := m.Called(ctx, caseID, phase, percentage)
	return args.Error(0)
}
