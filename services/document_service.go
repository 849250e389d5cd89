package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"law_process_app_go/models"
	"law_process_app_go/services/process"

	"gorm.io/gorm"
)

const separatorWidth = 80

var (
	ErrEmptyFile     = errors.New("uploaded file is empty")
	ErrFileTooLarge  = errors.New("uploaded file exceeds the size limit")
	ErrUnknownFolder = errors.New("folder does not belong to phase")
)

// TextExtractor turns document bytes into plain text
type TextExtractor interface {
	Extract(ctx context.Context, fileName, contentType string, data []byte) (string, error)
}

// DocumentService stores phase documents and keeps the per-folder
// consolidated text current
type DocumentService struct {
	db        *gorm.DB
	storage   StorageProvider
	extractor TextExtractor
	schema    *process.Schema
	bus       *process.Bus
	maxBytes  int64
	now       func() time.Time
}

func NewDocumentService(db *gorm.DB, storage StorageProvider, extractor TextExtractor, schema *process.Schema, bus *process.Bus, maxBytes int64) *DocumentService {
	return &DocumentService{
		db:        db,
		storage:   storage,
		extractor: extractor,
		schema:    schema,
		bus:       bus,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// UploadInput is one file dropped into a phase folder
type UploadInput struct {
	CaseID      string
	Phase       string
	FolderType  string
	FileName    string
	ContentType string
	Data        []byte
}

// ValidateFolder checks that folderType is one of the phase's folders
func (s *DocumentService) ValidateFolder(phase, folderType string) error {
	def, err := s.schema.Phase(phase)
	if err != nil {
		return err
	}
	if !def.HasFolder(folderType) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownFolder, phase, folderType)
	}
	return nil
}

// Upload stores the original, extracts its text, records the document and
// rebuilds the folder's consolidated text
func (s *DocumentService) Upload(ctx context.Context, in UploadInput) (*models.PhaseDocument, error) {
	if len(in.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && int64(len(in.Data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}
	if err := s.ValidateFolder(in.Phase, in.FolderType); err != nil {
		return nil, err
	}
	if err := s.ensureCase(ctx, in.CaseID); err != nil {
		return nil, err
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(in.FileName)
	}

	uploadedAt := s.now()
	id, err := s.uniqueID(ctx, in.CaseID, in.Phase, in.FolderType, uploadedAt)
	if err != nil {
		return nil, err
	}

	key := GenerateDocumentKey(in.CaseID, in.Phase, in.FolderType, id, in.FileName)
	if _, err := s.storage.UploadReader(ctx, bytes.NewReader(in.Data), key, contentType, int64(len(in.Data))); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	text, err := s.extractor.Extract(ctx, in.FileName, contentType, in.Data)
	if err != nil {
		log.Printf("[WARNING] Text extraction failed for %s: %v", in.FileName, err)
		text = ""
	}

	doc := &models.PhaseDocument{
		ID:            id,
		CaseID:        in.CaseID,
		Phase:         in.Phase,
		FolderType:    in.FolderType,
		FileName:      in.FileName,
		FilePath:      key,
		FileType:      contentType,
		FileSize:      int64(len(in.Data)),
		ExtractedText: strings.TrimSpace(text),
		UploadedAt:    uploadedAt,
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		if delErr := s.storage.Delete(context.Background(), key); delErr != nil {
			log.Printf("[WARNING] Failed to remove orphaned document %s: %v", key, delErr)
		}
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	if _, err := s.Reconsolidate(ctx, in.CaseID, in.Phase, in.FolderType); err != nil {
		return doc, err
	}
	s.publish(in.CaseID, in.Phase, in.FolderType)

	log.Printf("[CONSOLIDATION] Document %s added to %s/%s of case %s", doc.FileName, in.Phase, in.FolderType, in.CaseID)
	return doc, nil
}

// uniqueID bumps the millisecond stamp until the id is free
func (s *DocumentService) uniqueID(ctx context.Context, caseID, phase, folderType string, at time.Time) (string, error) {
	for i := 0; i < 1000; i++ {
		id := models.NewPhaseDocumentID(caseID, phase, folderType, at.Add(time.Duration(i)*time.Millisecond))
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.PhaseDocument{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check document id: %w", err)
		}
		if count == 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to allocate document id for %s/%s", phase, folderType)
}

func (s *DocumentService) ensureCase(ctx context.Context, caseID string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Case{}).Where("id = ?", caseID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up case: %w", err)
	}
	if count == 0 {
		return process.ErrCaseNotFound
	}
	return nil
}

// ListDocuments returns the documents of a folder, oldest first. An empty
// folderType lists the whole phase.
func (s *DocumentService) ListDocuments(ctx context.Context, caseID, phase, folderType string) ([]models.PhaseDocument, error) {
	q := s.db.WithContext(ctx).Where("case_id = ? AND phase = ?", caseID, phase)
	if folderType != "" {
		q = q.Where("folder_type = ?", folderType)
	}
	var docs []models.PhaseDocument
	if err := q.Order("uploaded_at ASC, id ASC").Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch documents: %w", err)
	}
	return docs, nil
}

// GetDocument loads a single document
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*models.PhaseDocument, error) {
	var doc models.PhaseDocument
	if err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// OpenDocument returns the stored original of a document
func (s *DocumentService) OpenDocument(ctx context.Context, id string) (*models.PhaseDocument, io.ReadCloser, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.storage.Get(ctx, doc.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

// DeleteDocument removes a document and rebuilds its folder. The stored
// original is removed best-effort.
func (s *DocumentService) DeleteDocument(ctx context.Context, id string) (*models.PhaseDocument, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Delete(&models.PhaseDocument{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to delete document: %w", err)
	}
	if doc.FilePath != "" {
		if err := s.storage.Delete(ctx, doc.FilePath); err != nil {
			log.Printf("[WARNING] Failed to delete stored file %s: %v", doc.FilePath, err)
		}
	}

	if _, err := s.Reconsolidate(ctx, doc.CaseID, doc.Phase, doc.FolderType); err != nil {
		return doc, err
	}
	s.publish(doc.CaseID, doc.Phase, doc.FolderType)
	return doc, nil
}

func (s *DocumentService) publish(caseID, phase, folderType string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(process.DocumentsChanged{CaseID: caseID, Phase: phase, FolderType: folderType})
}

// Reconsolidate rebuilds the consolidation record of one folder. A folder
// with no extracted text loses its record and nil is returned.
func (s *DocumentService) Reconsolidate(ctx context.Context, caseID, phase, folderType string) (*models.FolderConsolidation, error) {
	docs, err := s.ListDocuments(ctx, caseID, phase, folderType)
	if err != nil {
		return nil, err
	}
	text, count := BuildConsolidatedText(docs)

	var result *models.FolderConsolidation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FolderConsolidation
		findErr := tx.Where("case_id = ? AND phase = ? AND folder_type = ?", caseID, phase, folderType).First(&existing).Error
		if findErr != nil && !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}
		found := findErr == nil

		if text == "" {
			if found {
				return tx.Delete(&existing).Error
			}
			return nil
		}

		existing.CaseID = caseID
		existing.Phase = phase
		existing.FolderType = folderType
		existing.ConsolidatedText = text
		existing.DocumentCount = count
		existing.TokenCount = TokenCount(text)
		existing.LastUpdated = s.now()
		if found {
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
		} else if err := tx.Create(&existing).Error; err != nil {
			return err
		}
		result = &existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to consolidate %s/%s: %w", phase, folderType, err)
	}
	return result, nil
}

// GetConsolidatedText implements process.ConsolidatedTextSource. An empty
// folder yields "".
func (s *DocumentService) GetConsolidatedText(ctx context.Context, caseID, phase, folderType string) (string, error) {
	var rec models.FolderConsolidation
	err := s.db.WithContext(ctx).Where("case_id = ? AND phase = ? AND folder_type = ?", caseID, phase, folderType).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load consolidated text: %w", err)
	}
	return rec.ConsolidatedText, nil
}

// GetPhaseConsolidatedText joins the consolidated text of every folder of a
// phase that has content, in schema order
func (s *DocumentService) GetPhaseConsolidatedText(ctx context.Context, caseID, phase string) (string, error) {
	def, err := s.schema.Phase(phase)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	bar := strings.Repeat("#", separatorWidth)
	for _, folder := range def.Folders {
		text, err := s.GetConsolidatedText(ctx, caseID, phase, folder.Type)
		if err != nil {
			return "", err
		}
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s\nCARPETA: %s\n%s\n%s\n\n", bar, strings.ToUpper(folder.Type), bar, text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// ReconsolidateStale rebuilds every folder whose documents changed after its
// last consolidation, and drops records whose folder is now empty. With a
// caseID only that case is considered; force rebuilds regardless of age.
func (s *DocumentService) ReconsolidateStale(ctx context.Context, caseID string, force bool) (int, error) {
	type folderKey struct {
		caseID, phase, folderType string
	}

	var docs []models.PhaseDocument
	q := s.db.WithContext(ctx).Select("case_id", "phase", "folder_type", "uploaded_at")
	if caseID != "" {
		q = q.Where("case_id = ?", caseID)
	}
	if err := q.Find(&docs).Error; err != nil {
		return 0, fmt.Errorf("failed to scan document folders: %w", err)
	}
	latest := make(map[folderKey]time.Time)
	for _, d := range docs {
		k := folderKey{d.CaseID, d.Phase, d.FolderType}
		if d.UploadedAt.After(latest[k]) {
			latest[k] = d.UploadedAt
		}
	}

	var records []models.FolderConsolidation
	recs := s.db.WithContext(ctx)
	if caseID != "" {
		recs = recs.Where("case_id = ?", caseID)
	}
	if err := recs.Find(&records).Error; err != nil {
		return 0, fmt.Errorf("failed to load consolidations: %w", err)
	}
	updated := make(map[folderKey]time.Time, len(records))
	for _, r := range records {
		updated[folderKey{r.CaseID, r.Phase, r.FolderType}] = r.LastUpdated
	}

	var stale []folderKey
	for k, at := range latest {
		last, ok := updated[k]
		if force || !ok || at.After(last) {
			stale = append(stale, k)
		}
	}
	// records whose folder has no documents left
	for k := range updated {
		if _, ok := latest[k]; !ok {
			stale = append(stale, k)
		}
	}

	for i, k := range stale {
		if _, err := s.Reconsolidate(ctx, k.caseID, k.phase, k.folderType); err != nil {
			return i, err
		}
		s.publish(k.caseID, k.phase, k.folderType)
	}
	return len(stale), nil
}

// BuildConsolidatedText concatenates the extracted text of documents under
// per-document headers. Documents without text are skipped; the count of
// included documents is returned.
func BuildConsolidatedText(docs []models.PhaseDocument) (string, int) {
	var sb strings.Builder
	bar := strings.Repeat("=", separatorWidth)
	count := 0
	for _, d := range docs {
		text := strings.TrimSpace(d.ExtractedText)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s\nDOCUMENTO: %s\nTIPO: %s\nFECHA: %s\n%s\n%s\n\n",
			bar, d.FileName, d.FileType, d.UploadedAt.UTC().Format(time.RFC3339), bar, text)
		count++
	}
	return strings.TrimSpace(sb.String()), count
}

// TokenCount estimates LLM tokens at four characters each
func TokenCount(text string) int {
	return (len(text) + 3) / 4
}
