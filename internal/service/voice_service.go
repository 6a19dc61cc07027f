package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"inventory-ledger/internal/auth"
	"inventory-ledger/internal/models"
	"inventory-ledger/internal/util"
	"inventory-ledger/internal/voice"

	"go.uber.org/zap"
)

// VoiceSearchResult is the recognised category and the products it matched
type VoiceSearchResult struct {
	Category string           `json:"category"`
	Products []models.Product `json:"products"`
}

// VoiceSearchService searches the catalog by a spoken category
type VoiceSearchService struct {
	inventory   *InventoryService
	transcriber voice.Transcriber
	timeout     time.Duration
	logger      *zap.Logger
}

// NewVoiceSearchService creates a new voice search service. A timeout of 0
// leaves the transcription bounded only by the caller's context.
func NewVoiceSearchService(inventory *InventoryService, transcriber voice.Transcriber, timeout time.Duration) *VoiceSearchService {
	return &VoiceSearchService{
		inventory:   inventory,
		transcriber: transcriber,
		timeout:     timeout,
		logger:      util.Named("service.voice"),
	}
}

// Search transcribes audio and searches the catalog by the recognised category
func (s *VoiceSearchService) Search(ctx context.Context, sess *auth.Session, audio io.Reader) (*VoiceSearchResult, error) {
	ctx, span := util.StartSpan(ctx, "VoiceSearchService.Search")
	defer span.End()

	if err := auth.RequireLoggedIn(sess); err != nil {
		return nil, err
	}

	tctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	category, err := s.transcriber.Transcribe(tctx, audio)
	if err != nil {
		util.VoiceSearchesTotal.WithLabelValues("transcription_failed").Inc()
		s.logger.Warn("Transcription failed", zap.Error(err))
		if !errors.Is(err, voice.ErrTranscription) {
			err = fmt.Errorf("%w: %v", voice.ErrTranscription, err)
		}
		return nil, err
	}

	products, err := s.inventory.SearchByCategory(ctx, sess, category)
	if err != nil {
		return nil, err
	}

	util.VoiceSearchesTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Voice search", zap.String("category", category), zap.Int("matches", len(products)))
	return &VoiceSearchResult{Category: category, Products: products}, nil
}
