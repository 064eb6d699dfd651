package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/email-classifier-api/internal/classifier"
	"github.com/noah-isme/email-classifier-api/internal/dto"
	"github.com/noah-isme/email-classifier-api/internal/masking"
	"github.com/noah-isme/email-classifier-api/internal/models"
	"github.com/noah-isme/email-classifier-api/internal/observability"
	"github.com/noah-isme/email-classifier-api/internal/repository"
	"github.com/noah-isme/email-classifier-api/internal/utils"
)

var (
	// ErrInvalidInput indicates the request body is missing the email text.
	ErrInvalidInput = errors.New("invalid classification input")
	// ErrHistoryUnavailable indicates no database is configured.
	ErrHistoryUnavailable = errors.New("classification history is not enabled")
)

// Masker hides PII in a body of text.
type Masker interface {
	Mask(ctx context.Context, text string) (masking.Result, error)
}

// Predictor assigns masked text to a category.
type Predictor interface {
	Predict(masked string) classifier.Prediction
}

// fingerprinter is implemented by maskers and predictors whose output depends
// on loaded configuration or artifacts.
type fingerprinter interface {
	Fingerprint() string
}

// ClassificationService runs the mask-then-classify workflow.
type ClassificationService interface {
	Classify(ctx context.Context, req dto.ClassificationRequest) (dto.ClassificationResponse, error)
	ClassifyJSON(ctx context.Context, body string) (string, error)
	History(ctx context.Context, query dto.ClassificationHistoryQuery) (dto.ClassificationHistoryResponse, error)
}

// ClassificationOptions carries the optional side-effect collaborators. Any
// field may be left empty.
type ClassificationOptions struct {
	Repository repository.ClassificationRepository
	Cache      *redis.Client
	CacheTTL   time.Duration
	Publisher  ClassificationPublisher
	EntryPoint string
}

type classificationService struct {
	masker      Masker
	predictor   Predictor
	repo        repository.ClassificationRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	publisher   ClassificationPublisher
	entryPoint  string
	fingerprint string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// cachedClassification is what gets written to Redis. Entity text is left
// out so raw PII never leaves the process; it is rebuilt from the request.
// The masked text is kept as bytes so invalid UTF-8 survives the JSON trip.
type cachedClassification struct {
	MaskedEmail []byte         `json:"masked_email"`
	Category    string         `json:"category"`
	ClusterID   int            `json:"cluster_id"`
	Overlaps    int            `json:"overlaps"`
	Entities    []cachedEntity `json:"entities"`
}

type cachedEntity struct {
	Position       [2]int `json:"position"`
	Classification string `json:"classification"`
}

// NewClassificationService constructs the classification workflow.
func NewClassificationService(masker Masker, predictor Predictor, validate *validator.Validate, logger zerolog.Logger, opts ClassificationOptions) ClassificationService {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(utils.FieldName)
	entryPoint := opts.EntryPoint
	if entryPoint == "" {
		entryPoint = models.EntryPointAPI
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &classificationService{
		masker:      masker,
		predictor:   predictor,
		repo:        opts.Repository,
		cache:       opts.Cache,
		cacheTTL:    ttl,
		publisher:   opts.Publisher,
		entryPoint:  entryPoint,
		fingerprint: modelFingerprint(masker, predictor),
		validator:   validate,
		logger:      logger.With().Str("component", "classification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/email-classifier-api/internal/service/classification"),
		now:         time.Now,
	}
}

func (s *classificationService) Classify(ctx context.Context, req dto.ClassificationRequest) (dto.ClassificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "classification.classify")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ClassificationResponse{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	body := *req.InputEmailBody
	checksum := bodyChecksum(body)
	span.SetAttributes(
		attribute.String("classification.checksum", checksum),
		attribute.String("classification.entry_point", s.entryPoint),
	)

	var (
		result     masking.Result
		prediction classifier.Prediction
	)
	if cached, ok := s.readCache(ctx, checksum); ok {
		span.SetAttributes(attribute.Bool("classification.cache_hit", true))
		result, prediction = cached.restore(body)
	} else {
		started := time.Now()
		masked, err := s.mask(ctx, body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "masking failed")
			return dto.ClassificationResponse{}, err
		}
		result = masked
		prediction = s.predict(ctx, result.Masked)
		observability.ClassificationDuration().Observe(time.Since(started).Seconds())
		s.writeCache(ctx, checksum, result, prediction)
	}

	s.record(result, prediction)
	span.SetAttributes(
		attribute.String("classification.category", prediction.Category),
		attribute.Int("classification.cluster_id", prediction.ClusterID),
		attribute.Int("classification.entities", len(result.Entities)),
	)

	response := dto.ClassificationResponse{
		InputEmailBody:       body,
		ListOfMaskedEntities: dto.NewMaskedEntities(result.Entities),
		MaskedEmail:          result.Masked,
		CategoryOfTheEmail:   prediction.Category,
	}

	s.persistAndPublish(ctx, checksum, result, prediction)

	return response, nil
}

// ClassifyJSON runs Classify and renders the result as indented JSON.
func (s *classificationService) ClassifyJSON(ctx context.Context, body string) (string, error) {
	response, err := s.Classify(ctx, dto.ClassificationRequest{InputEmailBody: &body})
	if err != nil {
		return "", err
	}
	payload, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func (s *classificationService) History(ctx context.Context, query dto.ClassificationHistoryQuery) (dto.ClassificationHistoryResponse, error) {
	if s.repo == nil {
		return dto.ClassificationHistoryResponse{}, ErrHistoryUnavailable
	}
	if err := s.validator.Struct(query); err != nil {
		return dto.ClassificationHistoryResponse{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	ctx, span := s.tracer.Start(ctx, "classification.history")
	defer span.End()

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	records, total, err := s.repo.List(ctx, repository.ClassificationFilter{Page: page, PageSize: pageSize, Category: query.Category})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return dto.ClassificationHistoryResponse{}, err
	}

	byCategory, err := s.repo.CountByCategory(ctx)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn().Err(err).Msg("failed to count classifications by category")
		byCategory = nil
	}

	return dto.ClassificationHistoryResponse{
		Items:      dto.NewClassificationRecordResponseSlice(records),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		ByCategory: byCategory,
	}, nil
}

func (s *classificationService) mask(ctx context.Context, body string) (masking.Result, error) {
	ctx, span := s.tracer.Start(ctx, "classification.mask")
	defer span.End()

	result, err := s.masker.Mask(ctx, body)
	if err != nil {
		span.RecordError(err)
		return masking.Result{}, fmt.Errorf("mask email: %w", err)
	}
	span.SetAttributes(attribute.Int("masking.overlaps", result.Overlaps))
	if result.Overlaps > 0 {
		s.logger.Debug().Int("overlaps", result.Overlaps).Msg("overlapping pii spans detected")
	}
	return result, nil
}

func (s *classificationService) predict(ctx context.Context, masked string) classifier.Prediction {
	_, span := s.tracer.Start(ctx, "classification.predict")
	defer span.End()

	prediction := s.predictor.Predict(masked)
	span.SetAttributes(attribute.Int("classification.cluster_id", prediction.ClusterID))
	return prediction
}

func (s *classificationService) record(result masking.Result, prediction classifier.Prediction) {
	observability.Classifications().WithLabelValues(prediction.Category, s.entryPoint).Inc()
	for _, entity := range result.Entities {
		observability.PIIEntities().WithLabelValues(entity.Classification.String()).Inc()
	}
	if result.Overlaps > 0 {
		observability.PIIOverlaps().Add(float64(result.Overlaps))
	}
}

// loggerFor tags the service logger with the request's correlation id.
func (s *classificationService) loggerFor(ctx context.Context) *zerolog.Logger {
	logger := s.logger
	if id := observability.CorrelationID(ctx); id != "" {
		logger = logger.With().Str("correlation_id", id).Logger()
	}
	return &logger
}

// cacheKey scopes entries to the entry point and the loaded masker and model,
// so a retrain or config change never serves stale results.
func (s *classificationService) cacheKey(checksum string) string {
	return fmt.Sprintf("classification:%s:%s:%s", s.entryPoint, s.fingerprint, checksum)
}

// modelFingerprint condenses the masker and predictor fingerprints into a
// short key segment.
func modelFingerprint(masker Masker, predictor Predictor) string {
	h := sha256.New()
	for _, part := range []interface{}{masker, predictor} {
		if f, ok := part.(fingerprinter); ok {
			h.Write([]byte(f.Fingerprint()))
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func (s *classificationService) readCache(ctx context.Context, checksum string) (cachedClassification, bool) {
	if s.cache == nil {
		return cachedClassification{}, false
	}

	raw, err := s.cache.Get(ctx, s.cacheKey(checksum)).Result()
	if err != nil {
		if err != redis.Nil {
			s.loggerFor(ctx).Warn().Err(err).Msg("failed to read classification cache")
		}
		observability.ClassificationCache().WithLabelValues("miss").Inc()
		return cachedClassification{}, false
	}

	var cached cachedClassification
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.loggerFor(ctx).Warn().Err(err).Msg("discarding corrupt classification cache entry")
		observability.ClassificationCache().WithLabelValues("miss").Inc()
		return cachedClassification{}, false
	}

	observability.ClassificationCache().WithLabelValues("hit").Inc()
	s.logger.Debug().Str("checksum", checksum).Msg("classification cache hit")
	return cached, true
}

func (s *classificationService) writeCache(ctx context.Context, checksum string, result masking.Result, prediction classifier.Prediction) {
	if s.cache == nil {
		return
	}

	entities := make([]cachedEntity, 0, len(result.Entities))
	for _, entity := range result.Entities {
		entities = append(entities, cachedEntity{Position: entity.Position, Classification: entity.Classification.String()})
	}
	payload, err := json.Marshal(cachedClassification{
		MaskedEmail: []byte(result.Masked),
		Category:    prediction.Category,
		ClusterID:   prediction.ClusterID,
		Overlaps:    result.Overlaps,
		Entities:    entities,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(checksum), payload, s.cacheTTL).Err(); err != nil {
		s.loggerFor(ctx).Warn().Err(err).Msg("failed to store classification cache")
	}
}

func (s *classificationService) persistAndPublish(ctx context.Context, checksum string, result masking.Result, prediction classifier.Prediction) {
	if s.repo == nil && s.publisher == nil {
		return
	}

	counts := entityCounts(result.Entities)
	referenceID := uuid.New().String()

	if s.repo != nil {
		jsonCounts := make(datatypes.JSONMap, len(counts))
		for label, n := range counts {
			jsonCounts[label] = n
		}
		record := models.ClassificationRecord{
			ReferenceID:  referenceID,
			Checksum:     checksum,
			MaskedEmail:  result.Masked,
			Category:     prediction.Category,
			ClusterID:    prediction.ClusterID,
			EntityCounts: jsonCounts,
			Overlaps:     result.Overlaps,
			EntryPoint:   s.entryPoint,
		}
		if err := s.repo.Create(ctx, &record); err != nil {
			s.loggerFor(ctx).Warn().Err(err).Str("reference_id", referenceID).Msg("failed to persist classification record")
		}
	}

	if s.publisher != nil {
		event := dto.ClassificationEvent{
			ReferenceID:   referenceID,
			CorrelationID: observability.CorrelationID(ctx),
			Category:      prediction.Category,
			ClusterID:     prediction.ClusterID,
			EntityCounts:  counts,
			MaskedEmail:   result.Masked,
			EntryPoint:    s.entryPoint,
			ClassifiedAt:  s.now().UTC(),
		}
		if err := s.publisher.PublishClassified(ctx, event); err != nil {
			s.loggerFor(ctx).Warn().Err(err).Str("reference_id", referenceID).Msg("failed to publish classification event")
		}
	}
}

// restore rebuilds the masking result and prediction from a cache entry,
// taking entity text from the request body.
func (c cachedClassification) restore(body string) (masking.Result, classifier.Prediction) {
	entities := make([]masking.Entity, 0, len(c.Entities))
	for _, e := range c.Entities {
		entities = append(entities, masking.Entity{
			Position:       e.Position,
			Classification: masking.Label(e.Classification),
			Entity:         masking.TextAt(body, e.Position[0], e.Position[1]),
		})
	}
	result := masking.Result{Masked: string(c.MaskedEmail), Entities: entities, Overlaps: c.Overlaps}
	return result, classifier.Prediction{ClusterID: c.ClusterID, Category: c.Category}
}

func entityCounts(entities []masking.Entity) map[string]int {
	counts := make(map[string]int, len(entities))
	for _, entity := range entities {
		counts[entity.Classification.String()]++
	}
	return counts
}

func bodyChecksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
