package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"college-progress-service/models"
	"college-progress-service/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestSeed is one quest entry of a catalog document.
type QuestSeed struct {
	Code         string                   `json:"code"`
	Title        string                   `json:"title"`
	Description  string                   `json:"description"`
	Type         string                   `json:"type"`
	Points       int64                    `json:"points"`
	SortOrder    int                      `json:"sort_order"`
	Requirements models.QuestRequirements `json:"requirements"`
}

// AchievementSeed is one achievement entry of a catalog document.
type AchievementSeed struct {
	Code         string                         `json:"code"`
	Title        string                         `json:"title"`
	Description  string                         `json:"description"`
	Type         string                         `json:"type"`
	Icon         string                         `json:"icon"`
	Points       int64                          `json:"points"`
	Requirements models.AchievementRequirements `json:"requirements"`
}

// CatalogDocument is the JSON file the catalog is seeded from.
type CatalogDocument struct {
	Quests       []QuestSeed       `json:"quests"`
	Achievements []AchievementSeed `json:"achievements"`
}

// SeedReport counts the rows a Seed call actually inserted.
type SeedReport struct {
	QuestsInserted       int `json:"quests_inserted"`
	AchievementsInserted int `json:"achievements_inserted"`
}

// ObjectFetcher is satisfied by utils.ObjectStore.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
}

// LoadCatalogDocument reads a catalog from a local path or s3://bucket/key.
func LoadCatalogDocument(ctx context.Context, source string, fetcher ObjectFetcher) (*CatalogDocument, error) {
	var (
		data []byte
		err  error
	)
	if rest, ok := strings.CutPrefix(source, "s3://"); ok {
		bucket, key, found := strings.Cut(rest, "/")
		if !found || bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid catalog source %q: expected s3://bucket/key", source)
		}
		if fetcher == nil {
			return nil, fmt.Errorf("catalog source %q needs an object store", source)
		}
		data, err = fetcher.Fetch(ctx, bucket, key)
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", source, err)
	}

	var doc CatalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", source, err)
	}
	return &doc, nil
}

var lowerTag = cases.Lower(language.Und)

// normalizeTag folds a type tag to lower-case ASCII with underscores.
func normalizeTag(tag string) string {
	tag = unidecode.Unidecode(strings.TrimSpace(tag))
	return strings.Join(strings.Fields(lowerTag.String(tag)), "_")
}

type CatalogService struct {
	DB  *gorm.DB
	Log *utils.Logger
}

func NewCatalogService(db *gorm.DB, log *utils.Logger) *CatalogService {
	return &CatalogService{DB: db, Log: log.With("service", "CatalogService")}
}

// WithTx returns a reader bound to tx, for catalog reads inside a
// transaction. A nil tx returns s unchanged.
func (s *CatalogService) WithTx(tx *gorm.DB) *CatalogService {
	if tx == nil {
		return s
	}
	return &CatalogService{DB: tx, Log: s.Log}
}

// Seed inserts catalog rows that do not exist yet. Existing codes are left
// as they are; catalog rows are immutable once written.
func (s *CatalogService) Seed(ctx context.Context, doc *CatalogDocument) (SeedReport, error) {
	var report SeedReport
	if doc == nil {
		return report, nil
	}

	quests := make([]models.Quest, 0, len(doc.Quests))
	for i, qs := range doc.Quests {
		q, err := buildQuest(qs)
		if err != nil {
			return report, newError(ErrBadRequest, "quest #%d: %v", i, err)
		}
		quests = append(quests, q)
	}
	achievements := make([]models.Achievement, 0, len(doc.Achievements))
	for i, as := range doc.Achievements {
		a, err := buildAchievement(as)
		if err != nil {
			return report, newError(ErrBadRequest, "achievement #%d: %v", i, err)
		}
		achievements = append(achievements, a)
	}

	onCode := clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range quests {
			res := tx.Clauses(onCode).Create(&quests[i])
			if res.Error != nil {
				return fmt.Errorf("inserting quest %s: %w", quests[i].Code, res.Error)
			}
			report.QuestsInserted += int(res.RowsAffected)
		}
		for i := range achievements {
			res := tx.Clauses(onCode).Create(&achievements[i])
			if res.Error != nil {
				return fmt.Errorf("inserting achievement %s: %w", achievements[i].Code, res.Error)
			}
			report.AchievementsInserted += int(res.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}

	s.Log.Info("[CATALOG] seeded",
		"quests_inserted", report.QuestsInserted, "quests_total", len(quests),
		"achievements_inserted", report.AchievementsInserted, "achievements_total", len(achievements))
	return report, nil
}

func buildQuest(qs QuestSeed) (models.Quest, error) {
	title := strings.TrimSpace(qs.Title)
	if title == "" {
		return models.Quest{}, errors.New("title is required")
	}
	if qs.Points <= 0 {
		return models.Quest{}, fmt.Errorf("points must be positive, got %d", qs.Points)
	}
	if err := qs.Requirements.Validate(); err != nil {
		return models.Quest{}, err
	}
	code := slug.Make(qs.Code)
	if code == "" {
		code = slug.Make(title)
	}
	qType := normalizeTag(qs.Type)
	if !slices.Contains(models.QuestTypes, qType) {
		qType = models.QuestTypeOther
	}
	return models.Quest{
		ID:           uuid.NewString(),
		Code:         code,
		Title:        title,
		Description:  qs.Description,
		Type:         qType,
		Points:       qs.Points,
		Requirements: datatypes.NewJSONType(qs.Requirements),
		SortOrder:    qs.SortOrder,
	}, nil
}

func buildAchievement(as AchievementSeed) (models.Achievement, error) {
	title := strings.TrimSpace(as.Title)
	if title == "" {
		return models.Achievement{}, errors.New("title is required")
	}
	aType := normalizeTag(as.Type)
	if aType == "" {
		return models.Achievement{}, errors.New("type is required")
	}
	if as.Points < 0 {
		return models.Achievement{}, fmt.Errorf("points must not be negative, got %d", as.Points)
	}
	if err := as.Requirements.Validate(); err != nil {
		return models.Achievement{}, err
	}
	code := slug.Make(as.Code)
	if code == "" {
		code = slug.Make(title)
	}
	return models.Achievement{
		ID:           uuid.NewString(),
		Code:         code,
		Title:        title,
		Description:  as.Description,
		Type:         aType,
		Icon:         as.Icon,
		Points:       as.Points,
		Requirements: datatypes.NewJSONType(as.Requirements),
	}, nil
}

// GetQuest loads a single catalog quest.
func (s *CatalogService) GetQuest(ctx context.Context, id string) (*models.Quest, error) {
	var q models.Quest
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "quest %s not found", id)
		}
		return nil, err
	}
	return &q, nil
}

func (s *CatalogService) ListQuests(ctx context.Context) ([]models.Quest, error) {
	var quests []models.Quest
	err := s.DB.WithContext(ctx).Order("sort_order ASC, id ASC").Find(&quests).Error
	return quests, err
}

func (s *CatalogService) ListAchievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.DB.WithContext(ctx).Order("created_at ASC, id ASC").Find(&achievements).Error
	return achievements, err
}
