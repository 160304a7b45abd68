package services

import (
	"context"
	"strings"

	"college-progress-service/models"
	"college-progress-service/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserService struct {
	DB  *gorm.DB
	Log *utils.Logger
}

func NewUserService(db *gorm.DB, log *utils.Logger) *UserService {
	return &UserService{DB: db, Log: log.With("service", "UserService")}
}

// Register creates the progress row for a newly registered user. Calling it
// again only refreshes the username; points and level are never reset.
func (s *UserService) Register(ctx context.Context, userID, username string) (*models.User, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)

	user := models.User{
		ID:          userID,
		Username:    username,
		TotalPoints: 0,
		Level:       1,
	}
	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	if username != "" {
		conflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
		}
	}
	db := s.DB.WithContext(ctx)
	if err := db.Clauses(conflict).Create(&user).Error; err != nil {
		return nil, err
	}

	var stored models.User
	if err := db.Where("id = ?", userID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}
