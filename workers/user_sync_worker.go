// workers/user_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"college-progress-service/models"
	"college-progress-service/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RemoteProfile is the subset of the profile service payload we mirror.
type RemoteProfile struct {
	ExternalID string    `json:"external_id"`
	Username   string    `json:"username"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetUserChangesResponse is the top-level structure of the sync response.
type GetUserChangesResponse struct {
	Users []RemoteProfile `json:"users"`
}

// UserSyncWorker mirrors registered users from the profile service into the
// local users table. It only ever writes id and username.
type UserSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client
	log          *utils.Logger

	lastSync time.Time
}

func NewUserSyncWorker(db *gorm.DB, baseURL, endpointPath, serviceToken string, interval time.Duration, log *utils.Logger) *UserSyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &UserSyncWorker{
		db:           db,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With("worker", "UserSyncWorker"),
	}
}

func (w *UserSyncWorker) Start(ctx context.Context) {
	w.log.Info("[SYNC] starting user sync worker", "base_url", w.baseURL, "interval", w.interval.String())
	go w.run(ctx)
}

func (w *UserSyncWorker) run(ctx context.Context) {
	if _, err := w.SyncBatch(ctx); err != nil {
		w.log.Warn("[SYNC] initial sync failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncBatch(ctx); err != nil {
				w.log.Error("[SYNC] sync batch failed", "error", err)
			}
		case <-ctx.Done():
			w.log.Info("[SYNC] user sync worker stopped")
			return
		}
	}
}

// SyncBatch fetches changes since the last successful batch and upserts
// them. It returns the number of rows written.
func (w *UserSyncWorker) SyncBatch(ctx context.Context) (int, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return 0, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", w.lastSync.UTC().Format(time.RFC3339))
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request to sync service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("sync service non-200 response: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response GetUserChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode sync service response: %w", err)
	}
	if len(response.Users) == 0 {
		return 0, nil
	}

	var upserted, skipped, failed int
	latest := w.lastSync
	for _, remote := range response.Users {
		if remote.ExternalID == "" {
			// malformed upstream rows never become valid, step past them
			skipped++
			w.log.Warn("[SYNC] skipping profile without external_id", "username", remote.Username)
			if remote.UpdatedAt.After(latest) {
				latest = remote.UpdatedAt
			}
			continue
		}
		local := models.User{
			ID:       remote.ExternalID,
			Username: remote.Username,
			Level:    1,
		}
		if err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "updated_at"}),
		}).Create(&local).Error; err != nil {
			failed++
			w.log.Warn("[SYNC] failed to upsert user", "external_id", remote.ExternalID, "error", err)
			continue
		}
		upserted++
		if remote.UpdatedAt.After(latest) {
			latest = remote.UpdatedAt
		}
	}

	// a failed write is retried next tick, so only advance when every write landed
	if failed == 0 {
		w.lastSync = latest
	}
	w.log.Info("[SYNC] batch applied",
		"received", len(response.Users), "upserted", upserted, "skipped", skipped, "failed", failed)
	return upserted, nil
}
