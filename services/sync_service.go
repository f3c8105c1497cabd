package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/rating-board/clients"
	"github.com/Dosada05/rating-board/metrics"
	"github.com/Dosada05/rating-board/models"
	"github.com/Dosada05/rating-board/repositories"
	"github.com/Dosada05/rating-board/storage"
)

// SyncService performs one full synchronization pass: roster, linkage and
// rating fetches in strict sequence, merge, then a single bulk upsert.
// Any fetch or storage error aborts the run before the table is touched;
// the previous snapshot stays authoritative.
type SyncService interface {
	Run(ctx context.Context) error
}

type syncService struct {
	roster      clients.RosterClient
	linkage     clients.LinkageClient
	ratings     clients.RatingClient
	userRepo    repositories.UserRepository
	exporter    storage.SnapshotExporter // optional
	syncMetrics *metrics.SyncMetrics
	logger      *slog.Logger
}

func NewSyncService(
	roster clients.RosterClient,
	linkage clients.LinkageClient,
	ratings clients.RatingClient,
	userRepo repositories.UserRepository,
	exporter storage.SnapshotExporter,
	syncMetrics *metrics.SyncMetrics,
	logger *slog.Logger,
) SyncService {
	return &syncService{
		roster:      roster,
		linkage:     linkage,
		ratings:     ratings,
		userRepo:    userRepo,
		exporter:    exporter,
		syncMetrics: syncMetrics,
		logger:      logger,
	}
}

func (s *syncService) Run(ctx context.Context) (err error) {
	started := time.Now()
	defer func() {
		s.syncMetrics.ObserveRun(err == nil, time.Since(started))
	}()

	s.logger.Info("sync run started")

	members, err := s.roster.FetchMembers(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch roster: %w", err)
	}
	membersByName := make(map[string]models.Member, len(members))
	for _, member := range members {
		membersByName[member.TrapAccountName] = member
	}
	s.logger.Info("roster fetched", slog.Int("members", len(members)))

	links, err := s.linkage.FetchLinkedAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch linked accounts: %w", err)
	}
	s.logger.Info("linked accounts fetched", slog.Int("accounts", len(links)))

	histories, err := s.fetchHistories(ctx, links)
	if err != nil {
		return err
	}

	users := mergeUsers(links, membersByName, histories)

	if err = s.userRepo.UpsertAll(ctx, users); err != nil {
		return fmt.Errorf("failed to store users: %w", err)
	}
	s.logger.Info("sync run finished",
		slog.Int("users", len(users)),
		slog.Duration("elapsed", time.Since(started)),
	)

	// The durable snapshot is already committed; a failed export must not
	// fail the run.
	if s.exporter != nil {
		if exportErr := s.exporter.Export(ctx, users); exportErr != nil {
			s.logger.Warn("snapshot export failed", slog.Any("error", exportErr))
		}
	}

	return nil
}

// fetchHistories resolves the rating history of every distinct linked
// account, strictly one account at a time.
func (s *syncService) fetchHistories(ctx context.Context, links []models.LinkedAccount) (map[string]models.RatingHistory, error) {
	names := distinctAtCoderNames(links)
	histories := make(map[string]models.RatingHistory, len(names))
	for _, name := range names {
		history, err := s.ratings.FetchHistory(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch rating history for %s: %w", name, err)
		}
		histories[name] = history
	}
	s.logger.Info("rating histories fetched", slog.Int("accounts", len(names)))
	return histories, nil
}

func distinctAtCoderNames(links []models.LinkedAccount) []string {
	seen := make(map[string]bool, len(links))
	names := make([]string, 0, len(links))
	for _, link := range links {
		if link.AtCoderName == nil || *link.AtCoderName == "" {
			continue
		}
		if seen[*link.AtCoderName] {
			continue
		}
		seen[*link.AtCoderName] = true
		names = append(names, *link.AtCoderName)
	}
	return names
}

// mergeUsers builds one persisted row per linkage entry. The linkage
// result drives the set: roster-only members do not produce rows, while a
// linked account without a roster match keeps its roster-derived fields
// unset.
func mergeUsers(
	links []models.LinkedAccount,
	membersByName map[string]models.Member,
	histories map[string]models.RatingHistory,
) []models.User {
	users := make([]models.User, 0, len(links))
	for _, link := range links {
		user := models.User{
			TrapAccountName: link.TrapAccountName,
			AtCoderName:     link.AtCoderName,
		}

		if link.AtCoderName != nil {
			if history, ok := histories[*link.AtCoderName]; ok {
				algo := models.LatestRating(history.Algo)
				heur := models.LatestRating(history.Heur)
				user.AtCoderRating = &algo
				user.HeuristicRating = &heur
			}
		}

		if member, ok := membersByName[link.TrapAccountName]; ok {
			isAlgoTeam := member.IsAlgoTeam
			isActive := member.IsActive
			user.IsAlgoTeam = &isAlgoTeam
			user.IsActive = &isActive
			user.Grade = member.Grade
		}

		users = append(users, user)
	}
	return users
}
