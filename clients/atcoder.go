package clients

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Dosada05/rating-board/metrics"
	"github.com/Dosada05/rating-board/models"
)

// AtCoder rejects clients that hammer it; one request per second is the
// commonly tolerated pace.
const atcoderRequestInterval = 1000 * time.Millisecond

const (
	categoryAlgo = "algorithm"
	categoryHeur = "heuristic"
)

// RatingClient fetches the full contest history of one AtCoder account in
// both categories. Calls must stay sequential across accounts; the
// client paces every request.
type RatingClient interface {
	FetchHistory(ctx context.Context, atcoderName string) (models.RatingHistory, error)
}

type AtCoderClientConfig struct {
	BaseURL string
	// RequestInterval overrides the default pacing, for tests.
	RequestInterval time.Duration
}

type atcoderRatingClient struct {
	baseURL     string
	httpClient  *http.Client
	pacer       *pacer
	logger      *slog.Logger
	syncMetrics *metrics.SyncMetrics
}

func NewAtCoderRatingClient(cfg AtCoderClientConfig, logger *slog.Logger, syncMetrics *metrics.SyncMetrics) RatingClient {
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = atcoderRequestInterval
	}
	return &atcoderRatingClient{
		baseURL:     cfg.BaseURL,
		httpClient:  &http.Client{},
		pacer:       newPacer(interval),
		logger:      logger,
		syncMetrics: syncMetrics,
	}
}

/*
  {
    "IsRated": true,
    "Place": 1673,
    "OldRating": 0,
    "NewRating": 60,
    "Performance": 838,
    "InnerPerformance": 838,
    "ContestScreenName": "arc154.contest.atcoder.jp",
    "ContestName": "AtCoder Regular Contest 154",
    "ContestNameEn": "",
    "EndTime": "2023-01-22T23:00:00+09:00"
  }
*/
type contestResultDTO struct {
	IsRated           bool   `json:"IsRated"`
	Place             int    `json:"Place"`
	OldRating         int    `json:"OldRating"`
	NewRating         int    `json:"NewRating"`
	Performance       int    `json:"Performance"`
	InnerPerformance  int    `json:"InnerPerformance"`
	ContestScreenName string `json:"ContestScreenName"`
	ContestName       string `json:"ContestName"`
	ContestNameEn     string `json:"ContestNameEn"`
	EndTime           string `json:"EndTime"`
}

func (c *atcoderRatingClient) FetchHistory(ctx context.Context, atcoderName string) (models.RatingHistory, error) {
	algo, err := c.fetchCategory(ctx, atcoderName, categoryAlgo)
	if err != nil {
		return models.RatingHistory{}, err
	}
	heur, err := c.fetchCategory(ctx, atcoderName, categoryHeur)
	if err != nil {
		return models.RatingHistory{}, err
	}
	return models.RatingHistory{Algo: algo, Heur: heur}, nil
}

func (c *atcoderRatingClient) fetchCategory(ctx context.Context, atcoderName, category string) ([]models.ContestResult, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/users/%s/history/json", c.baseURL, atcoderName)
	if category == categoryHeur {
		url += "?contestType=heuristic"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Setting the header explicitly disables the transport's transparent
	// decompression, so the Content-Encoding marker stays observable.
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", atcoderName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, atcoderName)
	}

	// AtCoder always gzips the history endpoint. A 200 without the marker
	// means the response format drifted; degrade to an empty history
	// rather than failing the whole run.
	if resp.Header.Get("Content-Encoding") != "gzip" {
		c.logger.Warn("atcoder response is not gzipped, treating history as empty",
			slog.String("account", atcoderName),
			slog.String("category", category),
		)
		c.syncMetrics.DegradedFetchInc(category)
		return []models.ContestResult{}, nil
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress response for %s: %w", atcoderName, err)
	}
	defer gz.Close()

	var dtos []contestResultDTO
	if err := json.NewDecoder(gz).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("failed to parse history for %s: %w", atcoderName, err)
	}

	results := make([]models.ContestResult, 0, len(dtos))
	for _, dto := range dtos {
		results = append(results, models.ContestResult{
			IsRated:           dto.IsRated,
			Place:             dto.Place,
			OldRating:         dto.OldRating,
			NewRating:         dto.NewRating,
			Diff:              dto.NewRating - dto.OldRating,
			Performance:       dto.Performance,
			ContestScreenName: dto.ContestScreenName,
			ContestName:       dto.ContestName,
			EndTime:           dto.EndTime,
		})
	}
	return results, nil
}
