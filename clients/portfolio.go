package clients

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Dosada05/rating-board/models"
)

const (
	portfolioRequestInterval = 200 * time.Millisecond
	// traPortfolio account type id for AtCoder, out of the fixed list of
	// external services a member can register.
	atcoderAccountTypeID = 8
)

// LinkageClient resolves the AtCoder account registered in traPortfolio
// for every member: one bulk listing request followed by one paced detail
// request per member. A member without a registered account yields a nil
// AtCoderName, not an error.
type LinkageClient interface {
	FetchLinkedAccounts(ctx context.Context) ([]models.LinkedAccount, error)
}

type PortfolioClientConfig struct {
	BaseURL string
	// RequestInterval overrides the default pacing, for tests.
	RequestInterval time.Duration
}

type portfolioLinkageClient struct {
	baseURL    string
	httpClient *http.Client
	pacer      *pacer
}

func NewPortfolioLinkageClient(cfg PortfolioClientConfig) LinkageClient {
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = portfolioRequestInterval
	}
	return &portfolioLinkageClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{},
		pacer:      newPacer(interval),
	}
}

type portfolioUserSummaryDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type portfolioAccountDTO struct {
	DisplayName string `json:"displayName"`
	Type        int    `json:"type"`
	URL         string `json:"url"`
}

type portfolioUserDetailDTO struct {
	ID       string                `json:"id"`
	Name     string                `json:"name"`
	Accounts []portfolioAccountDTO `json:"accounts"`
}

func (c *portfolioLinkageClient) FetchLinkedAccounts(ctx context.Context) ([]models.LinkedAccount, error) {
	summaries, err := c.fetchUserList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolio users: %w", err)
	}

	accounts := make([]models.LinkedAccount, 0, len(summaries))
	for _, summary := range summaries {
		detail, err := c.fetchUserDetail(ctx, summary.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get portfolio user %s: %w", summary.Name, err)
		}
		account := models.LinkedAccount{TrapAccountName: detail.Name}
		for _, acc := range detail.Accounts {
			// an AtCoder entry with a blank display name carries no
			// usable account: treat the member as unlinked
			if acc.Type == atcoderAccountTypeID && acc.DisplayName != "" {
				name := acc.DisplayName
				account.AtCoderName = &name
				break
			}
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// fetchUserList requests the bulk member list with an explicit gzip
// Accept-Encoding, the transfer being large enough for compression to
// matter. A response without the gzip marker is decoded as-is.
func (c *portfolioLinkageClient) fetchUserList(ctx context.Context) ([]portfolioUserSummaryDTO, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress response: %w", err)
		}
		defer gz.Close()
		body = gz
	}

	var summaries []portfolioUserSummaryDTO
	if err := json.NewDecoder(body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}
	return summaries, nil
}

func (c *portfolioLinkageClient) fetchUserDetail(ctx context.Context, userID string) (*portfolioUserDetailDTO, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	detail := &portfolioUserDetailDTO{}
	if err := json.NewDecoder(resp.Body).Decode(detail); err != nil {
		return nil, fmt.Errorf("failed to decode user detail: %w", err)
	}
	return detail, nil
}
