package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/Dosada05/rating-board/models"
)

const (
	traqRequestInterval = 200 * time.Millisecond
	algoTeamGroupName   = "algorithm"
	traqUserStateActive = 1
)

// Grade groups are named like "23B": two digits of the entry year plus a
// course letter.
var gradeGroupPattern = regexp.MustCompile(`^[0-9]{2}[BMRD]$`)

// RosterClient resolves the current member roster with its group-derived
// attributes. One call performs several paced requests against traQ but is
// atomic from the pipeline's point of view.
type RosterClient interface {
	FetchMembers(ctx context.Context) ([]models.Member, error)
}

type TraqClientConfig struct {
	BaseURL        string
	BotAccessToken string
	// RequestInterval overrides the default pacing, for tests.
	RequestInterval time.Duration
}

type traqRosterClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	pacer      *pacer
}

func NewTraqRosterClient(cfg TraqClientConfig) RosterClient {
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = traqRequestInterval
	}
	return &traqRosterClient{
		baseURL:    cfg.BaseURL,
		token:      cfg.BotAccessToken,
		httpClient: &http.Client{},
		pacer:      newPacer(interval),
	}
}

type traqUserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Bot   bool   `json:"bot"`
	State int    `json:"state"`
}

type traqGroupDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type traqGroupMemberDTO struct {
	ID string `json:"id"`
}

func (c *traqRosterClient) FetchMembers(ctx context.Context) ([]models.Member, error) {
	var users []traqUserDTO
	if err := c.getJSON(ctx, "/users?include-suspended=true", &users); err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	var groups []traqGroupDTO
	if err := c.getJSON(ctx, "/groups", &groups); err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}

	var algoGroup *traqGroupDTO
	for i := range groups {
		if groups[i].Name == algoTeamGroupName {
			algoGroup = &groups[i]
			break
		}
	}
	if algoGroup == nil {
		return nil, fmt.Errorf("%s group not found", algoTeamGroupName)
	}

	algoMemberIDs, err := c.fetchGroupMemberIDs(ctx, algoGroup.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s team members: %w", algoTeamGroupName, err)
	}
	isAlgoTeam := make(map[string]bool, len(algoMemberIDs))
	for _, id := range algoMemberIDs {
		isAlgoTeam[id] = true
	}

	// One members request per grade group; each member belongs to at
	// most one, later groups win on (unexpected) overlap.
	gradeByUserID := make(map[string]string)
	for _, group := range groups {
		if !gradeGroupPattern.MatchString(group.Name) {
			continue
		}
		memberIDs, err := c.fetchGroupMemberIDs(ctx, group.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get members of group %s: %w", group.Name, err)
		}
		for _, id := range memberIDs {
			gradeByUserID[id] = group.Name
		}
	}

	members := make([]models.Member, 0, len(users))
	for _, user := range users {
		if user.Bot {
			continue
		}
		member := models.Member{
			TrapAccountName: user.Name,
			IsActive:        user.State == traqUserStateActive,
			IsAlgoTeam:      isAlgoTeam[user.ID],
		}
		if grade, ok := gradeByUserID[user.ID]; ok {
			member.Grade = &grade
		}
		members = append(members, member)
	}
	return members, nil
}

func (c *traqRosterClient) fetchGroupMemberIDs(ctx context.Context, groupID string) ([]string, error) {
	var members []traqGroupMemberDTO
	if err := c.getJSON(ctx, "/groups/"+groupID+"/members", &members); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *traqRosterClient) getJSON(ctx context.Context, path string, dst interface{}) error {
	if err := c.pacer.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
