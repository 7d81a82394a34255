package reddit

import (
	"context"
	"net/url"
	"strings"

	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// Badge возвращает текущую плашку (флер) пользователя в сообществе.
func (c *Client) Badge(ctx context.Context, handle string) (reputation.Badge, error) {
	var resp struct {
		Users []struct {
			User     string `json:"user"`
			Text     string `json:"flair_text"`
			CSSClass string `json:"flair_css_class"`
		} `json:"users"`
	}
	q := url.Values{"name": {handle}, "limit": {"1"}}
	if err := c.get(ctx, "/r/"+c.opts.Subreddit+"/api/flairlist", q, &resp); err != nil {
		return reputation.Badge{}, err
	}
	for _, u := range resp.Users {
		if strings.EqualFold(u.User, handle) {
			return reputation.Badge{Text: u.Text, Class: u.CSSClass}, nil
		}
	}
	return reputation.Badge{}, nil
}

// SetBadge ставит плашку пользователю.
func (c *Client) SetBadge(ctx context.Context, handle string, badge reputation.Badge) error {
	form := url.Values{
		"api_type":  {"json"},
		"name":      {handle},
		"text":      {badge.Text},
		"css_class": {badge.Class},
	}
	var resp apiErrors
	if err := c.post(ctx, "/r/"+c.opts.Subreddit+"/api/flair", form, &resp); err != nil {
		return err
	}
	return resp.err()
}
