package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/awmitch/GME-bot/internal/features/reputation"
)

type userAbout struct {
	Data struct {
		Name         string  `json:"name"`
		CreatedUTC   float64 `json:"created_utc"`
		CommentKarma int     `json:"comment_karma"`
		IsSuspended  bool    `json:"is_suspended"`
	} `json:"data"`
}

// listing — страница Reddit со списком объектов.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string    `json:"kind"`
			Data thingData `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type thingData struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	ParentID   string  `json:"parent_id"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
}

// Me возвращает имя аккаунта бота.
func (c *Client) Me(ctx context.Context) (string, error) {
	var me struct {
		Name string `json:"name"`
	}
	if err := c.get(ctx, "/api/v1/me", nil, &me); err != nil {
		return "", err
	}
	return me.Name, nil
}

// Exists сообщает, есть ли аккаунт. Заблокированный аккаунт считается несуществующим.
func (c *Client) Exists(ctx context.Context, handle string) (bool, error) {
	about, err := c.about(ctx, handle)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !about.Data.IsSuspended, nil
}

// Profile возвращает дату создания аккаунта и карму за комментарии.
func (c *Client) Profile(ctx context.Context, handle string) (reputation.Profile, error) {
	about, err := c.about(ctx, handle)
	if err != nil {
		return reputation.Profile{}, err
	}
	return reputation.Profile{
		Handle:       about.Data.Name,
		Created:      fromUnix(about.Data.CreatedUTC),
		CommentKarma: about.Data.CommentKarma,
	}, nil
}

func (c *Client) about(ctx context.Context, handle string) (userAbout, error) {
	var about userAbout
	err := c.get(ctx, "/user/"+url.PathEscape(handle)+"/about", nil, &about)
	return about, err
}

// RecentActivity возвращает сообщества последних n постов и n комментариев.
func (c *Client) RecentActivity(ctx context.Context, handle string, n int) ([]string, error) {
	q := url.Values{"limit": {strconv.Itoa(n)}}
	var subs []string
	for _, kind := range []string{"submitted", "comments"} {
		var l listing
		if err := c.get(ctx, "/user/"+url.PathEscape(handle)+"/"+kind, q, &l); err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		for _, ch := range l.Data.Children {
			subs = append(subs, ch.Data.Subreddit)
		}
	}
	return subs, nil
}

func fromUnix(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}
