package reddit

import (
	"context"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// deletedAuthor — так Reddit показывает удалённого автора.
const deletedAuthor = "[deleted]"

// Reply отвечает на комментарий ev.
func (c *Client) Reply(ctx context.Context, ev reputation.Event, text string) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {ev.ID},
		"text":     {text},
	}
	var resp apiErrors
	if err := c.post(ctx, "/api/comment", form, &resp); err != nil {
		return err
	}
	return resp.err()
}

// ParentAuthor возвращает автора родителя ev ("" — автор удалён или родителя нет).
func (c *Client) ParentAuthor(ctx context.Context, ev reputation.Event) (string, error) {
	if ev.Parent == "" {
		return "", nil
	}
	var l listing
	if err := c.get(ctx, "/api/info", url.Values{"id": {ev.Parent}}, &l); err != nil {
		return "", err
	}
	for _, ch := range l.Data.Children {
		if a := ch.Data.Author; a != "" && a != deletedAuthor {
			return a, nil
		}
	}
	return "", nil
}

// Submit публикует текстовый пост в сообществе.
func (c *Client) Submit(ctx context.Context, title, text string) error {
	form := url.Values{
		"api_type": {"json"},
		"sr":       {c.opts.Subreddit},
		"kind":     {"self"},
		"title":    {title},
		"text":     {text},
	}
	var resp apiErrors
	if err := c.post(ctx, "/api/submit", form, &resp); err != nil {
		return err
	}
	return resp.err()
}

// StreamPageSize — сколько последних комментариев запрашивать за опрос.
const StreamPageSize = 100

// seenLimit — сколько id помнит лента.
const seenLimit = 1000

// CommentStream — лента новых комментариев сообщества.
// Первый опрос только запоминает существующие комментарии (skip existing),
// последующие отдают новые, от старых к новым.
// Не безопасен для параллельного использования: одна лента на слушателя.
type CommentStream struct {
	client *Client
	primed bool
	seen   map[string]struct{}
	order  []string
}

// Comments создаёт новую ленту комментариев сообщества.
func (c *Client) Comments() *CommentStream {
	return &CommentStream{client: c, seen: make(map[string]struct{})}
}

// Next опрашивает Reddit один раз и возвращает новые комментарии.
func (s *CommentStream) Next(ctx context.Context) ([]reputation.Event, error) {
	var l listing
	q := url.Values{"limit": {strconv.Itoa(StreamPageSize)}}
	if err := s.client.get(ctx, "/r/"+s.client.opts.Subreddit+"/comments", q, &l); err != nil {
		return nil, err
	}

	var fresh []reputation.Event
	// Reddit отдаёт от новых к старым.
	for i := len(l.Data.Children) - 1; i >= 0; i-- {
		d := l.Data.Children[i].Data
		if d.Name == "" {
			d.Name = "t1_" + d.ID
		}
		if !s.remember(d.Name) {
			continue
		}
		if !s.primed {
			continue
		}
		author := d.Author
		if author == deletedAuthor {
			author = ""
		}
		fresh = append(fresh, reputation.Event{
			ID:        d.Name,
			Author:    author,
			Body:      d.Body,
			Parent:    d.ParentID,
			Subreddit: d.Subreddit,
			Created:   fromUnix(d.CreatedUTC),
		})
	}

	if !s.primed {
		s.primed = true
		log.WithFields(log.Fields{
			"component": "reddit",
			"skipped":   len(s.order),
		}).Debug("comment stream primed")
	}
	return fresh, nil
}

// remember запоминает id. Возвращает false, если id уже встречался.
func (s *CommentStream) remember(id string) bool {
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	if over := len(s.order) - seenLimit; over > 0 {
		for _, old := range s.order[:over] {
			delete(s.seen, old)
		}
		s.order = append(s.order[:0], s.order[over:]...)
	}
	return true
}
