package reputation

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/awmitch/GME-bot/internal/common"
	"github.com/awmitch/GME-bot/internal/db/filestore"
)

const testCommunity = "Gamestop_Enthusiasts"

var errPlatformDown = errors.New("platform down")

type sentReply struct {
	EventID string
	Text    string
}

// fakePlatform — платформа в памяти.
type fakePlatform struct {
	mu       sync.Mutex
	profiles map[string]Profile  // по нормализованному имени
	activity map[string][]string // по нормализованному имени
	parents  map[string]string   // parent id → автор
	badges   map[string]Badge
	replies  []sentReply

	existsErr   error
	profileErr  error
	setBadgeErr error
	replyErr    error
	calls       []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		profiles: make(map[string]Profile),
		activity: make(map[string][]string),
		parents:  make(map[string]string),
		badges:   make(map[string]Badge),
	}
}

// addUser регистрирует аккаунт возрастом ageDays от now с кармой karma, активный в сообществе.
func (f *fakePlatform) addUser(handle string, now time.Time, ageDays, karma int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := common.NormalizeHandle(handle)
	f.profiles[key] = Profile{
		Handle:       handle,
		Created:      now.Add(-time.Duration(ageDays) * 24 * time.Hour),
		CommentKarma: karma,
	}
	f.activity[key] = []string{"wallstreetbets", strings.ToLower(testCommunity)}
}

func (f *fakePlatform) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakePlatform) Exists(_ context.Context, handle string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("exists")
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.profiles[common.NormalizeHandle(handle)]
	return ok, nil
}

func (f *fakePlatform) Profile(_ context.Context, handle string) (Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("profile")
	if f.profileErr != nil {
		return Profile{}, f.profileErr
	}
	p, ok := f.profiles[common.NormalizeHandle(handle)]
	if !ok {
		return Profile{}, errors.New("not found")
	}
	return p, nil
}

func (f *fakePlatform) RecentActivity(_ context.Context, handle string, _ int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("activity")
	return f.activity[common.NormalizeHandle(handle)], nil
}

func (f *fakePlatform) Badge(_ context.Context, handle string) (Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("badge")
	return f.badges[common.NormalizeHandle(handle)], nil
}

func (f *fakePlatform) SetBadge(_ context.Context, handle string, b Badge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("set_badge")
	if f.setBadgeErr != nil {
		return f.setBadgeErr
	}
	f.badges[common.NormalizeHandle(handle)] = b
	return nil
}

func (f *fakePlatform) Reply(_ context.Context, ev Event, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("reply")
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, sentReply{EventID: ev.ID, Text: text})
	return nil
}

func (f *fakePlatform) ParentAuthor(_ context.Context, ev Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("parent")
	return f.parents[ev.Parent], nil
}

func (f *fakePlatform) lastReply(t *testing.T) sentReply {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.replies, "no replies sent")
	return f.replies[len(f.replies)-1]
}

func (f *fakePlatform) replyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

type fakeJournal struct {
	mu      sync.Mutex
	records []AwardRecord
}

func (j *fakeJournal) Record(_ context.Context, rec AwardRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

// fixture — сервис и обработчик варианта поверх временной папки.
type fixture struct {
	platform *fakePlatform
	clock    *clockwork.FakeClock
	store    *filestore.Store
	stores   Stores
	journal  *fakeJournal
	service  *Service
	handler  *Handler
}

func newFixture(t *testing.T, v Variant) *fixture {
	t.Helper()
	return newFixtureIn(t, v, filepath.Join(t.TempDir(), "data"))
}

// newFixtureIn — как newFixture, но поверх уже подготовленной папки dir.
func newFixtureIn(t *testing.T, v Variant, dir string) *fixture {
	t.Helper()
	store, err := filestore.NewStore(dir)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	platform := newFakePlatform()
	stores := OpenStores(store, v)
	journal := &fakeJournal{}
	service := NewService(v, DefaultRules(), platform, stores, journal, testCommunity, clock)

	return &fixture{
		platform: platform,
		clock:    clock,
		store:    store,
		stores:   stores,
		journal:  journal,
		service:  service,
		handler:  NewHandler(service, platform, "sig"),
	}
}

func comment(id, author, body string) Event {
	return Event{ID: id, Author: author, Body: body, Parent: "t1_parent", Subreddit: testCommunity}
}
