package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/timevault/timevault-go/internal/crypto"
	"github.com/timevault/timevault-go/internal/lifecycle"
	"github.com/timevault/timevault-go/internal/model"
	"github.com/timevault/timevault-go/internal/repository"
)

// memStore is an in-memory CapsuleStore and ReportStore sharing one lock, so
// the tests exercise the same derived-report-count behavior the SQL store has.
type memStore struct {
	mu       sync.Mutex
	capsules map[string]*model.Capsule
	reports  map[string]map[int64]string
}

func newMemStore() *memStore {
	return &memStore{
		capsules: make(map[string]*model.Capsule),
		reports:  make(map[string]map[int64]string),
	}
}

func (s *memStore) Create(ctx context.Context, c *model.Capsule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *c
	stored.CreatedAt = time.Now().UTC()
	s.capsules[c.ID] = &stored
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*model.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.capsules[id]
	if !ok {
		return nil, repository.ErrCapsuleNotFound
	}
	out := *c
	out.ReportCount = len(s.reports[id])
	return &out, nil
}

func (s *memStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Capsule
	for id, c := range s.capsules {
		if c.OwnerID == ownerID {
			out := *c
			out.ReportCount = len(s.reports[id])
			result = append(result, out)
		}
	}
	return result, nil
}

func (s *memStore) ListPublicUnlocked(ctx context.Context, now time.Time) ([]model.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Capsule
	for id, c := range s.capsules {
		if c.Public && !now.Before(c.UnlockAt) {
			out := *c
			out.ReportCount = len(s.reports[id])
			result = append(result, out)
		}
	}
	return result, nil
}

func (s *memStore) List(ctx context.Context, filter string, now time.Time) ([]model.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []model.Capsule
	for id, c := range s.capsules {
		reportCount := len(s.reports[id])
		switch filter {
		case "locked":
			if !now.Before(c.UnlockAt) {
				continue
			}
		case "unlocked":
			if now.Before(c.UnlockAt) {
				continue
			}
		case "reported":
			if reportCount == 0 {
				continue
			}
		case "reviewed":
			if !c.Reviewed {
				continue
			}
		}
		out := *c
		out.ReportCount = reportCount
		result = append(result, out)
	}
	return result, nil
}

func (s *memStore) SetReviewed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.capsules[id]
	if !ok {
		return repository.ErrCapsuleNotFound
	}
	c.Reviewed = true
	return nil
}

func (s *memStore) MarkUnlockNotified(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.capsules[id]
	if !ok {
		return false, repository.ErrCapsuleNotFound
	}
	if c.UnlockNotified {
		return false, nil
	}
	c.UnlockNotified = true
	return true, nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.capsules[id]; !ok {
		return repository.ErrCapsuleNotFound
	}
	delete(s.capsules, id)
	delete(s.reports, id)
	return nil
}

func (s *memStore) Counts(ctx context.Context, now time.Time) (model.CapsuleCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var counts model.CapsuleCounts
	for id, c := range s.capsules {
		counts.Total++
		if !now.Before(c.UnlockAt) {
			counts.Unlocked++
		}
		if len(s.reports[id]) > 0 {
			counts.Reported++
		}
	}
	return counts, nil
}

func (s *memStore) Add(ctx context.Context, capsuleID string, reporterID int64, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byReporter, ok := s.reports[capsuleID]
	if !ok {
		byReporter = make(map[int64]string)
		s.reports[capsuleID] = byReporter
	}
	if _, seen := byReporter[reporterID]; seen {
		return false, nil
	}
	byReporter[reporterID] = reason
	return true, nil
}

func (s *memStore) Count(ctx context.Context, capsuleID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports[capsuleID]), nil
}

// tamper corrupts a stored capsule's ciphertext in place.
func (s *memStore) tamper(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.capsules[id]
	if len(c.Ciphertext) > 0 {
		c.Ciphertext[0] ^= 0xff
	}
}

// memDirectory is an in-memory UserDirectory.
type memDirectory struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64
}

func newMemDirectory() *memDirectory {
	return &memDirectory{users: make(map[int64]*model.User), nextID: 1}
}

func (d *memDirectory) Create(ctx context.Context, user *model.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.ID = d.nextID
	user.CreatedAt = time.Now().UTC()
	d.nextID++
	stored := *user
	d.users[user.ID] = &stored
	return nil
}

func (d *memDirectory) GetByID(ctx context.Context, id int64) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (d *memDirectory) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (d *memDirectory) List(ctx context.Context, status string) ([]model.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []model.User
	for _, u := range d.users {
		if status == "active" && u.Banned {
			continue
		}
		if status == "banned" && !u.Banned {
			continue
		}
		result = append(result, *u)
	}
	return result, nil
}

func (d *memDirectory) SetBanned(ctx context.Context, id int64, banned bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Banned = banned
	return nil
}

func (d *memDirectory) Delete(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(d.users, id)
	return nil
}

func (d *memDirectory) Counts(ctx context.Context) (model.UserCounts, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var counts model.UserCounts
	for _, u := range d.users {
		counts.Total++
		if u.Banned {
			counts.Banned++
		}
	}
	return counts, nil
}

// memMedia is an in-memory MediaStore.
type memMedia struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemMedia() *memMedia {
	return &memMedia{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memMedia) Put(ctx context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memMedia) URL(key string) string {
	return "mem://" + key
}

// spyNotifier counts notification deliveries.
type spyNotifier struct {
	mu       sync.Mutex
	unlocked int
	reported int
	banned   int
}

func (n *spyNotifier) CapsuleUnlocked(ctx context.Context, ownerID int64, capsuleID, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unlocked++
}

func (n *spyNotifier) CapsuleReported(ctx context.Context, capsuleID, reason string, reportCount int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reported++
}

func (n *spyNotifier) UserBanned(ctx context.Context, userID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.banned++
}

func (n *spyNotifier) counts() (unlocked, reported, banned int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unlocked, n.reported, n.banned
}

// testEnv wires the full service stack over in-memory stores.
type testEnv struct {
	store    *memStore
	users    *memDirectory
	media    *memMedia
	notifier *spyNotifier
	engine   *lifecycle.Engine
	caps     *CapsuleService
	mod      *ModerationService
	access   *Access
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	key := bytes.Repeat([]byte{0x42}, crypto.KeySize)
	store := newMemStore()
	users := newMemDirectory()
	media := newMemMedia()
	notifier := &spyNotifier{}
	engine := lifecycle.NewEngine(store, notifier, key)
	caps := NewCapsuleService(store, media, engine, key)
	mod := NewModerationService(store, store, users, engine, notifier)

	return &testEnv{
		store:    store,
		users:    users,
		media:    media,
		notifier: notifier,
		engine:   engine,
		caps:     caps,
		mod:      mod,
		access:   NewAccess(store, users, caps, mod),
		auth:     NewAuthService(users, "test-secret", time.Hour),
	}
}

// addUser seeds a directory entry and returns its ID.
func (e *testEnv) addUser(t *testing.T, email, role string, banned bool) int64 {
	t.Helper()
	user := &model.User{Email: email, AuthHash: "unused", Role: role, Banned: banned}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	if banned {
		if err := e.users.SetBanned(context.Background(), user.ID, true); err != nil {
			t.Fatalf("banning user %s: %v", email, err)
		}
	}
	return user.ID
}

// capsuleReq builds a private, unencrypted creation request.
func capsuleReq(title string, unlockAt time.Time) model.CreateCapsuleRequest {
	return model.CreateCapsuleRequest{
		Title:    title,
		Message:  "message of " + title,
		UnlockAt: unlockAt,
	}
}

// addCapsule seeds a capsule through the access controller and returns its ID.
func (e *testEnv) addCapsule(t *testing.T, ownerID int64, title string, unlockAt time.Time, public, encrypted bool) string {
	t.Helper()
	view, err := e.access.CreateCapsule(context.Background(), ownerID, model.CreateCapsuleRequest{
		Title:     title,
		Message:   "message of " + title,
		UnlockAt:  unlockAt,
		Public:    public,
		Encrypted: encrypted,
	}, nil)
	if err != nil {
		t.Fatalf("seeding capsule %s: %v", title, err)
	}
	return view.ID
}
