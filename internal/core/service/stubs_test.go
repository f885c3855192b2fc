package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory credential store
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID    map[int64]*domain.User
	nextID  int64
	listErr error
	findErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byID: make(map[int64]*domain.User), nextID: 1}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// Create mirrors the unique indexes of the SQL store: username_key and email.
func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	for _, u := range r.byID {
		if domain.UsernameKey(u.Username) == domain.UsernameKey(user.Username) {
			return nil, domain.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	c := cloneUser(user)
	c.ID = r.nextID
	r.nextID++
	r.byID[c.ID] = c
	return cloneUser(c), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.byID {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	r.byID[user.ID] = cloneUser(user)
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubUserRepo) List(_ context.Context, offset, limit int) ([]*domain.User, int64, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	ids := make([]int64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []*domain.User{}
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, cloneUser(r.byID[ids[i]]))
	}
	return out, int64(len(ids)), nil
}

func (r *stubUserRepo) CountByRole(_ context.Context, role string) (int64, error) {
	var n int64
	for _, u := range r.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

// seed inserts a user directly and returns its principal.
func (r *stubUserRepo) seed(username, role string) domain.Principal {
	u, err := r.Create(context.Background(), &domain.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash:" + username + "-password",
		Role:         role,
	})
	if err != nil {
		panic(err)
	}
	return domain.PrincipalOf(u)
}

// ---------------------------------------------------------------------------
// In-memory vulnerability store
// ---------------------------------------------------------------------------

type stubVulnRepo struct {
	byID   map[int64]*domain.Vulnerability
	nextID int64
}

func newStubVulnRepo() *stubVulnRepo {
	return &stubVulnRepo{byID: make(map[int64]*domain.Vulnerability), nextID: 1}
}

func cloneVuln(v *domain.Vulnerability) *domain.Vulnerability {
	c := *v
	return &c
}

func (r *stubVulnRepo) Create(_ context.Context, v *domain.Vulnerability) (*domain.Vulnerability, error) {
	for _, existing := range r.byID {
		if existing.Active() && domain.NameKey(existing.Name) == domain.NameKey(v.Name) {
			return nil, domain.ErrVulnerabilityExists
		}
	}
	c := cloneVuln(v)
	c.ID = r.nextID
	r.nextID++
	r.byID[c.ID] = c
	return cloneVuln(c), nil
}

func (r *stubVulnRepo) FindByID(_ context.Context, id int64) (*domain.Vulnerability, error) {
	v, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrVulnerabilityNotFound
	}
	return cloneVuln(v), nil
}

func (r *stubVulnRepo) FindActiveByName(_ context.Context, name string) (*domain.Vulnerability, error) {
	for _, v := range r.byID {
		if v.Active() && domain.NameKey(v.Name) == domain.NameKey(name) {
			return cloneVuln(v), nil
		}
	}
	return nil, domain.ErrVulnerabilityNotFound
}

func (r *stubVulnRepo) List(_ context.Context, f domain.VulnerabilityFilter) ([]*domain.Vulnerability, int64, error) {
	ids := make([]int64, 0, len(r.byID))
	for id, v := range r.byID {
		if !v.Active() {
			continue
		}
		if f.Severity != "" && v.Severity != f.Severity {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []*domain.Vulnerability{}
	for i := f.Offset(); i < len(ids) && len(out) < f.Limit; i++ {
		out = append(out, cloneVuln(r.byID[ids[i]]))
	}
	return out, int64(len(ids)), nil
}

func (r *stubVulnRepo) MarkDeleted(_ context.Context, id, deletedBy int64, reason string, at time.Time) error {
	v, ok := r.byID[id]
	if !ok {
		return domain.ErrVulnerabilityNotFound
	}
	if !v.Active() {
		return domain.ErrVulnerabilityDeleted
	}
	v.Status = domain.VulnerabilityDeleted
	v.DeletedAt = &at
	v.DeletedBy = &deletedBy
	v.DeleteReason = reason
	return nil
}

// ---------------------------------------------------------------------------
// Audit sink, hasher, codec, denylist
// ---------------------------------------------------------------------------

type stubSink struct {
	records []domain.AuditRecord
	err     error
}

func (s *stubSink) Record(_ context.Context, rec domain.AuditRecord) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *stubSink) last() domain.AuditRecord {
	if len(s.records) == 0 {
		return domain.AuditRecord{}
	}
	return s.records[len(s.records)-1]
}

type stubHasher struct {
	hashCalls   int
	verifyCalls int
}

func (h *stubHasher) Hash(password string) (string, error) {
	h.hashCalls++
	return "hash:" + password, nil
}

func (h *stubHasher) Verify(password, encoded string) (bool, error) {
	h.verifyCalls++
	if !strings.HasPrefix(encoded, "hash:") {
		return false, errors.New("unrecognised hash")
	}
	return encoded == "hash:"+password, nil
}

// stubCodec encodes tokens as "tok|<jti>|<subject>|<role>".
type stubCodec struct {
	now    time.Time
	ttl    time.Duration
	issued int
}

func (c *stubCodec) Issue(subject, role string) (string, *domain.Session, error) {
	c.issued++
	s := &domain.Session{
		ID:        "jti-" + subject,
		Subject:   subject,
		Role:      role,
		IssuedAt:  c.now,
		ExpiresAt: c.now.Add(c.ttl),
	}
	return strings.Join([]string{"tok", s.ID, subject, role}, "|"), s, nil
}

func (c *stubCodec) Decode(token string) (*domain.Session, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 4 || parts[0] != "tok" {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Session{
		ID:        parts[1],
		Subject:   parts[2],
		Role:      parts[3],
		IssuedAt:  c.now,
		ExpiresAt: c.now.Add(c.ttl),
	}, nil
}

type stubDenylist struct {
	revoked map[string]time.Duration
	err     error
}

func newStubDenylist() *stubDenylist {
	return &stubDenylist{revoked: make(map[string]time.Duration)}
}

func (d *stubDenylist) Revoke(_ context.Context, id string, ttl time.Duration) error {
	if d.err != nil {
		return d.err
	}
	d.revoked[id] = ttl
	return nil
}

func (d *stubDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[id]
	return ok, nil
}

var (
	_ ports.UserRepository          = (*stubUserRepo)(nil)
	_ ports.VulnerabilityRepository = (*stubVulnRepo)(nil)
	_ ports.AuditSink               = (*stubSink)(nil)
	_ ports.PasswordHasher          = (*stubHasher)(nil)
	_ ports.TokenCodec              = (*stubCodec)(nil)
	_ ports.TokenDenylist           = (*stubDenylist)(nil)
)
