package services

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/dbx"
	"github.com/dmitrijs2005/contactbook/internal/logging"
	"github.com/dmitrijs2005/contactbook/internal/server/config"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/contacts"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/contactbook/internal/server/repositories/users"
	"github.com/google/uuid"
)

// --- users ---

type memUsers struct {
	mu        sync.Mutex
	byEmail   map[string]*models.User
	createErr error
	getErr    error
	updateErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*models.User{}}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byEmail[u.Email]; ok {
		return nil, common.ErrorConflict
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	r.byEmail[u.Email] = copyUser(u)
	return u, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyUser(u), nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) SetVerified(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.IsVerified = true
	return copyUser(u), nil
}

func (r *memUsers) UpdatePasswordHash(_ context.Context, id string, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	for _, u := range r.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return common.ErrorNotFound
}

func (r *memUsers) UpdateAvatar(_ context.Context, id string, avatarURL string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			u.AvatarURL = &avatarURL
			return copyUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byEmail)
}

// --- contacts ---

type memContacts struct {
	mu        sync.Mutex
	rows      []*models.Contact
	lastSkip  int
	lastLimit int
}

func (r *memContacts) find(userID, id string) (int, bool) {
	for i, c := range r.rows {
		if c.ID == id && c.UserID == userID {
			return i, true
		}
	}
	return -1, false
}

func (r *memContacts) emailTaken(userID, email, exceptID string) bool {
	for _, c := range r.rows {
		if c.UserID == userID && c.Email == email && c.ID != exceptID {
			return true
		}
	}
	return false
}

func fill(c *models.Contact, in *models.ContactInput) {
	c.FirstName, c.LastName, c.Email, c.Phone = in.FirstName, in.LastName, in.Email, in.Phone
	c.Birthday, c.Notes = in.Birthday, in.Notes
}

func (r *memContacts) Create(_ context.Context, userID string, in *models.ContactInput) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(userID, in.Email, "") {
		return nil, common.ErrorConflict
	}
	c := &models.Contact{ID: uuid.NewString(), UserID: userID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	fill(c, in)
	r.rows = append(r.rows, c)
	return c, nil
}

func (r *memContacts) List(_ context.Context, userID string, skip, limit int) ([]*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSkip, r.lastLimit = skip, limit
	var own []*models.Contact
	for _, c := range r.rows {
		if c.UserID == userID {
			own = append(own, c)
		}
	}
	if skip >= len(own) {
		return []*models.Contact{}, nil
	}
	own = own[skip:]
	if len(own) > limit {
		own = own[:limit]
	}
	return own, nil
}

func (r *memContacts) ListAll(ctx context.Context, userID string) ([]*models.Contact, error) {
	return r.List(ctx, userID, 0, len(r.rows)+1)
}

func (r *memContacts) Get(_ context.Context, userID, id string) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.find(userID, id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.rows[i], nil
}

func (r *memContacts) Update(_ context.Context, userID, id string, in *models.ContactInput) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.find(userID, id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	if r.emailTaken(userID, in.Email, id) {
		return nil, common.ErrorConflict
	}
	fill(r.rows[i], in)
	return r.rows[i], nil
}

func (r *memContacts) Delete(_ context.Context, userID, id string) (*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.find(userID, id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	c := r.rows[i]
	r.rows = append(r.rows[:i], r.rows[i+1:]...)
	return c, nil
}

func (r *memContacts) Search(_ context.Context, userID, name, email string) ([]*models.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	contains := func(s, sub string) bool {
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	}
	result := []*models.Contact{}
	for _, c := range r.rows {
		if c.UserID != userID {
			continue
		}
		if name != "" && !contains(c.FirstName, name) && !contains(c.LastName, name) {
			continue
		}
		if email != "" && !contains(c.Email, email) {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

// --- refresh tokens ---

type memTokens struct {
	mu        sync.Mutex
	rows      map[string]*models.RefreshToken
	createErr error
	now       func() time.Time
}

func newMemTokens() *memTokens {
	return &memTokens{rows: map[string]*models.RefreshToken{}, now: time.Now}
}

func (r *memTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.rows[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: r.now().Add(validity)}
	return nil
}

func (r *memTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.rows[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.rows, token)
	return rt, nil
}

func (r *memTokens) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, token)
	return nil
}

func (r *memTokens) tokens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for k := range r.rows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// --- manager ---

type fakeManager struct {
	users    *memUsers
	contacts *memContacts
	tokens   *memTokens
}

func newFakeManager() *fakeManager {
	return &fakeManager{users: newMemUsers(), contacts: &memContacts{}, tokens: newMemTokens()}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository                   { return m.users }
func (m *fakeManager) Contacts(dbx.DBTX) contacts.Repository             { return m.contacts }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository   { return m.tokens }

// --- collaborators ---

type sentMail struct {
	to, token string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendVerification(_ context.Context, to, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, token: token})
	return nil
}

func (f *fakeMailer) all() []sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMail(nil), f.sent...)
}

type fakeAvatars struct {
	contentType string
	data        []byte
	err         error
}

func (f *fakeAvatars) Upload(_ context.Context, userID, contentType string, body io.Reader, size int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.contentType = contentType
	f.data, _ = io.ReadAll(body)
	return "http://img.test/avatars/" + userID + "/a", nil
}

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		Algorithm:                    "HS256",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		VerificationSalt:             "email-verification",
		VerificationMaxAge:           time.Hour,
		PasswordSchemes:              []string{"bcrypt", "argon2id"},
		BcryptCost:                   4,
		MailTimeout:                  time.Second,
		UploadTimeout:                time.Second,
		MaxAvatarSize:                1024,
	}
}

type userEnv struct {
	svc     *UserService
	rm      *fakeManager
	mailer  *fakeMailer
	avatars *fakeAvatars
	logs    *bytes.Buffer
	mock    sqlmock.Sqlmock
}

func newUserEnv(t *testing.T, cfg *config.Config) *userEnv {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	db, mock := newSQLMockDB(t)
	env := &userEnv{
		rm:      newFakeManager(),
		mailer:  &fakeMailer{},
		avatars: &fakeAvatars{},
		logs:    &bytes.Buffer{},
		mock:    mock,
	}
	svc, err := NewUserService(db, env.rm, cfg, env.mailer, env.avatars, logging.NewJSONLogger(env.logs, "debug"))
	if err != nil {
		t.Fatalf("NewUserService: %v", err)
	}
	env.svc = svc
	return env
}
