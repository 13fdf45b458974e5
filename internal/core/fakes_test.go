package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// memUsers is an in-memory UserStore.
type memUsers struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*User
	creates int
	updates int

	createErr error
	updateErr error
	findErr   error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[int64]*User)}
}

func (m *memUsers) add(u User) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	u.Email = strings.ToLower(u.Email)
	m.byID[u.ID] = &u
	return &u
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) LoginExists(_ context.Context, login string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Login == login {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) CreateUser(_ context.Context, nu NewUser) (int64, error) {
	if m.createErr != nil {
		return 0, m.createErr
	}
	display := nu.DisplayName
	if display == "" {
		display = nu.Login
	}
	u := m.add(User{
		Login: nu.Login, Email: nu.Email, PasswordHash: nu.PasswordHash, Role: nu.Role,
		FirstName: nu.FirstName, LastName: nu.LastName, DisplayName: display,
		Nickname: nu.Nickname, Description: nu.Description, URL: nu.URL,
	})
	m.mu.Lock()
	m.creates++
	m.mu.Unlock()
	return u.ID, nil
}

func (m *memUsers) UpdateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.byID[u.ID]; !ok {
		return ErrUserNotFound
	}
	cp := *u
	m.byID[u.ID] = &cp
	m.updates++
	return nil
}

func (m *memUsers) byLogin(login string) *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Login == login {
			return u
		}
	}
	return nil
}

func (m *memUsers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memMeta is an in-memory MetaStore.
type memMeta struct {
	mu     sync.Mutex
	values map[int64]map[string]string
	writes int
}

func newMemMeta() *memMeta {
	return &memMeta{values: make(map[int64]map[string]string)}
}

func (m *memMeta) GetMeta(_ context.Context, userID int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[userID][key], nil
}

func (m *memMeta) SetMeta(_ context.Context, userID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[userID] == nil {
		m.values[userID] = make(map[string]string)
	}
	m.values[userID][key] = value
	m.writes++
	return nil
}

func (m *memMeta) DeleteMeta(_ context.Context, userID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[userID], key)
	return nil
}

func (m *memMeta) get(userID int64, key string) string {
	v, _ := m.GetMeta(context.Background(), userID, key)
	return v
}

// fileFetcher writes a fixed payload to a temp file for every URL.
type fileFetcher struct {
	dir   string
	err   error
	paths []string
}

func (f *fileFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	p := filepath.Join(f.dir, "download-"+filepath.Base(rawURL))
	if err := os.WriteFile(p, []byte("image"), 0o600); err != nil {
		return "", err
	}
	f.paths = append(f.paths, p)
	return p, nil
}

// stubLibrary accepts or rejects sideloads without moving files.
type stubLibrary struct {
	err    error
	nextID int64
	names  []string
}

func (l *stubLibrary) Sideload(_ context.Context, tempPath, fileName string, _ int64) (*Attachment, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.nextID++
	l.names = append(l.names, fileName)
	return &Attachment{ID: l.nextID, Path: tempPath, URL: "/uploads/" + fileName}, nil
}

// testImporter wires an Importer against fresh in-memory stores.
func testImporter(fetcher Fetcher, lib MediaLibrary) (*Importer, *memUsers, *memMeta) {
	users := newMemUsers()
	meta := newMemMeta()
	opts := []ImporterOption{WithPasswordHasher(PasswordHasher{Cost: 4})}
	if fetcher != nil && lib != nil {
		opts = append(opts, WithSideloader(NewSideloader(fetcher, lib, meta)))
	}
	return NewImporter(users, meta, opts...), users, meta
}
