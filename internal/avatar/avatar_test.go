package avatar

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/media"
)

type fakeUsers map[int64]*core.User

func (f fakeUsers) FindByID(_ context.Context, id int64) (*core.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return u, nil
}

type fakeMeta struct {
	mu     sync.Mutex
	values map[int64]map[string]string
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{values: make(map[int64]map[string]string)}
}

func (m *fakeMeta) GetMeta(_ context.Context, userID int64, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[userID][key], nil
}

func (m *fakeMeta) SetMeta(_ context.Context, userID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[userID] == nil {
		m.values[userID] = make(map[string]string)
	}
	m.values[userID][key] = value
	return nil
}

func (m *fakeMeta) DeleteMeta(_ context.Context, userID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[userID], key)
	return nil
}

func (m *fakeMeta) UserIDsWithMeta(_ context.Context, keys ...string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, kv := range m.values {
		for _, k := range keys {
			if kv[k] != "" {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeOptions map[string]bool

func (o fakeOptions) GetBool(_ context.Context, name string, def bool) (bool, error) {
	if v, ok := o[name]; ok {
		return v, nil
	}
	return def, nil
}

func (o fakeOptions) SetBool(_ context.Context, name string, v bool) error {
	o[name] = v
	return nil
}

func (o fakeOptions) Delete(_ context.Context, name string) error {
	delete(o, name)
	return nil
}

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*core.Attachment
}

func (r *fakeRepo) Create(_ context.Context, a *core.Attachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (*core.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byID[id]; ok {
		return a, nil
	}
	return nil, errors.New("attachment not found")
}

func (r *fakeRepo) FindByURL(_ context.Context, u string) (*core.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.URL == u {
			return a, nil
		}
	}
	return nil, errors.New("attachment not found")
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

type fixture struct {
	svc     *Service
	lib     *media.Library
	repo    *fakeRepo
	meta    *fakeMeta
	options fakeOptions
	users   fakeUsers
}

func setup(t *testing.T, cfg Config) *fixture {
	t.Helper()
	repo := &fakeRepo{byID: make(map[int64]*core.Attachment)}
	lib, err := media.NewLibrary(repo, t.TempDir(), "/uploads")
	require.NoError(t, err)

	f := &fixture{
		lib:     lib,
		repo:    repo,
		meta:    newFakeMeta(),
		options: fakeOptions{},
		users: fakeUsers{
			1: {ID: 1, Login: "ann", DisplayName: "Ann Smith", Role: core.RoleSubscriber},
			2: {ID: 2, Login: "ed", DisplayName: "Ed", Role: core.RoleEditor},
		},
	}
	f.svc = NewService(f.users, f.meta, lib, f.options, cfg)
	return f
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUpload_StoresAvatar(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	u, err := f.svc.Upload(ctx, 1, "me.PNG", bytes.NewReader(pngImage(t, 20, 20)))

	require.NoError(t, err)
	assert.Equal(t, "/uploads/ann-smith_avatar.png", u)
	assert.FileExists(t, filepath.Join(f.lib.Dir(), "ann-smith_avatar.png"))

	rec, err := core.LoadAvatarRecord(ctx, f.meta, 1)
	require.NoError(t, err)
	assert.Equal(t, u, rec.Full())
}

func TestUpload_ReplacesPreviousAvatar(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()
	data := pngImage(t, 20, 20)

	first, err := f.svc.Upload(ctx, 1, "a.png", bytes.NewReader(data))
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, 1, "b.png", bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, first, second, "old file is removed before the name is chosen")
	entries, err := os.ReadDir(f.lib.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpload_CollidingNamesGetSuffix(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()
	f.users[3] = &core.User{ID: 3, Login: "ann2", DisplayName: "Ann Smith"}

	_, err := f.svc.Upload(ctx, 1, "a.png", bytes.NewReader(pngImage(t, 10, 10)))
	require.NoError(t, err)
	u, err := f.svc.Upload(ctx, 3, "a.png", bytes.NewReader(pngImage(t, 10, 10)))
	require.NoError(t, err)

	assert.Equal(t, "/uploads/ann-smith_avatar_1.png", u)
}

func TestUpload_Rejections(t *testing.T) {
	f := setup(t, Config{MaxUploadSize: 1024})
	ctx := context.Background()
	img := pngImage(t, 8, 8)

	tests := []struct {
		name     string
		userID   int64
		fileName string
		data     []byte
		wantErr  error
	}{
		{"php in name", 1, "shell.php.png", img, ErrUnsafeName},
		{"bad extension", 1, "pic.webp", img, ErrUnsupportedType},
		{"content mismatch", 1, "pic.jpg", img, ErrUnsupportedType},
		{"not an image", 1, "pic.png", []byte("hello"), ErrUnsupportedType},
		{"too large", 1, "pic.png", bytes.Repeat([]byte{1}, 2048), ErrTooLarge},
		{"unknown user", 99, "pic.png", img, core.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Upload(ctx, tt.userID, tt.fileName, bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpload_Restricted(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()
	require.NoError(t, f.svc.SetUploadRestricted(ctx, true))

	_, err := f.svc.Upload(ctx, 1, "a.png", bytes.NewReader(pngImage(t, 8, 8)))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Upload(ctx, 2, "a.png", bytes.NewReader(pngImage(t, 8, 8)))
	assert.NoError(t, err, "editors may upload while restricted")

	restricted, err := f.svc.UploadRestricted(ctx)
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestDelete_RemovesAllSizes(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, 1, "a.png", bytes.NewReader(pngImage(t, 200, 100)))
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, 1, 48)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, 1))

	entries, err := os.ReadDir(f.lib.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = f.svc.Resolve(ctx, 1, 48)
	assert.ErrorIs(t, err, ErrNoAvatar)

	assert.NoError(t, f.svc.Delete(ctx, 1), "deleting twice is fine")
}

func TestResolve_GeneratesCenterCrop(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, 1, "a.png", bytes.NewReader(pngImage(t, 200, 100)))
	require.NoError(t, err)

	u, err := f.svc.Resolve(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/ann-smith_avatar-96x96.png", u)

	file, err := os.Open(filepath.Join(f.lib.Dir(), "ann-smith_avatar-96x96.png"))
	require.NoError(t, err)
	defer file.Close()
	cfg, err := png.DecodeConfig(file)
	require.NoError(t, err)
	assert.Equal(t, 96, cfg.Width)
	assert.Equal(t, 96, cfg.Height)

	rec, err := core.LoadAvatarRecord(ctx, f.meta, 1)
	require.NoError(t, err)
	got, ok := rec.Sized(96)
	assert.True(t, ok, "generated size is remembered")
	assert.Equal(t, u, got)
}

func TestResolve_SmallOriginalUsesFull(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	full, err := f.svc.Upload(ctx, 1, "a.png", bytes.NewReader(pngImage(t, 40, 40)))
	require.NoError(t, err)

	u, err := f.svc.Resolve(ctx, 1, 96)
	require.NoError(t, err)
	assert.Equal(t, full, u)
}

func TestResolve_BaseURLAndHTTPS(t *testing.T) {
	f := setup(t, Config{BaseURL: "http://members.example.com/", ForceHTTPS: true})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, 1, "a.png", bytes.NewReader(pngImage(t, 10, 10)))
	require.NoError(t, err)

	u, err := f.svc.Resolve(ctx, 1, 32)
	require.NoError(t, err)
	assert.Equal(t, "https://members.example.com/uploads/ann-smith_avatar.png", u)
}

func TestResolve_MigratesLegacyAttachment(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	att, err := f.lib.Store(ctx, bytes.NewReader(pngImage(t, 10, 10)), "legacy.png", 1)
	require.NoError(t, err)
	require.NoError(t, f.meta.SetMeta(ctx, 1, core.LegacyAvatarMetaKey, "1"))
	require.Equal(t, int64(1), att.ID)

	u, err := f.svc.Resolve(ctx, 1, 96)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/legacy.png", u)

	rec, err := core.LoadAvatarRecord(ctx, f.meta, 1)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/legacy.png", rec.Full())
}

func TestResolve_NoAvatar(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, 2, 96)
	assert.ErrorIs(t, err, ErrNoAvatar)

	require.NoError(t, f.meta.SetMeta(ctx, 2, core.LegacyAvatarMetaKey, "404"))
	_, err = f.svc.Resolve(ctx, 2, 96)
	assert.ErrorIs(t, err, ErrNoAvatar)
}

func TestPurge(t *testing.T) {
	f := setup(t, Config{})
	ctx := context.Background()
	require.NoError(t, f.svc.SetUploadRestricted(ctx, false))

	for _, id := range []int64{1, 2} {
		_, err := f.svc.Upload(ctx, id, "a.png", bytes.NewReader(pngImage(t, 10, 10)))
		require.NoError(t, err)
	}

	n, err := f.svc.Purge(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	entries, _ := os.ReadDir(f.lib.Dir())
	assert.Empty(t, entries)
	_, ok := f.options[OptionUploadRestricted]
	assert.False(t, ok, "setting is removed")
}

func TestAvatarBaseName(t *testing.T) {
	assert.Equal(t, "ivan_avatar", avatarBaseName(&core.User{DisplayName: "IVAN"}))
	assert.Equal(t, "ann_avatar", avatarBaseName(&core.User{Login: "ann"}))
	assert.Equal(t, "user5_avatar", avatarBaseName(&core.User{ID: 5, DisplayName: "?"}))
}

func TestCenterSquare(t *testing.T) {
	assert.Equal(t, image.Rect(50, 0, 150, 100), centerSquare(image.Rect(0, 0, 200, 100)))
	assert.Equal(t, image.Rect(0, 25, 50, 75), centerSquare(image.Rect(0, 0, 50, 100)))
}
