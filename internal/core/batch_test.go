package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func csvFile(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestImportBatch_EndToEndCreate(t *testing.T) {
	im, users, _ := testImporter(nil, nil)

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login;user_role;user_name",
		"a@example.com;;editor;Ann",
	))

	if sum.Imported != 1 || sum.Updated != 0 || sum.ErrorCount() != 0 {
		t.Fatalf("summary = %+v, want 1 imported and no errors", sum)
	}
	u := users.byLogin("ann")
	if u == nil {
		t.Fatal("expected user with login \"ann\"")
	}
	if u.Role != RoleEditor {
		t.Errorf("Role = %q, want editor", u.Role)
	}
	if u.DisplayName != "Ann" {
		t.Errorf("DisplayName = %q, want Ann", u.DisplayName)
	}
	if u.Nickname != "ann" {
		t.Errorf("Nickname = %q, want ann", u.Nickname)
	}
	if !strings.HasPrefix(u.PasswordHash, "$2") {
		t.Errorf("PasswordHash = %q, want a bcrypt hash", u.PasswordHash)
	}
}

func TestImportBatch_ExistingFieldsNeverOverwritten(t *testing.T) {
	im, users, _ := testImporter(nil, nil)
	users.add(User{Login: "ann", Email: "ann@example.com", FirstName: "Ann", DisplayName: "Ann"})

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_name;user_last_name",
		"ANN@example.com;Anna;Smith",
	))

	if sum.Imported != 0 {
		t.Errorf("Imported = %d, want 0", sum.Imported)
	}
	if sum.Updated != 1 {
		t.Errorf("Updated = %d, want 1", sum.Updated)
	}
	u := users.byLogin("ann")
	if u.FirstName != "Ann" {
		t.Errorf("FirstName = %q, want Ann", u.FirstName)
	}
	if u.LastName != "Smith" {
		t.Errorf("LastName = %q, want Smith", u.LastName)
	}
	if u.DisplayName != "Ann Smith" {
		t.Errorf("DisplayName = %q, want \"Ann Smith\"", u.DisplayName)
	}
	if u.Nickname != "anna-smith" {
		t.Errorf("Nickname = %q, want generated anna-smith", u.Nickname)
	}
}

func TestImportBatch_SkippedWhenNothingChanges(t *testing.T) {
	im, users, _ := testImporter(nil, nil)
	users.add(User{Login: "ann", Email: "ann@example.com", FirstName: "Ann", Nickname: "ann"})

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_name",
		"ann@example.com;Anna",
	))

	if sum.Skipped != 1 || sum.Updated != 0 {
		t.Errorf("summary = %+v, want 1 skipped", sum)
	}
	if users.updates != 0 {
		t.Errorf("store updates = %d, want 0", users.updates)
	}
}

func TestImportBatch_LoginSuffixes(t *testing.T) {
	im, users, _ := testImporter(nil, nil)

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login;user_name;user_last_name",
		"one@example.com;;Иван;Петров",
		"two@example.com;;Иван;Петров",
		"three@example.com;;Иван;Петров",
	))

	if sum.Imported != 3 {
		t.Fatalf("Imported = %d, want 3 (errors: %v)", sum.Imported, sum.Errors)
	}
	for _, login := range []string{"ivan-petrov", "ivan-petrov1", "ivan-petrov2"} {
		if users.byLogin(login) == nil {
			t.Errorf("missing login %q", login)
		}
	}
}

func TestImportBatch_ProvidedLoginIsSanitized(t *testing.T) {
	im, users, _ := testImporter(nil, nil)
	users.add(User{Login: "ann", Email: "other@example.com"})

	im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login",
		"ann@example.com;<b>ann</b>",
	))

	if users.byLogin("ann1") == nil {
		t.Error("expected sanitized login with suffix ann1")
	}
}

func TestImportBatch_DescriptionTruncated(t *testing.T) {
	im, users, _ := testImporter(nil, nil)
	desc := strings.Repeat("x", 300)

	im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login;user_description",
		"ann@example.com;ann;"+desc,
	))

	u := users.byLogin("ann")
	if u == nil {
		t.Fatal("user not created")
	}
	if u.Description != desc[:250] {
		t.Errorf("Description length = %d, want 250", len(u.Description))
	}
}

func TestImportBatch_MalformedRowDoesNotStopBatch(t *testing.T) {
	im, users, _ := testImporter(nil, nil)

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_name",
		"bad@example.com;Bad;extra",
		"good@example.com;Good",
	))

	if sum.ErrorCount() != 1 {
		t.Fatalf("errors = %v, want exactly one", sum.Errors)
	}
	if sum.Errors[0] != "Row 2: Could not parse data" {
		t.Errorf("error = %q", sum.Errors[0])
	}
	if sum.Imported != 1 {
		t.Errorf("Imported = %d, want 1", sum.Imported)
	}
	if users.count() != 1 || users.byLogin("good") == nil {
		t.Error("only the valid row should create a user")
	}
}

func TestImportBatch_InvalidEmail(t *testing.T) {
	im, users, meta := testImporter(nil, nil)

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_name;user_twitter",
		"not-an-email;Ann;https://twitter.com/ann",
		";Bob;",
	))

	want := []string{
		"Row 2: Invalid or missing email address",
		"Row 3: Invalid or missing email address",
	}
	if len(sum.Errors) != len(want) {
		t.Fatalf("errors = %v, want %v", sum.Errors, want)
	}
	for i := range want {
		if sum.Errors[i] != want[i] {
			t.Errorf("Errors[%d] = %q, want %q", i, sum.Errors[i], want[i])
		}
	}
	if users.count() != 0 || meta.writes != 0 {
		t.Error("invalid rows must not touch the store")
	}
}

func TestImportBatch_HeaderFailure(t *testing.T) {
	im, _, _ := testImporter(nil, nil)

	sum := im.ImportBatch(context.Background(), strings.NewReader(""))

	if len(sum.Errors) != 1 || sum.Errors[0] != MsgNoHeader {
		t.Errorf("errors = %v, want [%q]", sum.Errors, MsgNoHeader)
	}
	if sum.Processed() != 0 {
		t.Errorf("Processed = %d, want 0", sum.Processed())
	}
}

func TestImportFile_CannotOpen(t *testing.T) {
	im, _, _ := testImporter(nil, nil)

	sum := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))

	if len(sum.Errors) != 1 || sum.Errors[0] != MsgCannotOpen {
		t.Errorf("errors = %v, want [%q]", sum.Errors, MsgCannotOpen)
	}
}

func TestImportFile_BOMAndCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.csv")
	data := "\xEF\xBB\xBFUser_Email;user_name\r\nann@example.com;Ann\r\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	im, users, _ := testImporter(nil, nil)

	sum := im.ImportFile(context.Background(), path)

	if sum.Imported != 1 {
		t.Fatalf("summary = %+v, want 1 imported", sum)
	}
	if users.byLogin("ann") == nil {
		t.Error("BOM must not break the email column")
	}
}

func TestImportBatch_RowNumbersCountRecords(t *testing.T) {
	im, _, _ := testImporter(nil, nil)

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_description",
		`ok@example.com;"two`,
		`lines"`,
		"not-an-email;x",
	))

	if len(sum.Errors) != 1 || sum.Errors[0] != "Row 3: Invalid or missing email address" {
		t.Errorf("errors = %v", sum.Errors)
	}
}

func TestImportBatch_AvatarIgnoredWithoutSideloader(t *testing.T) {
	im, users, _ := testImporter(nil, nil)
	users.add(User{Login: "bob", Email: "bob@example.com", Nickname: "bob"})

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login;user_profile_picture",
		"ann@example.com;ann;https://cdn.example.com/ann.png",
		"bob@example.com;bob;https://cdn.example.com/bob.png",
	))

	if sum.Imported != 1 || sum.ErrorCount() != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", sum.Warnings)
	}
}

func TestImportBatch_LongLoginCapped(t *testing.T) {
	im, users, _ := testImporter(nil, nil)
	long := strings.Repeat("a", 80)
	users.add(User{Login: strings.Repeat("a", MaxLoginLength), Email: "first@example.com"})

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login",
		"ann@example.com;"+long,
	))

	if sum.Imported != 1 || sum.ErrorCount() != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	u, _ := users.FindByEmail(context.Background(), "ann@example.com")
	want := strings.Repeat("a", MaxLoginLength-1) + "1"
	if u == nil || u.Login != want {
		t.Errorf("login = %v, want %q", u, want)
	}
}

func TestImportBatch_StoreRejectionSurfacedVerbatim(t *testing.T) {
	im, users, _ := testImporter(nil, nil)
	users.createErr = errors.New("email domain is blocked")

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email",
		"ann@example.com",
	))

	if len(sum.Errors) != 1 || sum.Errors[0] != "Row 2: email domain is blocked" {
		t.Errorf("errors = %v", sum.Errors)
	}
}

func TestImportBatch_SocialOnlyIfEmptyOnUpdate(t *testing.T) {
	im, users, meta := testImporter(nil, nil)
	u := users.add(User{Login: "ann", Email: "ann@example.com", FirstName: "Ann", Nickname: "ann"})
	_ = meta.SetMeta(context.Background(), u.ID, "twitter", "https://twitter.com/original")
	meta.writes = 0

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_twitter;user_telegram",
		"ann@example.com;https://twitter.com/new;https://t.me/ann",
	))

	if got := meta.get(u.ID, "twitter"); got != "https://twitter.com/original" {
		t.Errorf("twitter = %q, want original value", got)
	}
	if got := meta.get(u.ID, "telegram"); got != "https://t.me/ann" {
		t.Errorf("telegram = %q, want new value", got)
	}
	if sum.Updated != 1 {
		t.Errorf("Updated = %d, want 1", sum.Updated)
	}
}

func TestImportBatch_SocialOverwrittenOnCreate(t *testing.T) {
	im, users, meta := testImporter(nil, nil)

	im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login;user_facebook;user_pinterest",
		"ann@example.com;ann;facebook.com/ann;",
	))

	u := users.byLogin("ann")
	if u == nil {
		t.Fatal("user not created")
	}
	if got := meta.get(u.ID, "facebook"); got != "http://facebook.com/ann" {
		t.Errorf("facebook = %q", got)
	}
	if got := meta.get(u.ID, "pinterest"); got != "" {
		t.Errorf("pinterest = %q, want unset", got)
	}
}

func TestImportBatch_AvatarSideloaded(t *testing.T) {
	fetcher := &fileFetcher{dir: t.TempDir()}
	lib := &stubLibrary{}
	im, users, meta := testImporter(fetcher, lib)

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login;user_profile_picture",
		"ann@example.com;ann;https://cdn.example.com/pics/ann.png?x=1",
	))

	if len(sum.Warnings) != 0 {
		t.Fatalf("warnings = %v", sum.Warnings)
	}
	u := users.byLogin("ann")
	rec, err := LoadAvatarRecord(context.Background(), meta, u.ID)
	if err != nil {
		t.Fatalf("LoadAvatarRecord() error = %v", err)
	}
	if rec.Full() != "/uploads/ann.png" {
		t.Errorf("full = %q, want /uploads/ann.png", rec.Full())
	}
}

func TestImportBatch_AvatarFailureIsWarning(t *testing.T) {
	fetcher := &fileFetcher{dir: t.TempDir()}
	lib := &stubLibrary{err: errors.New("disk full")}
	im, _, _ := testImporter(fetcher, lib)

	sum := im.ImportBatch(context.Background(), csvFile(
		"user_email;user_login;user_profile_picture",
		"ann@example.com;ann;https://cdn.example.com/ann.png",
	))

	if sum.Imported != 1 || sum.ErrorCount() != 0 {
		t.Errorf("summary = %+v, avatar failure must not fail the row", sum)
	}
	if len(sum.Warnings) != 1 || !strings.HasPrefix(sum.Warnings[0], "Row 2: avatar:") {
		t.Errorf("warnings = %v", sum.Warnings)
	}
	for _, p := range fetcher.paths {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("temp file %s was not removed", p)
		}
	}
}

func TestImportBatch_AvatarOnlyWhenMissingOnUpdate(t *testing.T) {
	fetcher := &fileFetcher{dir: t.TempDir()}
	lib := &stubLibrary{}
	im, users, meta := testImporter(fetcher, lib)
	ctx := context.Background()

	u := users.add(User{Login: "ann", Email: "ann@example.com", FirstName: "Ann", Nickname: "ann"})
	if err := SaveAvatarRecord(ctx, meta, u.ID, AvatarRecord{SizeFull: "/uploads/old.png"}); err != nil {
		t.Fatal(err)
	}

	sum := im.ImportBatch(ctx, csvFile(
		"user_email;user_profile_picture",
		"ann@example.com;https://cdn.example.com/new.png",
	))

	if sum.Skipped != 1 {
		t.Errorf("summary = %+v, want skipped", sum)
	}
	if len(fetcher.paths) != 0 {
		t.Error("existing avatar must not be replaced")
	}

	v := users.add(User{Login: "bob", Email: "bob@example.com", FirstName: "Bob", Nickname: "bob"})
	sum = im.ImportBatch(ctx, csvFile(
		"user_email;user_profile_picture",
		"bob@example.com;https://cdn.example.com/bob.png",
	))
	if sum.Updated != 1 {
		t.Errorf("summary = %+v, storing an avatar should count as updated", sum)
	}
	if rec, _ := LoadAvatarRecord(ctx, meta, v.ID); rec.Full() != "/uploads/bob.png" {
		t.Errorf("bob avatar = %v", rec)
	}
}
