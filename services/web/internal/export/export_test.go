package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volunteerverse/services/web/internal/testutil"
)

var exportedAt = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func testSigner(t *testing.T) *Signer {
	t.Helper()
	secret, public, err := GenerateKey()
	require.NoError(t, err)
	s, err := NewSigner(secret, public)
	require.NoError(t, err)
	return s
}

func seededStore(t *testing.T) *testutil.MemStore {
	t.Helper()
	mem := testutil.NewMemStore()
	owner := mem.AddUser(t, "org@example.org", "correct horse", "ngo", true)
	other := mem.AddUser(t, "other@example.org", "correct horse", "ngo", true)
	river := mem.AddNGO(t, owner.ID, "River Keepers")
	food := mem.AddNGO(t, other.ID, "Food Bank")
	mem.AddEvent(t, river.ID, "River cleanup", exportedAt.AddDate(0, 0, 14))
	mem.AddEvent(t, food.ID, "Pantry shift", exportedAt.AddDate(0, 0, 7))
	mem.AddEvent(t, river.ID, "Tree planting", exportedAt.AddDate(0, 1, 0))
	return mem
}

func buildBundle(t *testing.T, signer *Signer) (string, *Manifest) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "nested", "catalogue.tar.zst")
	var stdout bytes.Buffer
	manifest, err := Build(context.Background(), BuildConfig{
		Source: seededStore(t),
		Output: out,
		Signer: signer,
		Now:    func() time.Time { return exportedAt },
		Stdout: &stdout,
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "exported 2 ngos and 3 events")
	return out, manifest
}

func TestBuildAndVerify(t *testing.T) {
	signer := testSigner(t)
	out, built := buildBundle(t, signer)

	assert.Equal(t, manifestVersion, built.Version)
	assert.Equal(t, exportedAt, built.CreatedAt)
	assert.Equal(t, 2, built.NGOs)
	assert.Equal(t, 3, built.Events)
	assert.Equal(t, signer.PublicKeyBase64(), built.SigningPublicKey)
	assert.Contains(t, built.Signer, "age1")
	require.Len(t, built.Entries, 2)
	assert.Equal(t, ngosName, built.Entries[0].Path)
	assert.Equal(t, eventsName, built.Entries[1].Path)

	verified, err := Verify(context.Background(), out, signer)
	require.NoError(t, err)
	assert.Equal(t, built.Signature, verified.Signature)
	assert.Equal(t, built.Entries, verified.Entries)
}

func TestBundleContents(t *testing.T) {
	out, _ := buildBundle(t, testSigner(t))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	_, files, err := readBundle(context.Background(), f)
	require.NoError(t, err)

	var ngos []map[string]any
	require.NoError(t, json.Unmarshal(files[ngosName], &ngos))
	require.Len(t, ngos, 2)
	assert.Equal(t, "Food Bank", ngos[0]["name"])
	assert.Equal(t, "River Keepers", ngos[1]["name"])
	assert.NotContains(t, ngos[0], "user_id")

	var events []struct {
		Title   string `json:"title"`
		NGOName string `json:"ngo_name"`
	}
	require.NoError(t, json.Unmarshal(files[eventsName], &events))
	require.Len(t, events, 3)
	assert.Equal(t, "Pantry shift", events[0].Title)
	assert.Equal(t, "Food Bank", events[0].NGOName)
	assert.Equal(t, "Tree planting", events[2].Title)
}

func TestVerifyRejectsTamperedEntry(t *testing.T) {
	signer := testSigner(t)
	out, _ := buildBundle(t, signer)

	rewrite(t, out, func(files map[string][]byte) {
		files[eventsName] = []byte("[]")
	})

	_, err := Verify(context.Background(), out, signer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.json: size mismatch")
}

func TestVerifyRejectsExtraEntry(t *testing.T) {
	signer := testSigner(t)
	out, _ := buildBundle(t, signer)

	rewrite(t, out, func(files map[string][]byte) {
		files["volunteers.json"] = []byte("[]")
	})

	_, err := Verify(context.Background(), out, signer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not listed in manifest")
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	out, _ := buildBundle(t, testSigner(t))

	_, err := Verify(context.Background(), out, testSigner(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected key")
}

func TestVerifyWithPublicKeyOnly(t *testing.T) {
	signer := testSigner(t)
	out, _ := buildBundle(t, signer)

	verifier, err := NewSigner("", signer.PublicKeyBase64())
	require.NoError(t, err)

	_, err = Verify(context.Background(), out, verifier)
	require.NoError(t, err)

	_, err = verifier.Sign([]byte("payload"))
	assert.EqualError(t, err, "signer has no signing key")
}

func TestBuildRequiresInputs(t *testing.T) {
	signer := testSigner(t)
	out := filepath.Join(t.TempDir(), "catalogue.tar.zst")

	_, err := Build(context.Background(), BuildConfig{Output: out, Signer: signer})
	assert.EqualError(t, err, "source is required")

	_, err = Build(context.Background(), BuildConfig{Source: testutil.NewMemStore(), Signer: signer})
	assert.EqualError(t, err, "output path is required")

	_, err = Build(context.Background(), BuildConfig{Source: testutil.NewMemStore(), Output: out})
	assert.EqualError(t, err, "signer is required")
}

func TestBuildStoreFailure(t *testing.T) {
	mem := testutil.NewMemStore()
	mem.SetFail(errors.New("connection refused"))

	_, err := Build(context.Background(), BuildConfig{
		Source: mem,
		Output: filepath.Join(t.TempDir(), "catalogue.tar.zst"),
		Signer: testSigner(t),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list ngos")
}

func TestNewSigner(t *testing.T) {
	secret, public, err := GenerateKey()
	require.NoError(t, err)

	_, err = NewSigner("", "")
	assert.Error(t, err)

	_, err = NewSigner("AGE-SECRET-KEY-NOTVALID", "")
	assert.Error(t, err)

	_, otherPublic, err := GenerateKey()
	require.NoError(t, err)
	_, err = NewSigner(secret, otherPublic)
	assert.EqualError(t, err, "public key does not match signing key")

	s, err := NewSigner(secret, "")
	require.NoError(t, err)
	assert.Equal(t, public, s.PublicKeyBase64())

	sig, err := s.Sign([]byte("payload"))
	require.NoError(t, err)
	assert.NoError(t, s.Verify([]byte("payload"), sig, ""))
	assert.EqualError(t, s.Verify([]byte("other"), sig, ""), "signature verification failed")
}

func TestCollectEmptyCatalogue(t *testing.T) {
	ngos, events, err := collect(context.Background(), testutil.NewMemStore())
	require.NoError(t, err)
	assert.Empty(t, ngos)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func rewrite(t *testing.T, path string, mutate func(map[string][]byte)) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	manifest, files, err := readBundle(context.Background(), f)
	f.Close()
	require.NoError(t, err)

	mutate(files)
	ordered := []file{}
	for _, name := range []string{ngosName, eventsName} {
		if data, ok := files[name]; ok {
			ordered = append(ordered, file{name: name, data: data})
			delete(files, name)
		}
	}
	for name, data := range files {
		ordered = append(ordered, file{name: name, data: data})
	}

	var buf bytes.Buffer
	require.NoError(t, writeBundle(&buf, manifest, ordered))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}
