package export

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

const (
	manifestName = "manifest.yaml"
	ngosName     = "ngos.json"
	eventsName   = "events.json"

	maxEntrySize = 64 << 20
)

// Source reads the public catalogue.
type Source interface {
	ListNGOs(ctx context.Context, ownerID *uuid.UUID) ([]models.NGO, error)
	EventsByNGO(ctx context.Context, ngoID uuid.UUID) ([]store.EventSummary, error)
}

// BuildConfig controls catalogue export.
type BuildConfig struct {
	Source Source
	Output string
	Signer *Signer
	Now    func() time.Time
	Stdout io.Writer
}

// NGO is the public view of an organization. Owner ids stay private.
type NGO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	WebsiteURL   string    `json:"website_url,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type file struct {
	name string
	data []byte
}

// Build writes a signed catalogue bundle to cfg.Output.
func Build(ctx context.Context, cfg BuildConfig) (*Manifest, error) {
	if cfg.Source == nil {
		return nil, errors.New("source is required")
	}
	if cfg.Output == "" {
		return nil, errors.New("output path is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("signer is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	ngos, events, err := collect(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}

	ngosJSON, err := json.MarshalIndent(ngos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode ngos: %w", err)
	}
	eventsJSON, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode events: %w", err)
	}
	files := []file{{name: ngosName, data: ngosJSON}, {name: eventsName, data: eventsJSON}}

	manifest := Manifest{
		Version:          manifestVersion,
		CreatedAt:        now().UTC().Truncate(time.Second),
		Signer:           cfg.Signer.Recipient(),
		SigningPublicKey: cfg.Signer.PublicKeyBase64(),
		NGOs:             len(ngos),
		Events:           len(events),
	}
	for _, f := range files {
		manifest.Entries = append(manifest.Entries, entryFor(f))
	}

	payload, err := manifest.SigningBytes()
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if manifest.Signature, err = cfg.Signer.Sign(payload); err != nil {
		return nil, fmt.Errorf("sign manifest: %w", err)
	}
	manifestYAML, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	out, err := os.Create(cfg.Output)
	if err != nil {
		return nil, fmt.Errorf("create bundle: %w", err)
	}
	if err := writeBundle(out, manifestYAML, files); err != nil {
		out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close bundle: %w", err)
	}

	if cfg.Stdout != nil {
		fmt.Fprintf(cfg.Stdout, "exported %d ngos and %d events to %s\n", manifest.NGOs, manifest.Events, cfg.Output)
	}
	return &manifest, nil
}

// Verify checks every entry of the bundle at path against its manifest and
// the manifest signature against signer.
func Verify(ctx context.Context, path string, signer *Signer) (*Manifest, error) {
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer f.Close()

	manifestYAML, files, err := readBundle(ctx, f)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(manifestYAML, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %q", manifest.Version)
	}

	payload, err := manifest.SigningBytes()
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := signer.Verify(payload, manifest.Signature, manifest.SigningPublicKey); err != nil {
		return nil, err
	}

	listed := make(map[string]struct{}, len(manifest.Entries))
	for _, entry := range manifest.Entries {
		listed[entry.Path] = struct{}{}
		data, ok := files[entry.Path]
		if !ok {
			return nil, fmt.Errorf("%s: missing from bundle", entry.Path)
		}
		if err := validateEntry(entry, data); err != nil {
			return nil, err
		}
	}
	for name := range files {
		if _, ok := listed[name]; !ok {
			return nil, fmt.Errorf("%s: not listed in manifest", name)
		}
	}
	return &manifest, nil
}

func collect(ctx context.Context, src Source) ([]NGO, []store.EventSummary, error) {
	rows, err := src.ListNGOs(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("list ngos: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	ngos := make([]NGO, 0, len(rows))
	events := []store.EventSummary{}
	for _, n := range rows {
		ngos = append(ngos, NGO{
			ID:           n.ID,
			Name:         n.Name,
			Description:  n.Description,
			WebsiteURL:   n.WebsiteURL,
			ContactEmail: n.ContactEmail,
			ContactPhone: n.ContactPhone,
			LogoURL:      n.LogoURL,
			CreatedAt:    n.CreatedAt,
		})
		evs, err := src.EventsByNGO(ctx, n.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("list events for %s: %w", n.ID, err)
		}
		events = append(events, evs...)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].EventDate.Before(events[j].EventDate) })
	return ngos, events, nil
}

func entryFor(f file) Entry {
	sum := sha256.Sum256(f.data)
	return Entry{Path: f.name, Size: int64(len(f.data)), SHA256: hex.EncodeToString(sum[:])}
}

func validateEntry(entry Entry, data []byte) error {
	if int64(len(data)) != entry.Size {
		return fmt.Errorf("%s: size mismatch (expected %d, got %d)", entry.Path, entry.Size, len(data))
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != entry.SHA256 {
		return fmt.Errorf("%s: sha256 mismatch", entry.Path)
	}
	return nil
}

func writeBundle(w io.Writer, manifest []byte, files []file) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	write := func(name string, data []byte) error {
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %s: %w", name, err)
		}
		if _, err := tw.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}

	if err := write(manifestName, manifest); err != nil {
		zw.Close()
		return err
	}
	for _, f := range files {
		if err := write(f.name, f.data); err != nil {
			zw.Close()
			return err
		}
	}
	if err := tw.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("close tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zstd: %w", err)
	}
	return nil
}

func readBundle(ctx context.Context, r io.Reader) ([]byte, map[string][]byte, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open zstd: %w", err)
	}
	defer zr.Close()

	var manifest []byte
	files := map[string][]byte{}
	tr := tar.NewReader(zr)
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if hdr.Size > maxEntrySize {
			return nil, nil, fmt.Errorf("%s: entry too large", hdr.Name)
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, io.LimitReader(tr, maxEntrySize)); err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		if hdr.Name == manifestName {
			manifest = buf.Bytes()
			continue
		}
		files[hdr.Name] = buf.Bytes()
	}
	if manifest == nil {
		return nil, nil, errors.New("bundle has no manifest")
	}
	return manifest, files, nil
}
