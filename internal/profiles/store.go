package profiles

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/autofill/internal/common"
	"github.com/dmitrijs2005/autofill/internal/cryptox"
	"github.com/dmitrijs2005/autofill/internal/models"
	"github.com/dmitrijs2005/autofill/internal/repositories/storage"
	"github.com/oklog/ulid/v2"
)

// Storage keys.
const (
	KeyProfiles    = "profiles"
	KeyLastProfile = "lastProfile"
)

// RecordedPrefix starts the name of every profile captured in record mode.
const RecordedPrefix = "Recorded_"

var (
	ErrNoProfile    = fmt.Errorf("profile %w", common.ErrorNotFound)
	ErrInvalidKey   = errors.New("invalid encryption key")
	ErrEmptyName    = fmt.Errorf("%w: profile name is empty", common.ErrorValidation)
	ErrEmptyProfile = fmt.Errorf("%w: profile has no field values", common.ErrorValidation)
	ErrInvalidFile  = fmt.Errorf("%w: invalid profile file", common.ErrorValidation)
)

type Store interface {
	Mapping(ctx context.Context) (models.Mapping, error)
	Names(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (models.Record, error)
	Save(ctx context.Context, name string, fields models.FieldSet, passphrase string) (string, error)
	Delete(ctx context.Context, name string) error
	Resolve(ctx context.Context, name, passphrase string) (models.FieldSet, error)
	LastProfile(ctx context.Context) (string, error)
	SetLastProfile(ctx context.Context, name string) error
	Record(ctx context.Context, fields models.FieldSet, at time.Time) (string, error)
	Import(ctx context.Context, r io.Reader) (int, error)
	Export(ctx context.Context, w io.Writer) error
}

type store struct {
	area storage.Area

	entropyMu sync.Mutex
	entropy   io.Reader
}

// NewStore returns a Store over area. Pass a storage.Guarded area so every
// call observes the extension runtime lifecycle.
func NewStore(area storage.Area) Store {
	return &store{area: area, entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (s *store) Mapping(ctx context.Context) (models.Mapping, error) {
	vals, err := s.area.Get(ctx, KeyProfiles)
	if err != nil {
		return nil, err
	}
	return decodeMapping(vals[KeyProfiles])
}

func decodeMapping(raw []byte) (models.Mapping, error) {
	m := models.Mapping{}
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	if m == nil {
		m = models.Mapping{}
	}
	return m, nil
}

func encodeMapping(m models.Mapping) ([]byte, error) {
	if m == nil {
		m = models.Mapping{}
	}
	return json.Marshal(m)
}

func (s *store) Names(ctx context.Context) ([]string, error) {
	m, err := s.Mapping(ctx)
	if err != nil {
		return nil, err
	}
	return SortedNames(m), nil
}

// SortedNames returns the keys of m in ascending order.
func SortedNames(m models.Mapping) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s *store) Get(ctx context.Context, name string) (models.Record, error) {
	m, err := s.Mapping(ctx)
	if err != nil {
		return models.Record{}, err
	}
	rec, ok := m[name]
	if !ok {
		return models.Record{}, ErrNoProfile
	}
	return rec, nil
}

// Save stores fields under the trimmed name, encrypting them when passphrase
// is not empty, and points lastProfile at it. It returns the stored name.
func (s *store) Save(ctx context.Context, name string, fields models.FieldSet, passphrase string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if fields.IsEmpty() {
		return "", ErrEmptyProfile
	}

	rec := models.PlainRecord(fields)
	if passphrase != "" {
		c, err := cryptox.Encrypt(fields, passphrase)
		if err != nil {
			return "", fmt.Errorf("encryption error: %w", err)
		}
		rec = models.CipherRecord(c)
	}

	m, err := s.Mapping(ctx)
	if err != nil {
		return "", err
	}
	m[name] = rec

	raw, err := encodeMapping(m)
	if err != nil {
		return "", err
	}
	last, err := json.Marshal(name)
	if err != nil {
		return "", err
	}
	if err := s.area.Set(ctx, map[string][]byte{KeyProfiles: raw, KeyLastProfile: last}); err != nil {
		return "", err
	}
	return name, nil
}

// Delete removes name and clears lastProfile when it referenced name.
// Deleting a missing profile is not an error.
func (s *store) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}

	vals, err := s.area.Get(ctx, KeyProfiles, KeyLastProfile)
	if err != nil {
		return err
	}
	m, err := decodeMapping(vals[KeyProfiles])
	if err != nil {
		return err
	}
	delete(m, name)

	raw, err := encodeMapping(m)
	if err != nil {
		return err
	}
	if err := s.area.Set(ctx, map[string][]byte{KeyProfiles: raw}); err != nil {
		return err
	}
	if decodeString(vals[KeyLastProfile]) == name {
		return s.area.Remove(ctx, KeyLastProfile)
	}
	return nil
}

// Resolve loads name and opens it with passphrase.
func (s *store) Resolve(ctx context.Context, name, passphrase string) (models.FieldSet, error) {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return models.FieldSet{}, err
	}
	return Decrypt(rec, passphrase)
}

// Decrypt returns the field set held by rec. Plain records come back as
// stored whatever the passphrase. Ciphertext needs the passphrase it was
// sealed with; anything else yields ErrInvalidKey.
func Decrypt(rec models.Record, passphrase string) (models.FieldSet, error) {
	if !rec.Encrypted() {
		return *rec.Plain, nil
	}
	if passphrase == "" {
		return models.FieldSet{}, ErrInvalidKey
	}
	var fs models.FieldSet
	if err := cryptox.Decrypt(rec.Cipher, passphrase, &fs); err != nil {
		return models.FieldSet{}, ErrInvalidKey
	}
	return fs, nil
}

func (s *store) LastProfile(ctx context.Context) (string, error) {
	vals, err := s.area.Get(ctx, KeyLastProfile)
	if err != nil {
		return "", err
	}
	return decodeString(vals[KeyLastProfile]), nil
}

func decodeString(raw []byte) string {
	var v string
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	return v
}

// SetLastProfile stores the pointer without checking that name exists.
func (s *store) SetLastProfile(ctx context.Context, name string) error {
	b, err := json.Marshal(name)
	if err != nil {
		return err
	}
	return s.area.Set(ctx, map[string][]byte{KeyLastProfile: b})
}

// Record persists fields captured from a submitted form under a fresh name
// derived from the capture time.
func (s *store) Record(ctx context.Context, fields models.FieldSet, at time.Time) (string, error) {
	m, err := s.Mapping(ctx)
	if err != nil {
		return "", err
	}

	name := s.recordName(at)
	for _, taken := m[name]; taken; _, taken = m[name] {
		name = s.recordName(at)
	}
	m[name] = models.PlainRecord(fields)

	raw, err := encodeMapping(m)
	if err != nil {
		return "", err
	}
	if err := s.area.Set(ctx, map[string][]byte{KeyProfiles: raw}); err != nil {
		return "", err
	}
	return name, nil
}

func (s *store) recordName(at time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return RecordedPrefix + ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

// Import replaces the whole mapping with the JSON object read from r and
// returns the number of profiles it holds. Nothing is merged.
func (s *store) Import(ctx context.Context, r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	var m models.Mapping
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return 0, ErrInvalidFile
	}

	raw, err := encodeMapping(m)
	if err != nil {
		return 0, err
	}
	if err := s.area.Set(ctx, map[string][]byte{KeyProfiles: raw}); err != nil {
		return 0, err
	}
	return len(m), nil
}

// Export writes the mapping as indented JSON.
func (s *store) Export(ctx context.Context, w io.Writer) error {
	m, err := s.Mapping(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
