package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"volunteerverse/services/web/internal/models"
	"volunteerverse/services/web/internal/store"
)

// MemStore is an in-memory stand-in for store.Store. Every method honours the
// same sentinel errors as the Postgres implementation. Fail, when set, is
// returned by every call.
type MemStore struct {
	mu sync.Mutex

	Fail error

	Accounts     map[uuid.UUID]models.Account
	Sessions     map[uuid.UUID]models.Session
	Volunteers   map[uuid.UUID]models.VolunteerUser
	Users        map[uuid.UUID]models.User
	NGOs         map[uuid.UUID]models.NGO
	Events       map[uuid.UUID]models.Event
	Applications map[uuid.UUID]models.VolunteerApplication
	Hours        map[uuid.UUID]models.VolunteerHours
	Audit        []models.AuditLog
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		Accounts:     map[uuid.UUID]models.Account{},
		Sessions:     map[uuid.UUID]models.Session{},
		Volunteers:   map[uuid.UUID]models.VolunteerUser{},
		Users:        map[uuid.UUID]models.User{},
		NGOs:         map[uuid.UUID]models.NGO{},
		Events:       map[uuid.UUID]models.Event{},
		Applications: map[uuid.UUID]models.VolunteerApplication{},
		Hours:        map[uuid.UUID]models.VolunteerHours{},
	}
}

// SetFail makes every subsequent call return err.
func (m *MemStore) SetFail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fail = err
}

func (m *MemStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Fail
}

func (m *MemStore) AccountByEmail(_ context.Context, email string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.Account{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range m.Accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return models.Account{}, store.ErrNotFound
}

func (m *MemStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for _, existing := range m.Sessions {
		if existing.RefreshTokenHash == s.RefreshTokenHash {
			return store.ErrConflict
		}
	}
	s.CreatedAt = time.Now().UTC()
	m.Sessions[s.ID] = *s
	return nil
}

func (m *MemStore) SessionByID(_ context.Context, id uuid.UUID) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.Session{}, err
	}
	s, ok := m.Sessions[id]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	return s, nil
}

func (m *MemStore) SessionByRefreshHash(_ context.Context, hash string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.Session{}, err
	}
	for _, s := range m.Sessions {
		if s.RefreshTokenHash == hash {
			return s, nil
		}
	}
	return models.Session{}, store.ErrNotFound
}

func (m *MemStore) RotateSession(_ context.Context, id uuid.UUID, hash string, expiresAt, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	s, ok := m.Sessions[id]
	if !ok || s.RevokedAt != nil {
		return store.ErrNotFound
	}
	s.RefreshTokenHash = hash
	s.ExpiresAt = expiresAt
	s.LastRefreshedAt = &at
	m.Sessions[id] = s
	return nil
}

func (m *MemStore) RevokeSession(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if s, ok := m.Sessions[id]; ok && s.RevokedAt == nil {
		s.RevokedAt = &at
		m.Sessions[id] = s
	}
	return nil
}

func (m *MemStore) RevokeAccountSessions(_ context.Context, accountID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	for id, s := range m.Sessions {
		if s.AccountID == accountID && s.RevokedAt == nil {
			s.RevokedAt = &at
			m.Sessions[id] = s
		}
	}
	return nil
}

func (m *MemStore) putAccount(a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	for _, existing := range m.Accounts {
		if existing.Email == a.Email {
			return store.ErrConflict
		}
	}
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.Accounts[a.ID] = *a
	return nil
}

func (m *MemStore) RegisterVolunteer(_ context.Context, a *models.Account, v *models.VolunteerUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if err := m.putAccount(a); err != nil {
		return err
	}
	v.ID = a.ID
	v.CreatedAt = time.Now().UTC()
	m.Volunteers[v.ID] = *v
	return nil
}

func (m *MemStore) RegisterUser(_ context.Context, a *models.Account, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if err := m.putAccount(a); err != nil {
		return err
	}
	u.ID = a.ID
	u.CreatedAt = time.Now().UTC()
	m.Users[u.ID] = *u
	return nil
}

func (m *MemStore) VolunteerByID(_ context.Context, id uuid.UUID) (models.VolunteerUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.VolunteerUser{}, err
	}
	v, ok := m.Volunteers[id]
	if !ok {
		return models.VolunteerUser{}, store.ErrNotFound
	}
	return v, nil
}

func (m *MemStore) ListVolunteers(context.Context) ([]models.VolunteerUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	out := make([]models.VolunteerUser, 0, len(m.Volunteers))
	for _, v := range m.Volunteers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemStore) UpdateVolunteer(_ context.Context, id uuid.UUID, patch store.Patch) (models.VolunteerUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.VolunteerUser{}, err
	}
	v, ok := m.Volunteers[id]
	if !ok {
		return models.VolunteerUser{}, store.ErrNotFound
	}
	for k, val := range patch {
		switch k {
		case "first_name":
			v.FirstName = val.(string)
		case "last_name":
			v.LastName = val.(string)
		case "phone":
			v.Phone = val.(string)
		case "university":
			v.University = val.(string)
		case "roll_number":
			v.RollNumber = val.(string)
		case "student_email":
			v.StudentEmail = val.(string)
		case "industry":
			v.Industry = val.(string)
		case "occupation":
			v.Occupation = val.(string)
		case "work_email":
			v.WorkEmail = val.(string)
		case "is_approved":
			v.IsApproved = val.(bool)
		}
	}
	v.UpdatedAt = time.Now().UTC()
	m.Volunteers[id] = v
	return v, nil
}

func (m *MemStore) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.User{}, err
	}
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *MemStore) ListUsers(_ context.Context, role string) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	out := []models.User{}
	for _, u := range m.Users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemStore) UpdateUser(_ context.Context, id uuid.UUID, patch store.Patch) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.User{}, err
	}
	u, ok := m.Users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	for k, val := range patch {
		switch k {
		case "first_name":
			u.FirstName = val.(string)
		case "last_name":
			u.LastName = val.(string)
		case "profile_image_url":
			u.ProfileImageURL = val.(string)
		case "is_approved":
			u.IsApproved = val.(bool)
		}
	}
	u.UpdatedAt = time.Now().UTC()
	m.Users[id] = u
	return u, nil
}

func (m *MemStore) DeleteUser(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if _, ok := m.Users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.Users, id)
	delete(m.Accounts, id)
	for sid, s := range m.Sessions {
		if s.AccountID == id {
			delete(m.Sessions, sid)
		}
	}
	return nil
}

func (m *MemStore) SetApproval(_ context.Context, id uuid.UUID, approved bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return "", err
	}
	if v, ok := m.Volunteers[id]; ok {
		v.IsApproved = approved
		m.Volunteers[id] = v
		return models.KindVolunteer, nil
	}
	if u, ok := m.Users[id]; ok {
		u.IsApproved = approved
		m.Users[id] = u
		return models.KindOrganization, nil
	}
	return "", store.ErrNotFound
}

func (m *MemStore) ListNGOs(_ context.Context, ownerID *uuid.UUID) ([]models.NGO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	out := []models.NGO{}
	for _, n := range m.NGOs {
		if ownerID == nil || n.UserID == *ownerID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemStore) NGOByID(_ context.Context, id uuid.UUID) (models.NGO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.NGO{}, err
	}
	n, ok := m.NGOs[id]
	if !ok {
		return models.NGO{}, store.ErrNotFound
	}
	return n, nil
}

func (m *MemStore) NGOByUserID(_ context.Context, userID uuid.UUID) (models.NGO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.NGO{}, err
	}
	var (
		found models.NGO
		ok    bool
	)
	for _, n := range m.NGOs {
		if n.UserID == userID && (!ok || n.CreatedAt.Before(found.CreatedAt)) {
			found, ok = n, true
		}
	}
	if !ok {
		return models.NGO{}, store.ErrNotFound
	}
	return found, nil
}

func (m *MemStore) CreateNGO(_ context.Context, n *models.NGO) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	for _, existing := range m.NGOs {
		if existing.UserID == n.UserID && existing.Name == n.Name {
			return store.ErrConflict
		}
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now().UTC()
	m.NGOs[n.ID] = *n
	return nil
}

func (m *MemStore) UpdateNGO(_ context.Context, id uuid.UUID, patch store.Patch) (models.NGO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.NGO{}, err
	}
	n, ok := m.NGOs[id]
	if !ok {
		return models.NGO{}, store.ErrNotFound
	}
	for k, val := range patch {
		s, _ := val.(string)
		switch k {
		case "name":
			n.Name = s
		case "description":
			n.Description = s
		case "website_url":
			n.WebsiteURL = s
		case "contact_email":
			n.ContactEmail = s
		case "contact_phone":
			n.ContactPhone = s
		case "logo_url":
			n.LogoURL = s
		}
	}
	m.NGOs[id] = n
	return n, nil
}

func (m *MemStore) DeleteNGO(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if _, ok := m.NGOs[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.NGOs, id)
	for eid, e := range m.Events {
		if e.NGOID == id {
			delete(m.Events, eid)
		}
	}
	return nil
}

func (m *MemStore) summary(e models.Event) store.EventSummary {
	return store.EventSummary{
		ID:            e.ID,
		NGOID:         e.NGOID,
		NGOName:       m.NGOs[e.NGOID].Name,
		Title:         e.Title,
		Description:   e.Description,
		Location:      e.Location,
		EventDate:     e.EventDate,
		Duration:      e.Duration,
		Requirements:  e.Requirements,
		MaxVolunteers: e.MaxVolunteers,
		EventImageURL: e.EventImageURL,
		Category:      e.Category,
		HoursRequired: e.HoursRequired,
		CreatedAt:     e.CreatedAt,
	}
}

func (m *MemStore) summaries(keep func(models.Event) bool, limit int) []store.EventSummary {
	out := []store.EventSummary{}
	for _, e := range m.Events {
		if keep(e) {
			out = append(out, m.summary(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemStore) ListEvents(_ context.Context, limit int) ([]store.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	if limit <= 0 || limit > store.DefaultEventLimit {
		limit = store.DefaultEventLimit
	}
	return m.summaries(func(models.Event) bool { return true }, limit), nil
}

func (m *MemStore) EventsByNGO(_ context.Context, ngoID uuid.UUID) ([]store.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	return m.summaries(func(e models.Event) bool { return e.NGOID == ngoID }, 0), nil
}

func (m *MemStore) EventSummaryByID(_ context.Context, id uuid.UUID) (store.EventSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return store.EventSummary{}, err
	}
	e, ok := m.Events[id]
	if !ok {
		return store.EventSummary{}, store.ErrNotFound
	}
	return m.summary(e), nil
}

func (m *MemStore) EventByID(_ context.Context, id uuid.UUID) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.Event{}, err
	}
	e, ok := m.Events[id]
	if !ok {
		return models.Event{}, store.ErrNotFound
	}
	return e, nil
}

func (m *MemStore) CreateEvent(_ context.Context, e *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	m.Events[e.ID] = *e
	return nil
}

func (m *MemStore) UpdateEvent(_ context.Context, id uuid.UUID, patch store.Patch) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.Event{}, err
	}
	e, ok := m.Events[id]
	if !ok {
		return models.Event{}, store.ErrNotFound
	}
	for k, val := range patch {
		switch k {
		case "title":
			e.Title = val.(string)
		case "description":
			e.Description = val.(string)
		case "location":
			e.Location = val.(string)
		case "event_date":
			e.EventDate = val.(time.Time)
		case "duration":
			e.Duration = val.(int)
		case "requirements":
			e.Requirements = val.(string)
		case "max_volunteers":
			e.MaxVolunteers = val.(int)
		case "event_image_url":
			e.EventImageURL = val.(string)
		case "category":
			e.Category = val.(string)
		case "hours_required":
			e.HoursRequired = val.(float64)
		}
	}
	e.UpdatedAt = time.Now().UTC()
	m.Events[id] = e
	return e, nil
}

func (m *MemStore) DeleteEvent(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if _, ok := m.Events[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.Events, id)
	return nil
}

func (m *MemStore) CreateApplication(_ context.Context, a *models.VolunteerApplication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	for _, existing := range m.Applications {
		if existing.EventID == a.EventID && existing.VolunteerID == a.VolunteerID {
			return store.ErrConflict
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now().UTC()
	}
	m.Applications[a.ID] = *a
	return nil
}

func (m *MemStore) ApplicationByID(_ context.Context, id uuid.UUID) (models.VolunteerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.VolunteerApplication{}, err
	}
	a, ok := m.Applications[id]
	if !ok {
		return models.VolunteerApplication{}, store.ErrNotFound
	}
	return a, nil
}

func (m *MemStore) ApplicationFor(_ context.Context, eventID, volunteerID uuid.UUID) (models.VolunteerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.VolunteerApplication{}, err
	}
	for _, a := range m.Applications {
		if a.EventID == eventID && a.VolunteerID == volunteerID {
			return a, nil
		}
	}
	return models.VolunteerApplication{}, store.ErrNotFound
}

func (m *MemStore) ApplicationsByEvent(_ context.Context, eventID uuid.UUID) ([]models.VolunteerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	out := []models.VolunteerApplication{}
	for _, a := range m.Applications {
		if a.EventID == eventID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, nil
}

func (m *MemStore) ApplicationsByVolunteer(_ context.Context, volunteerID uuid.UUID) ([]models.VolunteerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	out := []models.VolunteerApplication{}
	for _, a := range m.Applications {
		if a.VolunteerID == volunteerID {
			if e, ok := m.Events[a.EventID]; ok {
				a.Event = &e
			}
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.After(out[j].AppliedAt) })
	return out, nil
}

func (m *MemStore) UpdateApplicationStatus(_ context.Context, id uuid.UUID, status string) (models.VolunteerApplication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.VolunteerApplication{}, err
	}
	a, ok := m.Applications[id]
	if !ok {
		return models.VolunteerApplication{}, store.ErrNotFound
	}
	a.Status = status
	m.Applications[id] = a
	return a, nil
}

func (m *MemStore) DeleteApplication(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if _, ok := m.Applications[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.Applications, id)
	return nil
}

func (m *MemStore) LogHours(_ context.Context, h *models.VolunteerHours) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.LoggedAt.IsZero() {
		h.LoggedAt = time.Now().UTC()
	}
	m.Hours[h.ID] = *h
	return nil
}

func (m *MemStore) HoursByID(_ context.Context, id uuid.UUID) (models.VolunteerHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.VolunteerHours{}, err
	}
	h, ok := m.Hours[id]
	if !ok {
		return models.VolunteerHours{}, store.ErrNotFound
	}
	return h, nil
}

func (m *MemStore) HoursByVolunteer(_ context.Context, volunteerID uuid.UUID) ([]models.VolunteerHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return nil, err
	}
	out := []models.VolunteerHours{}
	for _, h := range m.Hours {
		if h.VolunteerID == volunteerID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	return out, nil
}

func (m *MemStore) VerifyHours(_ context.Context, id, verifier uuid.UUID) (models.VolunteerHours, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return models.VolunteerHours{}, err
	}
	h, ok := m.Hours[id]
	if !ok {
		return models.VolunteerHours{}, store.ErrNotFound
	}
	if h.Verified {
		return h, store.ErrAlreadyVerified
	}
	h.Verified = true
	h.VerifiedBy = &verifier
	m.Hours[id] = h
	return h, nil
}

func (m *MemStore) InsertAudit(_ context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Fail; err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	for _, existing := range m.Audit {
		if existing.ID == entry.ID {
			return store.ErrConflict
		}
	}
	m.Audit = append(m.Audit, *entry)
	return nil
}

// AuditActions returns the recorded audit actions in insertion order.
func (m *MemStore) AuditActions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Audit))
	for _, a := range m.Audit {
		out = append(out, a.Action)
	}
	return out
}

// ErrUnavailable simulates a backend outage.
var ErrUnavailable = errors.New("testutil: backend unavailable")
