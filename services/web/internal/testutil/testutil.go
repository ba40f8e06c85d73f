package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"volunteerverse/services/web/internal/models"
)

// SigningKey is the access token key used across tests.
var SigningKey = []byte("test-signing-key-0123456789abcdef")

// Clock is a settable time source.
type Clock struct {
	T time.Time
}

// NewClock returns a Clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{T: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

// Now returns the current instant of the clock.
func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }

// Account returns an unsaved account whose password hash matches password.
func Account(t testing.TB, email, password string) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.Account{ID: uuid.New(), Email: email, PasswordHash: string(hash)}
}

// AddVolunteer registers a volunteer account with the given approval state.
func (m *MemStore) AddVolunteer(t testing.TB, email, password string, approved bool) models.VolunteerUser {
	t.Helper()
	v := &models.VolunteerUser{
		FirstName:  "Vol",
		LastName:   "Unteer",
		Email:      email,
		UserType:   models.UserTypeStudent,
		University: "State University",
		IsApproved: approved,
	}
	if err := m.RegisterVolunteer(context.Background(), Account(t, email, password), v); err != nil {
		t.Fatalf("register volunteer: %v", err)
	}
	return *v
}

// AddUser registers a users-kind account with role and approval state.
func (m *MemStore) AddUser(t testing.TB, email, password, role string, approved bool) models.User {
	t.Helper()
	u := &models.User{
		FirstName:  "Org",
		LastName:   "Member",
		Email:      email,
		Role:       role,
		IsApproved: approved,
	}
	if err := m.RegisterUser(context.Background(), Account(t, email, password), u); err != nil {
		t.Fatalf("register user: %v", err)
	}
	return *u
}

// AddNGO stores an NGO owned by owner.
func (m *MemStore) AddNGO(t testing.TB, owner uuid.UUID, name string) models.NGO {
	t.Helper()
	n := &models.NGO{UserID: owner, Name: name, Description: name + " description"}
	if err := m.CreateNGO(context.Background(), n); err != nil {
		t.Fatalf("create ngo: %v", err)
	}
	return *n
}

// AddEvent stores an event for ngoID.
func (m *MemStore) AddEvent(t testing.TB, ngoID uuid.UUID, title string, date time.Time) models.Event {
	t.Helper()
	e := &models.Event{
		NGOID:         ngoID,
		Title:         title,
		EventDate:     date,
		Category:      "community",
		HoursRequired: 4,
		MaxVolunteers: 10,
	}
	if err := m.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return *e
}
