package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string    `gorm:"type:text;uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type Session struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	RefreshTokenHash string     `gorm:"type:text;uniqueIndex;not null"`
	ExpiresAt        time.Time  `gorm:"type:timestamptz;not null"`
	LastRefreshedAt  *time.Time `gorm:"type:timestamptz"`
	CreatedAt        time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	RevokedAt        *time.Time `gorm:"type:timestamptz"`
	Account          Account    `gorm:"foreignKey:AccountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type VolunteerUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName    string    `gorm:"type:text;not null"`
	LastName     string    `gorm:"type:text;not null"`
	Email        string    `gorm:"type:text;uniqueIndex;not null"`
	Phone        string    `gorm:"type:text"`
	UserType     string    `gorm:"type:text;not null"`
	University   string    `gorm:"type:text"`
	RollNumber   string    `gorm:"type:text"`
	StudentEmail string    `gorm:"type:text"`
	Industry     string    `gorm:"type:text"`
	Occupation   string    `gorm:"type:text"`
	WorkEmail    string    `gorm:"type:text"`
	IsApproved   bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	FirstName       string    `gorm:"type:text;not null"`
	LastName        string    `gorm:"type:text;not null"`
	Email           string    `gorm:"type:text;uniqueIndex;not null"`
	Role            string    `gorm:"type:text;not null;index"`
	ProfileImageURL string    `gorm:"type:text"`
	IsApproved      bool      `gorm:"not null;default:false"`
	CreatedAt       time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt       time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type NGO struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ngos_owner_name"`
	Name         string    `gorm:"type:text;not null;uniqueIndex:idx_ngos_owner_name"`
	Description  string    `gorm:"type:text"`
	WebsiteURL   string    `gorm:"type:text"`
	ContactEmail string    `gorm:"type:text"`
	ContactPhone string    `gorm:"type:text"`
	LogoURL      string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	User         User      `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (NGO) TableName() string { return "ngos" }

type Event struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	NGOID         uuid.UUID `gorm:"column:ngo_id;type:uuid;not null;index"`
	Title         string    `gorm:"type:text;not null"`
	Description   string    `gorm:"type:text"`
	Location      string    `gorm:"type:text"`
	EventDate     time.Time `gorm:"type:timestamptz;not null;index"`
	Duration      int       `gorm:"not null;default:0"`
	Requirements  string    `gorm:"type:text"`
	MaxVolunteers int       `gorm:"not null;default:0"`
	EventImageURL string    `gorm:"type:text"`
	Category      string    `gorm:"type:text;not null"`
	HoursRequired float64   `gorm:"type:numeric(6,2);not null"`
	CreatedAt     time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt     time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
	NGO           NGO       `gorm:"foreignKey:NGOID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type VolunteerApplication struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_applications_event_volunteer"`
	VolunteerID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_applications_event_volunteer;index"`
	Status      string        `gorm:"type:text;not null;default:'pending'"`
	AppliedAt   time.Time     `gorm:"type:timestamptz;not null;default:now()"`
	Event       Event         `gorm:"foreignKey:EventID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Volunteer   VolunteerUser `gorm:"foreignKey:VolunteerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

type VolunteerHours struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	VolunteerID uuid.UUID     `gorm:"type:uuid;not null;index"`
	EventID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	HoursLogged float64       `gorm:"type:numeric(6,2);not null"`
	Verified    bool          `gorm:"not null;default:false"`
	VerifiedBy  *uuid.UUID    `gorm:"type:uuid"`
	LoggedAt    time.Time     `gorm:"type:timestamptz;not null;default:now()"`
	Event       Event         `gorm:"foreignKey:EventID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Volunteer   VolunteerUser `gorm:"foreignKey:VolunteerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (VolunteerHours) TableName() string { return "volunteer_hours" }

type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    *uuid.UUID     `gorm:"type:uuid;index"`
	Action     string         `gorm:"type:text;not null;index"`
	TargetType string         `gorm:"type:text;not null"`
	TargetID   *string        `gorm:"type:text"`
	Metadata   datatypes.JSON `gorm:"type:jsonb;default:'{}'::jsonb"`
	CreatedAt  time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func openTx(tx *sql.Tx) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(
		&Account{},
		&Session{},
		&VolunteerUser{},
		&User{},
		&NGO{},
		&Event{},
		&VolunteerApplication{},
		&VolunteerHours{},
		&AuditLog{},
	)
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := openTx(tx)
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&AuditLog{},
		&VolunteerHours{},
		&VolunteerApplication{},
		&Event{},
		&NGO{},
		&User{},
		&VolunteerUser{},
		&Session{},
		&Account{},
	)
}
