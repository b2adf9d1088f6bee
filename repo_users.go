package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the persistence surface for board accounts.
type Users interface {
	repository.Repository[*User]

	GetBySerialID(ctx context.Context, serialID string, criteria ...repository.SelectCriteria) (*User, error)
	GetBySerialIDTx(ctx context.Context, tx bun.IDB, serialID string, criteria ...repository.SelectCriteria) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	GetOrCreateByOAuth(ctx context.Context, profile OAuthProfile) (*User, error)
	GetOrCreateByOAuthTx(ctx context.Context, tx bun.IDB, profile OAuthProfile) (*User, error)

	CompleteRegistration(ctx context.Context, id uuid.UUID, nickname, email, phone string) (*User, error)
	CompleteRegistrationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, nickname, email, phone string) (*User, error)

	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "serial_id"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetBySerialID(ctx context.Context, serialID string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetBySerialIDTx(ctx, a.db, serialID, criteria...)
}

func (a *users) GetBySerialIDTx(ctx context.Context, tx bun.IDB, serialID string, criteria ...repository.SelectCriteria) (*User, error) {
	record := &User{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.serial_id = ?", strings.TrimSpace(serialID)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"serial_id": serialID,
				})
		}
		return nil, err
	}

	record.EnsureRole()

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetOrCreateByOAuth(ctx context.Context, profile OAuthProfile) (*User, error) {
	return a.GetOrCreateByOAuthTx(ctx, a.db, profile)
}

// GetOrCreateByOAuthTx upserts the local account linked to an external
// subject. The serial id and the row id both derive deterministically from
// provider + provider user id, so concurrent callbacks for the same subject
// converge on one row.
func (a *users) GetOrCreateByOAuthTx(ctx context.Context, tx bun.IDB, profile OAuthProfile) (*User, error) {
	serialID := OAuthSerialID(profile.Provider, profile.ProviderUserID)

	existing, err := a.GetBySerialIDTx(ctx, tx, serialID)
	if err == nil {
		return existing, nil
	}
	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	record := &User{
		SerialID: serialID,
		Nickname: profile.Nickname,
		Email:    profile.Email,
		Provider: profile.Provider,
		Role:     RoleUser,
		// a social account never authenticates with a password; give it an
		// uncrackable placeholder hash
		PasswordHash: RandomPasswordHash(),
		Registered:   profile.Complete(),
	}

	if id, err := hashid.NewUUID(serialID); err == nil {
		record.ID = id
	}

	return a.CreateTx(ctx, tx, record)
}

func (a *users) CompleteRegistration(ctx context.Context, id uuid.UUID, nickname, email, phone string) (*User, error) {
	return a.CompleteRegistrationTx(ctx, a.db, id, nickname, email, phone)
}

func (a *users) CompleteRegistrationTx(ctx context.Context, tx bun.IDB, id uuid.UUID, nickname, email, phone string) (*User, error) {
	record := &User{
		ID:         id,
		Nickname:   nickname,
		Email:      email,
		Phone:      phone,
		Registered: true,
	}

	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(id.String()),
	}

	return a.Repository.UpdateTx(ctx, tx, record, criteria...)
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.EnsureRole()

	if record.Provider == "" {
		record.Provider = ProviderBasic
	}

	if record.SerialID != "" {
		record.SerialID = strings.TrimSpace(record.SerialID)
	}
}

// OAuthSerialID derives the stable local serial id for an external subject.
func OAuthSerialID(provider, providerUserID string) string {
	return provider + ":" + providerUserID
}

// RegistryAdapter exposes the Users repository through the narrow
// UserRegistry interface the credential providers and the federation layer
// consume.
type RegistryAdapter struct {
	users Users
}

// NewRegistryAdapter wraps a Users repository as a UserRegistry.
func NewRegistryAdapter(users Users) *RegistryAdapter {
	return &RegistryAdapter{users: users}
}

func (r *RegistryAdapter) FindBySerialID(ctx context.Context, serialID string) (*User, error) {
	return r.users.GetBySerialID(ctx, serialID)
}

func (r *RegistryAdapter) FindOrCreateByOAuthProfile(ctx context.Context, profile OAuthProfile) (*User, error) {
	return r.users.GetOrCreateByOAuth(ctx, profile)
}

func (r *RegistryAdapter) RolesFor(ctx context.Context, userID string) (UserRole, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	user.EnsureRole()
	return user.Role, nil
}

var _ UserRegistry = (*RegistryAdapter)(nil)
