package usersrv

import (
	"context"
	"time"

	"github.com/alebhayan/King-Laminaat/pkg/dbx"
	"github.com/alebhayan/King-Laminaat/pkg/errx"
	"github.com/alebhayan/King-Laminaat/pkg/iam/tenant"
	"github.com/alebhayan/King-Laminaat/pkg/iam/user"
	"github.com/alebhayan/King-Laminaat/pkg/idx"
	"github.com/alebhayan/King-Laminaat/pkg/kernel"
	"github.com/alebhayan/King-Laminaat/pkg/logx"
	"github.com/alebhayan/King-Laminaat/pkg/outbox"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/jmoiron/sqlx"
)

// DefaultRoles are granted to self-registered principals.
var DefaultRoles = []string{"user"}

// TenantChecker admits a tenant or fails closed.
type TenantChecker interface {
	Check(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error)
}

// RegisterRequest is the self-registration payload.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 128)),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
	)
}

type UserService struct {
	db      dbx.Beginner
	users   user.Repository
	tenants TenantChecker
	hasher  user.PasswordHasher
	events  *outbox.Writer
	now     func() time.Time
}

func NewUserService(
	db dbx.Beginner,
	users user.Repository,
	tenants TenantChecker,
	hasher user.PasswordHasher,
	events *outbox.Writer,
) *UserService {
	return &UserService{
		db:      db,
		users:   users,
		tenants: tenants,
		hasher:  hasher,
		events:  events,
		now:     time.Now,
	}
}

// Register creates an unconfirmed principal and enqueues user.registered in
// the same transaction.
func (s *UserService) Register(ctx context.Context, rc kernel.RequestContext, req RegisterRequest) (*user.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if _, err := s.tenants.Check(ctx, rc.TenantID); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := user.Principal{
		ID:              kernel.NewUserID(idx.NewUUID()),
		TenantID:        rc.TenantID,
		Email:           req.Email,
		NormalizedEmail: user.NormalizeEmail(req.Email),
		DisplayName:     req.DisplayName,
		PasswordHash:    hash,
		Active:          true,
		EmailConfirmed:  false,
		Roles:           append([]string(nil), DefaultRoles...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = dbx.WithinTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.users.Create(ctx, tx, p); err != nil {
			return err
		}
		_, err := s.events.Add(ctx, tx, rc.WithUser(p.ID), user.RegisteredEvent{
			UserID:      p.ID,
			TenantID:    p.TenantID,
			Email:       p.Email,
			DisplayName: p.DisplayName,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logx.WithFields(rc.WithUser(p.ID).LogFields()).Info("principal registered")
	return &p, nil
}

func invalidInput(err error) *errx.Error {
	e := user.ErrInvalidInput()
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			e.WithDetail(field, ferr.Error())
		}
		return e
	}
	return e.WithCause(err)
}
