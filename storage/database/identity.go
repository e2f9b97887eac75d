package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/dusabe/tathmini/core"
	"github.com/dusabe/tathmini/core/identity"
)

// pq unique_violation
const pqUniqueViolation = "23505"

type identityRow struct {
	Address      string      `db:"address"`
	Name         string      `db:"name"`
	Phone        null.String `db:"phone"`
	Email        null.String `db:"email"`
	Org          null.String `db:"org"`
	SubOrg       null.String `db:"sub_org"`
	Level        null.String `db:"level"`
	AvatarRef    null.String `db:"avatar_ref"`
	Role         string      `db:"role"`
	PasswordHash []byte      `db:"password_hash"`
	Registered   bool        `db:"registered"`
	CreatedAt    time.Time   `db:"created_at"`
}

func rowFromIdentity(idt identity.Identity) identityRow {
	return identityRow{
		Address:      idt.Address,
		Name:         idt.Name,
		Phone:        null.NewString(idt.Phone, idt.Phone != ""),
		Email:        null.NewString(idt.Email, idt.Email != ""),
		Org:          null.NewString(idt.Org, idt.Org != ""),
		SubOrg:       null.NewString(idt.SubOrg, idt.SubOrg != ""),
		Level:        null.NewString(idt.Level, idt.Level != ""),
		AvatarRef:    null.NewString(idt.AvatarRef, idt.AvatarRef != ""),
		Role:         string(idt.Role),
		PasswordHash: idt.PasswordHash,
		Registered:   idt.Registered,
		CreatedAt:    idt.CreatedAt.UTC(),
	}
}

func (row identityRow) identity() identity.Identity {
	return identity.Identity{
		Address:      row.Address,
		Name:         row.Name,
		Phone:        row.Phone.String,
		Email:        row.Email.String,
		Org:          row.Org.String,
		SubOrg:       row.SubOrg.String,
		Level:        row.Level.String,
		AvatarRef:    row.AvatarRef.String,
		Role:         identity.Role(row.Role),
		PasswordHash: row.PasswordHash,
		Registered:   row.Registered,
		CreatedAt:    row.CreatedAt,
	}
}

type identityRepository struct {
	db *sqlx.DB
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(db *sql.DB) *identityRepository {
	return &identityRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *identityRepository) CreateIdentity(ctx context.Context, idt identity.Identity) (identity.Identity, error) {
	row := rowFromIdentity(idt)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO identity (address, name, phone, email, org, sub_org, level, avatar_ref, role, password_hash, registered, created_at)
		VALUES (:address, :name, :phone, :email, :org, :sub_org, :level, :avatar_ref, :role, :password_hash, :registered, :created_at)`,
		row,
	)
	if err != nil {
		if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pqUniqueViolation {
			return identity.Identity{}, identity.ErrAlreadyRegistered
		}
		return identity.Identity{}, errors.Wrap(err, "inserting identity")
	}
	return idt, nil
}

func (repo *identityRepository) GetIdentity(ctx context.Context, address string) (identity.Identity, error) {
	var row identityRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM identity WHERE address = $1", address)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return identity.Identity{}, identity.ErrNotRegistered
		}
		return identity.Identity{}, errors.Wrap(err, "getting identity")
	}
	return row.identity(), nil
}

func (repo *identityRepository) QueryAllIdentities(ctx context.Context) ([]identity.Identity, error) {
	var rows []identityRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM identity ORDER BY created_at"); err != nil {
		return nil, errors.Wrap(err, "querying identities")
	}
	idts := make([]identity.Identity, 0, len(rows))
	for _, row := range rows {
		idts = append(idts, row.identity())
	}
	return idts, nil
}

// getRole fetches the role for a registered address; callers map the
// not-found case to their own Unauthorized sentinel.
func getRole(db core.DBExecutor, address string) (identity.Role, error) {
	var role string
	err := db.QueryRow("SELECT role FROM identity WHERE address = $1 AND registered", address).Scan(&role)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return "", identity.ErrNotRegistered
		}
		return "", errors.Wrap(err, "getting role")
	}
	return identity.Role(role), nil
}
