package inmemdb

import (
	"context"

	"github.com/dusabe/tathmini/core/identity"
)

type identityRepository struct {
	db *DB
}

var _ identity.Repository = (*identityRepository)(nil) // interface compliance check

func NewIdentityRepository(db *DB) *identityRepository {
	return &identityRepository{db: db}
}

func (repo *identityRepository) CreateIdentity(ctx context.Context, idt identity.Identity) (identity.Identity, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.identities[idt.Address]; ok {
		return identity.Identity{}, identity.ErrAlreadyRegistered
	}
	repo.db.identities[idt.Address] = &idt
	repo.db.identityOrder = append(repo.db.identityOrder, idt.Address)
	return idt, nil
}

func (repo *identityRepository) GetIdentity(ctx context.Context, address string) (identity.Identity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if idt, ok := repo.db.identities[address]; ok {
		return *idt, nil
	}
	return identity.Identity{}, identity.ErrNotRegistered
}

func (repo *identityRepository) QueryAllIdentities(ctx context.Context) ([]identity.Identity, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	idts := make([]identity.Identity, 0, len(repo.db.identityOrder))
	for _, addr := range repo.db.identityOrder {
		idts = append(idts, *repo.db.identities[addr])
	}
	return idts, nil
}
