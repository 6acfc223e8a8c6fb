package coa

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lmntix/finledger/internal/ledger/shared"
)

// RegisterInput groups fields required to register a GL account.
type RegisterInput struct {
	TenantID       uuid.UUID
	Code           string
	Name           string
	Classification Classification
	Tag            *Tag
}

// Validate ensures registration input meets minimum criteria.
func (in RegisterInput) Validate() error {
	if in.TenantID == uuid.Nil {
		return errors.New("coa: tenant required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return errors.New("coa: code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("coa: name required")
	}
	if !in.Classification.Valid() {
		return errors.New("coa: unknown classification")
	}
	return nil
}

// Service is the chart of accounts registry. It resolves control accounts
// for postings and guards the one-active-account-per-(classification, tag)
// invariant at registration time.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveControlAccount returns the unique active account for the triple.
// Zero matches is ErrNotFound; more than one is ErrAmbiguousMapping, which
// means the registration invariant was bypassed and needs operator attention.
func (s *Service) ResolveControlAccount(ctx context.Context, tenantID uuid.UUID, class Classification, tag Tag) (GLAccount, error) {
	matches, err := s.repo.FindActiveByTag(ctx, tenantID, class, tag)
	if err != nil {
		return GLAccount{}, err
	}
	switch len(matches) {
	case 0:
		return GLAccount{}, shared.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return GLAccount{}, shared.ErrAmbiguousMapping
	}
}

// RegisterAccount creates a GL account. A second active account for the same
// (classification, tag) is rejected here rather than allowing ambiguity to
// surface later during posting.
func (s *Service) RegisterAccount(ctx context.Context, in RegisterInput) (GLAccount, error) {
	if err := in.Validate(); err != nil {
		return GLAccount{}, err
	}
	account := GLAccount{
		ID:             uuid.New(),
		TenantID:       in.TenantID,
		Code:           strings.TrimSpace(in.Code),
		Name:           strings.TrimSpace(in.Name),
		Classification: in.Classification,
		Tag:            in.Tag,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.LockTenantAccounts(ctx, in.TenantID); err != nil {
			return err
		}
		if in.Tag != nil {
			count, err := tx.CountActiveByTag(ctx, in.TenantID, in.Classification, *in.Tag)
			if err != nil {
				return err
			}
			if count > 0 {
				return shared.ErrAmbiguousMapping
			}
		}
		inserted, err := tx.Insert(ctx, account)
		if err != nil {
			return err
		}
		account = inserted
		return nil
	})
	if err != nil {
		return GLAccount{}, err
	}
	return account, nil
}

// DeactivateAccount retires a GL account. Postings referencing it remain
// valid history; the account simply stops resolving.
func (s *Service) DeactivateAccount(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Deactivate(ctx, tenantID, id)
	})
}

// Get fetches one account scoped to a tenant.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (GLAccount, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns the tenant's chart of accounts ordered by code.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]GLAccount, error) {
	return s.repo.List(ctx, tenantID)
}
