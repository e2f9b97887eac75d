package identity

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/dusabe/tathmini/core"
)

var (
	// errors
	ErrAlreadyRegistered = errors.New("address already registered")
	ErrNotRegistered     = errors.New("address not registered")
)

type (
	Repository interface {
		// CreateIdentity registers a new Identity. The address must not exist yet.
		CreateIdentity(ctx context.Context, idt Identity) (Identity, error)
		GetIdentity(ctx context.Context, address string) (Identity, error)
		QueryAllIdentities(ctx context.Context) ([]Identity, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Register creates the Identity record. The role is fixed for the lifetime
// of the record; there is no update path.
func (svc *Service) Register(ctx context.Context, ni NewIdentity) (Identity, error) {
	idt := Identity{
		Address:    ni.Address,
		Name:       ni.Name,
		Phone:      ni.Phone,
		Email:      ni.Email,
		Org:        ni.Org,
		SubOrg:     ni.SubOrg,
		Level:      ni.Level,
		AvatarRef:  ni.AvatarRef,
		Role:       ni.Role,
		Registered: true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := idt.SetPassword(ni.Password); err != nil {
		return Identity{}, err
	}

	idt, err := svc.repo.CreateIdentity(ctx, idt)
	if err != nil {
		return Identity{}, err
	}
	svc.sendWelcomeEmail(idt)
	return idt, nil
}

func (svc *Service) Get(ctx context.Context, address string) (Identity, error) {
	return svc.repo.GetIdentity(ctx, core.CleanString(address, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Identity, error) {
	return svc.repo.QueryAllIdentities(ctx)
}

// VerifyPassword reports whether the candidate password matches the stored hash.
// A mismatch is a normal boolean outcome, not an error; callers own any
// lockout/retry policy.
func (svc *Service) VerifyPassword(ctx context.Context, address, pwd string) (bool, error) {
	idt, err := svc.repo.GetIdentity(ctx, core.CleanString(address, true /* lower */))
	if err != nil {
		return false, err
	}
	return idt.CheckPassword(pwd) == nil, nil
}

func (svc *Service) sendWelcomeEmail(idt Identity) {
	if svc.mailSvc == nil || idt.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: idt.Name, Address: idt.Email}},
		Subject:      "Welcome to " + core.Conf.AppName,
		TemplateName: "welcome",
		TemplateData: idt,
	})
}
