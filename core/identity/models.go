package identity

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dusabe/tathmini/core"
)

// Role gates which ledger mutations an identity may perform.
// It is assigned at registration and never changes.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var AllRoles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

var (
	roleTag  = "role"
	roleText = "must be one of: student, teacher, admin"
)

func init() {
	core.RegisterValidation(roleTag, roleText, func(fl validator.FieldLevel) bool {
		return Role(fl.Field().String()).Valid()
	})
}

// Identity is one registered participant, keyed by its wallet address.
type Identity struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Org          string    `json:"org,omitempty"`
	SubOrg       string    `json:"sub_org,omitempty"`
	Level        string    `json:"level,omitempty"`
	AvatarRef    string    `json:"avatar_ref,omitempty"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	Registered   bool      `json:"registered"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

func (idt *Identity) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	idt.PasswordHash = hash
	return nil
}

func (idt *Identity) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(idt.PasswordHash, []byte(pwd))
}

func (idt *Identity) IsStudent() bool { return idt.Role == RoleStudent }
func (idt *Identity) IsTeacher() bool { return idt.Role == RoleTeacher }
func (idt *Identity) IsAdmin() bool   { return idt.Role == RoleAdmin }

// NewIdentity contains information needed to register a new Identity.
// Profile fields are opaque to the ledger; format checks here mirror what the
// front-end validates before calling.
type NewIdentity struct {
	Address         string `json:"address" validate:"required"`
	Name            string `json:"name" validate:"required"`
	Phone           string `json:"phone"`
	Email           string `json:"email" validate:"omitempty,email"`
	Org             string `json:"org"`
	SubOrg          string `json:"sub_org"`
	Level           string `json:"level"`
	AvatarRef       string `json:"avatar_ref"`
	Role            Role   `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (ni *NewIdentity) Validate() error {
	ni.Address = core.CleanString(ni.Address, true /* lower */)
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	return core.Validate.Struct(ni)
}
