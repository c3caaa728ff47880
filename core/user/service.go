package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/mahudhurio/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const welcomeTmpl = "user/welcome"

func init() {
	core.RegisterEmailTemplate(welcomeTmpl, welcomeText, welcomeHTML)
}

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers returns the users matching filter, ordered by ID.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
	}

	// TokenStore keeps a version per user: tokens issued with an older version are revoked.
	TokenStore interface {
		Version(ctx context.Context, userID int64) (int64, error)
		Revoke(ctx context.Context, userID int64) (int64, error)
	}

	Service struct {
		repo     Repository
		tokens   TokenStore
		mailSvc  core.EmailService
		validate *validator.Validate
		nowFunc  func() time.Time
	}
)

func NewService(repo Repository, tokens TokenStore, mailSvc core.EmailService, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		mailSvc:  mailSvc,
		validate: validate,
		nowFunc:  time.Now,
	}
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

func emailExistsError() error {
	return core.NewValidationError(nil, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return emailExistsError()
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *Service) validateNewUser(ctx context.Context, nu *NewUser, exclUsers ...User) error {
	nu.Clean()
	if err := svc.validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(ctx, nu.Email, exclUsers...)
}

// Authenticate checks the credentials and stamps the user's last login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}

	usr.LastLogin = null.TimeFrom(svc.now())
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

// RegisterTeacher creates a teacher account and sends them a welcome email.
func (svc *Service) RegisterTeacher(ctx context.Context, nu NewUser) (User, error) {
	nu.Role = RoleTeacher
	if err := svc.validateNewUser(ctx, &nu); err != nil {
		return User{}, err
	}

	usr, err := svc.create(ctx, nu)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *Service) create(ctx context.Context, nu NewUser) (User, error) {
	now := svc.now()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		// the email was taken after checkUniqueness
		if errors.Cause(err) == ErrEmailExists {
			return User{}, emailExistsError()
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

// AddUser updates the user with nu.Email or creates it.
func (svc *Service) AddUser(ctx context.Context, nu NewUser) (User, error) {
	nu.Clean()
	usr, err := svc.repo.GetUserByEmail(ctx, nu.Email)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by email")
		}
		if err = svc.validateNewUser(ctx, &nu); err != nil {
			return User{}, err
		}
		return svc.create(ctx, nu)
	}

	if err = svc.validate.Struct(nu); err != nil {
		return User{}, err
	}
	usr.Name = nu.Name
	usr.Role = nu.Role
	usr.UpdatedAt = svc.now()
	if err = usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = svc.now()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}

	// sessions opened with the old password are closed
	if _, err = svc.tokens.Revoke(ctx, usr.ID); err != nil {
		return errors.Wrap(err, "revoking tokens")
	}
	return nil
}

func (svc *Service) QueryTeachers(ctx context.Context) ([]User, error) {
	return svc.repo.QueryUsers(ctx, QueryFilter{Role: RoleTeacher})
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

// TokenVersion returns the version that the tokens of the user must carry to be accepted.
func (svc *Service) TokenVersion(ctx context.Context, userID int64) (int64, error) {
	return svc.tokens.Version(ctx, userID)
}

// Logout revokes every token issued to the principal.
func (svc *Service) Logout(ctx context.Context, p Principal) error {
	if _, err := svc.tokens.Revoke(ctx, p.ID); err != nil {
		return errors.Wrap(err, "revoking tokens")
	}
	return nil
}

func (svc *Service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your teacher account",
		TemplateName: welcomeTmpl,
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"Email": usr.Email,
		},
	})
}

var (
	welcomeText = `Hello {{.Data.Name}},

An administrator created a teacher account for you on {{.AppName}}.
You can now sign in with {{.Data.Email}} and the password they gave you.
`
	welcomeHTML = `<p>Hello {{.Data.Name}},</p>
<p>An administrator created a teacher account for you on {{.AppName}}.</p>
<p>You can now sign in with <b>{{.Data.Email}}</b> and the password they gave you.</p>
`
)
