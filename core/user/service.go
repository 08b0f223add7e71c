package user

import (
	"context"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/edukanda/edukanda/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountSuspended   = errors.New("account suspended")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists when another user holds email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		// IncrementStats adds delta to the stats of a student. delta.Rank is ignored.
		IncrementStats(ctx context.Context, id int, delta StudentStats) (User, error)
		// SetRanks sets the rank of every user ID in ranks.
		SetRanks(ctx context.Context, ranks map[int]int) error
	}

	Service struct {
		repo       Repository
		mailSvc    core.EmailService
		validate   *validator.Validate
		translator ut.Translator
		tokens     *tokenGenerator
		conf       *core.Config
	}
)

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
) *Service {
	return &Service{
		repo:       repo,
		mailSvc:    mailSvc,
		validate:   validate,
		translator: translator,
		tokens:     newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		conf:       conf,
	}
}

func (svc *Service) validateStruct(s interface{}) error {
	if err := svc.validate.Struct(s); err != nil {
		return core.NewFieldsValidationError(err, svc.translator)
	}
	return nil
}

func (svc *Service) checkUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

// Register validates nu and creates an active account. Nothing is stored when validation fails.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.clean()
	if err := svc.validateStruct(nu); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Email); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	svc.sendMail(usr, "Welcome!", "welcome", nil)
	return usr, nil
}

// Create stores usr as is. It is meant for admin tooling: no validation is applied.
func (svc *Service) Create(ctx context.Context, usr User, pwd string) (User, error) {
	now := time.Now().UTC()
	usr.Email = core.CleanString(usr.Email, true /* lower */)
	usr.CreatedAt, usr.UpdatedAt = now, now
	if usr.Status == "" {
		usr.Status = StatusActive
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the credentials of an account and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if usr.Status == StatusDeleted || usr.CheckPassword(pwd) != nil {
		return User{}, ErrInvalidCredentials
	}
	if usr.Status == StatusSuspended {
		return User{}, ErrAccountSuspended
	}

	usr.LastLogin = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *Service) Get(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if email == "" {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{Email: email})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, orderings...)
}

// Update applies a profile change. Empty fields keep their current value.
func (svc *Service) Update(ctx context.Context, id int, uu UpdateUser) (User, error) {
	usr, err := svc.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	uu.clean(usr)
	if err := svc.validateStruct(uu); err != nil {
		return User{}, err
	}
	if uu.Email != usr.Email {
		if err := svc.checkUniqueness(ctx, uu.Email, usr); err != nil {
			return User{}, err
		}
	}

	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.Avatar != "" {
		usr.Avatar = uu.Avatar
	}
	if uu.Bio != "" {
		usr.Bio = uu.Bio
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword replaces the password of a user without any policy check.
func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetStatus moves a user to status. It returns core.ErrInvalidTransition when the move is not allowed.
func (svc *Service) SetStatus(ctx context.Context, id int, status Status) (User, error) {
	usr, err := svc.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !CanTransition(usr.Status, status) {
		return User{}, errors.Wrapf(core.ErrInvalidTransition, "%s -> %s", usr.Status, status)
	}
	usr.Status = status
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetRole changes the role of a user.
func (svc *Service) SetRole(ctx context.Context, id int, role string) (User, error) {
	if !IsValidRole(role) {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "role", Error: "invalid role"})
	}
	usr, err := svc.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.Status == StatusDeleted {
		return User{}, errors.Wrap(core.ErrInvalidTransition, "user is deleted")
	}
	usr.Role = role
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// RequestPasswordReset mails a password reset link to the active account owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive() {
		return ErrNotFound
	}
	svc.sendMail(usr, "Password Reset", "password_reset", map[string]string{
		"UID":   EncodeUID(usr),
		"Token": svc.tokens.makeToken(usr),
	})
	return nil
}

// ResetPassword sets a new password after checking the reset token.
func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) (User, error) {
	if err := svc.validateStruct(data); err != nil {
		return User{}, err
	}
	invalidErr := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})

	id, err := decodeUID(data.UID)
	if err != nil {
		return User{}, invalidErr
	}
	usr, err := svc.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, invalidErr
		}
		return User{}, err
	}
	if err := svc.tokens.verifyToken(usr, data.Token); err != nil {
		return User{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	return svc.SetPassword(ctx, usr, data.Password)
}

// RewardLessonCompletion credits a student for completing a lesson for the first time.
// firstLesson is set when it is the first completed lesson of the course and courseCompleted when it was the last one.
func (svc *Service) RewardLessonCompletion(ctx context.Context, userID int, firstLesson, courseCompleted bool) error {
	delta := StudentStats{Points: svc.conf.PointsPerLesson}
	if firstLesson {
		delta.CoursesInProgress++
	}
	if courseCompleted {
		delta.Points += svc.conf.PointsPerCourse
		delta.CoursesCompleted++
		delta.CoursesInProgress--
		delta.Certificates++
	}
	_, err := svc.repo.IncrementStats(ctx, userID, delta)
	return errors.Wrap(err, "incrementing user stats")
}

func (svc *Service) sendMail(usr User, subject, tmpl string, data map[string]string) {
	if svc.mailSvc == nil {
		return
	}
	tmplData := map[string]string{"Name": usr.Name}
	for k, v := range data {
		tmplData[k] = v
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: tmplData,
	})
}
