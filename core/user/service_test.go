package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/mahudhurio/core"
	. "github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/services/email"
	"github.com/trezcool/mahudhurio/storage/database/dummy"
	"github.com/trezcool/mahudhurio/storage/tokenstore"
	"github.com/trezcool/mahudhurio/tests"
)

func setup(t *testing.T) (*Service, Repository, *emailsvc.ConsoleServiceMock) {
	t.Helper()
	db := dummydb.Open()
	repo := dummydb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(testutil.NewConfig(), testutil.NewLogger())
	validate, _ := testutil.NewValidator()
	return NewService(repo, tokenstore.NewMemoryStore(), mailSvc, validate), repo, mailSvc
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	teacher := testutil.CreateUser(t, repo, "Teacher", "teacher@test.cd", "s3cret-pass", RoleTeacher)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{name: "unknown email", email: "lol@test.cd", pwd: "s3cret-pass", wantErr: ErrInvalidCredentials},
		{name: "wrong password", email: "teacher@test.cd", pwd: "lol", wantErr: ErrInvalidCredentials},
		{name: "ok", email: "teacher@test.cd", pwd: "s3cret-pass"},
		{name: "ok (email is cleaned)", email: "  Teacher@Test.CD ", pwd: "s3cret-pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, teacher.ID, usr.ID)
			assert.True(t, usr.LastLogin.Valid)

			stored, err := repo.GetUserByID(ctx, teacher.ID)
			require.NoError(t, err)
			assert.True(t, stored.LastLogin.Valid, "last login is saved")
		})
	}
}

func TestService_RegisterTeacher(t *testing.T) {
	ctx := context.Background()
	svc, repo, mailSvc := setup(t)
	testutil.CreateUser(t, repo, "Taken", "taken@test.cd", "", RoleTeacher)

	tests := []struct {
		name      string
		data      NewUser
		wantField string
		wantTag   string
	}{
		{name: "missing name", data: NewUser{Email: "jane@school.test", Password: "secret123"}, wantField: "name", wantTag: "required"},
		{name: "blank name", data: NewUser{Name: "   ", Email: "jane@school.test", Password: "secret123"}, wantField: "name", wantTag: "required"},
		{name: "invalid email", data: NewUser{Name: "Jane", Email: "jane", Password: "secret123"}, wantField: "email", wantTag: "email"},
		{name: "short password", data: NewUser{Name: "Jane", Email: "jane@school.test", Password: "short"}, wantField: "password", wantTag: "min"},
		{name: "password like email", data: NewUser{Name: "Jane", Email: "janedoe@school.test", Password: "janedoe1"}, wantField: "password", wantTag: "pwdtoosim"},
		{name: "email taken", data: NewUser{Name: "Jane", Email: " TAKEN@test.cd", Password: "secret123"}, wantField: "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterTeacher(ctx, tt.data)
			require.Error(t, err)
			switch vErr := err.(type) {
			case validator.ValidationErrors:
				require.Len(t, vErr, 1)
				assert.Equal(t, tt.wantField, core.FieldPath(vErr[0]))
				assert.Equal(t, tt.wantTag, vErr[0].Tag())
			case *core.ValidationError:
				require.Len(t, vErr.Fields, 1)
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			default:
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
		})
	}
	assert.Empty(t, mailSvc.Sent())

	usr, err := svc.RegisterTeacher(ctx, NewUser{Name: " Jane Doe ", Email: "Jane@School.test", Password: "secret123", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", usr.Name)
	assert.Equal(t, "jane@school.test", usr.Email)
	assert.Equal(t, RoleTeacher, usr.Role, "registered users are always teachers")
	assert.NoError(t, usr.CheckPassword("secret123"))

	sent := mailSvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jane@school.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "Hello Jane Doe")
	assert.Contains(t, sent[0].HTMLContent, "<b>jane@school.test</b>")

	teachers, err := svc.QueryTeachers(ctx)
	require.NoError(t, err)
	assert.Len(t, teachers, 2)
}

// racingRepository lets every email through the uniqueness check, like a concurrent registration would.
type racingRepository struct {
	Repository
}

func (racingRepository) CheckEmailUniqueness(context.Context, string, ...User) error { return nil }

func TestService_RegisterTeacher_emailRace(t *testing.T) {
	ctx := context.Background()
	_, repo, mailSvc := setup(t)
	testutil.CreateUser(t, repo, "Taken", "taken@test.cd", "", RoleTeacher)
	validate, _ := testutil.NewValidator()
	svc := NewService(racingRepository{repo}, tokenstore.NewMemoryStore(), mailSvc, validate)

	_, err := svc.RegisterTeacher(ctx, NewUser{Name: "Jane", Email: "taken@test.cd", Password: "secret123"})
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok, "unexpected error %T: %v", err, err)
	assert.Equal(t, []core.FieldError{{Field: "email", Error: ErrEmailExists.Error()}}, vErr.Fields)
	assert.Empty(t, mailSvc.Sent())
}

func TestService_QueryTeachers(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	testutil.CreateUser(t, repo, "Admin", "admin@test.cd", "", RoleAdmin)
	t1 := testutil.CreateUser(t, repo, "T1", "t1@test.cd", "", RoleTeacher)
	t2 := testutil.CreateUser(t, repo, "T2", "t2@test.cd", "", RoleTeacher)

	teachers, err := svc.QueryTeachers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []User{t1, t2}, teachers)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	teacher := testutil.CreateUser(t, repo, "Teacher", "teacher@test.cd", "", RoleTeacher)

	v, err := svc.TokenVersion(ctx, teacher.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, teacher.Principal()))
	newV, err := svc.TokenVersion(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Greater(t, newV, v)
}

func TestService_AddUser(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t)

	usr, err := svc.AddUser(ctx, NewUser{Name: "Admin", Email: "admin@test.cd", Password: "password", Role: RoleAdmin})
	require.NoError(t, err)
	assert.True(t, usr.IsAdmin())

	// existing users are updated
	updated, err := svc.AddUser(ctx, NewUser{Name: "Boss", Email: "ADMIN@test.cd", Password: "new-password", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, usr.ID, updated.ID)
	assert.Equal(t, "Boss", updated.Name)
	assert.NoError(t, updated.CheckPassword("new-password"))

	_, err = svc.AddUser(ctx, NewUser{Name: "X", Email: "x@test.cd", Password: "password", Role: "student"})
	assert.Error(t, err)
}

func TestService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := setup(t)
	teacher := testutil.CreateUser(t, repo, "Teacher", "teacher@test.cd", "old-password", RoleTeacher)

	assert.Equal(t, ErrNotFound, svc.ResetPassword(ctx, "lol@test.cd", "new-password"))

	v, _ := svc.TokenVersion(ctx, teacher.ID)
	require.NoError(t, svc.ResetPassword(ctx, "teacher@test.cd", "new-password"))

	_, err := svc.Authenticate(ctx, "teacher@test.cd", "new-password")
	assert.NoError(t, err)
	_, err = svc.Authenticate(ctx, "teacher@test.cd", "old-password")
	assert.Equal(t, ErrInvalidCredentials, err)

	newV, _ := svc.TokenVersion(ctx, teacher.ID)
	assert.Greater(t, newV, v, "open sessions are revoked")
}

func TestUser_Principal(t *testing.T) {
	usr := User{ID: 3, Role: RoleTeacher, CreatedAt: time.Now()}
	p := usr.Principal()
	assert.Equal(t, Principal{ID: 3, Role: RoleTeacher}, p)
	assert.True(t, p.IsTeacher())
	assert.False(t, p.IsAdmin())
	assert.True(t, p.HasAnyRole(RoleAdmin, RoleTeacher))
	assert.False(t, p.HasAnyRole(RoleAdmin))
	assert.False(t, p.HasAnyRole())
}
