package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rollcall-dev/rollcall-api/internal/models"
	appErrors "github.com/rollcall-dev/rollcall-api/pkg/errors"
)

type teacherRepoStub struct {
	teacher *models.Teacher
	exists  bool
}

func (s *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error {
	teacher.ID = "teacher-1"
	s.teacher = teacher
	return nil
}

func (s *teacherRepoStub) FindByUsername(ctx context.Context, username string) (*models.Teacher, error) {
	if s.teacher == nil || s.teacher.Username != username {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if s.teacher == nil || s.teacher.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.teacher, nil
}

func (s *teacherRepoStub) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists, nil
}

func authFixture(repo *teacherRepoStub) *AuthService {
	return NewAuthService(repo, nil, nil, AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "rollcall-test",
	})
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := &teacherRepoStub{}
	svc := authFixture(repo)

	info, err := svc.Register(context.Background(), models.RegisterRequest{Username: "mr.cruz", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", info.ID)
	assert.NotEqual(t, "supersecret", repo.teacher.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.teacher.PasswordHash), []byte("supersecret")))
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	svc := authFixture(&teacherRepoStub{exists: true})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "mr.cruz", Password: "supersecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := authFixture(&teacherRepoStub{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "mr.cruz", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLoginRoundTrip(t *testing.T) {
	repo := &teacherRepoStub{}
	svc := authFixture(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "mr.cruz", Password: "supersecret"})
	require.NoError(t, err)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "mr.cruz", Password: "supersecret"})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", claims.TeacherID)
	assert.Equal(t, "mr.cruz", claims.Username)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := &teacherRepoStub{}
	svc := authFixture(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "mr.cruz", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "mr.cruz", Password: "wrong-password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := authFixture(&teacherRepoStub{})

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "supersecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	repo := &teacherRepoStub{}
	svc := authFixture(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{Username: "mr.cruz", Password: "supersecret"})
	require.NoError(t, err)
	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "mr.cruz", Password: "supersecret"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.AccessToken + "x")
	require.Error(t, err)
}
