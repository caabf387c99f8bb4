package services

import (
	"testing"
	"time"

	"ahmp/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileRows(id, userID uint, role string, companyID *uint) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "user_id", "email", "full_name", "role", "company_id"})
	rows.AddRow(id, time.Now(), time.Now(), userID, "u@example.com", "测试用户", role, companyID)
	return rows
}

func TestResolveReturnsExistingProfile(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProfileService(db)

	companyID := uint(3)
	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE user_id = \$1`).
		WillReturnRows(profileRows(42, 7, models.RoleDeveloper, &companyID))

	user := &models.User{Email: "u@example.com", Name: "测试用户"}
	user.ID = 7

	profile := service.Resolve(user)
	require.NotNil(t, profile)
	assert.Equal(t, uint(42), profile.ID)
	assert.Equal(t, models.RoleDeveloper, profile.Role)
	assert.Equal(t, uint(3), profile.ResolvedCompanyID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveLazilyCreatesProfile(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProfileService(db)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	user := &models.User{Email: "new@example.com", Name: "新用户"}
	user.ID = 8

	profile := service.Resolve(user)
	require.NotNil(t, profile)
	assert.Equal(t, uint(11), profile.ID)
	// 无注册元数据时默认 buyer，无租户归属
	assert.Equal(t, models.RoleBuyer, profile.Role)
	assert.Nil(t, profile.CompanyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveHonorsSignupMetadata(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProfileService(db)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "companies" WHERE key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "key"}).AddRow(5, "演示置业", "demo-key"))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	user := &models.User{
		Email:      "dev@example.com",
		Name:       "开发商用户",
		SignupMeta: []byte(`{"role":"developer","company_key":"demo-key"}`),
	}
	user.ID = 9

	profile := service.Resolve(user)
	require.NotNil(t, profile)
	assert.Equal(t, models.RoleDeveloper, profile.Role)
	assert.Equal(t, uint(5), profile.ResolvedCompanyID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveIgnoresInvalidMetadataRole(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProfileService(db)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "profiles"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(13))
	mock.ExpectCommit()

	user := &models.User{
		Email:      "odd@example.com",
		Name:       "测试",
		SignupMeta: []byte(`{"role":"superuser"}`),
	}
	user.ID = 10

	profile := service.Resolve(user)
	require.NotNil(t, profile)
	assert.Equal(t, models.RoleBuyer, profile.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveDegradesToMinimalProfileOnQueryError(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProfileService(db)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE user_id = \$1`).
		WillReturnError(assert.AnError)

	user := &models.User{Email: "down@example.com", Name: "降级用户"}
	user.ID = 11

	profile := service.Resolve(user)
	require.NotNil(t, profile)
	// 最小档案：未持久化，角色降为 buyer
	assert.Equal(t, uint(0), profile.ID)
	assert.Equal(t, models.RoleBuyer, profile.Role)
	assert.Equal(t, "down@example.com", profile.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveRereadsOnDuplicateInsert(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewProfileService(db)

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "profiles"`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()
	// 并发请求已建行，重读命中即幂等
	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE user_id = \$1`).
		WillReturnRows(profileRows(21, 12, models.RoleBuyer, nil))

	user := &models.User{Email: "race@example.com", Name: "并发用户"}
	user.ID = 12

	profile := service.Resolve(user)
	require.NotNil(t, profile)
	assert.Equal(t, uint(21), profile.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
