package services

import (
	"testing"
	"time"

	"ahmp/internal/models"
	"ahmp/pkg/viewcache"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staffProfile(userID, companyID uint) *models.Profile {
	profile := &models.Profile{
		UserID:    userID,
		Role:      models.RoleDeveloper,
		CompanyID: &companyID,
	}
	profile.ID = 1
	return profile
}

func applicantRows(ids ...uint) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at", "company_id", "created_by",
		"first_name", "last_name", "email", "household_size", "income", "ami_percent", "status"})
	for _, id := range ids {
		rows.AddRow(id, time.Now(), time.Now(), 10, 1, "伟", "陈", "chen@example.com", 3, 52000.0, 60, "pending")
	}
	return rows
}

func TestListScopesByCompanyID(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	// 租户隔离：所有查询以 company_id 为第一谓词
	mock.ExpectQuery(`SELECT count\(\*\) FROM "applicants" WHERE company_id = \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT \* FROM "applicants" WHERE company_id = \$1`).
		WillReturnRows(applicantRows(1, 2))

	applicants, total := service.List(10, 1, "", "", 1, 20)
	assert.Equal(t, int64(2), total)
	assert.Len(t, applicants, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFallsBackToUserScope(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	// 档案未归属租户时按操作者过滤
	mock.ExpectQuery(`SELECT count\(\*\) FROM "applicants" WHERE created_by = \$1`).
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "applicants" WHERE created_by = \$1`).
		WillReturnRows(applicantRows(3))

	applicants, total := service.List(0, 7, "", "", 1, 20)
	assert.Equal(t, int64(1), total)
	assert.Len(t, applicants, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDegradesToEmptyOnError(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "applicants"`).
		WillReturnError(assert.AnError)

	applicants, total := service.List(10, 1, "", "", 1, 20)
	assert.NotNil(t, applicants)
	assert.Empty(t, applicants)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatusCountsDegradesToEmptyOnError(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) as count FROM "applicants"`).
		WillReturnError(assert.AnError)

	counts := service.StatusCounts(10, 1)
	assert.NotNil(t, counts)
	assert.Empty(t, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUsesExistingCompany(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "applicants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(31))
	mock.ExpectCommit()

	applicant := &models.Applicant{
		FirstName:     "伟",
		LastName:      "陈",
		Email:         "chen@example.com",
		HouseholdSize: 3,
	}
	require.NoError(t, service.Create(staffProfile(1, 10), applicant))

	assert.Equal(t, uint(10), applicant.CompanyID)
	assert.Equal(t, uint(1), applicant.CreatedBy)
	assert.Equal(t, models.ApplicantStatusPending, applicant.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLazilyCreatesCompany(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	// 惰性建租与主写入同在一个事务：建租、归属档案、落申请人
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "companies"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(77))
	mock.ExpectExec(`UPDATE "profiles" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "applicants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(32))
	mock.ExpectCommit()

	profile := &models.Profile{UserID: 2, FullName: "Jane", Role: models.RoleDeveloper}
	profile.ID = 4

	applicant := &models.Applicant{
		FirstName:     "丽",
		LastName:      "王",
		Email:         "wang@example.com",
		HouseholdSize: 2,
	}
	require.NoError(t, service.Create(profile, applicant))

	// 单次调用只建一个租户，档案在内存中已同步归属
	assert.Equal(t, uint(77), applicant.CompanyID)
	assert.Equal(t, uint(77), profile.ResolvedCompanyID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvalidatesCachedViews(t *testing.T) {
	db, mock := newMockDB(t)
	client, redisMock := redismock.NewClientMock()
	service := NewApplicantService(db, nil, viewcache.NewViewCache(client, "ahmp", time.Minute))

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "applicants"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(33))
	mock.ExpectCommit()

	// 写入成功后本租户的列表和详情视图一起失效
	redisMock.ExpectScan(0, "ahmp:view:applicants:10:*", 100).
		SetVal([]string{"ahmp:view:applicants:10:list:all:1:20"}, 0)
	redisMock.ExpectDel("ahmp:view:applicants:10:list:all:1:20").SetVal(1)

	applicant := &models.Applicant{
		FirstName:     "丽",
		LastName:      "王",
		Email:         "wang@example.com",
		HouseholdSize: 2,
	}
	require.NoError(t, service.Create(staffProfile(1, 10), applicant))

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestCreateRejectsInvalidRecord(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	// 邮箱缺失，校验在任何数据库写入之前失败
	applicant := &models.Applicant{FirstName: "伟", LastName: "陈", HouseholdSize: 1}
	err := service.Create(staffProfile(1, 10), applicant)

	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRequiresStaff(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	companyID := uint(10)
	buyer := &models.Profile{UserID: 3, Role: models.RoleBuyer, CompanyID: &companyID}

	_, err := service.UpdateStatus(buyer, 1, models.ApplicantStatusApproved)
	assert.ErrorIs(t, err, ErrForbidden)
	// 权限不足时不触碰数据库
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusRejectsInvalidStatus(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	_, err := service.UpdateStatus(staffProfile(1, 10), 1, "banana")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRequiresStaff(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicantService(db, nil, nil)

	companyID := uint(10)
	lender := &models.Profile{UserID: 4, Role: models.RoleLender, CompanyID: &companyID}

	err := service.Delete(lender, 1)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
