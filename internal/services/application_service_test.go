package services

import (
	"testing"
	"time"

	"ahmp/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profileWithRole(role string, companyID uint) *models.Profile {
	profile := &models.Profile{UserID: 1, Role: role}
	if companyID != 0 {
		profile.CompanyID = &companyID
	}
	return profile
}

func TestApplicationUpdateStatusRoleGating(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicationService(db, nil, nil)

	// buyer 和 lender 不可做状态流转，校验先于一切数据库访问
	for _, role := range []string{models.RoleBuyer, models.RoleLender} {
		_, err := service.UpdateStatus(profileWithRole(role, 10), 1, models.ApplicationStatusApproved, "")
		assert.ErrorIs(t, err, ErrForbidden, "role %s", role)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateStatusPersistsChanges(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicationService(db, nil, nil)

	seededAt := time.Now().Add(-time.Hour)
	// developer 在本租户内把申请从 submitted 流转到 approved
	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE company_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "company_id", "created_by",
			"applicant_id", "project_id", "income", "household_size", "status", "notes"}).
			AddRow(5, seededAt, seededAt, 10, 2, 3, 8, 48000.0, 2, "submitted", ""))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "applications" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// 申请人未绑定登录用户，状态变更通知被跳过
	mock.ExpectQuery(`SELECT \* FROM "applicants" WHERE "applicants"\."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "user_id", "first_name", "last_name", "email"}).
			AddRow(3, 10, nil, "伟", "陈", "chen@example.com"))

	application, err := service.UpdateStatus(profileWithRole(models.RoleDeveloper, 10), 5, models.ApplicationStatusApproved, "收入证明已复核")
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationStatusApproved, application.Status)
	assert.Equal(t, "收入证明已复核", application.Notes)
	assert.True(t, application.UpdatedAt.After(seededAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationUpdateStatusRejectsInvalidStatus(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicationService(db, nil, nil)

	_, err := service.UpdateStatus(profileWithRole(models.RoleDeveloper, 10), 1, "not-a-status", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationCreateRejectsMissingReferences(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicationService(db, nil, nil)

	// 缺少申请人/项目外键，校验在事务开启前失败
	err := service.Create(profileWithRole(models.RoleBuyer, 10), &models.Application{HouseholdSize: 1})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationDeleteRequiresStaff(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewApplicationService(db, nil, nil)

	err := service.Delete(profileWithRole(models.RoleBuyer, 10), 5)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}
