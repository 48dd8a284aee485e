package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ManuelReschke/Tochigi/app/models"
)

type RepositoryTestSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	repos *Repositories
}

func (s *RepositoryTestSuite) SetupTest() {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(s.T(), err)
	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	s.mock = mock
	s.repos = NewFactory(db).GetRepositories()
}

func (s *RepositoryTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func (s *RepositoryTestSuite) TestCompanyGetByID() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `companies` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "is_active"}).
			AddRow("c1", "宇都宮工務店", "info@utsunomiya.example.jp", true))

	company, err := s.repos.Company.GetByID("c1")
	s.Require().NoError(err)
	s.Equal("宇都宮工務店", company.Name)
	s.True(company.IsActive)
}

func (s *RepositoryTestSuite) TestCompanyGetByIDNotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `companies` WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.repos.Company.GetByID("missing")
	s.True(errors.Is(err, gorm.ErrRecordNotFound))
}

func (s *RepositoryTestSuite) TestGetActiveByIDsSkipsQueryForEmptyInput() {
	companies, err := s.repos.Company.GetActiveByIDs(nil)
	s.NoError(err)
	s.Empty(companies)
}

func (s *RepositoryTestSuite) TestCreateInquiryWithCompaniesIsOneTransaction() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `inquiries`")).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `inquiry_companies`")).WillReturnResult(sqlmock.NewResult(0, 2))
	s.mock.ExpectCommit()

	inquiry := &models.Inquiry{
		CustomerName:  "佐藤花子",
		CustomerEmail: "hanako@example.jp",
		CustomerPhone: "0281234567",
		Message:       "リフォームの見積もりをお願いします。",
		Status:        models.InquiryStatusSent,
	}
	err := s.repos.Inquiry.CreateWithCompanies(inquiry, []string{"c1", "c2"})
	s.Require().NoError(err)
	s.NotEmpty(inquiry.ID)
	s.Equal([]string{"c1", "c2"}, inquiry.SelectedItems())
}

func (s *RepositoryTestSuite) TestCreateInquiryRollsBackOnLinkFailure() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `inquiries`")).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `inquiry_companies`")).WillReturnError(errors.New("fk violation"))
	s.mock.ExpectRollback()

	err := s.repos.Inquiry.CreateWithCompanies(&models.Inquiry{CustomerName: "x"}, []string{"c1"})
	s.Error(err)
}

func (s *RepositoryTestSuite) TestContentPostUpsertUsesRemoteKey() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec("INSERT INTO `content_posts` .* ON DUPLICATE KEY UPDATE .*`caption`=VALUES\\(`caption`\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repos.ContentPost.Upsert(&models.ContentPost{
		CompanyID: "c1",
		PostID:    "m1",
		MediaURL:  "https://cdn.example/m1.jpg",
		MediaType: models.MediaTypeImage,
		Permalink: "https://instagram.com/p/m1",
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	s.NoError(err)
}

func (s *RepositoryTestSuite) TestCountActiveByPlan() {
	s.mock.ExpectQuery("SELECT plan, COUNT\\(\\*\\) AS n FROM `subscriptions`").
		WillReturnRows(sqlmock.NewRows([]string{"plan", "n"}).
			AddRow("instagram_only", 2).
			AddRow("platform_full", 5))

	counts, err := s.repos.Subscription.CountActiveByPlan()
	s.Require().NoError(err)
	s.Equal(map[string]int64{"instagram_only": 2, "platform_full": 5}, counts)
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func TestOrderClause(t *testing.T) {
	assert.Equal(t, "name asc", orderClause(companySortColumns, "name", "ASC"))
	assert.Equal(t, "created_at desc", orderClause(companySortColumns, "id; DROP TABLE companies", "asc; --"))
	assert.Equal(t, "updated_at desc", orderClause(companySortColumns, "updatedAt", ""))
}
