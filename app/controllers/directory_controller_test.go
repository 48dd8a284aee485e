package controllers

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

func setupDirectoryApp(companies *mockCompanyRepo, services *mockServiceRepo, categories *mockCategoryRepo) *fiber.App {
	ctl := NewDirectoryController(companies, services, categories, nil, validation.New())
	app := newTestApp()
	app.Get("/api/companies", ctl.HandleCompanies)
	app.Get("/api/companies/:id", ctl.HandleCompany)
	app.Get("/api/companies/:id/services", ctl.HandleCompanyServices)
	app.Get("/api/categories", ctl.HandleCategories)
	return app
}

func boolIs(want bool) any {
	return mock.MatchedBy(func(b *bool) bool { return b != nil && *b == want })
}

func TestCompaniesListEnvelope(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("ListPublic", repository.CompanyFilter{
		CategoryID: "cat-food",
		Search:     "そば",
		SortBy:     "name",
		Order:      "asc",
		Page:       pagination.Params{Page: 2, Limit: 5},
	}).Return([]models.CompanyWithCounts{
		{Company: models.Company{ID: "c1", Name: "日光そば処"}, Count: models.CompanyCounts{Services: 3}},
	}, int64(11), nil)
	app := setupDirectoryApp(companies, new(mockServiceRepo), new(mockCategoryRepo))

	resp := call(t, app, "GET", "/api/companies?categoryId=cat-food&search=%E3%81%9D%E3%81%B0&sortBy=name&order=asc&page=2&limit=5", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	data := resp.Body["data"].([]any)
	require.Len(t, data, 1)
	first := data[0].(map[string]any)
	assert.Equal(t, "日光そば処", first["name"])
	assert.EqualValues(t, 3, first["_count"].(map[string]any)["services"])

	meta := resp.Body["pagination"].(map[string]any)
	assert.EqualValues(t, 2, meta["page"])
	assert.EqualValues(t, 5, meta["limit"])
	assert.EqualValues(t, 11, meta["total"])
	assert.EqualValues(t, 3, meta["totalPages"])
	companies.AssertExpectations(t)
}

func TestCompaniesRejectsUnknownSort(t *testing.T) {
	app := setupDirectoryApp(new(mockCompanyRepo), new(mockServiceRepo), new(mockCategoryRepo))

	resp := call(t, app, "GET", "/api/companies?sortBy=price", nil)

	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_ERROR", resp.errorCode())
	assert.Contains(t, resp.errorDetails(), "sortBy")
}

func TestCompanyDetailNotFound(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("GetPublicDetail", "missing").Return(nil, gorm.ErrRecordNotFound)
	app := setupDirectoryApp(companies, new(mockServiceRepo), new(mockCategoryRepo))

	resp := call(t, app, "GET", "/api/companies/missing", nil)

	assert.Equal(t, fiber.StatusNotFound, resp.Status)
	assert.Equal(t, "NOT_FOUND", resp.errorCode())
}

func TestCompanyServicesOfInactiveCompany(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("GetByID", "c9").Return(&models.Company{ID: "c9", IsActive: false}, nil)
	services := new(mockServiceRepo)
	app := setupDirectoryApp(companies, services, new(mockCategoryRepo))

	resp := call(t, app, "GET", "/api/companies/c9/services", nil)

	assert.Equal(t, fiber.StatusNotFound, resp.Status)
	services.AssertNotCalled(t, "ListByCompany", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompanyServicesDefaultsToActive(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("GetByID", "c1").Return(&models.Company{ID: "c1", IsActive: true}, nil)
	services := new(mockServiceRepo)
	services.On("ListByCompany", "c1", boolIs(true), pagination.Params{Page: 1, Limit: 10}).
		Return([]models.Service{{ID: "s1", CompanyID: "c1", Name: "手打ちそば", PriceFrom: decimal.NewFromInt(900), IsActive: true}}, int64(1), nil)
	app := setupDirectoryApp(companies, services, new(mockCategoryRepo))

	resp := call(t, app, "GET", "/api/companies/c1/services", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	data := resp.Body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "900", data[0].(map[string]any)["priceFrom"])
	services.AssertExpectations(t)
}

func TestCompanyServicesInactiveOnRequest(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("GetByID", "c1").Return(&models.Company{ID: "c1", IsActive: true}, nil)
	services := new(mockServiceRepo)
	services.On("ListByCompany", "c1", boolIs(false), mock.Anything).Return(nil, int64(0), nil)
	app := setupDirectoryApp(companies, services, new(mockCategoryRepo))

	resp := call(t, app, "GET", "/api/companies/c1/services?isActive=false", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Empty(t, resp.Body["data"])
	services.AssertExpectations(t)
}

func TestCategoriesWithoutCache(t *testing.T) {
	categories := new(mockCategoryRepo)
	categories.On("List").Return([]models.Category{{ID: "cat-food", Name: "飲食", Slug: "food"}}, nil)
	categories.On("ListWithCounts").Return([]models.CategoryWithCount{
		{Category: models.Category{ID: "cat-food", Name: "飲食", Slug: "food"}, CompanyCount: 4},
	}, nil)
	app := setupDirectoryApp(new(mockCompanyRepo), new(mockServiceRepo), categories)

	plain := call(t, app, "GET", "/api/categories", nil)
	require.Equal(t, fiber.StatusOK, plain.Status)
	assert.Contains(t, string(plain.Raw), `"slug":"food"`)
	assert.NotContains(t, string(plain.Raw), "companyCount")

	counted := call(t, app, "GET", "/api/categories?includeCount=true", nil)
	require.Equal(t, fiber.StatusOK, counted.Status)
	assert.Contains(t, string(counted.Raw), `"companyCount":4`)
	categories.AssertExpectations(t)
}
