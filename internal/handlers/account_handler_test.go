package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "caudal/internal/errors"
	"caudal/internal/models"
	"caudal/internal/pagination"
	"caudal/internal/services"
)

// --- mock account service ---

type mockAccountService struct {
	createAccountFn      func(name string, accountType models.AccountType, openingBalance int64, currency, description, accountNumber string) (*models.Account, error)
	getAccountsFn        func(page pagination.PageRequest, accountType *models.AccountType, isActive *bool) (*pagination.PageResponse[models.Account], error)
	getAccountByIDFn     func(accountID string) (*models.Account, error)
	updateAccountFn      func(accountID string, fields services.AccountUpdateFields) (*models.Account, error)
	deleteAccountFn      func(accountID string) error
	recalculateBalanceFn func(tx *gorm.DB, accountID string) error
}

func (m *mockAccountService) CreateAccount(name string, accountType models.AccountType, openingBalance int64, currency, description, accountNumber string) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(name, accountType, openingBalance, currency, description, accountNumber)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) GetAccounts(page pagination.PageRequest, accountType *models.AccountType, isActive *bool) (*pagination.PageResponse[models.Account], error) {
	if m.getAccountsFn != nil {
		return m.getAccountsFn(page, accountType, isActive)
	}
	resp := pagination.NewPageResponse([]models.Account{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAccountService) GetAccountByID(accountID string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(accountID)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) UpdateAccount(accountID string, fields services.AccountUpdateFields) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(accountID, fields)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) DeleteAccount(accountID string) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(accountID)
	}
	return nil
}

func (m *mockAccountService) RecalculateBalance(tx *gorm.DB, accountID string) error {
	if m.recalculateBalanceFn != nil {
		return m.recalculateBalanceFn(tx, accountID)
	}
	return nil
}

// verify interface compliance
var _ services.AccountServicer = (*mockAccountService)(nil)

func setupAccountRouter(handler *AccountHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/accounts", handler.CreateAccount)
	auth.GET("/accounts", handler.GetAccounts)
	auth.GET("/accounts/:id", handler.GetAccountByID)
	auth.PUT("/accounts/:id", handler.UpdateAccount)
	auth.DELETE("/accounts/:id", handler.DeleteAccount)
	return r
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		acctSvc := &mockAccountService{
			createAccountFn: func(name string, accountType models.AccountType, balance int64, currency, _, _ string) (*models.Account, error) {
				return &models.Account{
					Base:     models.Base{ID: testUserID},
					Name:     name,
					Type:     accountType,
					Balance:  balance,
					Currency: currency,
					IsActive: true,
				}, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts",
			`{"name":"Savings","type":"savings","currency":"USD","opening_balance":5000}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		acct := result["account"].(map[string]interface{})
		if acct["name"] != "Savings" {
			t.Errorf("expected Savings, got %v", acct["name"])
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts", `{"type":"checking"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on unknown account type", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"timeshare"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid currency", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"checking","currency":"INVALID"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on negative opening balance", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"checking","opening_balance":-100}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/accounts", handler.CreateAccount)

		rec := doRequest(r, "POST", "/accounts", `{"name":"Test","type":"checking"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_GetAccounts(t *testing.T) {
	t.Run("returns 200 with paginated accounts", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountsFn: func(_ pagination.PageRequest, _ *models.AccountType, _ *bool) (*pagination.PageResponse[models.Account], error) {
				resp := pagination.NewPageResponse([]models.Account{
					{Name: "Checking"},
					{Name: "Savings"},
				}, 1, 20, 2)
				return &resp, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if len(data) != 2 {
			t.Errorf("expected 2 accounts, got %d", len(data))
		}
		if result["total_items"].(float64) != 2 {
			t.Errorf("expected total_items=2, got %v", result["total_items"])
		}
	})

	t.Run("passes filters to service", func(t *testing.T) {
		var capturedType *models.AccountType
		var capturedActive *bool
		acctSvc := &mockAccountService{
			getAccountsFn: func(_ pagination.PageRequest, accountType *models.AccountType, isActive *bool) (*pagination.PageResponse[models.Account], error) {
				capturedType = accountType
				capturedActive = isActive
				resp := pagination.NewPageResponse([]models.Account{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		doRequest(r, "GET", "/accounts?type=savings&is_active=true", "")

		if capturedType == nil || *capturedType != models.AccountTypeSavings {
			t.Errorf("expected savings filter, got %v", capturedType)
		}
		if capturedActive == nil || !*capturedActive {
			t.Errorf("expected is_active filter, got %v", capturedActive)
		}
	})
}

func TestAccountHandler_GetAccountByID(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(accountID string) (*models.Account, error) {
				return &models.Account{
					Base: models.Base{ID: accountID},
					Name: "Savings",
					Type: models.AccountTypeSavings,
				}, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/"+testUserID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		acct := result["account"].(map[string]interface{})
		if acct["name"] != "Savings" {
			t.Errorf("expected Savings, got %v", acct["name"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		acctSvc := &mockAccountService{
			getAccountByIDFn: func(_ string) (*models.Account, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/"+testUserID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "GET", "/accounts/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAccountHandler_UpdateAccount(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		acctSvc := &mockAccountService{
			updateAccountFn: func(accountID string, fields services.AccountUpdateFields) (*models.Account, error) {
				return &models.Account{
					Base: models.Base{ID: accountID},
					Name: *fields.Name,
					Type: models.AccountTypeChecking,
				}, nil
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "PUT", "/accounts/"+testUserID, `{"name":"Updated"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		acct := result["account"].(map[string]interface{})
		if acct["name"] != "Updated" {
			t.Errorf("expected Updated, got %v", acct["name"])
		}
	})
}

func TestAccountHandler_DeleteAccount(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		handler := NewAccountHandler(&mockAccountService{}, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "DELETE", "/accounts/"+testUserID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		acctSvc := &mockAccountService{
			deleteAccountFn: func(_ string) error {
				return apperrors.ErrAccountNotFound
			},
		}
		handler := NewAccountHandler(acctSvc, &mockAuditService{})
		r := setupAccountRouter(handler)

		rec := doRequest(r, "DELETE", "/accounts/"+testUserID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
