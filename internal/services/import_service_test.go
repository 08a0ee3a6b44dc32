package services

import (
	"strings"
	"testing"

	"caudal/internal/models"
	"caudal/internal/testutil"
)

func TestImportAccounts(t *testing.T) {
	t.Run("creates_then_updates_on_reimport", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewImportService(db, NewAccountService(db))

		file := "name,type,currency,description\n" +
			"Main Checking,checking,USD,daily driver\n" +
			"Emergency Fund,savings,,rainy day\n"

		summary, err := svc.ImportAccounts(strings.NewReader(file))
		testutil.AssertNoError(t, err)
		if summary.Created != 2 || summary.Updated != 0 {
			t.Fatalf("expected 2 created, got %+v", summary)
		}

		// Same file again: every row resolves to the existing account.
		summary, err = svc.ImportAccounts(strings.NewReader(file))
		testutil.AssertNoError(t, err)
		if summary.Created != 0 || summary.Updated != 2 {
			t.Fatalf("expected 2 updated on reimport, got %+v", summary)
		}

		var count int64
		db.Model(&models.Account{}).Count(&count)
		if count != 2 {
			t.Errorf("expected 2 accounts after reimport, got %d", count)
		}

		var fund models.Account
		testutil.AssertNoError(t, db.Where("name = ?", "Emergency Fund").First(&fund).Error)
		if fund.Currency != "COP" {
			t.Errorf("expected default currency COP, got %s", fund.Currency)
		}
	})

	t.Run("collects_bad_rows", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewImportService(db, NewAccountService(db))

		file := "name,type\n" +
			",checking\n" +
			"Broken,timeshare\n" +
			"Good,cash\n"

		summary, err := svc.ImportAccounts(strings.NewReader(file))
		testutil.AssertNoError(t, err)

		if summary.Created != 1 {
			t.Errorf("expected 1 created, got %d", summary.Created)
		}
		if len(summary.Failed) != 2 {
			t.Fatalf("expected 2 failed rows, got %v", summary.Failed)
		}
		if !strings.HasPrefix(summary.Failed[0], "row 2:") || !strings.HasPrefix(summary.Failed[1], "row 3:") {
			t.Errorf("expected failures labeled by line number, got %v", summary.Failed)
		}
	})

	t.Run("empty_file", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewImportService(db, NewAccountService(db))

		_, err := svc.ImportAccounts(strings.NewReader(""))
		testutil.AssertAppError(t, err, "INVALID_IMPORT_FILE")
	})
}

func TestImportCategories(t *testing.T) {
	t.Run("resolves_parent_by_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewImportService(db, NewAccountService(db))

		file := "name,type,parent\n" +
			"Food,expense,\n" +
			"Restaurants,expense,Food\n" +
			"Orphan,expense,Nonexistent\n"

		summary, err := svc.ImportCategories(strings.NewReader(file))
		testutil.AssertNoError(t, err)

		if summary.Created != 2 {
			t.Errorf("expected 2 created, got %d", summary.Created)
		}
		if len(summary.Failed) != 1 {
			t.Errorf("expected 1 failed row, got %v", summary.Failed)
		}

		var child models.Category
		testutil.AssertNoError(t, db.Where("name = ?", "Restaurants").First(&child).Error)
		if child.ParentID == nil {
			t.Error("expected child category to be linked to its parent")
		}
	})
}

func TestImportTransactions(t *testing.T) {
	t.Run("recomputes_affected_balances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewImportService(db, accounts)

		checking, err := accounts.CreateAccount("Checking", models.AccountTypeChecking, 0, "", "", "")
		testutil.AssertNoError(t, err)
		savings, err := accounts.CreateAccount("Savings", models.AccountTypeSavings, 0, "", "", "")
		testutil.AssertNoError(t, err)

		file := "account,type,amount,description,date,transfer_to\n" +
			"Checking,income,100000,Salary,2024-03-01,\n" +
			"Checking,expense,30000,Groceries,2024-03-05,\n" +
			"Checking,transfer,20000,To savings,2024-03-10,Savings\n"

		summary, err := svc.ImportTransactions(strings.NewReader(file))
		testutil.AssertNoError(t, err)
		if summary.Created != 3 || len(summary.Failed) != 0 {
			t.Fatalf("expected 3 created, got %+v", summary)
		}

		updatedChecking, err := accounts.GetAccountByID(checking.ID)
		testutil.AssertNoError(t, err)
		updatedSavings, err := accounts.GetAccountByID(savings.ID)
		testutil.AssertNoError(t, err)

		if updatedChecking.Balance != 50000 {
			t.Errorf("expected checking balance 50000, got %d", updatedChecking.Balance)
		}
		if updatedSavings.Balance != 20000 {
			t.Errorf("expected savings balance 20000, got %d", updatedSavings.Balance)
		}
	})

	t.Run("reimport_is_idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewImportService(db, accounts)

		checking, err := accounts.CreateAccount("Checking", models.AccountTypeChecking, 0, "", "", "")
		testutil.AssertNoError(t, err)

		file := "account,type,amount,description,date,reference_number\n" +
			"Checking,income,100000,Salary,2024-03-01,REF-1\n"

		_, err = svc.ImportTransactions(strings.NewReader(file))
		testutil.AssertNoError(t, err)
		summary, err := svc.ImportTransactions(strings.NewReader(file))
		testutil.AssertNoError(t, err)

		if summary.Created != 0 || summary.Updated != 1 {
			t.Fatalf("expected reimport to update, got %+v", summary)
		}

		updated, err := accounts.GetAccountByID(checking.ID)
		testutil.AssertNoError(t, err)
		if updated.Balance != 100000 {
			t.Errorf("expected balance 100000 after reimport, got %d", updated.Balance)
		}
	})

	t.Run("bad_rows_do_not_stop_the_run", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewImportService(db, accounts)

		_, err := accounts.CreateAccount("Checking", models.AccountTypeChecking, 0, "", "", "")
		testutil.AssertNoError(t, err)

		file := "account,type,amount,description,date\n" +
			"Nowhere,income,100,x,2024-03-01\n" +
			"Checking,income,-5,x,2024-03-01\n" +
			"Checking,income,100,x,not-a-date\n" +
			"Checking,income,100,Good,2024-03-01\n"

		summary, err := svc.ImportTransactions(strings.NewReader(file))
		testutil.AssertNoError(t, err)

		if summary.Created != 1 {
			t.Errorf("expected 1 created, got %d", summary.Created)
		}
		if len(summary.Failed) != 3 {
			t.Errorf("expected 3 failed rows, got %v", summary.Failed)
		}
	})
}

func TestImportRecurring(t *testing.T) {
	t.Run("upserts_by_account_description_frequency", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		accounts := NewAccountService(db)
		svc := NewImportService(db, accounts)

		_, err := accounts.CreateAccount("Checking", models.AccountTypeChecking, 0, "", "", "")
		testutil.AssertNoError(t, err)
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		file := "account,category,description,frequency,amount,next_due_date,auto_process\n" +
			"Checking," + category.Name + ",Rent,monthly,-50000,2024-04-01,true\n"

		summary, err := svc.ImportRecurring(strings.NewReader(file))
		testutil.AssertNoError(t, err)
		if summary.Created != 1 {
			t.Fatalf("expected 1 created, got %+v", summary)
		}

		summary, err = svc.ImportRecurring(strings.NewReader(file))
		testutil.AssertNoError(t, err)
		if summary.Updated != 1 {
			t.Fatalf("expected 1 updated on reimport, got %+v", summary)
		}

		var recurring models.RecurringTransaction
		testutil.AssertNoError(t, db.Where("description = ?", "Rent").First(&recurring).Error)
		if !recurring.AutoProcess {
			t.Error("expected auto_process flag to be set")
		}
	})
}

func TestImportBudgets(t *testing.T) {
	t.Run("validates_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewImportService(db, NewAccountService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		file := "category,period,amount,start_date,end_date\n" +
			category.Name + ",monthly,500000,2024-03-01,2024-04-01\n" +
			category.Name + ",monthly,500000,2024-05-01,2024-05-01\n"

		summary, err := svc.ImportBudgets(strings.NewReader(file))
		testutil.AssertNoError(t, err)

		if summary.Created != 1 {
			t.Errorf("expected 1 created, got %d", summary.Created)
		}
		if len(summary.Failed) != 1 {
			t.Errorf("expected 1 failed row, got %v", summary.Failed)
		}
	})
}

func TestImportRules(t *testing.T) {
	t.Run("parses_json_conditions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewImportService(db, NewAccountService(db))
		category := testutil.CreateTestCategory(t, db, models.CategoryTypeExpense)

		file := "name,category,conditions,priority\n" +
			`Streaming,` + category.Name + `,"[{""field"":""description"",""operator"":""contains"",""value"":""netflix""}]",10` + "\n" +
			`Broken,` + category.Name + `,not-json,5` + "\n"

		summary, err := svc.ImportRules(strings.NewReader(file))
		testutil.AssertNoError(t, err)

		if summary.Created != 1 {
			t.Errorf("expected 1 created, got %d", summary.Created)
		}
		if len(summary.Failed) != 1 {
			t.Errorf("expected 1 failed row, got %v", summary.Failed)
		}

		var rule models.TransactionRule
		testutil.AssertNoError(t, db.Where("name = ?", "Streaming").First(&rule).Error)
		if len(rule.Conditions) != 1 || rule.Conditions[0].Value != "netflix" {
			t.Errorf("unexpected conditions %+v", rule.Conditions)
		}
		if rule.Priority != 10 {
			t.Errorf("expected priority 10, got %d", rule.Priority)
		}
	})
}
