package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"github.com/alpaii/WhereDidAllMyMoney/internal/config"
	"github.com/alpaii/WhereDidAllMyMoney/internal/server"
)

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer *tcpostgres.PostgresContainer
	serverInstance    *server.Server
	baseURL           string
	client            *http.Client
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	postgresContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("wheredidallmymoney"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		suite.T().Fatalf("Failed to start postgres container: %s", err)
	}
	suite.postgresContainer = postgresContainer

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		suite.T().Fatalf("Failed to get container host: %s", err)
	}
	port, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		suite.T().Fatalf("Failed to get mapped port: %s", err)
	}

	cfg := &config.Config{
		ServerPort:  "0", // let the OS choose a free port
		DBHost:      host,
		DBPort:      port.Port(),
		DBUser:      "postgres",
		DBPassword:  "password",
		DBName:      "wheredidallmymoney",
		DBSSLMode:   "disable",
		AutoMigrate: true,
	}

	serverInstance, serverPort, err := server.StartServer(cfg)
	if err != nil {
		suite.T().Fatalf("Failed to start application server: %s", err)
	}
	suite.serverInstance = serverInstance
	suite.baseURL = "http://localhost:" + serverPort

	suite.client = &http.Client{Timeout: 30 * time.Second}
	if err := suite.waitForServerReady(); err != nil {
		suite.T().Fatalf("Server never became ready: %s", err)
	}
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}
	if suite.postgresContainer != nil {
		suite.postgresContainer.Terminate(ctx)
	}
}

// ------------------------------------------------------------------
// HTTP helpers. Every test creates its own user (and accounts) so tests
// stay independent of execution order.
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) doJSON(method, path string, userID uuid.UUID, body interface{}) (int, map[string]interface{}) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		req.Header.Set("X-User-ID", userID.String())
	}

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)

	var parsed map[string]interface{}
	if len(respBody) > 0 {
		suite.Require().NoError(json.Unmarshal(respBody, &parsed), "unparseable response: %s", respBody)
	}
	return resp.StatusCode, parsed
}

func (suite *IntegrationTestSuite) createAccount(userID uuid.UUID, name, balance string) string {
	status, resp := suite.doJSON(http.MethodPost, "/accounts", userID, map[string]interface{}{
		"name":         name,
		"account_type": "bank",
		"balance":      balance,
	})
	suite.Require().Equal(http.StatusCreated, status, "create account: %v", resp)
	return resp["data"].(map[string]interface{})["account_id"].(string)
}

func (suite *IntegrationTestSuite) getBalance(userID uuid.UUID, accountID string) string {
	status, resp := suite.doJSON(http.MethodGet, "/accounts/"+accountID, userID, nil)
	suite.Require().Equal(http.StatusOK, status, "get account: %v", resp)
	return resp["data"].(map[string]interface{})["balance"].(string)
}

func (suite *IntegrationTestSuite) assertBalance(userID uuid.UUID, accountID, expected string) {
	actual := suite.getBalance(userID, accountID)
	expectedDec := decimal.RequireFromString(expected)
	actualDec := decimal.RequireFromString(actual)
	assert.True(suite.T(), expectedDec.Equal(actualDec),
		"balance mismatch: expected %s, got %s", expected, actual)
}

func errorCode(resp map[string]interface{}) string {
	errData, ok := resp["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errData["code"].(string)
	return code
}

// ------------------------------------------------------------------
// Tests
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) TestHealthCheck() {
	resp, err := suite.client.Get(suite.baseURL + "/health")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var healthResp map[string]interface{}
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&healthResp))
	assert.Equal(suite.T(), "healthy", healthResp["status"])
}

func (suite *IntegrationTestSuite) TestAccountLifecycle() {
	userID := uuid.New()

	accountID := suite.createAccount(userID, "Checking", "1000.50")
	suite.assertBalance(userID, accountID, "1000.50")

	status, resp := suite.doJSON(http.MethodGet, "/accounts", userID, nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Len(suite.T(), resp["data"].([]interface{}), 1)

	status, _ = suite.doJSON(http.MethodDelete, "/accounts/"+accountID, userID, nil)
	suite.Require().Equal(http.StatusNoContent, status)

	status, resp = suite.doJSON(http.MethodGet, "/accounts/"+accountID, userID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, status)
	assert.Equal(suite.T(), "account_not_found", errorCode(resp))
}

// Spec scenario: 1000.00, expense 150 -> 850, amount updated to 200 -> 800,
// expense deleted -> 1000.
func (suite *IntegrationTestSuite) TestExpenseLifecycleRestoresBalance() {
	userID := uuid.New()
	accountID := suite.createAccount(userID, "Checking", "1000.00")

	status, resp := suite.doJSON(http.MethodPost, "/expenses", userID, map[string]interface{}{
		"account_id": accountID,
		"amount":     "150.00",
		"memo":       "groceries",
	})
	suite.Require().Equal(http.StatusCreated, status, "create expense: %v", resp)
	expenseID := resp["data"].(map[string]interface{})["id"].(string)
	suite.assertBalance(userID, accountID, "850.00")

	status, resp = suite.doJSON(http.MethodPatch, "/expenses/"+expenseID, userID, map[string]interface{}{
		"amount": "200.00",
	})
	suite.Require().Equal(http.StatusOK, status, "update expense: %v", resp)
	suite.assertBalance(userID, accountID, "800.00")

	status, _ = suite.doJSON(http.MethodDelete, "/expenses/"+expenseID, userID, nil)
	suite.Require().Equal(http.StatusNoContent, status)
	suite.assertBalance(userID, accountID, "1000.00")
}

func (suite *IntegrationTestSuite) TestExpenseMovesBetweenAccounts() {
	userID := uuid.New()
	accountA := suite.createAccount(userID, "A", "500.00")
	accountB := suite.createAccount(userID, "B", "500.00")

	status, resp := suite.doJSON(http.MethodPost, "/expenses", userID, map[string]interface{}{
		"account_id": accountA,
		"amount":     "100.00",
	})
	suite.Require().Equal(http.StatusCreated, status, "create expense: %v", resp)
	expenseID := resp["data"].(map[string]interface{})["id"].(string)
	suite.assertBalance(userID, accountA, "400.00")

	// Moving the expense restores A and debits B.
	status, resp = suite.doJSON(http.MethodPatch, "/expenses/"+expenseID, userID, map[string]interface{}{
		"account_id": accountB,
	})
	suite.Require().Equal(http.StatusOK, status, "move expense: %v", resp)
	suite.assertBalance(userID, accountA, "500.00")
	suite.assertBalance(userID, accountB, "400.00")
}

func (suite *IntegrationTestSuite) TestExpenseListPagination() {
	userID := uuid.New()
	accountID := suite.createAccount(userID, "Checking", "1000.00")

	for i := 0; i < 5; i++ {
		status, _ := suite.doJSON(http.MethodPost, "/expenses", userID, map[string]interface{}{
			"account_id": accountID,
			"amount":     "10.00",
		})
		suite.Require().Equal(http.StatusCreated, status)
	}

	status, resp := suite.doJSON(http.MethodGet, "/expenses?page=2&size=2", userID, nil)
	suite.Require().Equal(http.StatusOK, status)
	data := resp["data"].(map[string]interface{})
	assert.Equal(suite.T(), float64(5), data["total"])
	assert.Equal(suite.T(), float64(3), data["pages"])
	assert.Len(suite.T(), data["items"].([]interface{}), 2)
}

// Spec scenario: transfer 300 from A(1000) to B(500), then delete it.
func (suite *IntegrationTestSuite) TestTransferAndReversal() {
	userID := uuid.New()
	accountA := suite.createAccount(userID, "A", "1000.00")
	accountB := suite.createAccount(userID, "B", "500.00")

	status, resp := suite.doJSON(http.MethodPost, "/transfers", userID, map[string]interface{}{
		"from_account_id": accountA,
		"to_account_id":   accountB,
		"amount":          "300.00",
	})
	suite.Require().Equal(http.StatusCreated, status, "create transfer: %v", resp)
	data := resp["data"].(map[string]interface{})
	transferID := data["transfer"].(map[string]interface{})["id"].(string)
	assert.Equal(suite.T(), "700.00", data["from_account_balance"])
	assert.Equal(suite.T(), "800.00", data["to_account_balance"])
	suite.assertBalance(userID, accountA, "700.00")
	suite.assertBalance(userID, accountB, "800.00")

	status, _ = suite.doJSON(http.MethodDelete, "/transfers/"+transferID, userID, nil)
	suite.Require().Equal(http.StatusNoContent, status)
	suite.assertBalance(userID, accountA, "1000.00")
	suite.assertBalance(userID, accountB, "500.00")
}

func (suite *IntegrationTestSuite) TestSameAccountTransferRejected() {
	userID := uuid.New()
	accountID := suite.createAccount(userID, "A", "1000.00")

	status, resp := suite.doJSON(http.MethodPost, "/transfers", userID, map[string]interface{}{
		"from_account_id": accountID,
		"to_account_id":   accountID,
		"amount":          "100.00",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "same_account_transfer", errorCode(resp))
	suite.assertBalance(userID, accountID, "1000.00")
}

func (suite *IntegrationTestSuite) TestTransferInvalidAmounts() {
	userID := uuid.New()
	accountA := suite.createAccount(userID, "A", "1000.00")
	accountB := suite.createAccount(userID, "B", "1000.00")

	for _, amount := range []string{"0.00", "-100.00"} {
		status, resp := suite.doJSON(http.MethodPost, "/transfers", userID, map[string]interface{}{
			"from_account_id": accountA,
			"to_account_id":   accountB,
			"amount":          amount,
		})
		assert.Equal(suite.T(), http.StatusBadRequest, status)
		assert.Equal(suite.T(), "invalid_amount", errorCode(resp))
	}
	suite.assertBalance(userID, accountA, "1000.00")
	suite.assertBalance(userID, accountB, "1000.00")
}

// Credit-card style accounts may go below zero; nothing clamps.
func (suite *IntegrationTestSuite) TestTransferAllowsNegativeBalance() {
	userID := uuid.New()
	accountA := suite.createAccount(userID, "Card", "100.00")
	accountB := suite.createAccount(userID, "Bank", "0.00")

	status, resp := suite.doJSON(http.MethodPost, "/transfers", userID, map[string]interface{}{
		"from_account_id": accountA,
		"to_account_id":   accountB,
		"amount":          "300.00",
	})
	suite.Require().Equal(http.StatusCreated, status, "create transfer: %v", resp)
	suite.assertBalance(userID, accountA, "-200.00")
	suite.assertBalance(userID, accountB, "300.00")
}

func (suite *IntegrationTestSuite) TestOwnershipIsolation() {
	owner := uuid.New()
	intruder := uuid.New()
	accountID := suite.createAccount(owner, "Private", "1000.00")

	status, resp := suite.doJSON(http.MethodGet, "/accounts/"+accountID, intruder, nil)
	assert.Equal(suite.T(), http.StatusNotFound, status)
	assert.Equal(suite.T(), "account_not_found", errorCode(resp))

	status, resp = suite.doJSON(http.MethodPost, "/expenses", intruder, map[string]interface{}{
		"account_id": accountID,
		"amount":     "100.00",
	})
	assert.Equal(suite.T(), http.StatusNotFound, status)
	assert.Equal(suite.T(), "account_not_found", errorCode(resp))

	suite.assertBalance(owner, accountID, "1000.00")
}

// No lost updates: 50 concurrent debits against one account must all land.
func (suite *IntegrationTestSuite) TestConcurrentExpensesNoLostUpdates() {
	userID := uuid.New()
	accountID := suite.createAccount(userID, "Busy", "1000.00")

	const callers = 50
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			status, resp := suite.doJSON(http.MethodPost, "/expenses", userID, map[string]interface{}{
				"account_id": accountID,
				"amount":     "10.00",
			})
			if status != http.StatusCreated {
				return fmt.Errorf("expense rejected with status %d: %v", status, resp)
			}
			return nil
		})
	}
	suite.Require().NoError(g.Wait())

	// 1000.00 - 50*10.00
	suite.assertBalance(userID, accountID, "500.00")
}

// Deadlock freedom: opposite-direction transfers on the same pair, repeated.
func (suite *IntegrationTestSuite) TestConcurrentOppositeTransfers() {
	userID := uuid.New()
	accountA := suite.createAccount(userID, "A", "1000.00")
	accountB := suite.createAccount(userID, "B", "1000.00")

	transfer := func(from, to string) error {
		status, resp := suite.doJSON(http.MethodPost, "/transfers", userID, map[string]interface{}{
			"from_account_id": from,
			"to_account_id":   to,
			"amount":          "10.00",
		})
		if status != http.StatusCreated {
			return fmt.Errorf("transfer rejected with status %d: %v", status, resp)
		}
		return nil
	}

	for trial := 0; trial < 20; trial++ {
		var g errgroup.Group
		g.Go(func() error { return transfer(accountA, accountB) })
		g.Go(func() error { return transfer(accountB, accountA) })
		suite.Require().NoError(g.Wait(), "trial %d deadlocked or failed", trial)
	}

	// Every trial is symmetric, so both balances end where they started.
	suite.assertBalance(userID, accountA, "1000.00")
	suite.assertBalance(userID, accountB, "1000.00")
}

// Conservation: concurrent transfers never create or destroy money.
func (suite *IntegrationTestSuite) TestConcurrentTransfersConserveTotal() {
	userID := uuid.New()
	accountA := suite.createAccount(userID, "A", "600.00")
	accountB := suite.createAccount(userID, "B", "400.00")

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			status, resp := suite.doJSON(http.MethodPost, "/transfers", userID, map[string]interface{}{
				"from_account_id": accountA,
				"to_account_id":   accountB,
				"amount":          "25.00",
			})
			if status != http.StatusCreated {
				return fmt.Errorf("transfer rejected with status %d: %v", status, resp)
			}
			return nil
		})
	}
	suite.Require().NoError(g.Wait())

	balanceA := decimal.RequireFromString(suite.getBalance(userID, accountA))
	balanceB := decimal.RequireFromString(suite.getBalance(userID, accountB))
	assert.True(suite.T(), balanceA.Equal(decimal.RequireFromString("350.00")), "got %s", balanceA)
	assert.True(suite.T(), balanceB.Equal(decimal.RequireFromString("650.00")), "got %s", balanceB)
	assert.True(suite.T(), balanceA.Add(balanceB).Equal(decimal.RequireFromString("1000.00")))
}

func (suite *IntegrationTestSuite) TestMaintenanceFeePaymentFlow() {
	userID := uuid.New()
	accountID := suite.createAccount(userID, "Household", "100000.00")

	status, resp := suite.doJSON(http.MethodPost, "/maintenance-fees", userID, map[string]interface{}{
		"year_month": "2025-11",
		"details": []map[string]interface{}{
			{"category": "management", "item_name": "general", "amount": "50000.00"},
			{"category": "energy", "item_name": "electricity", "amount": "13000.50", "usage_amount": "241", "usage_unit": "kWh"},
		},
	})
	suite.Require().Equal(http.StatusCreated, status, "create fee record: %v", resp)
	data := resp["data"].(map[string]interface{})
	recordID := data["id"].(string)
	assert.Equal(suite.T(), "63000.50", data["total_amount"])

	// Pay debits the account through the balance protocol.
	status, resp = suite.doJSON(http.MethodPost, "/maintenance-fees/"+recordID+"/pay", userID, map[string]interface{}{
		"account_id": accountID,
	})
	suite.Require().Equal(http.StatusOK, status, "pay fee record: %v", resp)
	suite.assertBalance(userID, accountID, "36999.50")

	// A bill cannot be paid twice.
	status, resp = suite.doJSON(http.MethodPost, "/maintenance-fees/"+recordID+"/pay", userID, map[string]interface{}{
		"account_id": accountID,
	})
	assert.Equal(suite.T(), http.StatusBadRequest, status)
	assert.Equal(suite.T(), "maintenance_fee_already_paid", errorCode(resp))
	suite.assertBalance(userID, accountID, "36999.50")

	// Deleting a paid bill is refused; unpay first.
	status, _ = suite.doJSON(http.MethodDelete, "/maintenance-fees/"+recordID, userID, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, status)

	status, resp = suite.doJSON(http.MethodPost, "/maintenance-fees/"+recordID+"/unpay", userID, nil)
	suite.Require().Equal(http.StatusOK, status, "unpay fee record: %v", resp)
	suite.assertBalance(userID, accountID, "100000.00")

	status, _ = suite.doJSON(http.MethodDelete, "/maintenance-fees/"+recordID, userID, nil)
	assert.Equal(suite.T(), http.StatusNoContent, status)
}

func (suite *IntegrationTestSuite) TestTransfersVisibleOnlyToOwner() {
	owner := uuid.New()
	stranger := uuid.New()
	accountA := suite.createAccount(owner, "A", "1000.00")
	accountB := suite.createAccount(owner, "B", "0.00")

	status, resp := suite.doJSON(http.MethodPost, "/transfers", owner, map[string]interface{}{
		"from_account_id": accountA,
		"to_account_id":   accountB,
		"amount":          "50.00",
	})
	suite.Require().Equal(http.StatusCreated, status)
	transferID := resp["data"].(map[string]interface{})["transfer"].(map[string]interface{})["id"].(string)

	status, resp = suite.doJSON(http.MethodGet, "/transfers/"+transferID, stranger, nil)
	assert.Equal(suite.T(), http.StatusNotFound, status)
	assert.Equal(suite.T(), "transfer_not_found", errorCode(resp))

	// An empty list is omitted from the envelope entirely.
	status, resp = suite.doJSON(http.MethodGet, "/transfers", stranger, nil)
	suite.Require().Equal(http.StatusOK, status)
	assert.Empty(suite.T(), resp["data"])
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
