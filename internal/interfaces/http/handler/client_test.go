package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	billingapp "github.com/contaflow/backend/internal/application/billing"
	"github.com/contaflow/backend/internal/infrastructure/persistence"
	"github.com/contaflow/backend/internal/infrastructure/persistence/models"
	"github.com/contaflow/backend/internal/interfaces/http/middleware"
	"github.com/contaflow/backend/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupClientAPI(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ClientModel{}, &models.ChartOfAccountModel{}))

	clients := billingapp.NewClientService(
		persistence.NewGormClientRepository(db),
		persistence.NewGormChartOfAccountRepository(db),
		persistence.NewGormUnitOfWork(db),
		zap.NewNop(),
	)

	middleware.SetupValidator()

	engine := gin.New()
	api := engine.Group("/api/v1")
	api.Use(middleware.TenantMiddleware())
	NewClientHandler(clients).RegisterRoutes(api)
	return engine
}

func TestClientHandlerCreate(t *testing.T) {
	engine := setupClientAPI(t)
	tenantID := testutil.TestTenantID()

	t.Run("registers a client and normalizes the document", func(t *testing.T) {
		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/clients", tenantID, gin.H{
			"name":        "Transportes Silva Ltda",
			"document":    "12.345.678/0001-90",
			"monthly_fee": 1500.00,
			"payment_day": 10,
		})
		testutil.AssertStatus(t, w, http.StatusCreated)

		data := testutil.AssertSuccess(t, w)
		assert.Equal(t, "12345678000190", data["document"])
		assert.Equal(t, "CNPJ", data["document_type"])
		assert.NotEmpty(t, data["id"])
	})

	t.Run("rejects a malformed document", func(t *testing.T) {
		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/clients", tenantID, gin.H{
			"name":        "Cliente Invalido",
			"document":    "12345",
			"monthly_fee": 100.00,
			"payment_day": 5,
		})
		testutil.AssertStatus(t, w, http.StatusBadRequest)
		testutil.AssertError(t, w, "VALIDATION_ERROR")
	})

	t.Run("rejects a duplicate document within the tenant", func(t *testing.T) {
		body := gin.H{
			"name":        "Padaria Pao Quente ME",
			"document":    "98765432000155",
			"monthly_fee": 800.00,
			"payment_day": 15,
		}
		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/clients", tenantID, body)
		testutil.AssertStatus(t, w, http.StatusCreated)

		w = testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/clients", tenantID, body)
		testutil.AssertStatus(t, w, http.StatusConflict)
		testutil.AssertError(t, w, "DOCUMENT_IN_USE")
	})

	t.Run("requires the tenant header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestClientHandlerGet(t *testing.T) {
	engine := setupClientAPI(t)
	tenantID := testutil.TestTenantID()

	w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/clients", tenantID, gin.H{
		"name":        "Mercado Central Ltda",
		"document":    "11222333000144",
		"monthly_fee": 2000.00,
		"payment_day": 10,
	})
	created := testutil.AssertSuccess(t, w)
	clientID := created["id"].(string)

	t.Run("returns the client", func(t *testing.T) {
		w := testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/clients/"+clientID, tenantID, nil)
		testutil.AssertStatus(t, w, http.StatusOK)

		data := testutil.AssertSuccess(t, w)
		assert.Equal(t, "Mercado Central Ltda", data["name"])
	})

	t.Run("is invisible to other tenants", func(t *testing.T) {
		otherTenant := uuid.New()
		w := testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/clients/"+clientID, otherTenant, nil)
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("rejects a malformed ID", func(t *testing.T) {
		w := testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/clients/not-a-uuid", tenantID, nil)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestClientHandlerList(t *testing.T) {
	engine := setupClientAPI(t)
	tenantID := testutil.TestTenantID()

	documents := []string{"11111111000111", "22222222000122", "33333333000133"}
	for i, doc := range documents {
		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/clients", tenantID, gin.H{
			"name":        "Cliente " + string(rune('A'+i)),
			"document":    doc,
			"monthly_fee": 500.00,
			"payment_day": 10,
		})
		testutil.AssertStatus(t, w, http.StatusCreated)
	}

	t.Run("pages through the registry", func(t *testing.T) {
		w := testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/clients?page=1&page_size=2", tenantID, nil)
		testutil.AssertStatus(t, w, http.StatusOK)

		resp := testutil.JSONBody(t, w)
		meta := resp["meta"].(map[string]interface{})
		assert.Equal(t, float64(3), meta["total"])
		assert.Equal(t, float64(2), meta["total_pages"])
	})

	t.Run("filters by document", func(t *testing.T) {
		w := testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/clients?document=22222222000122", tenantID, nil)
		testutil.AssertStatus(t, w, http.StatusOK)

		resp := testutil.JSONBody(t, w)
		items := resp["data"].([]interface{})
		require.Len(t, items, 1)
	})
}
