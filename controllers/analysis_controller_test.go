package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-soilsync/engine"
	"go-soilsync/history"
	"go-soilsync/logger"
	"go-soilsync/middleware"
	"go-soilsync/models"
	"go-soilsync/services"
	"go-soilsync/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type brokenStore struct {
	history.Store
}

func (brokenStore) Append(context.Context, models.HistoryEntry) error {
	return errors.New("connection refused")
}

// withUser 代替 AuthMiddleware 注入调用者
func withUser(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUser, user)
		c.Set(middleware.ContextUserID, user.ID)
		c.Next()
	}
}

func router(store history.Store, user models.User) *gin.Engine {
	svc := services.NewAnalysisService(engine.NewRuleEngine(engine.NoJitter), store, logger.Nop())
	ac := NewAnalysisController(svc, nil)

	r := gin.New()
	r.Use(withUser(user))
	r.POST("/analyses", ac.SaveAnalysis)
	r.GET("/analyses", ac.GetAnalyses)
	r.GET("/analytics", ac.GetAnalytics)
	return r
}

func TestSaveAnalysisNotSaved(t *testing.T) {
	r := router(brokenStore{Store: history.NewMemoryStore(5)}, models.User{ID: "u1", Role: models.RoleUser})

	req := httptest.NewRequest(http.MethodPost, "/analyses", strings.NewReader(`{"nitrogen":0.1,"phosphorus":30,"potassium":200,"cropType":"maize"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		utils.Response
		Data NotSavedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusInternalServerError, body.Code)
	assert.Equal(t, "analysis not saved", body.Message)
	assert.False(t, body.Data.Saved)
	assert.Equal(t, models.FertilizerNPK23105, body.Data.Recommendation.Fertilizer)
	assert.Equal(t, models.CropMaize, body.Data.SoilData.CropType)
}

func TestOwnerOverride(t *testing.T) {
	store := history.NewMemoryStore(5)
	require.NoError(t, store.Append(context.Background(), models.HistoryEntry{ID: "a", UserID: "farmer"}))

	cases := []struct {
		name   string
		user   models.User
		path   string
		status int
		count  int
	}{
		{"own history", models.User{ID: "farmer", Role: models.RoleUser}, "/analyses", http.StatusOK, 1},
		{"same id in query", models.User{ID: "farmer", Role: models.RoleUser}, "/analyses?userId=farmer", http.StatusOK, 1},
		{"other user forbidden", models.User{ID: "x", Role: models.RoleUser}, "/analyses?userId=farmer", http.StatusForbidden, 0},
		{"anonymous forbidden", models.User{Role: models.RoleAnonymous}, "/analytics?userId=farmer", http.StatusForbidden, 0},
		{"service role", models.User{ID: "svc", Role: models.RoleAdmin}, "/analyses?userId=farmer", http.StatusOK, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router(store, tc.user).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			require.Equal(t, tc.status, w.Code)
			if tc.status != http.StatusOK {
				return
			}
			var body utils.ListResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.count, body.Count)
		})
	}
}
