package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	aggregateDomain "github.com/allisson/eventledger/internal/aggregate/domain"
	"github.com/allisson/eventledger/internal/user/domain"
	"github.com/allisson/eventledger/internal/user/http/dto"
	"github.com/allisson/eventledger/internal/user/usecase"
	"github.com/allisson/eventledger/internal/user/usecase/mocks"
)

// setupTestRouter mounts the user routes behind a request id middleware that always yields "req-1".
func setupTestRouter(t *testing.T) (*gin.Engine, *mocks.MockUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewUserHandler(mockUseCase, logger)

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string { return "req-1" })))
	handler.RegisterRoutes(router.Group("/v1"))

	t.Cleanup(func() { mockUseCase.AssertExpectations(t) })
	return router, mockUseCase
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ActorHeader, "admin")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testUser() *domain.User {
	return domain.RehydrateUser(uuid.Must(uuid.NewV7()), "Ada", "ada@example.com", "hash", 1,
		aggregateDomain.Audit{CreatedBy: "admin", UpdatedBy: "admin"})
}

var testMeta = usecase.Metadata{Actor: "admin", CorrelationID: "req-1"}

func TestUserHandler_RegisterHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		user := testUser()
		req := dto.RegisterUserRequest{Name: "Ada", Email: "ada@example.com", Password: "Sup3r$ecret"}

		mockUseCase.On("RegisterUser", mock.Anything, dto.ToRegisterUserInput(req), testMeta).
			Return(user, nil).
			Once()

		w := doRequest(router, http.MethodPost, "/v1/users", req)
		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, user.ID().String(), response.ID)
		assert.Equal(t, "ada@example.com", response.Email)
		assert.NotContains(t, w.Body.String(), "hash")
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/v1/users", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_Validation", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doRequest(router, http.MethodPost, "/v1/users", dto.RegisterUserRequest{Name: "Ada"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_Duplicate", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		req := dto.RegisterUserRequest{Name: "Ada", Email: "ada@example.com", Password: "Sup3r$ecret"}

		mockUseCase.On("RegisterUser", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, domain.ErrUserAlreadyExists).
			Once()

		w := doRequest(router, http.MethodPost, "/v1/users", req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestUserHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		user := testUser()

		mockUseCase.On("GetUserByID", mock.Anything, user.ID()).Return(user, nil).Once()

		w := doRequest(router, http.MethodGet, "/v1/users/"+user.ID().String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_InvalidID", func(t *testing.T) {
		router, _ := setupTestRouter(t)

		w := doRequest(router, http.MethodGet, "/v1/users/not-a-uuid", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("GetUserByID", mock.Anything, id).Return(nil, domain.ErrUserNotFound).Once()

		w := doRequest(router, http.MethodGet, "/v1/users/"+id.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUserHandler_RenameHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		user := testUser()
		version := int64(1)
		req := dto.RenameUserRequest{Name: "Grace", ExpectedVersion: &version}

		mockUseCase.On("RenameUser", mock.Anything, user.ID(), dto.ToRenameUserInput(req), testMeta).
			Return(user, nil).
			Once()

		w := doRequest(router, http.MethodPatch, "/v1/users/"+user.ID().String(), req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Error_VersionConflict", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("RenameUser", mock.Anything, id, mock.Anything, mock.Anything).
			Return(nil, domain.ErrUserVersionConflict).
			Once()

		w := doRequest(router, http.MethodPatch, "/v1/users/"+id.String(), dto.RenameUserRequest{Name: "Grace"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestUserHandler_DeleteAndRestore(t *testing.T) {
	t.Run("Delete", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("DeleteUser", mock.Anything, id, testMeta).Return(nil).Once()

		w := doRequest(router, http.MethodDelete, "/v1/users/"+id.String(), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Delete_AlreadyDeleted", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		id := uuid.Must(uuid.NewV7())

		mockUseCase.On("DeleteUser", mock.Anything, id, testMeta).
			Return(aggregateDomain.ErrAggregateAlreadyDeleted).
			Once()

		w := doRequest(router, http.MethodDelete, "/v1/users/"+id.String(), nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Restore", func(t *testing.T) {
		router, mockUseCase := setupTestRouter(t)
		user := testUser()

		mockUseCase.On("RestoreUser", mock.Anything, user.ID(), testMeta).Return(user, nil).Once()

		w := doRequest(router, http.MethodPost, "/v1/users/"+user.ID().String()+"/restore", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
