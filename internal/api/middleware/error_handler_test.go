package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "stateflow.dev/stateflow/internal/pkg/errors"
	"stateflow.dev/stateflow/internal/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

func TestErrorHandler_NoErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestErrorHandler_AppError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrIOTermNotFoundf("t-1"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/fail", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != apperrors.CodeIOTermNotFound {
		t.Errorf("code = %q, want %s", body.Code, apperrors.CodeIOTermNotFound)
	}
	if body.Params["id"] != "t-1" {
		t.Errorf("params.id = %v, want t-1", body.Params["id"])
	}
}

func TestErrorHandler_MissingTermsCarriesIDs(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.PUT("/sync", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrMissingTermsf([]string{"x", "y"}))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/sync", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	var body struct {
		Code   string `json:"code"`
		Params struct {
			IDs []string `json:"ids"`
		} `json:"params"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != apperrors.CodeIOTermsNotFound {
		t.Errorf("code = %q, want %s", body.Code, apperrors.CodeIOTermsNotFound)
	}
	if len(body.Params.IDs) != 2 || body.Params.IDs[0] != "x" || body.Params.IDs[1] != "y" {
		t.Errorf("params.ids = %v, want [x y]", body.Params.IDs)
	}
}

func TestErrorHandler_ValidationFieldErrors(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.POST("/terms", func(c *gin.Context) {
		_ = c.Error(apperrors.ErrValidation(apperrors.FieldError{Field: "label", Code: "required"}))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/terms", nil)
	router.ServeHTTP(w, req)

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.FieldErrors) != 1 || body.FieldErrors[0].Field != "label" {
		t.Errorf("field_errors = %+v, want one entry for label", body.FieldErrors)
	}
}

func TestErrorHandler_GenericError(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/err", func(c *gin.Context) {
		_ = c.Error(fmt.Errorf("something unexpected"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/err", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body["code"])
	}
}
