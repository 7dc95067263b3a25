package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/service"
	"github.com/gmpstack/docflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubWorkflowService 工作流服务桩实现
type stubWorkflowService struct {
	templates map[string]*workflow.Template
	created   *service.CreateWorkflowRequest
	err       error
}

func (s *stubWorkflowService) Create(ctx context.Context, req *service.CreateWorkflowRequest) (*workflow.Template, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = req
	return &workflow.Template{Code: req.Code, Name: req.Name, DocumentType: req.DocumentType, Steps: req.Steps, Version: 1, Active: true}, nil
}

func (s *stubWorkflowService) Get(code string, version int) (*workflow.Template, error) {
	if s.err != nil {
		return nil, s.err
	}
	tpl, ok := s.templates[code]
	if !ok {
		return nil, workflow.ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *stubWorkflowService) Update(ctx context.Context, code string, req *service.UpdateWorkflowRequest) (*workflow.Template, error) {
	if s.err != nil {
		return nil, s.err
	}
	tpl, ok := s.templates[code]
	if !ok {
		return nil, workflow.ErrTemplateNotFound
	}
	return tpl, nil
}

func (s *stubWorkflowService) List() ([]*workflow.Template, error) {
	templates := make([]*workflow.Template, 0, len(s.templates))
	for _, tpl := range s.templates {
		templates = append(templates, tpl)
	}
	return templates, s.err
}

func (s *stubWorkflowService) ListByDocumentType(documentType string) ([]*workflow.Template, error) {
	return s.List()
}

func (s *stubWorkflowService) ListVersions(code string) ([]*workflow.Template, error) {
	if tpl, ok := s.templates[code]; ok {
		return []*workflow.Template{tpl}, nil
	}
	return nil, workflow.ErrTemplateNotFound
}

func (s *stubWorkflowService) SetActive(ctx context.Context, code string, active bool) error {
	if _, ok := s.templates[code]; !ok {
		return workflow.ErrTemplateNotFound
	}
	return nil
}

// newWorkflowRouter 构建只挂载工作流路由的测试路由器
func newWorkflowRouter(svc service.WorkflowService) *gin.Engine {
	router := gin.New()
	controller := NewWorkflowController(svc)
	router.POST("/workflows", controller.Create)
	router.GET("/workflows/:code", controller.Get)
	router.PUT("/workflows/:code/active", controller.SetActive)
	return router
}

// TestWorkflowController_Create 测试模板创建接口
func TestWorkflowController_Create(t *testing.T) {
	svc := &stubWorkflowService{templates: map[string]*workflow.Template{}}
	router := newWorkflowRouter(svc)

	body, _ := json.Marshal(service.CreateWorkflowRequest{
		Code:         "sop-review",
		Name:         "SOP Review",
		DocumentType: "SOP",
		Steps:        []workflow.StepDefinition{{Name: "QA Review", Role: "qa-reviewer", SLAHours: 24}},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "sop-review", svc.created.Code)
}

// TestWorkflowController_CreateRejectsBadCode 测试非法编码被拒绝
func TestWorkflowController_CreateRejectsBadCode(t *testing.T) {
	svc := &stubWorkflowService{templates: map[string]*workflow.Template{}}
	router := newWorkflowRouter(svc)

	body := []byte(`{"code":"sop review!","name":"x","document_type":"SOP","steps":[{"name":"s","role":"r"}]}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Nil(t, svc.created)
}

// TestWorkflowController_Get 测试模板读取接口
func TestWorkflowController_Get(t *testing.T) {
	svc := &stubWorkflowService{templates: map[string]*workflow.Template{
		"sop-review": {Code: "sop-review", Name: "SOP Review", Version: 2},
	}}
	router := newWorkflowRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/sop-review", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// 未知编码映射为 404
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 非法 version 查询参数
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/workflows/sop-review?version=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestWorkflowController_SetActive 测试启停接口
func TestWorkflowController_SetActive(t *testing.T) {
	svc := &stubWorkflowService{templates: map[string]*workflow.Template{
		"sop-review": {Code: "sop-review"},
	}}
	router := newWorkflowRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/workflows/sop-review/active", bytes.NewReader([]byte(`{"active":false}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/workflows/missing/active", bytes.NewReader([]byte(`{"active":true}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
