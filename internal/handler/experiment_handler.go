package handler

import (
	"errors"
	"net/http"

	"model-abtest/internal/model"
	"model-abtest/internal/service"
	"model-abtest/internal/store"

	"github.com/gin-gonic/gin"
)

type ExperimentHandler struct {
	experiments *service.ExperimentService
	evaluator   *service.Evaluator
}

func NewExperimentHandler(experiments *service.ExperimentService, evaluator *service.Evaluator) *ExperimentHandler {
	return &ExperimentHandler{experiments: experiments, evaluator: evaluator}
}

// CreateExperiment 创建实验（draft 状态）
func (h *ExperimentHandler) CreateExperiment(c *gin.Context) {
	var req service.CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = c.GetHeader(HeaderUserID)
	}

	exp, err := h.experiments.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"experiment": exp,
	})
}

// ListExperiments 按状态/环境列出实验
func (h *ExperimentHandler) ListExperiments(c *gin.Context) {
	filter := store.ListFilter{
		Status:      model.ExperimentStatus(c.Query("status")),
		Environment: c.Query("environment"),
	}

	list, err := h.experiments.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []model.Experiment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"experiments": list,
		"total":       len(list),
	})
}

// GetExperiment 获取单个实验
func (h *ExperimentHandler) GetExperiment(c *gin.Context) {
	exp, err := h.experiments.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiment": exp,
	})
}

// UpdateExperiment 部分更新，包括状态切换
func (h *ExperimentHandler) UpdateExperiment(c *gin.Context) {
	var patch service.ExperimentPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exp, err := h.experiments.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiment": exp,
	})
}

// DeleteExperiment 删除实验定义
func (h *ExperimentHandler) DeleteExperiment(c *gin.Context) {
	if err := h.experiments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "删除成功",
	})
}

// GetResults 实时评估实验：各变体指标 + 胜出者
func (h *ExperimentHandler) GetResults(c *gin.Context) {
	results, err := h.evaluator.Evaluate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
	})
}

func respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": verr.Field})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "实验不存在"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
