package api_router

import (
	"encoding/base64"
	"net/http"

	"github.com/haierkeys/contract-version-service/internal/app"
	"github.com/haierkeys/contract-version-service/internal/domain"
	"github.com/haierkeys/contract-version-service/internal/dto"
	pkgapp "github.com/haierkeys/contract-version-service/pkg/app"
	"github.com/haierkeys/contract-version-service/pkg/clausediff"
	"github.com/haierkeys/contract-version-service/pkg/code"
	apperrors "github.com/haierkeys/contract-version-service/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// ContractHandler 合同 API 路由处理器
// 使用 App Container 注入依赖，支持统一错误处理
type ContractHandler struct {
	*Handler
}

// NewContractHandler 创建 ContractHandler 实例
func NewContractHandler(a *app.App) *ContractHandler {
	return &ContractHandler{Handler: NewHandler(a)}
}

// Ingest 上传合同
// @Summary 上传合同
// @Description 识别合同身份，新合同写入 v1，已知合同比对条款并写入新版本
// @Tags 合同
// @Accept json
// @Produce json
// @Param params body dto.ContractIngestRequest true "上传参数"
// @Success 200 {object} pkgapp.Res{data=dto.IngestResponse} "成功"
// @Router /api/contract/ingest [post]
func (h *ContractHandler) Ingest(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractIngestRequest{}

	// base64 膨胀约 4/3，再留出条款 JSON 的空间
	if limit := h.App.Config().Server.MaxUploadSize; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit*2)
	}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.Ingest.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	content, err := base64.StdEncoding.DecodeString(params.Content)
	if err != nil {
		response.ToResponse(code.ErrorInvalidParams.WithDetails("content: " + err.Error()))
		return
	}

	ctx := c.Request.Context()
	result, err := h.App.ContractService.Ingest(ctx, &domain.Upload{
		Filename:   params.Filename,
		Content:    content,
		ContractID: params.ContractID,
		Clauses:    params.Clauses,
	})
	if err != nil {
		h.logError(ctx, "ContractHandler.Ingest", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	out := &dto.IngestResponse{
		Outcome:  result.Outcome.String(),
		Hash:     result.Hash,
		Version:  result.Version,
		Degraded: result.Degraded,
		Contract: toContractDTO(result.Contract),
		Diff:     result.Diff,
	}
	response.ToResponse(code.Success.WithData(out))
}

// Get 获取合同详情
// @Summary 获取合同详情
// @Tags 合同
// @Produce json
// @Param id query int64 true "合同 ID"
// @Success 200 {object} pkgapp.Res{data=dto.ContractDTO} "成功"
// @Router /api/contract [get]
func (h *ContractHandler) Get(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractGetRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.Get.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()
	contract, err := h.App.ContractService.Get(ctx, params.ID)
	if err != nil {
		h.logError(ctx, "ContractHandler.Get", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(toContractDTO(contract)))
}

// List 合同列表
// @Summary 合同列表
// @Tags 合同
// @Produce json
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.ContractDTO}} "成功"
// @Router /api/contracts [get]
func (h *ContractHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractListRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.List.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	cfg := h.App.Config().App
	page := pkgapp.GetPage(c)
	pageSize := pkgapp.GetPageSizeWithConfig(c, pkgapp.PaginationConfig{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})
	pkgapp.SetPageSize(c, pageSize)

	ctx := c.Request.Context()
	contracts, total, err := h.App.ContractService.List(ctx, page, pageSize)
	if err != nil {
		h.logError(ctx, "ContractHandler.List", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	list := make([]*dto.ContractDTO, 0, len(contracts))
	for _, ct := range contracts {
		list = append(list, toContractDTO(ct))
	}
	response.ToResponseList(code.Success, list, int(total))
}

// Matches 身份识别候选
// @Summary 身份识别候选
// @Description 按内容哈希或文件名相似度查找可能对应的已知合同
// @Tags 合同
// @Produce json
// @Param params query dto.ContractMatchesRequest true "查询参数"
// @Success 200 {object} pkgapp.Res{data=[]domain.MatchCandidate} "成功"
// @Router /api/contract/matches [get]
func (h *ContractHandler) Matches(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractMatchesRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.Matches.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()
	candidates, err := h.App.IdentityService.FindPotentialMatches(ctx, params.Hash, params.Filename)
	if err != nil {
		h.logError(ctx, "ContractHandler.Matches", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(candidates))
}

// Archive 下载归档的原始上传
// @Summary 下载归档原始文件
// @Tags 合同
// @Produce octet-stream
// @Param hash query string true "内容哈希"
// @Router /api/contract/archive [get]
func (h *ContractHandler) Archive(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractArchiveRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.Archive.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()
	content, err := h.App.ContractService.Archived(ctx, params.Hash)
	if err != nil {
		h.logError(ctx, "ContractHandler.Archive", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+params.Hash+`"`)
	c.Data(http.StatusOK, "application/octet-stream", content)
}

// History 版本历史
// @Summary 版本历史
// @Tags 合同
// @Produce json
// @Param id query int64 true "合同 ID"
// @Success 200 {object} pkgapp.Res{data=[]domain.VersionMetadata} "成功"
// @Router /api/contract/history [get]
func (h *ContractHandler) History(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractGetRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.History.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()
	history, err := h.App.VersionService.History(ctx, params.ID)
	if err != nil {
		h.logError(ctx, "ContractHandler.History", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(history))
}

// Clauses 版本快照
// @Summary 版本快照
// @Description 重建指定版本的完整条款集合，version 缺省为当前版本
// @Tags 合同
// @Produce json
// @Param params query dto.ContractClausesRequest true "查询参数"
// @Success 200 {object} pkgapp.Res{data=dto.SnapshotResponse} "成功"
// @Router /api/contract/clauses [get]
func (h *ContractHandler) Clauses(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractClausesRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.Clauses.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()
	version := params.Version
	if version == 0 {
		contract, err := h.App.ContractService.Get(ctx, params.ID)
		if err != nil {
			h.logError(ctx, "ContractHandler.Clauses", err)
			apperrors.ErrorResponse(c, err)
			return
		}
		version = contract.CurrentVersion
	}

	clauses, err := h.App.VersionService.Reconstruct(ctx, params.ID, version)
	if err != nil {
		h.logError(ctx, "ContractHandler.Clauses", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	out := &dto.SnapshotResponse{
		ContractID: params.ID,
		Version:    version,
		Clauses:    make([]*dto.ClauseDTO, 0, len(clauses)),
	}
	for _, cl := range clauses {
		item := &dto.ClauseDTO{}
		if err := copier.Copy(item, cl); err != nil {
			h.logError(ctx, "ContractHandler.Clauses.Copy", err)
			apperrors.ErrorResponse(c, err)
			return
		}
		item.Metadata = cl.Metadata
		out.Clauses = append(out.Clauses, item)
	}

	response.ToResponse(code.Success.WithData(out))
}

// Diff 版本比对
// @Summary 版本比对
// @Description 比对两个版本的条款快照，修改的条款附带文本补丁
// @Tags 合同
// @Produce json
// @Param params query dto.ContractDiffRequest true "查询参数"
// @Success 200 {object} pkgapp.Res{data=dto.DiffResponse} "成功"
// @Router /api/contract/diff [get]
func (h *ContractHandler) Diff(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ContractDiffRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ContractHandler.Diff.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return
	}

	ctx := c.Request.Context()
	diff, err := h.App.VersionService.CompareVersions(ctx, params.ID, params.From, params.To)
	if err != nil {
		h.logError(ctx, "ContractHandler.Diff", err)
		apperrors.ErrorResponse(c, err)
		return
	}

	response.ToResponse(code.Success.WithData(&dto.DiffResponse{
		ContractID: params.ID,
		From:       params.From,
		To:         params.To,
		Degraded:   diff.Degraded,
		Unchanged:  withPatches(diff, diff.Unchanged),
		Modified:   withPatches(diff, diff.Modified),
		Added:      withPatches(diff, diff.Added),
		Deleted:    withPatches(diff, diff.Deleted),
	}))
}

func withPatches(d *clausediff.Diff, changes []clausediff.Change) []*dto.ClauseChangeDTO {
	out := make([]*dto.ClauseChangeDTO, 0, len(changes))
	for _, ch := range changes {
		out = append(out, &dto.ClauseChangeDTO{Change: ch, Patch: d.Patch(ch)})
	}
	return out
}

func toContractDTO(c *domain.Contract) *dto.ContractDTO {
	if c == nil {
		return nil
	}
	out := &dto.ContractDTO{}
	_ = copier.Copy(out, c)
	return out
}
