package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	mw "github.com/sajulab/sajuback/internal/app/api/middleware"
	"github.com/sajulab/sajuback/internal/app/service/saju"
	"github.com/sajulab/sajuback/pkg/response"
	"github.com/sajulab/sajuback/pkg/types"
)

type analyzeBody struct {
	TestName           string  `json:"test_name" binding:"required,min=2,max=50"`
	BirthDate          string  `json:"birth_date" binding:"required,datetime=2006-01-02"`
	BirthTime          *string `json:"birth_time" binding:"omitempty,datetime=15:04:05"`
	IsBirthTimeUnknown bool    `json:"is_birth_time_unknown"`
	Gender             string  `json:"gender" binding:"required,oneof=male female"`
}

type listParams struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Search string `form:"search"`
}

// @Summary      Run a saju analysis
// @Description  Consumes one analysis credit and returns the generated summary
// @Tags         Saju
// @Accept       json
// @Produce      json
// @Param        request  body  analyzeBody  true  "birth details"
// @Success      200  {object}  saju.SubmitResult
// @Failure      403  {object}  response.ErrorEnvelope
// @Router       /api/saju/analyze [post]
func ApiSajuAnalyze(mgr saju.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body analyzeBody
		if err := c.ShouldBindJSON(&body); err != nil {
			response.FailValidation(c, err)
			return
		}
		req := &saju.AnalyzeRequest{
			TestName:           body.TestName,
			BirthDate:          body.BirthDate,
			BirthTime:          body.BirthTime,
			IsBirthTimeUnknown: body.IsBirthTimeUnknown,
			Gender:             types.Gender(body.Gender),
		}
		if body.IsBirthTimeUnknown {
			req.BirthTime = nil
		}
		res, err := mgr.Submit(c.Request.Context(), mw.UserID(c), req)
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, res)
	}
}

// @Summary      Get an analysis result
// @Tags         Saju
// @Produce      json
// @Param        id  path  string  true  "analysis id"
// @Success      200  {object}  models.SajuTest
// @Failure      404  {object}  response.ErrorEnvelope
// @Router       /api/saju/tests/{id} [get]
func ApiSajuGet(mgr saju.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		test, err := mgr.GetTest(c.Request.Context(), mw.UserID(c), c.Param("id"))
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, test)
	}
}

// @Summary      List analysis history
// @Tags         Saju
// @Produce      json
// @Param        page    query  int     false  "page number"
// @Param        limit   query  int     false  "page size (1-50)"
// @Param        search  query  string  false  "filter by test name"
// @Success      200  {object}  saju.ListResult
// @Router       /api/saju/tests [get]
func ApiSajuList(mgr saju.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params listParams
		if err := c.ShouldBindQuery(&params); err != nil {
			response.FailValidation(c, err)
			return
		}
		res, err := mgr.ListTests(c.Request.Context(), mw.UserID(c), saju.ListQuery{
			Page:   params.Page,
			Limit:  params.Limit,
			Search: lo.Ternary(len(params.Search) <= 100, params.Search, params.Search[:100]),
		})
		if err != nil {
			response.FailErr(c, err)
			return
		}
		response.OK(c, res)
	}
}

func RegisterSajuRoutes(r gin.IRouter, mgr saju.Manager) {
	r.POST("/saju/analyze", ApiSajuAnalyze(mgr))
	r.GET("/saju/tests", ApiSajuList(mgr))
	r.GET("/saju/tests/:id", ApiSajuGet(mgr))
}
