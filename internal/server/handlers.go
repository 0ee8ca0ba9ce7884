package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/sentcheck/internal/check"
	"github.com/ppiankov/sentcheck/internal/parser"
	"github.com/ppiankov/sentcheck/internal/policy"
	"github.com/ppiankov/sentcheck/internal/record"
	"github.com/ppiankov/sentcheck/internal/render"
)

type checkRequest struct {
	Text           string `json:"text"`
	Policy         string `json:"policy,omitempty"`
	ValidityPolicy string `json:"validity_policy,omitempty"`
	Expected       *bool  `json:"expected,omitempty"`
	Record         *bool  `json:"record,omitempty"` // defaults to true
}

type checkResponse struct {
	*check.Result
	Segments []render.Segment `json:"segments"`
	HTML     string           `json:"html"`
	Recorded bool             `json:"recorded"`
}

type policyView struct {
	policy.Policy
	Law string `json:"law"`
}

type policiesResponse struct {
	Table    string       `json:"table"`
	Default  string       `json:"default"`
	Policies []policyView `json:"policies"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) policies(c *gin.Context) {
	table := s.checker.Table()
	resp := policiesResponse{
		Table:   table.Name,
		Default: s.checker.DefaultLevel(),
	}
	for _, p := range table.Policies() {
		resp.Policies = append(resp.Policies, policyView{Policy: p, Law: p.Law()})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) check(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	res, err := s.checker.Check(c.Request.Context(), check.Request{
		Text:           req.Text,
		Policy:         req.Policy,
		ValidityPolicy: req.ValidityPolicy,
		Expected:       req.Expected,
	})
	if err != nil {
		c.JSON(statusFor(err), errorResponse{Error: err.Error()})
		return
	}

	resp := checkResponse{
		Result:   res,
		Segments: render.Segments(res.Classification.Tokens),
		HTML:     render.HTML(res.Classification.Tokens),
	}

	if req.Record == nil || *req.Record {
		added, err := check.Record(c.Request.Context(), s.store, res)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		resp.Recorded = added
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) queriesCSV(c *gin.Context) {
	queries, err := s.store.Queries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="queries.csv"`)
	c.Status(http.StatusOK)
	if err := record.WriteQueriesCSV(c.Writer, queries); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) tokensCSV(c *gin.Context) {
	tokens, err := s.store.Tokens(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="tokens.csv"`)
	c.Status(http.StatusOK)
	if err := record.WriteTokensCSV(c.Writer, tokens); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) report(c *gin.Context) {
	queries, err := s.store.Queries(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.scorer.Calculate(queries))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, policy.ErrInvalidPolicy):
		return http.StatusBadRequest
	case errors.Is(err, parser.ErrSentenceNotFound), errors.Is(err, parser.ErrMalformedParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, parser.ErrParserUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
