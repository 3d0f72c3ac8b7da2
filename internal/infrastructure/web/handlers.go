package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"NewsAggregator/internal/domain"
	"NewsAggregator/internal/usecase"
)

type handlers struct {
	articles ArticleService
	sources  SourceService
	fetch    FetchTrigger
	logger   *slog.Logger
}

type articleResponse struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	URL            string     `json:"url"`
	Source         string     `json:"source"`
	AddedAt        time.Time  `json:"addedAt"`
	FetchedAt      *time.Time `json:"fetchedAt,omitempty"`
	ContentSnippet string     `json:"contentSnippet,omitempty"`
	GUID           string     `json:"guid,omitempty"`
	Classification string     `json:"classification,omitempty"`
	RelevanceScore *int       `json:"relevanceScore,omitempty"`
}

type pageResponse struct {
	Items      []articleResponse `json:"items"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	Total      int               `json:"total"`
	TotalPages int               `json:"totalPages"`
}

type sourceResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type addArticleRequest struct {
	Title  string `json:"title" validate:"required,max=500"`
	URL    string `json:"url" validate:"required,http_url"`
	Source string `json:"source" validate:"required,max=200"`
}

type addSourceRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	URL  string `json:"url" validate:"required,http_url"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func toArticleResponse(a domain.Article) articleResponse {
	out := articleResponse{
		ID:             a.ID,
		Title:          a.Title,
		URL:            a.URL,
		Source:         a.Source,
		AddedAt:        a.AddedAt,
		ContentSnippet: a.ContentSnippet,
		GUID:           a.GUID,
		Classification: string(a.Classification),
		RelevanceScore: a.RelevanceScore,
	}
	if !a.FetchedAt.IsZero() {
		fetched := a.FetchedAt
		out.FetchedAt = &fetched
	}
	return out
}

func toSourceResponse(s domain.Source) sourceResponse {
	return sourceResponse{ID: s.ID, Name: s.Name, URL: s.URL}
}

func (h *handlers) listArticles(c echo.Context) error {
	var page, pageSize int
	if err := echo.QueryParamsBinder(c).
		Int("page", &page).
		Int("pageSize", &pageSize).
		BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "page and pageSize must be integers"})
	}

	result, err := h.articles.List(c.Request().Context(), page, pageSize)
	if err != nil {
		return err
	}

	items := make([]articleResponse, 0, len(result.Items))
	for _, a := range result.Items {
		items = append(items, toArticleResponse(a))
	}
	return c.JSON(http.StatusOK, pageResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

func (h *handlers) getArticle(c echo.Context) error {
	article, err := h.articles.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toArticleResponse(article))
}

func (h *handlers) addArticle(c echo.Context) error {
	var req addArticleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	article, err := h.articles.Add(c.Request().Context(), usecase.AddArticleInput{
		Title:  req.Title,
		URL:    req.URL,
		Source: req.Source,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toArticleResponse(article))
}

func (h *handlers) deleteArticle(c echo.Context) error {
	if err := h.articles.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) listSources(c echo.Context) error {
	sources, err := h.sources.List(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]sourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, toSourceResponse(s))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *handlers) addSource(c echo.Context) error {
	var req addSourceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	src, err := h.sources.Add(c.Request().Context(), req.Name, req.URL)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSourceResponse(src))
}

func (h *handlers) deleteSource(c echo.Context) error {
	if err := h.sources.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) triggerFetch(c echo.Context) error {
	report, err := h.fetch.TryRunCycle(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// errorHandler maps domain errors onto status codes.
func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := errorResponse{Error: "internal server error"}

		var verr *validationError
		var herr *echo.HTTPError
		switch {
		case errors.As(err, &verr):
			status, body = http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields}
		case errors.Is(err, domain.ErrInvalidArticle), errors.Is(err, domain.ErrInvalidSource):
			status, body.Error = http.StatusBadRequest, err.Error()
		case errors.Is(err, domain.ErrNotFound):
			status, body.Error = http.StatusNotFound, "not found"
		case errors.Is(err, domain.ErrAlreadyExists):
			status, body.Error = http.StatusConflict, err.Error()
		case errors.Is(err, usecase.ErrCycleRunning):
			status, body.Error = http.StatusConflict, err.Error()
		case errors.As(err, &herr):
			status = herr.Code
			body.Error = http.StatusText(herr.Code)
		default:
			logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("write error response", "error", err)
		}
	}
}
