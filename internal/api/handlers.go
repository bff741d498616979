package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Jaikumar96/fincategorizer/internal/analytics"
	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/ingest"
	"github.com/Jaikumar96/fincategorizer/internal/model"
	"github.com/Jaikumar96/fincategorizer/internal/service"
)

// readerFor picks a file reader by extension.
func readerFor(filename string) (func(io.Reader) ([]ingest.RawRecord, error), error) {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		return ingest.ReadCSV, nil
	case ".ofx", ".qfx":
		return ingest.ReadOFX, nil
	case ".xlsx":
		return ingest.ReadXLSX, nil
	default:
		return nil, common.NewValidationError("file", filename, "must be a .csv, .ofx, .qfx or .xlsx file")
	}
}

func (s *Server) readUpload(c echo.Context) ([]ingest.RawRecord, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		var req BatchRequest
		if err := bindAndValidate(c, &req); err != nil {
			return nil, err
		}
		return req.rawRecords(), nil
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return nil, common.NewValidationError("file", "", "is required")
	}
	read, err := readerFor(fh.Filename)
	if err != nil {
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	records, err := read(src)
	if err != nil && !errors.Is(err, common.ErrValidation) {
		err = fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return records, err
}

func (s *Server) handleBatchUpload(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return err
	}
	records, err := s.readUpload(c)
	if err != nil {
		return err
	}

	result, err := s.deps.Pipeline.Ingest(c.Request().Context(), sessionFrom(c), records, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleListTransactions(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	if limit == 0 || limit > MaxPageSize {
		return common.NewValidationError("limit", c.QueryParam("limit"), fmt.Sprintf("must be between 1 and %d", MaxPageSize))
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	categoryID, err := queryInt(c, "categoryId", 0)
	if err != nil {
		return err
	}
	w, err := queryWindow(c)
	if err != nil {
		return err
	}

	txns, err := s.deps.Transactions.GetTransactions(c.Request().Context(), sessionFrom(c).UserID, service.TransactionFilter{
		StartDate:  w.Start,
		EndDate:    w.End,
		CategoryID: categoryID,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	return c.JSON(http.StatusOK, txns)
}

func (s *Server) handleCreateTransaction(c echo.Context) error {
	var req RecordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	txn, err := s.deps.Pipeline.IngestOne(c.Request().Context(), sessionFrom(c), req.rawRecord())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, txn)
}

func (s *Server) handleCorrect(c echo.Context) error {
	var req CorrectionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	txn, err := s.deps.Review.Correct(c.Request().Context(), sessionFrom(c), c.Param("id"), req.CategoryID, req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txn)
}

func (s *Server) handleVerify(c echo.Context) error {
	var req VerifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	txn, err := s.deps.Review.Verify(c.Request().Context(), sessionFrom(c), c.Param("id"), req.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, txn)
}

func (s *Server) handleCorrections(c echo.Context) error {
	history, err := s.deps.Review.History(c.Request().Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	if history == nil {
		history = []model.Correction{}
	}
	return c.JSON(http.StatusOK, history)
}

func (s *Server) handleReviewQueue(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return err
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return err
	}
	w, err := queryWindow(c)
	if err != nil {
		return err
	}

	items, err := s.deps.Review.Queue(c.Request().Context(), sessionFrom(c), service.TransactionFilter{
		StartDate: w.Start,
		EndDate:   w.End,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (s *Server) handleAccuracy(c echo.Context) error {
	days, err := queryInt(c, "days", analytics.DefaultWindowDays)
	if err != nil {
		return err
	}
	report, err := s.deps.Analytics.Accuracy(c.Request().Context(), sessionFrom(c), days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleDistribution(c echo.Context) error {
	w, err := queryWindow(c)
	if err != nil {
		return err
	}
	dist, err := s.deps.Analytics.CategoryDistribution(c.Request().Context(), sessionFrom(c), w)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dist)
}

func (s *Server) handleTrends(c echo.Context) error {
	groupBy, err := queryGroupBy(c)
	if err != nil {
		return err
	}
	w, err := queryWindow(c)
	if err != nil {
		return err
	}
	points, err := s.deps.Analytics.Trends(c.Request().Context(), sessionFrom(c), groupBy, w)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

func (s *Server) handleDashboard(c echo.Context) error {
	groupBy, err := queryGroupBy(c)
	if err != nil {
		return err
	}
	w, err := queryWindow(c)
	if err != nil {
		return err
	}
	dash, err := s.deps.Analytics.Dashboard(c.Request().Context(), sessionFrom(c), groupBy, w)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dash)
}

func (s *Server) handleListCategories(c echo.Context) error {
	cats, err := s.deps.Categories.GetCategories(c.Request().Context(), sessionFrom(c).UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}

func (s *Server) handleCreateCategory(c echo.Context) error {
	var req CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cat := req.category(0, sessionFrom(c).UserID)
	if err := s.deps.Categories.CreateCategory(c.Request().Context(), cat); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cat)
}

func (s *Server) handleUpdateCategory(c echo.Context) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}
	var req CategoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	cat := req.category(id, sessionFrom(c).UserID)
	if err := s.deps.Categories.UpdateCategory(c.Request().Context(), cat); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cat)
}

func (s *Server) handleDeleteCategory(c echo.Context) error {
	id, err := pathInt(c, "id")
	if err != nil {
		return err
	}
	if err := s.deps.Categories.DeleteCategory(c.Request().Context(), sessionFrom(c).UserID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
