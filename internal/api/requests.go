package api

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Jaikumar96/fincategorizer/internal/analytics"
	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/ingest"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// looseString accepts a JSON string or number. Amounts arrive both ways.
type looseString string

func (l *looseString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = looseString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("must be a number or a string")
	}
	*l = looseString(n.String())
	return nil
}

// RecordRequest is one raw record of a JSON batch. Fields are validated per
// row by the ingestion pipeline, not here.
type RecordRequest struct {
	Metadata model.Metadata `json:"metadata,omitempty"`
	Date     string         `json:"date"`
	Merchant string         `json:"merchant"`
	Amount   looseString    `json:"amount"`
	Currency string         `json:"currency,omitempty"`
}

func (r RecordRequest) rawRecord() ingest.RawRecord {
	return ingest.RawRecord{
		Date:     r.Date,
		Merchant: r.Merchant,
		Amount:   string(r.Amount),
		Currency: r.Currency,
		Metadata: r.Metadata,
	}
}

// BatchRequest is the JSON body of POST /api/transactions/batch.
type BatchRequest struct {
	Records []RecordRequest `json:"records" validate:"required"`
}

func (b BatchRequest) rawRecords() []ingest.RawRecord {
	out := make([]ingest.RawRecord, len(b.Records))
	for i, r := range b.Records {
		out[i] = r.rawRecord()
	}
	return out
}

// CorrectionRequest is the body of PUT /api/transactions/:id/category.
type CorrectionRequest struct {
	Notes      string `json:"notes" validate:"max=500"`
	CategoryID int    `json:"categoryId" validate:"required,gt=0"`
}

// VerifyRequest is the optional body of POST /api/transactions/:id/verify.
type VerifyRequest struct {
	Notes string `json:"notes" validate:"max=500"`
}

// MaxPageSize caps the limit of GET /api/transactions.
const MaxPageSize = 500

// CategoryRequest is the body of POST /api/categories and
// PUT /api/categories/:id.
type CategoryRequest struct {
	Name        string `json:"categoryName" validate:"required,max=50"`
	Icon        string `json:"icon" validate:"max=16"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Description string `json:"description" validate:"max=200"`
}

func (r CategoryRequest) category(id int, userID int64) *model.Category {
	return &model.Category{
		ID:          id,
		Name:        strings.TrimSpace(r.Name),
		Type:        model.CategoryTypeCustom,
		Icon:        r.Icon,
		Color:       r.Color,
		Description: r.Description,
		UserID:      userID,
	}
}

// bindAndValidate decodes the body into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return common.NewValidationError("body", "", "malformed request body")
		}
		return err
	}
	return c.Validate(req)
}

func queryInt(c echo.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, common.NewValidationError(name, raw, "must be a non-negative integer")
	}
	return n, nil
}

func queryDate(c echo.Context, name string) (*model.Date, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, common.NewValidationError(name, raw, "must be YYYY-MM-DD")
	}
	return &d, nil
}

func queryWindow(c echo.Context) (analytics.Window, error) {
	start, err := queryDate(c, "startDate")
	if err != nil {
		return analytics.Window{}, err
	}
	end, err := queryDate(c, "endDate")
	if err != nil {
		return analytics.Window{}, err
	}
	w := analytics.Window{Start: start, End: end}
	return w, w.Validate()
}

func queryGroupBy(c echo.Context) (model.GroupBy, error) {
	g, err := model.ParseGroupBy(c.QueryParam("groupBy"))
	if err != nil {
		return "", common.NewValidationError("groupBy", c.QueryParam("groupBy"), "must be day, week or month")
	}
	return g, nil
}

func pathInt(c echo.Context, name string) (int, error) {
	raw := c.Param(name)
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, common.NewValidationError(name, raw, "must be a positive integer")
	}
	return n, nil
}
