package model

import "fmt"

// RowError describes why one input record could not be ingested.
type RowError struct {
	MerchantName string `json:"merchantName"`
	Error        string `json:"error"`
	RowNumber    int    `json:"rowNumber"`
}

// UploadResult summarizes one batch ingestion.
type UploadResult struct {
	Errors       []RowError    `json:"errors"`
	Transactions []Transaction `json:"-"`
	TotalRecords int           `json:"totalRecords"`
	SuccessCount int           `json:"successCount"`
	FailureCount int           `json:"failureCount"`
}

// Validate checks the accounting invariants of the result.
func (r *UploadResult) Validate() error {
	if r.SuccessCount+r.FailureCount != r.TotalRecords {
		return fmt.Errorf("success (%d) + failure (%d) != total (%d)",
			r.SuccessCount, r.FailureCount, r.TotalRecords)
	}
	if len(r.Errors) != r.FailureCount {
		return fmt.Errorf("%d row errors recorded for %d failures", len(r.Errors), r.FailureCount)
	}
	for i := 1; i < len(r.Errors); i++ {
		if r.Errors[i-1].RowNumber >= r.Errors[i].RowNumber {
			return fmt.Errorf("row errors not in row order at index %d", i)
		}
	}
	return nil
}
